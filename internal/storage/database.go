package storage

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"matchlink/internal/config"
	"matchlink/internal/models"
)

// InitDB initializes the database connection using the provided configuration.
func InitDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dsn string
	var dialector gorm.Dialector

	switch cfg.Type {
	case "postgres":
		var dsnParts []string
		dsnParts = append(dsnParts, fmt.Sprintf("host=%s", cfg.Host))
		dsnParts = append(dsnParts, fmt.Sprintf("port=%d", cfg.Port))
		dsnParts = append(dsnParts, fmt.Sprintf("user=%s", cfg.User))
		dsnParts = append(dsnParts, fmt.Sprintf("dbname=%s", cfg.DBName))

		if cfg.Password != "" {
			dsnParts = append(dsnParts, fmt.Sprintf("password=%s", cfg.Password))
		}

		dsnParts = append(dsnParts, fmt.Sprintf("sslmode=%s", cfg.SSLMode))

		dsn = strings.Join(dsnParts, " ")
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newLogger,
		// Map driver unique-violation errors to gorm.ErrDuplicatedKey so the
		// service layer can report them as conflicts.
		TranslateError: true,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// AutoMigrateTables runs GORM's auto-migration for all defined models and
// installs the partial unique index that backs the one-outstanding-invitation
// invariant under concurrent writers.
func AutoMigrateTables(db *gorm.DB) error {
	log.Println("Running database migrations...")
	err := db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Invitation{},
		&models.InvitationEvent{},
	)
	if err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}

	// AutoMigrate cannot express a partial index. Both PostgreSQL and SQLite
	// accept this form.
	err = db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_invitation_outstanding
		 ON invitations (sender_id, receiver_id)
		 WHERE status IN ('pending', 'accepted', 'mutual')`,
	).Error
	if err != nil {
		return fmt.Errorf("failed to create outstanding-invitation index: %w", err)
	}

	log.Println("Database migrations complete.")
	return nil
}
