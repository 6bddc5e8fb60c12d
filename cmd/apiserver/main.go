package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"matchlink/internal/config"
	"matchlink/internal/handlers/apiserver"
	appKafka "matchlink/internal/kafka"
	"matchlink/internal/middleware"
	appRedis "matchlink/internal/redis"
	"matchlink/internal/services"
	"matchlink/internal/storage"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	redisDriver "github.com/redis/go-redis/v9"
)

func main() {
	// 1. Load configuration
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("%s API server configuration loaded.", cfg.AppName)

	// 2. Initialize database connection
	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := storage.AutoMigrateTables(db); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	// 3. Initialize Redis client and token blacklist
	redisClient := redisDriver.NewClient(&redisDriver.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	tokenBlacklist := appRedis.NewRedisTokenBlacklist(redisClient)

	// 4. Initialize repositories
	userRepo := storage.NewGormUserRepository(db)
	profileRepo := storage.NewGormProfileRepository(db)
	invitationRepo := storage.NewGormInvitationRepository(db)

	// 5. Initialize Kafka producer for invitation lifecycle events
	producer, err := appKafka.NewConfluentKafkaProducer(cfg.Kafka)
	if err != nil {
		log.Fatalf("Failed to create Kafka producer: %v", err)
	}
	defer producer.Close()

	// 6. Initialize services
	authService := services.NewAuthService(userRepo, cfg)
	profileService := services.NewProfileService(profileRepo)
	invitationService := services.NewInvitationService(db, invitationRepo, profileRepo, producer, cfg.Kafka)

	// 7. Initialize handlers
	authHandler := apiserver.NewAuthHandler(authService, tokenBlacklist)
	profileHandler := apiserver.NewProfileHandler(profileService)
	invitationHandler := apiserver.NewInvitationHandler(invitationService)

	// 8. Routes
	r := mux.NewRouter()

	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)

	authMW := middleware.AuthMiddleware(cfg.Auth.JWTSecretKey, tokenBlacklist)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(authMW)

	apiRouter.HandleFunc("/auth/logout", authHandler.LogoutHandler).Methods(http.MethodPost)

	// Profile routes
	apiRouter.HandleFunc("/profiles", profileHandler.CreateProfileHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/profiles/me", profileHandler.GetMyProfileHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/profiles/me", profileHandler.UpdateMyProfileHandler).Methods(http.MethodPut)
	apiRouter.HandleFunc("/profiles/{userID:[0-9]+}", profileHandler.GetProfileHandler).Methods(http.MethodGet)

	// Invitation routes
	apiRouter.HandleFunc("/invitations", invitationHandler.SendInvitationHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/invitations", invitationHandler.ListInvitationsHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/invitations/{invitationID}/accept", invitationHandler.AcceptInvitationHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/invitations/{invitationID}/decline", invitationHandler.DeclineInvitationHandler).Methods(http.MethodPost)

	// Admin routes (role check happens in the service layer)
	adminRouter := apiRouter.PathPrefix("/admin").Subrouter()
	adminRouter.HandleFunc("/profiles", profileHandler.ListProfilesByStatusHandler).Methods(http.MethodGet)
	adminRouter.HandleFunc("/profiles/{userID:[0-9]+}/approve", profileHandler.ModerateProfileHandler(true)).Methods(http.MethodPost)
	adminRouter.HandleFunc("/profiles/{userID:[0-9]+}/reject", profileHandler.ModerateProfileHandler(false)).Methods(http.MethodPost)
	adminRouter.HandleFunc("/invitations/{invitationID}/status", invitationHandler.AdminSetStatusHandler).Methods(http.MethodPut)

	// 9. CORS
	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(cfg.APIServer.CORS.AllowedOrigins),
		gorillaHandlers.AllowedMethods(cfg.APIServer.CORS.AllowedMethods),
		gorillaHandlers.AllowedHeaders(cfg.APIServer.CORS.AllowedHeaders),
		gorillaHandlers.ExposedHeaders(cfg.APIServer.CORS.ExposedHeaders),
		gorillaHandlers.AllowCredentials(),
		gorillaHandlers.MaxAge(cfg.APIServer.CORS.MaxAge),
	)(r)

	// 10. HTTP server with graceful shutdown
	addr := fmt.Sprintf("%s:%s", cfg.APIServer.Host, cfg.APIServer.Port)
	srv := &http.Server{
		Addr:           addr,
		Handler:        corsHandler,
		ReadTimeout:    cfg.APIServer.ReadTimeout,
		WriteTimeout:   cfg.APIServer.WriteTimeout,
		MaxHeaderBytes: cfg.APIServer.MaxHeaderBytes,
	}

	go func() {
		log.Printf("API server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("API server shutdown error: %v", err)
	}
	log.Println("API server stopped.")
}
