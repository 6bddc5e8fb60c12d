package models

// Roles assigned to user accounts. Admins can moderate profiles and
// override invitation state.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account in the system. The matchmaking profile a user
// publishes lives in Profile; User carries only identity and credentials.
type User struct {
	BaseModel
	Username     string `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"`
	Email        string `gorm:"type:varchar(100);uniqueIndex" json:"email,omitempty"`
	Role         string `gorm:"type:varchar(20);not null;default:'user'" json:"role"`

	Profile *Profile `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
