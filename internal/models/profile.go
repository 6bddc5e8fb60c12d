package models

// ProfileStatus is the moderation state of a profile.
type ProfileStatus string

const (
	ProfileStatusPending  ProfileStatus = "pending"
	ProfileStatusApproved ProfileStatus = "approved"
	ProfileStatusRejected ProfileStatus = "rejected"
)

// Profile is the matchmaking profile published by a user. Each user has at
// most one profile, and only approved profiles can be the target of an
// invitation. The phone number is never serialized directly; it is disclosed
// through the invitation projection once a connection is confirmed.
type Profile struct {
	BaseModel
	UserID      uint          `gorm:"not null;uniqueIndex" json:"userId"`
	DisplayName string        `gorm:"type:varchar(100);not null" json:"displayName"`
	Age         int           `json:"age,omitempty"`
	Gender      string        `gorm:"type:varchar(20)" json:"gender,omitempty"`
	Location    string        `gorm:"type:varchar(100)" json:"location,omitempty"`
	PhotoURL    string        `gorm:"type:varchar(255)" json:"photoUrl,omitempty"`
	Bio         string        `gorm:"type:text" json:"bio,omitempty"`
	Phone       string        `gorm:"type:varchar(30)" json:"-"`
	Verified    bool          `json:"verified"`
	Premium     bool          `json:"premium"`
	Status      ProfileStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
}

// TableName specifies the table name for the Profile model.
func (Profile) TableName() string {
	return "profiles"
}

// ProfileCard holds the public display attributes of a profile as embedded
// in invitation views. Phone is nil unless the invitation status permits
// contact disclosure.
type ProfileCard struct {
	UserID      uint    `json:"userId"`
	DisplayName string  `json:"displayName"`
	Age         int     `json:"age,omitempty"`
	Gender      string  `json:"gender,omitempty"`
	Location    string  `json:"location,omitempty"`
	PhotoURL    string  `json:"photoUrl,omitempty"`
	Verified    bool    `json:"verified"`
	Premium     bool    `json:"premium"`
	Phone       *string `json:"phone"`
}

// Card builds the public projection of the profile without the phone field.
func (p *Profile) Card() *ProfileCard {
	return &ProfileCard{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		Age:         p.Age,
		Gender:      p.Gender,
		Location:    p.Location,
		PhotoURL:    p.PhotoURL,
		Verified:    p.Verified,
		Premium:     p.Premium,
	}
}
