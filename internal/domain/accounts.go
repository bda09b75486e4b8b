package domain

import "time"

// Roles recognised by the authorization middleware.
const (
	RoleUser     = "user"
	RoleApprover = "approver"
	RoleHR       = "hr"
	RoleMaster   = "master"
)

// IsPrivileged reports whether role may see and administer every approval.
func IsPrivileged(role string) bool {
	return role == RoleHR || role == RoleMaster
}

// User is a registered account. Email is the login identity and is stored
// lowercase.
type User struct {
	ID           string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Email        string    `json:"email"      gorm:"type:varchar(320);not null;uniqueIndex"`
	PasswordHash string    `json:"-"          gorm:"type:varchar(255);not null"`
	Role         string    `json:"role"       gorm:"type:varchar(16);not null;default:'user'"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// DirectoryEntry maps a person's display name to their canonical email.
// The directory is seeded externally (claimctl directory import).
type DirectoryEntry struct {
	Email      string    `json:"email"      gorm:"type:varchar(320);primaryKey"`
	Name       string    `json:"name"       gorm:"type:varchar(255);not null;index"`
	Department string    `json:"department" gorm:"type:varchar(128);not null;default:''"`
	Title      string    `json:"title"      gorm:"type:varchar(128);not null;default:''"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for DirectoryEntry.
func (DirectoryEntry) TableName() string { return "directory_entries" }
