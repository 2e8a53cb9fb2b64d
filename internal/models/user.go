package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleProfessor UserRole = "professor"
)

func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleProfessor
}

// Teacher is both a login account and a payroll subject
type Teacher struct {
	ID           uint     `json:"id" gorm:"primaryKey"`
	Name         string   `json:"name" gorm:"not null;size:120"`
	Email        *string  `json:"email,omitempty" gorm:"uniqueIndex;size:255"`
	PasswordHash string   `json:"-" gorm:"not null;size:100"`
	Role         UserRole `json:"role" gorm:"not null;size:20;default:professor"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Teacher) TableName() string {
	return "professores"
}

func (t *Teacher) IsAdmin() bool {
	return t.Role == RoleAdmin
}

// SetPassword stores a bcrypt hash of password
func (t *Teacher) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	t.PasswordHash = string(hash)
	return nil
}

func (t *Teacher) CheckPassword(password string) bool {
	if t.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(t.PasswordHash), []byte(password)) == nil
}

// PasswordResetToken is a single-use, expiring reset credential
type PasswordResetToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TeacherID uint      `json:"teacher_id" gorm:"not null;index"`
	Token     string    `json:"-" gorm:"not null;uniqueIndex;size:64"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
	Used      bool      `json:"used" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`

	Teacher Teacher `json:"-" gorm:"foreignKey:TeacherID;constraint:OnDelete:CASCADE"`
}

func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}

// Usable reports whether the token can still be redeemed at now
func (p *PasswordResetToken) Usable(now time.Time) bool {
	return !p.Used && now.Before(p.ExpiresAt)
}
