package profile

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleClient     Role = "client"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

var (
	ErrNotFound            = errors.New("profile not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrNameRequired        = errors.New("full name is required")
	ErrInvalidRole         = errors.New("invalid role")
	ErrNegativeCredits     = errors.New("credits cannot be negative")
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleClient, RoleInstructor, RoleAdmin:
		return Role(s), nil
	}
	return "", ErrInvalidRole
}

// Profile is a studio member: a client with class credits, or a staff user.
type Profile struct {
	ID               string         `db:"id"`
	FullName         string         `db:"full_name"`
	Phone            sql.NullString `db:"phone"`
	Notes            sql.NullString `db:"notes"`
	CreditsRemaining int            `db:"credits_remaining"`
	IsActive         bool           `db:"is_active"`
	Role             Role           `db:"role"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

// IsStaff reports whether the profile belongs to an instructor or admin.
func (p Profile) IsStaff() bool {
	return p.Role == RoleInstructor || p.Role == RoleAdmin
}

// Adjusted returns the credit balance after applying delta, refusing to go
// below zero.
func (p Profile) Adjusted(delta int) (int, error) {
	next := p.CreditsRemaining + delta
	if next < 0 {
		return p.CreditsRemaining, ErrInsufficientCredits
	}
	return next, nil
}

// Edit is the set of fields staff can change on a profile.
type Edit struct {
	FullName         string
	Phone            string
	Role             Role
	CreditsRemaining int
	Notes            string
}

// Normalize trims the edit and checks it can be written.
func (e Edit) Normalize() (Edit, error) {
	e.FullName = strings.TrimSpace(e.FullName)
	e.Phone = strings.TrimSpace(e.Phone)
	e.Notes = strings.TrimSpace(e.Notes)
	if e.FullName == "" {
		return e, ErrNameRequired
	}
	if e.CreditsRemaining < 0 {
		return e, ErrNegativeCredits
	}
	if _, err := ParseRole(string(e.Role)); err != nil {
		return e, err
	}
	return e, nil
}

// Apply copies the edit onto p.
func (e Edit) Apply(p Profile) Profile {
	p.FullName = e.FullName
	p.Phone = nullable(e.Phone)
	p.Notes = nullable(e.Notes)
	p.Role = e.Role
	p.CreditsRemaining = e.CreditsRemaining
	return p
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
