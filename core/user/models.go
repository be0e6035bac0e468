package user

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/uninotes/core"
)

// Role is the authorization tier of a user.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

var Roles = []Role{RoleUser, RoleAdmin, RoleSuperAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsModerator is true for admin and super_admin.
func (r Role) IsModerator() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// NormalizeRole maps a stored role to a Role. Unknown values get the least privilege.
func NormalizeRole(s string) Role {
	r := Role(core.CleanString(s, true /* lower */))
	if !r.Valid() {
		return RoleUser
	}
	return r
}

// Profile is the application-level record of a user.
type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	Role        Role      `json:"role"`
	AvatarURL   string    `json:"avatar_url"`
	FacultyID   string    `json:"faculty_id"`
	ProdiID     string    `json:"prodi_id"`
	FacultyName string    `json:"faculty_name"`
	ProdiName   string    `json:"prodi_name"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// CurrentUser returns the session entity of the profile.
func (p Profile) CurrentUser() *CurrentUser {
	return &CurrentUser{
		ID:          p.ID,
		FullName:    p.FullName,
		Email:       p.Email,
		FacultyID:   p.FacultyID,
		ProdiID:     p.ProdiID,
		FacultyName: p.FacultyName,
		ProdiName:   p.ProdiName,
		Role:        p.Role,
		AvatarURL:   p.AvatarURL,
	}
}

// CurrentUser is the authenticated user of a client session. nil means anonymous.
type CurrentUser struct {
	ID          string `json:"id"`
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	FacultyID   string `json:"faculty_id"`
	ProdiID     string `json:"prodi_id"`
	FacultyName string `json:"faculty_name"`
	ProdiName   string `json:"prodi_name"`
	Role        Role   `json:"role"`
	AvatarURL   string `json:"avatar_url"`
}

// CanModerate is true iff the user is an admin or a super_admin.
func (u *CurrentUser) CanModerate() bool {
	return u != nil && u.Role.IsModerator()
}

// RoleChange is the outcome of a role change request.
type RoleChange struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	From     Role   `json:"from"`
	To       Role   `json:"to"`
}

func (rc RoleChange) Changed() bool   { return rc.From != rc.To }
func (rc RoleChange) Promotion() bool { return rc.Changed() && rc.To == RoleAdmin }

// NewAccount contains information needed to register a new user.
type NewAccount struct {
	FullName        string `json:"full_name" validate:"required,notblank,min=3"`
	Email           string `json:"email" validate:"required,email"`
	FacultyID       string `json:"faculty_id" validate:"required"`
	ProdiID         string `json:"prodi_id" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (na *NewAccount) Validate(validate *validator.Validate) error {
	na.FullName = core.CleanString(na.FullName)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.FacultyID = core.CleanString(na.FacultyID)
	na.ProdiID = core.CleanString(na.ProdiID)
	return validate.Struct(na)
}

// NewPassword is used to set a new password (recovery or settings).
type NewPassword struct {
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (np NewPassword) Validate(validate *validator.Validate) error { return validate.Struct(np) }

// ChangePassword requires the current password to be re-checked.
type ChangePassword struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	Password        string `json:"password" validate:"required,nefield=CurrentPassword"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (cp ChangePassword) Validate(validate *validator.Validate) error { return validate.Struct(cp) }
