// Package forms defines the auth form shapes and their field-level
// validation. Shape checks live here; uniqueness conflicts are detected
// at the storage layer and merged into the same per-field error map by
// the service.
package forms

import (
	"secureauth/api/internal/security"
)

// FieldErrors maps form field name to a user-facing message.
type FieldErrors map[string]string

func (fe FieldErrors) Any() bool {
	return len(fe) > 0
}

type RegisterForm struct {
	Username        string `form:"username"`
	Email           string `form:"email"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
	Next            string `form:"next"`
}

// Validate checks shape constraints only, independent of uniqueness.
// Username and Email are normalized in place.
func (f *RegisterForm) Validate() FieldErrors {
	errs := FieldErrors{}

	f.Username = security.NormalizeIdentifier(f.Username)
	f.Email = security.NormalizeIdentifier(f.Email)

	switch {
	case f.Username == "":
		errs["username"] = "Username is required"
	case !security.ValidUsername(f.Username):
		errs["username"] = "3-32 chars, letters numbers underscore only"
	}

	switch {
	case f.Email == "":
		errs["email"] = "Email is required"
	case !security.ValidEmail(f.Email):
		errs["email"] = "Enter a valid email address"
	}

	switch {
	case f.Password == "":
		errs["password"] = "Password is required"
	case !security.ValidPasswordComplexity(f.Password):
		errs["password"] = "Use upper, lower, number, special, 12+ chars"
	}

	if errs["password"] == "" && f.Password != f.ConfirmPassword {
		errs["confirm_password"] = "Passwords must match"
	}

	return errs
}

type LoginForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
	Remember bool   `form:"remember"`
	Next     string `form:"next"`
}

// Validate checks only presence, address syntax, and password length.
// Complexity is deliberately not re-checked at login: passwords accepted
// under an older registration policy must keep working.
func (f *LoginForm) Validate() FieldErrors {
	errs := FieldErrors{}

	f.Email = security.NormalizeIdentifier(f.Email)

	switch {
	case f.Email == "":
		errs["email"] = "Email is required"
	case !security.ValidEmail(f.Email):
		errs["email"] = "Enter a valid email address"
	}

	switch {
	case f.Password == "":
		errs["password"] = "Password is required"
	case !security.ValidPasswordLength(f.Password):
		errs["password"] = "Password must be 12-128 characters"
	}

	return errs
}
