package validate

import (
	"context"
	"fmt"
	"time"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/apperr"
)

const dateLayout = "2006-01-02"

// Signup is the registration form.
type Signup struct {
	FirstName       string `form:"firstName" json:"firstName" validate:"min=3,max=20"`
	LastName        string `form:"lastName" json:"lastName" validate:"min=3,max=20"`
	Email           string `form:"email" json:"email" validate:"required,email"`
	Username        string `form:"username" json:"username" validate:"min=3,max=20"`
	Password        string `form:"password" json:"password" validate:"min=8"`
	PasswordConfirm string `form:"passwordConfirm" json:"passwordConfirm" validate:"required"`
	Bio             string `form:"bio" json:"bio"`
	DateOfBirth     string `form:"dateOfBirth" json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
}

var identityMessages = Messages{
	"firstName.min":            "First name must be atleast 3 characters long.",
	"firstName.max":            "First name must be a maximum of 20 characters long.",
	"lastName.min":             "Last name must be atleast 3 characters long.",
	"lastName.max":             "Last name must be a maximum of 20 characters long.",
	"email.required":           "Email must not be empty.",
	"email.email":              "Email is not a valid email address.",
	"username.min":             "username must be atleast 3 characters long.",
	"username.max":             "username must be a maximum of 20 characters long.",
	"password.min":             "Password must be atleast 8 characters long.",
	"passwordConfirm.required": "Password confirm must not be empty.",
	"dateOfBirth.datetime":     "Date of birth must be a date (YYYY-MM-DD).",
}

// Check validates and sanitizes the form. The password confirmation is
// only compared once both password rules passed.
func (f *Signup) Check(errs *apperr.List) {
	Struct(f, identityMessages, errs)
	if !errs.Has("password") && !errs.Has("passwordConfirm") && f.PasswordConfirm != f.Password {
		errs.Add("passwordConfirm", "Doesn't match the password.")
	}
	Escape(&f.FirstName, &f.LastName, &f.Email, &f.Username, &f.Bio)
}

// Birth returns the parsed date of birth, or nil when empty or invalid.
func (f *Signup) Birth() *time.Time { return parseDate(f.DateOfBirth) }

// Signin is the sign-in form.
type Signin struct {
	Username string `form:"username" json:"username" validate:"min=3,max=20"`
	Password string `form:"password" json:"password" validate:"min=8"`
}

// Check validates and sanitizes the form.
func (f *Signin) Check(errs *apperr.List) {
	Struct(f, identityMessages, errs)
	Escape(&f.Username)
}

// Profile is the identity update form. The password cannot be changed
// through it.
type Profile struct {
	FirstName   string `form:"firstName" json:"firstName" validate:"min=3,max=20"`
	LastName    string `form:"lastName" json:"lastName" validate:"min=3,max=20"`
	Email       string `form:"email" json:"email" validate:"required,email"`
	Username    string `form:"username" json:"username" validate:"min=3,max=20"`
	Bio         string `form:"bio" json:"bio"`
	DateOfBirth string `form:"dateOfBirth" json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
}

// Check validates and sanitizes the form.
func (f *Profile) Check(errs *apperr.List) {
	Struct(f, identityMessages, errs)
	Escape(&f.FirstName, &f.LastName, &f.Email, &f.Username, &f.Bio)
}

// Birth returns the parsed date of birth, or nil when empty or invalid.
func (f *Profile) Birth() *time.Time { return parseDate(f.DateOfBirth) }

// PostForm is the post create and update form.
type PostForm struct {
	Title          string `form:"title" json:"title" validate:"min=3,max=32"`
	Content        string `form:"content" json:"content" validate:"min=3"`
	IsPublished    string `form:"isPublished" json:"isPublished"`
	RemoveCoverImg string `form:"removeCoverImg" json:"removeCoverImg"`
}

var postMessages = Messages{
	"title.min":   "Title should be 3-32 characters long",
	"title.max":   "Title should be 3-32 characters long",
	"content.min": "Content should be atleast 3 characters long",
}

// Check validates and sanitizes the form.
func (f *PostForm) Check(errs *apperr.List) {
	Struct(f, postMessages, errs)
	Escape(&f.Title, &f.Content)
}

// Published reports whether isPublished was set to a true value.
func (f *PostForm) Published() bool { return truthy(f.IsPublished) }

// RemoveCover reports whether removeCoverImg was set to a true value.
func (f *PostForm) RemoveCover() bool { return truthy(f.RemoveCoverImg) }

// CommentForm is the comment create and update form.
type CommentForm struct {
	Content string `form:"content" json:"content" validate:"min=3"`
}

// Check validates and sanitizes the form.
func (f *CommentForm) Check(errs *apperr.List) {
	Struct(f, postMessages, errs)
	Escape(&f.Content)
}

// UniquenessChecker looks up existing usernames and emails.
type UniquenessChecker interface {
	UsernameExists(ctx context.Context, username, exceptID string) (bool, error)
	EmailExists(ctx context.Context, email, exceptID string) (bool, error)
}

// Unique records a DuplicateIdentity field error for a username or email
// already used by an identity other than exceptID. Fields that already
// failed validation are not looked up. The returned error is a lookup
// failure, not a collision.
func Unique(ctx context.Context, c UniquenessChecker, username, email, exceptID string, errs *apperr.List) error {
	if !errs.Has("email") {
		taken, err := c.EmailExists(ctx, email, exceptID)
		if err != nil {
			return fmt.Errorf("validate: email lookup: %w", err)
		}
		if taken {
			errs.AddError("email", apperr.New(apperr.KindDuplicateIdentity, "E-mail already in use."))
		}
	}
	if !errs.Has("username") {
		taken, err := c.UsernameExists(ctx, username, exceptID)
		if err != nil {
			return fmt.Errorf("validate: username lookup: %w", err)
		}
		if taken {
			errs.AddError("username", apperr.New(apperr.KindDuplicateIdentity, "Username already in use."))
		}
	}
	return nil
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func truthy(s string) bool {
	switch s {
	case "true", "on", "1":
		return true
	}
	return false
}
