package validate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/account"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/apperr"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/memstore"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/validate"
)

func validSignup() validate.Signup {
	return validate.Signup{
		FirstName:       "Alice",
		LastName:        "Liddell",
		Email:           "alice@example.com",
		Username:        "alice",
		Password:        "wonderland",
		PasswordConfirm: "wonderland",
		DateOfBirth:     "1990-05-04",
	}
}

func paths(l *apperr.List) map[string]string {
	out := map[string]string{}
	for _, f := range l.Fields() {
		out[f.Path] = f.Msg
	}
	return out
}

func TestSignupValid(t *testing.T) {
	f := validSignup()
	f.FirstName = "  Alice  "
	var errs apperr.List
	f.Check(&errs)

	assert.Equal(t, 0, errs.Len())
	assert.Equal(t, "Alice", f.FirstName)
	require.NotNil(t, f.Birth())
	assert.Equal(t, 1990, f.Birth().Year())
}

func TestSignupReportsEveryField(t *testing.T) {
	f := validate.Signup{
		FirstName:       "Al",
		LastName:        "ThisLastNameIsFarTooLong",
		Email:           "not-an-email",
		Username:        "al",
		Password:        "short",
		PasswordConfirm: "",
		DateOfBirth:     "04/05/1990",
	}
	var errs apperr.List
	f.Check(&errs)

	got := paths(&errs)
	assert.Equal(t, "First name must be atleast 3 characters long.", got["firstName"])
	assert.Equal(t, "Last name must be a maximum of 20 characters long.", got["lastName"])
	assert.Equal(t, "Email is not a valid email address.", got["email"])
	assert.Equal(t, "username must be atleast 3 characters long.", got["username"])
	assert.Equal(t, "Password must be atleast 8 characters long.", got["password"])
	assert.Equal(t, "Password confirm must not be empty.", got["passwordConfirm"])
	assert.Equal(t, "Date of birth must be a date (YYYY-MM-DD).", got["dateOfBirth"])

	err := errs.Err("Failed signup")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSignupPasswordMismatch(t *testing.T) {
	f := validSignup()
	f.PasswordConfirm = "wonderlanD"
	var errs apperr.List
	f.Check(&errs)

	assert.Equal(t, map[string]string{"passwordConfirm": "Doesn't match the password."}, paths(&errs))
}

func TestSignupEscapesMarkup(t *testing.T) {
	f := validSignup()
	f.Bio = `<script>alert("x")</script>`
	var errs apperr.List
	f.Check(&errs)

	assert.Equal(t, 0, errs.Len())
	assert.Equal(t, "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;", f.Bio)
}

func TestPostForm(t *testing.T) {
	f := validate.PostForm{Title: "Hi", Content: "  ok ", IsPublished: "on", RemoveCoverImg: "false"}
	var errs apperr.List
	f.Check(&errs)

	assert.Equal(t, map[string]string{
		"title":   "Title should be 3-32 characters long",
		"content": "Content should be atleast 3 characters long",
	}, paths(&errs))
	assert.True(t, f.Published())
	assert.False(t, f.RemoveCover())
}

func TestCommentForm(t *testing.T) {
	f := validate.CommentForm{Content: "<b>nice</b>"}
	var errs apperr.List
	f.Check(&errs)

	assert.Equal(t, 0, errs.Len())
	assert.Equal(t, "&lt;b&gt;nice&lt;/b&gt;", f.Content)
}

func TestUnique(t *testing.T) {
	ctx := context.Background()
	accounts := memstore.NewAccounts()
	alice, err := accounts.Create(ctx, account.CreateParams{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	var errs apperr.List
	require.NoError(t, validate.Unique(ctx, accounts, "alice", "alice@example.com", "", &errs))
	assert.Equal(t, map[string]string{
		"email":    "E-mail already in use.",
		"username": "Username already in use.",
	}, paths(&errs))
	assert.ErrorIs(t, errs.Err("Failed signup"), apperr.ErrDuplicateIdentity)

	var own apperr.List
	require.NoError(t, validate.Unique(ctx, accounts, "alice", "alice@example.com", alice.ID, &own))
	assert.Equal(t, 0, own.Len())
}

func TestUniqueSkipsInvalidFields(t *testing.T) {
	ctx := context.Background()
	accounts := memstore.NewAccounts()
	accounts.Fail("EmailExists", errors.New("must not be called"))

	var errs apperr.List
	errs.Add("email", "Email is not a valid email address.")
	require.NoError(t, validate.Unique(ctx, accounts, "bob", "bad", "", &errs))
	assert.Equal(t, 1, errs.Len())

	accounts.Fail("UsernameExists", errors.New("db down"))
	assert.Error(t, validate.Unique(ctx, accounts, "bob", "bad", "", &errs))
}
