package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/account"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/apperr"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/auth"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/pipeline"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/post"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/validate"
)

// handleSignup creates an identity and signs it in.
// POST /users/signup (multipart, optional "file" avatar)
func (s *Server) handleSignup(c echo.Context, st *pipeline.State) error {
	ctx := c.Request().Context()
	f := st.Form.(*validate.Signup)

	hash, err := s.creds.Hash(f.Password)
	if err != nil {
		return err
	}

	identity, err := s.graph.CreateIdentity(ctx, account.CreateParams{
		Username:     f.Username,
		Email:        f.Email,
		FirstName:    f.FirstName,
		LastName:     f.LastName,
		PasswordHash: hash,
		Bio:          f.Bio,
		DateOfBirth:  f.Birth(),
	}, st.Staged)
	if err != nil {
		return err
	}
	st.Asset = identity.ProfilePicURL

	log.Printf("Created user %s (%s)", identity.Username, identity.ID)
	return s.signIn(c, identity)
}

// handleSignin verifies a username and password and issues a credential.
// POST /users/signin
func (s *Server) handleSignin(c echo.Context, st *pipeline.State) error {
	ctx := c.Request().Context()
	f := st.Form.(*validate.Signin)

	identity, err := s.accounts.GetByUsername(ctx, f.Username)
	if errors.Is(err, account.ErrNotFound) {
		st.Errors.Add("username", "Username "+f.Username+" doesn't exist.")
		return failedLogin(&st.Errors)
	}
	if err != nil {
		return apperr.Persistence("Failed to load user.", err)
	}
	if !s.creds.Verify(f.Password, identity.PasswordHash) {
		st.Errors.Add("password", "Incorrect password.")
		return failedLogin(&st.Errors)
	}

	return s.signIn(c, identity)
}

func failedLogin(errs *apperr.List) error {
	return &apperr.Error{Kind: apperr.KindAuthentication, Message: "Failed login", Fields: errs.Fields()}
}

// signIn issues a credential for identity and writes it to the response:
// as a bearer token in the body, or as the session cookie.
func (s *Server) signIn(c echo.Context, identity *account.Identity) error {
	cred, err := s.creds.Issue(c.Request().Context(), identity.ID)
	if err != nil {
		return err
	}

	if cred.Mode == auth.ModeSession {
		c.SetCookie(&http.Cookie{
			Name:     auth.SessionCookieName,
			Value:    cred.Value,
			Path:     "/",
			Expires:  cred.ExpiresAt,
			HttpOnly: true,
			Secure:   c.IsTLS(),
			SameSite: http.SameSiteLaxMode,
		})
		return c.JSON(http.StatusOK, map[string]string{"userId": identity.ID})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"token":  cred.Value,
		"userId": identity.ID,
	})
}

// handleLogout revokes the presented credential.
// POST /users/logout
func (s *Server) handleLogout(c echo.Context, st *pipeline.State) error {
	if err := s.creds.Revoke(c.Request().Context(), st.Principal.Credential); err != nil {
		log.Printf("Warning: revoke credential of %s: %v", st.Principal.ID(), err)
	}
	s.clearSessionCookie(c)
	return message(c, "Logged out.")
}

func (s *Server) clearSessionCookie(c echo.Context) {
	if s.creds.Mode() != auth.ModeSession {
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// postWithComments is a post with its comment records in place of ids.
type postWithComments struct {
	post.Post
	Comments []post.Comment `json:"comments"`
}

// handleGetUser returns an identity and its posts.
// GET /users/:id
func (s *Server) handleGetUser(c echo.Context, st *pipeline.State) error {
	ctx := c.Request().Context()
	posts, err := s.posts.ListPostsByAuthor(ctx, st.Subject.ID)
	if err != nil {
		return apperr.Persistence("Failed to load posts.", err)
	}

	out := make([]postWithComments, 0, len(posts))
	for _, p := range posts {
		comments, err := s.posts.ListCommentsByPost(ctx, p.ID)
		if err != nil {
			return apperr.Persistence("Failed to load comments.", err)
		}
		out = append(out, postWithComments{Post: p, Comments: comments})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"user":  st.Subject,
		"posts": out,
	})
}

// handleUpdateUser updates the caller's own profile and, when a file was
// sent, replaces the avatar.
// PUT /users/:id
func (s *Server) handleUpdateUser(c echo.Context, st *pipeline.State) error {
	f := st.Form.(*validate.Profile)
	updated, err := s.graph.UpdateIdentity(c.Request().Context(), st.Subject, account.UpdateParams{
		Username:    f.Username,
		Email:       f.Email,
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		Bio:         f.Bio,
		DateOfBirth: f.Birth(),
	}, st.Staged)
	if err != nil {
		return err
	}
	st.Asset = updated.ProfilePicURL

	return c.JSON(http.StatusOK, map[string]any{
		"message":     "User updated successfully.",
		"updatedUser": updated,
	})
}

// handleDeleteUser deletes the caller's own identity with everything it
// owns and revokes its credentials.
// DELETE /users/:id
func (s *Server) handleDeleteUser(c echo.Context, st *pipeline.State) error {
	ctx := c.Request().Context()
	if err := s.graph.DeleteIdentity(ctx, st.Subject.ID); err != nil {
		return err
	}
	if err := s.creds.RevokeAll(ctx, st.Subject.ID); err != nil {
		log.Printf("Warning: revoke credentials of deleted user %s: %v", st.Subject.ID, err)
	}
	s.clearSessionCookie(c)

	log.Printf("Deleted user %s", st.Subject.ID)
	return message(c, "User deleted successfully.")
}
