package server

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/account"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/apperr"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/guard"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/pipeline"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/post"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/validate"
)

// checker is a form that validates and sanitizes itself.
type checker[F any] interface {
	*F
	Check(errs *apperr.List)
}

// bindForm binds the request body into a fresh F, checks it and stores it
// in st.Form. Field problems are collected, not returned.
func bindForm[F any, PF checker[F]]() pipeline.Stage {
	return func(c echo.Context, st *pipeline.State) error {
		form := PF(new(F))
		if err := c.Bind(form); err != nil {
			return errBadBody
		}
		form.Check(&st.Errors)
		st.Form = form
		return nil
	}
}

// uniqueIdentity records DuplicateIdentity errors for a username or email
// that belongs to another identity. On update the subject's own values
// are allowed.
func (s *Server) uniqueIdentity(c echo.Context, st *pipeline.State) error {
	var username, email string
	switch f := st.Form.(type) {
	case *validate.Signup:
		username, email = f.Username, f.Email
	case *validate.Profile:
		username, email = f.Username, f.Email
	default:
		return nil
	}
	var exceptID string
	if st.Subject != nil {
		exceptID = st.Subject.ID
	}
	if err := validate.Unique(c.Request().Context(), s.accounts, username, email, exceptID, &st.Errors); err != nil {
		return apperr.Persistence("Failed to check username and email.", err)
	}
	return nil
}

// loadSubject loads the identity named by the :id path parameter.
func (s *Server) loadSubject(c echo.Context, st *pipeline.State) error {
	i, err := s.accounts.GetByID(c.Request().Context(), c.Param("id"))
	if errors.Is(err, account.ErrNotFound) {
		return apperr.NotFound("User does not exist.")
	}
	if err != nil {
		return apperr.Persistence("Failed to load user.", err)
	}
	st.Subject = i
	return nil
}

func ownsSubject(_ echo.Context, st *pipeline.State) error {
	return guard.RequireOwner(st.Principal, st.Subject.ID)
}

// loadPost loads the post named by the :id path parameter.
func (s *Server) loadPost(c echo.Context, st *pipeline.State) error {
	p, err := s.posts.GetPost(c.Request().Context(), c.Param("id"))
	if errors.Is(err, post.ErrNotFound) {
		return apperr.NotFound("Post not found.")
	}
	if err != nil {
		return apperr.Persistence("Failed to load post.", err)
	}
	st.Post = p
	return nil
}

func ownsPost(_ echo.Context, st *pipeline.State) error {
	return guard.RequireOwner(st.Principal, st.Post.AuthorID)
}

// loadComment loads the comment named by the :id path parameter.
func (s *Server) loadComment(c echo.Context, st *pipeline.State) error {
	cm, err := s.posts.GetComment(c.Request().Context(), c.Param("id"))
	if errors.Is(err, post.ErrCommentNotFound) {
		return apperr.NotFound("Comment not found.")
	}
	if err != nil {
		return apperr.Persistence("Failed to load comment.", err)
	}
	st.Comment = cm
	return nil
}

func ownsComment(_ echo.Context, st *pipeline.State) error {
	return guard.RequireOwner(st.Principal, st.Comment.AuthorID)
}
