// Package pipeline runs a request through an explicit, ordered list of
// stages that share one per-request State.
//
// Each stage either returns nil to continue with the (possibly updated)
// state or returns an error to short-circuit; the error is rendered by
// the server's error handler. A staged upload is released when the
// pipeline returns, whichever stage ended it.
package pipeline

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/account"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/apperr"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/guard"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/media"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/post"
)

// State is everything the stages of one request learn and pass on.
type State struct {
	Principal guard.Principal

	// Staged is the request's uploaded file, nil when none was sent.
	Staged *media.Staged
	// MediaErr is the staging or media-type failure of the upload, if
	// any. It is also recorded in Errors.
	MediaErr error
	// Asset is the remote URL the upload was promoted to. Handlers set it
	// once the owning record is stored.
	Asset string

	// Errors collects field errors from every validating stage.
	Errors apperr.List
	// Form is the bound and sanitized request form.
	Form any

	// Resources loaded by earlier stages for later ones.
	Subject *account.Identity
	Post    *post.Post
	Comment *post.Comment
}

// Stage is one step of a pipeline.
type Stage func(c echo.Context, st *State) error

// Run composes stages into a handler. Stages run in order; the first
// error stops the pipeline. The upload outcome is logged once the
// pipeline returns.
func Run(stages ...Stage) echo.HandlerFunc {
	return func(c echo.Context) error {
		st := &State{}
		defer func() {
			st.Staged.Release()
			st.logUpload(c)
		}()

		for _, stage := range stages {
			if err := stage(c, st); err != nil {
				return err
			}
		}
		return nil
	}
}

func (st *State) logUpload(c echo.Context) {
	req := c.Request()
	switch {
	case st.MediaErr != nil:
		log.Printf("Warning: %s %s: upload rejected: %v", req.Method, req.URL.Path, st.MediaErr)
	case st.Asset != "" && st.Staged != nil:
		log.Printf("%s %s: stored upload %s as %s", req.Method, req.URL.Path, st.Staged.Filename, st.Asset)
	}
}

// Authenticate resolves the request's principal. It never fails.
func Authenticate(g *guard.Guard) Stage {
	return func(c echo.Context, st *State) error {
		st.Principal = g.Authenticate(c.Request().Context(), c.Request())
		return nil
	}
}

// RequireAuthenticated stops anonymous requests.
func RequireAuthenticated(_ echo.Context, st *State) error {
	return guard.RequireAuthenticated(st.Principal)
}

// RequireAnonymous stops authenticated requests.
func RequireAnonymous(_ echo.Context, st *State) error {
	return guard.RequireAnonymous(st.Principal)
}

// StageFile copies the multipart file named field into the staging area
// and checks its media type. Problems are recorded in st.Errors and
// st.MediaErr rather than stopping the pipeline, so they are reported
// together with field validation. A request without the file is not an
// error.
func StageFile(m *media.Manager, field string) Stage {
	return func(c echo.Context, st *State) error {
		fh, err := c.FormFile(field)
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
				return nil
			}
			var ae *apperr.Error
			if !errors.As(err, &ae) {
				err = &apperr.Error{Kind: apperr.KindValidation, Message: "Could not read the uploaded file.", Field: field, Cause: err}
			}
			st.MediaErr = err
			st.Errors.AddError(field, err)
			return nil
		}

		staged, err := m.Stage(fh)
		if err != nil {
			st.MediaErr = err
			st.Errors.AddError(field, err)
			return nil
		}
		st.Staged = staged

		if err := m.Validate(staged); err != nil {
			st.MediaErr = err
			st.Errors.AddError(field, err)
		}
		return nil
	}
}

// Check stops the pipeline with every collected field error, if any.
func Check(message string) Stage {
	return func(_ echo.Context, st *State) error {
		return st.Errors.Err(message)
	}
}
