package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/apperr"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/pipeline"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/validate"
)

// GET /comments?sort=-createdAt
func (s *Server) handleListComments(c echo.Context, _ *pipeline.State) error {
	comments, err := s.posts.ListComments(c.Request().Context(), c.QueryParam("sort"))
	if err != nil {
		return apperr.Persistence("Failed to list comments.", err)
	}
	return c.JSON(http.StatusOK, comments)
}

// GET /comments/:id
func (s *Server) handleGetComment(c echo.Context, st *pipeline.State) error {
	return c.JSON(http.StatusOK, st.Comment)
}

// handleCreateComment adds a comment by the caller to the post :id.
// POST /comments/:id
func (s *Server) handleCreateComment(c echo.Context, st *pipeline.State) error {
	f := st.Form.(*validate.CommentForm)
	cm, err := s.graph.CreateComment(c.Request().Context(), c.Param("id"), st.Principal.ID(), f.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cm)
}

// PUT /comments/:id
func (s *Server) handleUpdateComment(c echo.Context, st *pipeline.State) error {
	f := st.Form.(*validate.CommentForm)
	cm, err := s.graph.UpdateComment(c.Request().Context(), st.Comment.ID, f.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cm)
}

// DELETE /comments/:id
func (s *Server) handleDeleteComment(c echo.Context, st *pipeline.State) error {
	if err := s.graph.DeleteComment(c.Request().Context(), st.Comment); err != nil {
		return err
	}
	return message(c, "Comment deleted successfully.")
}
