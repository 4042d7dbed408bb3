package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/account"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/apperr"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/graph"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/pipeline"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/post"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/validate"
)

// handleListPosts lists posts.
// GET /posts?sort=title,-createdAt&limit=10&skip=20&isPublished=true
func (s *Server) handleListPosts(c echo.Context) error {
	ctx := c.Request().Context()
	q := post.ListQuery{Sort: c.QueryParam("sort")}
	if v := c.QueryParam("isPublished"); v != "" {
		published := v == "true"
		q.Published = &published
	}
	q.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	q.Skip, _ = strconv.Atoi(c.QueryParam("skip"))

	posts, err := s.posts.ListPosts(ctx, q)
	if err != nil {
		return apperr.Persistence("Failed to list posts.", err)
	}

	out := make([]postWithComments, 0, len(posts))
	for _, p := range posts {
		comments, err := s.posts.ListCommentsByPost(ctx, p.ID)
		if err != nil {
			return apperr.Persistence("Failed to load comments.", err)
		}
		out = append(out, postWithComments{Post: p, Comments: comments})
	}
	return c.JSON(http.StatusOK, out)
}

// commentWithAuthor is a comment with its author record in place of the
// id.
type commentWithAuthor struct {
	post.Comment
	Author *account.Identity `json:"author"`
}

// handleGetPost returns one post with its comments and their authors.
// GET /posts/:id
func (s *Server) handleGetPost(c echo.Context) error {
	ctx := c.Request().Context()
	p, err := s.posts.GetPost(ctx, c.Param("id"))
	if errors.Is(err, post.ErrNotFound) {
		return apperr.NotFound("Not found.")
	}
	if err != nil {
		return apperr.Persistence("Failed to load post.", err)
	}

	comments, err := s.posts.ListCommentsByPost(ctx, p.ID)
	if err != nil {
		return apperr.Persistence("Failed to load comments.", err)
	}
	authors := map[string]*account.Identity{}
	out := make([]commentWithAuthor, 0, len(comments))
	for _, cm := range comments {
		author, ok := authors[cm.AuthorID]
		if !ok {
			author, err = s.accounts.GetByID(ctx, cm.AuthorID)
			if err != nil && !errors.Is(err, account.ErrNotFound) {
				return apperr.Persistence("Failed to load comment author.", err)
			}
			authors[cm.AuthorID] = author
		}
		out = append(out, commentWithAuthor{Comment: cm, Author: author})
	}

	return c.JSON(http.StatusOK, struct {
		*post.Post
		Comments []commentWithAuthor `json:"comments"`
	}{p, out})
}

// handleCreatePost creates a post owned by the caller.
// POST /posts (multipart, optional "file" cover image)
func (s *Server) handleCreatePost(c echo.Context, st *pipeline.State) error {
	f := st.Form.(*validate.PostForm)
	p := &post.Post{
		Title:       f.Title,
		Content:     f.Content,
		AuthorID:    st.Principal.ID(),
		IsPublished: f.Published(),
	}
	if err := s.graph.CreatePost(c.Request().Context(), p, st.Staged); err != nil {
		return err
	}
	st.Asset = p.CoverImgURL
	return c.JSON(http.StatusOK, p)
}

// handleUpdatePost updates one of the caller's posts.
// PUT /posts/:id (multipart, optional "file" cover image)
func (s *Server) handleUpdatePost(c echo.Context, st *pipeline.State) error {
	f := st.Form.(*validate.PostForm)
	updated, err := s.graph.UpdatePost(c.Request().Context(), st.Post, graph.PostChanges{
		Title:       f.Title,
		Content:     f.Content,
		IsPublished: f.Published(),
		RemoveCover: f.RemoveCover(),
	}, st.Staged)
	if err != nil {
		return err
	}
	st.Asset = updated.CoverImgURL
	return c.JSON(http.StatusOK, updated)
}

// handleDeletePost deletes one of the caller's posts with its comments
// and cover image.
// DELETE /posts/:id
func (s *Server) handleDeletePost(c echo.Context, st *pipeline.State) error {
	if err := s.graph.DeletePost(c.Request().Context(), st.Post.ID); err != nil {
		return err
	}
	return message(c, "Post deleted successfully.")
}
