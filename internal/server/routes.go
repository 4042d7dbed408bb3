package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/apperr"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/pipeline"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/validate"
)

// registerRoutes sets up all HTTP routes. Each route is a pipeline whose
// stages run in the listed order.
func (s *Server) registerRoutes(mediaDir string) {
	var (
		authn    = pipeline.Authenticate(s.guard)
		required = pipeline.RequireAuthenticated
		anon     = pipeline.RequireAnonymous
		file     = pipeline.StageFile(s.media, "file")
	)

	// --- Public endpoints ---
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/", pipeline.Run(authn, anon, s.handleIndex))
	s.echo.GET("/authenticated", pipeline.Run(authn, required, s.handleAuthenticatedIndex))
	s.echo.GET("/events", s.handleEvents)
	if mediaDir != "" {
		s.echo.Static("/media", mediaDir)
	}

	// --- Identities ---
	s.echo.POST("/users/signup", pipeline.Run(authn, anon, file,
		bindForm[validate.Signup](), s.uniqueIdentity, pipeline.Check("Failed signup"), s.handleSignup))
	s.echo.POST("/users/signin", pipeline.Run(authn, anon,
		bindForm[validate.Signin](), pipeline.Check("Failed login"), s.handleSignin))
	s.echo.POST("/users/logout", pipeline.Run(authn, required, s.handleLogout))
	s.echo.GET("/users/:id", pipeline.Run(authn, required, s.loadSubject, s.handleGetUser))
	s.echo.PUT("/users/:id", pipeline.Run(authn, required, s.loadSubject, ownsSubject, file,
		bindForm[validate.Profile](), s.uniqueIdentity, pipeline.Check("Update user failed."), s.handleUpdateUser))
	s.echo.DELETE("/users/:id", pipeline.Run(authn, required, s.loadSubject, ownsSubject, s.handleDeleteUser))

	// --- Posts ---
	s.echo.GET("/posts", s.handleListPosts)
	s.echo.GET("/posts/:id", s.handleGetPost)
	s.echo.POST("/posts", pipeline.Run(authn, required, file,
		bindForm[validate.PostForm](), pipeline.Check("Failed to create post."), s.handleCreatePost))
	s.echo.PUT("/posts/:id", pipeline.Run(authn, required, s.loadPost, ownsPost, file,
		bindForm[validate.PostForm](), pipeline.Check("Failed to update post."), s.handleUpdatePost))
	s.echo.DELETE("/posts/:id", pipeline.Run(authn, required, s.loadPost, ownsPost, s.handleDeletePost))

	// --- Comments ---
	// POST takes the post id; the other methods take the comment id.
	s.echo.GET("/comments", pipeline.Run(authn, required, s.handleListComments))
	s.echo.GET("/comments/:id", pipeline.Run(authn, required, s.loadComment, s.handleGetComment))
	s.echo.POST("/comments/:id", pipeline.Run(authn, required,
		bindForm[validate.CommentForm](), pipeline.Check("Failed to create comment."), s.handleCreateComment))
	s.echo.PUT("/comments/:id", pipeline.Run(authn, required, s.loadComment, ownsComment,
		bindForm[validate.CommentForm](), pipeline.Check("Failed to update comment."), s.handleUpdateComment))
	s.echo.DELETE("/comments/:id", pipeline.Run(authn, required, s.loadComment, ownsComment, s.handleDeleteComment))
}

// handleHealth returns basic server health information.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":   "ok",
		"authMode": string(s.creds.Mode()),
	})
}

func (s *Server) handleIndex(c echo.Context, _ *pipeline.State) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Welcome to the blog API. Sign up at /users/signup or sign in at /users/signin.",
	})
}

func (s *Server) handleAuthenticatedIndex(c echo.Context, st *pipeline.State) error {
	return c.JSON(http.StatusOK, map[string]any{
		"message": "You are authenticated.",
		"user":    st.Principal.Identity,
	})
}

func message(c echo.Context, msg string) error {
	return c.JSON(http.StatusOK, map[string]string{"message": msg})
}

var errBadBody = apperr.New(apperr.KindValidation, "Invalid request body.")
