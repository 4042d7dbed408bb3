// Package graph keeps identities, posts, comments and their media assets
// consistent with each other across creates, updates and deletes.
//
// Callers authorize before calling in; the Coordinator only orders the
// steps and compensates when a later step fails.
package graph

import (
	"context"
	"errors"
	"log"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/account"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/apperr"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/media"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/post"
)

// Media is the slice of media.Manager the Coordinator needs.
type Media interface {
	Upload(ctx context.Context, s *media.Staged) (string, error)
	Replace(ctx context.Context, oldURL string, s *media.Staged, commit func(newURL string) error) (string, error)
	Release(ctx context.Context, url string) error
}

// Emitter receives a notification for every committed mutation.
type Emitter interface {
	Emit(ctx context.Context, eventType, subjectID, actorID string, payload any)
}

// Coordinator runs multi-step mutations over the resource graph.
type Coordinator struct {
	accounts account.Repository
	posts    post.Repository
	media    Media
	events   Emitter
}

// New creates a Coordinator. events may be nil.
func New(accounts account.Repository, posts post.Repository, m Media, events Emitter) *Coordinator {
	return &Coordinator{accounts: accounts, posts: posts, media: m, events: events}
}

func (c *Coordinator) emit(ctx context.Context, eventType, subjectID, actorID string, payload any) {
	if c.events != nil {
		c.events.Emit(ctx, eventType, subjectID, actorID, payload)
	}
}

// discard releases an asset that was uploaded for a write that then
// failed. Failures are logged; the write's error is what the caller sees.
func (c *Coordinator) discard(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := c.media.Release(ctx, url); err != nil {
		log.Printf("Warning: failed to release orphaned asset %s: %v", url, err)
	}
}

// storeErr maps store sentinels onto the client-facing taxonomy. Errors
// that already carry a kind pass through unchanged.
func storeErr(op string, err error) error {
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		return err
	case errors.Is(err, account.ErrNotFound):
		return apperr.NotFound("User does not exist.")
	case errors.Is(err, post.ErrNotFound):
		return apperr.NotFound("Post not found.")
	case errors.Is(err, post.ErrCommentNotFound):
		return apperr.NotFound("Comment not found.")
	case errors.Is(err, account.ErrUsernameTaken):
		return duplicate("username", "Username already in use.")
	case errors.Is(err, account.ErrEmailTaken):
		return duplicate("email", "E-mail already in use.")
	}
	log.Printf("Error: %s: %v", op, err)
	return apperr.Persistence("Failed to save changes.", err)
}

func duplicate(path, msg string) error {
	var l apperr.List
	l.AddError(path, apperr.New(apperr.KindDuplicateIdentity, msg))
	return l.Err(msg)
}
