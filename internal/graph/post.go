package graph

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/events"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/media"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/post"
)

// PostChanges are the editable fields of a post.
type PostChanges struct {
	Title       string
	Content     string
	IsPublished bool
	// RemoveCover clears and releases the current cover when no new cover
	// is staged.
	RemoveCover bool
}

// CreatePost stores p. When cover is non-nil it is uploaded first and
// released again if the record cannot be written.
func (c *Coordinator) CreatePost(ctx context.Context, p *post.Post, cover *media.Staged) error {
	if cover != nil {
		url, err := c.media.Upload(ctx, cover)
		if err != nil {
			return err
		}
		p.CoverImgURL = url
	}

	if err := c.posts.CreatePost(ctx, p); err != nil {
		c.discard(ctx, p.CoverImgURL)
		return storeErr("create post", err)
	}

	c.emit(ctx, events.PostCreated, p.ID, p.AuthorID, map[string]string{"title": p.Title})
	return nil
}

// UpdatePost applies changes to current. A staged cover replaces the old
// one; otherwise RemoveCover clears it. The old asset is released only
// after the new reference is stored.
func (c *Coordinator) UpdatePost(ctx context.Context, current *post.Post, changes PostChanges, cover *media.Staged) (*post.Post, error) {
	next := *current
	next.Title = changes.Title
	next.Content = changes.Content
	next.IsPublished = changes.IsPublished

	write := func(coverURL string) error {
		next.CoverImgURL = coverURL
		if err := c.posts.UpdatePost(ctx, &next); err != nil {
			return storeErr("update post", err)
		}
		return nil
	}

	switch {
	case cover != nil:
		committed := false
		url, err := c.media.Replace(ctx, current.CoverImgURL, cover, func(newURL string) error {
			committed = true
			return write(newURL)
		})
		if err != nil {
			return nil, err
		}
		if !committed {
			if err := write(url); err != nil {
				return nil, err
			}
		}

	case changes.RemoveCover && current.CoverImgURL != "":
		if err := write(""); err != nil {
			return nil, err
		}
		if err := c.media.Release(ctx, current.CoverImgURL); err != nil {
			log.Printf("Warning: removed cover %s could not be released: %v", current.CoverImgURL, err)
		}

	default:
		if err := write(current.CoverImgURL); err != nil {
			return nil, err
		}
	}

	c.emit(ctx, events.PostUpdated, next.ID, next.AuthorID, nil)
	return &next, nil
}

// DeletePost deletes every comment of the post, releases its cover and
// then deletes the post itself. The comment sweep and the post delete
// share one transaction that holds the post, so a comment created
// concurrently either lands before the sweep or finds no post. The cover
// release runs alongside the sweep; if it fails nothing is committed and
// the call can be retried.
func (c *Coordinator) DeletePost(ctx context.Context, postID string) error {
	p, err := c.posts.GetPost(ctx, postID)
	if err != nil {
		return storeErr("get post", err)
	}

	var (
		g          errgroup.Group
		removed    int64
		releaseErr error
	)
	g.Go(func() error {
		releaseErr = c.media.Release(ctx, p.CoverImgURL)
		return releaseErr
	})
	txErr := c.posts.InTx(ctx, func(tx post.Tx) error {
		if _, err := tx.GetPost(ctx, postID); err != nil {
			return err
		}
		n, err := tx.DeleteCommentsByPost(ctx, postID)
		if err != nil {
			_ = g.Wait()
			return err
		}
		removed = n
		if err := g.Wait(); err != nil {
			return err
		}
		return tx.DeletePost(ctx, postID)
	})
	_ = g.Wait()

	if txErr != nil {
		if releaseErr != nil {
			return releaseErr
		}
		if p.CoverImgURL != "" {
			// The cover is gone; do not leave the post pointing at it.
			if err := c.posts.SetCover(ctx, postID, ""); err != nil {
				log.Printf("Warning: post %s still references released cover %s: %v", postID, p.CoverImgURL, err)
			}
		}
		return storeErr("delete post", txErr)
	}

	c.emit(ctx, events.PostDeleted, postID, p.AuthorID, map[string]int64{"comments": removed})
	return nil
}
