package graph

import (
	"context"
	"log"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/account"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/events"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/media"
)

// CreateIdentity stores a new identity. When avatar is non-nil it is
// uploaded first and released again if the record cannot be written.
func (c *Coordinator) CreateIdentity(ctx context.Context, p account.CreateParams, avatar *media.Staged) (*account.Identity, error) {
	if avatar != nil {
		url, err := c.media.Upload(ctx, avatar)
		if err != nil {
			return nil, err
		}
		p.ProfilePicURL = url
	}

	i, err := c.accounts.Create(ctx, p)
	if err != nil {
		c.discard(ctx, p.ProfilePicURL)
		return nil, storeErr("create identity", err)
	}

	c.emit(ctx, events.IdentityCreated, i.ID, i.ID, map[string]string{"username": i.Username})
	return i, nil
}

// UpdateIdentity overwrites the profile fields of current and, when
// avatar is non-nil, replaces its avatar. Fields and the new avatar
// reference are stored in one write that is the commit step of the
// replacement, so a failed write leaves both the old fields and the old
// avatar in place.
func (c *Coordinator) UpdateIdentity(ctx context.Context, current *account.Identity, p account.UpdateParams, avatar *media.Staged) (*account.Identity, error) {
	var updated *account.Identity
	write := func(avatarURL *string) error {
		p.ProfilePicURL = avatarURL
		i, err := c.accounts.Update(ctx, current.ID, p)
		if err != nil {
			return storeErr("update identity", err)
		}
		updated = i
		return nil
	}

	if avatar != nil {
		if _, err := c.media.Replace(ctx, current.ProfilePicURL, avatar, func(newURL string) error {
			return write(&newURL)
		}); err != nil {
			return nil, err
		}
	}
	if updated == nil {
		// No avatar, or the same content as the existing one.
		if err := write(nil); err != nil {
			return nil, err
		}
	}

	c.emit(ctx, events.IdentityUpdated, updated.ID, updated.ID, nil)
	return updated, nil
}

// UpdateIdentityMedia replaces the avatar of identity with avatar. The
// new reference is persisted only after the new asset is uploaded, and
// the old asset is released only after the reference is persisted.
func (c *Coordinator) UpdateIdentityMedia(ctx context.Context, identity *account.Identity, avatar *media.Staged) (string, error) {
	url, err := c.media.Replace(ctx, identity.ProfilePicURL, avatar, func(newURL string) error {
		if err := c.accounts.SetAvatar(ctx, identity.ID, newURL); err != nil {
			return storeErr("set avatar", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if url != identity.ProfilePicURL {
		c.emit(ctx, events.IdentityUpdated, identity.ID, identity.ID, map[string]string{"profilePicUrl": url})
	}
	return url, nil
}

// DeleteIdentity removes an identity and everything it owns: the
// comments it wrote, its posts (with their comments and covers) and its
// avatar. The identity record goes last so a failure part-way leaves it
// in place for a retry.
func (c *Coordinator) DeleteIdentity(ctx context.Context, id string) error {
	identity, err := c.accounts.GetByID(ctx, id)
	if err != nil {
		return storeErr("get identity", err)
	}

	comments, err := c.posts.ListCommentsByAuthor(ctx, id)
	if err != nil {
		return storeErr("list comments", err)
	}
	for i := range comments {
		if err := c.DeleteComment(ctx, &comments[i]); err != nil {
			return err
		}
	}

	posts, err := c.posts.ListPostsByAuthor(ctx, id)
	if err != nil {
		return storeErr("list posts", err)
	}
	for _, p := range posts {
		if err := c.DeletePost(ctx, p.ID); err != nil {
			return err
		}
	}

	if err := c.media.Release(ctx, identity.ProfilePicURL); err != nil {
		return err
	}
	if err := c.accounts.Delete(ctx, id); err != nil {
		if identity.ProfilePicURL != "" {
			// The avatar is gone; do not leave the record pointing at it.
			if err := c.accounts.SetAvatar(ctx, id, ""); err != nil {
				log.Printf("Warning: identity %s still references released avatar %s: %v", id, identity.ProfilePicURL, err)
			}
		}
		return storeErr("delete identity", err)
	}

	c.emit(ctx, events.IdentityDeleted, id, id, map[string]int{"posts": len(posts), "comments": len(comments)})
	return nil
}
