package graph

import (
	"context"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/events"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/post"
)

// CreateComment stores a comment and appends it to the post's reference
// set in one transaction. A missing post is NotFound and nothing is
// written.
func (c *Coordinator) CreateComment(ctx context.Context, postID, authorID, content string) (*post.Comment, error) {
	cm := &post.Comment{Content: content, AuthorID: authorID, PostID: postID}
	err := c.posts.InTx(ctx, func(tx post.Tx) error {
		if _, err := tx.GetPost(ctx, postID); err != nil {
			return err
		}
		if err := tx.InsertComment(ctx, cm); err != nil {
			return err
		}
		return tx.AppendCommentRef(ctx, postID, cm.ID)
	})
	if err != nil {
		return nil, storeErr("create comment", err)
	}

	c.emit(ctx, events.CommentCreated, cm.ID, authorID, map[string]string{"post": postID})
	return cm, nil
}

// UpdateComment replaces a comment's content.
func (c *Coordinator) UpdateComment(ctx context.Context, id, content string) (*post.Comment, error) {
	cm, err := c.posts.UpdateComment(ctx, id, content)
	if err != nil {
		return nil, storeErr("update comment", err)
	}
	c.emit(ctx, events.CommentUpdated, cm.ID, cm.AuthorID, nil)
	return cm, nil
}

// DeleteComment removes cm from its post's reference set and then
// deletes it. Both happen in one transaction; the comment is never
// deleted while the reference removal has failed.
func (c *Coordinator) DeleteComment(ctx context.Context, cm *post.Comment) error {
	err := c.posts.InTx(ctx, func(tx post.Tx) error {
		if err := tx.RemoveCommentRef(ctx, cm.PostID, cm.ID); err != nil {
			return err
		}
		return tx.DeleteComment(ctx, cm.ID)
	})
	if err != nil {
		return storeErr("delete comment", err)
	}
	c.emit(ctx, events.CommentDeleted, cm.ID, cm.AuthorID, map[string]string{"post": cm.PostID})
	return nil
}
