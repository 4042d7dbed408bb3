// Package post provides the post and comment models and their
// PostgreSQL store.
//
// Every id in a post's CommentIDs must name an existing comment whose
// PostID is that post. The database does not enforce this; callers keep
// it by running paired mutations through InTx.
package post

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors.
var (
	ErrNotFound        = errors.New("post: not found")
	ErrCommentNotFound = errors.New("post: comment not found")
)

// Post is a blog post.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	AuthorID    string    `json:"author"`
	CoverImgURL string    `json:"coverImgUrl"`
	CommentIDs  []string  `json:"commentIds"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Comment is a comment on a post.
type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"author"`
	PostID    string    `json:"post"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListQuery filters and pages a post listing.
type ListQuery struct {
	// Published filters on the publication flag when non-nil.
	Published *bool
	// Sort is a comma-separated list of fields; a leading "-" sorts
	// descending. Allowed fields: createdAt, updatedAt, title.
	Sort  string
	Limit int
	Skip  int
}

// Tx is the set of record operations that may be grouped into one
// transaction. Within InTx, GetPost holds the post until the transaction
// ends, so a concurrent transaction reading the same post waits for it.
type Tx interface {
	GetPost(ctx context.Context, id string) (*Post, error)
	DeletePost(ctx context.Context, id string) error
	SetCover(ctx context.Context, postID, url string) error

	GetComment(ctx context.Context, id string) (*Comment, error)
	InsertComment(ctx context.Context, c *Comment) error
	DeleteComment(ctx context.Context, id string) error
	// DeleteCommentsByPost deletes every comment whose PostID is postID
	// and returns how many were removed.
	DeleteCommentsByPost(ctx context.Context, postID string) (int64, error)

	// AppendCommentRef and RemoveCommentRef maintain a post's reference
	// set atomically. Both return ErrNotFound when the post is missing.
	AppendCommentRef(ctx context.Context, postID, commentID string) error
	RemoveCommentRef(ctx context.Context, postID, commentID string) error
}

// Repository is the post and comment persistence port.
type Repository interface {
	Tx

	// InTx runs fn with a Tx whose operations commit together or not at
	// all.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	CreatePost(ctx context.Context, p *Post) error
	UpdatePost(ctx context.Context, p *Post) error
	ListPosts(ctx context.Context, q ListQuery) ([]Post, error)
	ListPostsByAuthor(ctx context.Context, authorID string) ([]Post, error)

	UpdateComment(ctx context.Context, id, content string) (*Comment, error)
	ListComments(ctx context.Context, sort string) ([]Comment, error)
	ListCommentsByPost(ctx context.Context, postID string) ([]Comment, error)
	ListCommentsByAuthor(ctx context.Context, authorID string) ([]Comment, error)
}
