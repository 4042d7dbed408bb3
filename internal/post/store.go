package post

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/database"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// queries implements Tx over any dbtx. Inside a transaction GetPost
// locks the row until commit.
type queries struct {
	q         dbtx
	forUpdate bool
}

// Store provides post and comment CRUD backed by PostgreSQL.
type Store struct {
	queries
	db *database.DB
}

// NewStore creates a post Store.
func NewStore(db *database.DB) *Store {
	return &Store{queries: queries{q: db.Pool}, db: db}
}

// InTx runs fn inside a database transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.InTx(ctx, func(tx pgx.Tx) error {
		return fn(&queries{q: tx, forUpdate: true})
	})
}

const postColumns = `id::text, title, content, author_id::text, cover_img_url, comment_ids::text[],
	is_published, created_at, updated_at`

const commentColumns = `id::text, content, author_id::text, post_id::text, created_at, updated_at`

func scanPost(row pgx.Row) (*Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID, &p.CoverImgURL, &p.CommentIDs,
		&p.IsPublished, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.CommentIDs == nil {
		p.CommentIDs = []string{}
	}
	return &p, nil
}

func scanComment(row pgx.Row) (*Comment, error) {
	var c Comment
	if err := row.Scan(&c.ID, &c.Content, &c.AuthorID, &c.PostID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreatePost inserts p, filling its id and timestamps.
func (s *Store) CreatePost(ctx context.Context, p *Post) error {
	p.ID = uuid.NewString()
	err := s.q.QueryRow(ctx,
		`INSERT INTO posts (id, title, content, author_id, cover_img_url, is_published)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING comment_ids::text[], created_at, updated_at`,
		p.ID, p.Title, p.Content, p.AuthorID, p.CoverImgURL, p.IsPublished,
	).Scan(&p.CommentIDs, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("post: create: %w", err)
	}
	return nil
}

// UpdatePost writes title, content, cover and publication flag.
func (s *Store) UpdatePost(ctx context.Context, p *Post) error {
	err := s.q.QueryRow(ctx,
		`UPDATE posts SET title = $2, content = $3, cover_img_url = $4, is_published = $5, updated_at = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		p.ID, p.Title, p.Content, p.CoverImgURL, p.IsPublished,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, p.ID)
	}
	if err != nil {
		return fmt.Errorf("post: update %q: %w", p.ID, err)
	}
	return nil
}

// ListPosts returns posts matching q.
func (s *Store) ListPosts(ctx context.Context, q ListQuery) ([]Post, error) {
	var (
		where []string
		args  []any
	)
	if q.Published != nil {
		args = append(args, *q.Published)
		where = append(where, fmt.Sprintf("is_published = $%d", len(args)))
	}

	query := `SELECT ` + postColumns + ` FROM posts`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY ` + orderBy(q.Sort, map[string]string{
		"createdAt": "created_at",
		"updatedAt": "updated_at",
		"title":     "title",
	})
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Skip > 0 {
		args = append(args, q.Skip)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return s.listPosts(ctx, query, args...)
}

// ListPostsByAuthor returns every post of authorID, newest first.
func (s *Store) ListPostsByAuthor(ctx context.Context, authorID string) ([]Post, error) {
	if uuid.Validate(authorID) != nil {
		return []Post{}, nil
	}
	return s.listPosts(ctx,
		`SELECT `+postColumns+` FROM posts WHERE author_id = $1 ORDER BY created_at DESC`, authorID)
}

func (s *Store) listPosts(ctx context.Context, query string, args ...any) ([]Post, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("post: list: %w", err)
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("post: list scan: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// UpdateComment replaces a comment's content.
func (s *Store) UpdateComment(ctx context.Context, id, content string) (*Comment, error) {
	if uuid.Validate(id) != nil {
		return nil, fmt.Errorf("%w: %s", ErrCommentNotFound, id)
	}
	c, err := scanComment(s.q.QueryRow(ctx,
		`UPDATE comments SET content = $2, updated_at = NOW() WHERE id = $1
		 RETURNING `+commentColumns, id, content))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCommentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("post: update comment %q: %w", id, err)
	}
	return c, nil
}

// ListComments returns every comment in the given sort order.
func (s *Store) ListComments(ctx context.Context, sort string) ([]Comment, error) {
	return s.listComments(ctx, `SELECT `+commentColumns+` FROM comments ORDER BY `+orderBy(sort, map[string]string{
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	}))
}

// ListCommentsByPost returns a post's comments, oldest first.
func (s *Store) ListCommentsByPost(ctx context.Context, postID string) ([]Comment, error) {
	if uuid.Validate(postID) != nil {
		return []Comment{}, nil
	}
	return s.listComments(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE post_id = $1 ORDER BY created_at`, postID)
}

// ListCommentsByAuthor returns every comment written by authorID.
func (s *Store) ListCommentsByAuthor(ctx context.Context, authorID string) ([]Comment, error) {
	if uuid.Validate(authorID) != nil {
		return []Comment{}, nil
	}
	return s.listComments(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE author_id = $1 ORDER BY created_at`, authorID)
}

func (s *Store) listComments(ctx context.Context, query string, args ...any) ([]Comment, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("post: list comments: %w", err)
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("post: list comments scan: %w", err)
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

// --- Tx operations ---

func (q *queries) GetPost(ctx context.Context, id string) (*Post, error) {
	if uuid.Validate(id) != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	if q.forUpdate {
		query += ` FOR UPDATE`
	}
	p, err := scanPost(q.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("post: get %q: %w", id, err)
	}
	return p, nil
}

func (q *queries) DeletePost(ctx context.Context, id string) error {
	result, err := q.q.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("post: delete %q: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (q *queries) SetCover(ctx context.Context, postID, url string) error {
	result, err := q.q.Exec(ctx,
		`UPDATE posts SET cover_img_url = $2, updated_at = NOW() WHERE id = $1`, postID, url)
	if err != nil {
		return fmt.Errorf("post: set cover %q: %w", postID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, postID)
	}
	return nil
}

func (q *queries) GetComment(ctx context.Context, id string) (*Comment, error) {
	if uuid.Validate(id) != nil {
		return nil, fmt.Errorf("%w: %s", ErrCommentNotFound, id)
	}
	c, err := scanComment(q.q.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCommentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("post: get comment %q: %w", id, err)
	}
	return c, nil
}

func (q *queries) InsertComment(ctx context.Context, c *Comment) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	err := q.q.QueryRow(ctx,
		`INSERT INTO comments (id, content, author_id, post_id) VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		c.ID, c.Content, c.AuthorID, c.PostID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("post: insert comment: %w", err)
	}
	return nil
}

func (q *queries) DeleteComment(ctx context.Context, id string) error {
	result, err := q.q.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("post: delete comment %q: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrCommentNotFound, id)
	}
	return nil
}

func (q *queries) DeleteCommentsByPost(ctx context.Context, postID string) (int64, error) {
	result, err := q.q.Exec(ctx, `DELETE FROM comments WHERE post_id = $1`, postID)
	if err != nil {
		return 0, fmt.Errorf("post: delete comments of %q: %w", postID, err)
	}
	return result.RowsAffected(), nil
}

func (q *queries) AppendCommentRef(ctx context.Context, postID, commentID string) error {
	return q.refUpdate(ctx, "append comment ref",
		`UPDATE posts SET comment_ids = array_append(comment_ids, $2::uuid) WHERE id = $1`, postID, commentID)
}

func (q *queries) RemoveCommentRef(ctx context.Context, postID, commentID string) error {
	return q.refUpdate(ctx, "remove comment ref",
		`UPDATE posts SET comment_ids = array_remove(comment_ids, $2::uuid) WHERE id = $1`, postID, commentID)
}

func (q *queries) refUpdate(ctx context.Context, op, query string, postID string, args ...any) error {
	if uuid.Validate(postID) != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, postID)
	}
	result, err := q.q.Exec(ctx, query, append([]any{postID}, args...)...)
	if err != nil {
		return fmt.Errorf("post: %s %q: %w", op, postID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, postID)
	}
	return nil
}

// orderBy turns "title,-createdAt" into "title ASC, created_at DESC"
// using only whitelisted columns. Unknown fields are ignored; the
// default is newest first.
func orderBy(sort string, columns map[string]string) string {
	var parts []string
	for _, field := range strings.Split(sort, ",") {
		field = strings.TrimSpace(field)
		dir := "ASC"
		if strings.HasPrefix(field, "-") {
			dir = "DESC"
			field = field[1:]
		}
		if col, ok := columns[field]; ok {
			parts = append(parts, col+" "+dir)
		}
	}
	if len(parts) == 0 {
		return "created_at DESC"
	}
	return strings.Join(parts, ", ")
}
