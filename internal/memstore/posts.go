package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/post"
)

// Posts is an in-memory post.Repository. InTx holds the store lock for
// the whole callback and restores a snapshot when it fails, so grouped
// operations are atomic.
type Posts struct {
	Faults

	mu    sync.Mutex
	clock clock
	data  postData
}

type postData struct {
	posts    map[string]*post.Post
	comments map[string]*post.Comment
}

// NewPosts creates an empty Posts store.
func NewPosts() *Posts {
	return &Posts{data: postData{
		posts:    make(map[string]*post.Post),
		comments: make(map[string]*post.Comment),
	}}
}

var _ post.Repository = (*Posts)(nil)

// unlocked runs Tx operations against the data without taking the lock.
type unlocked struct {
	s *Posts
}

func (s *Posts) InTx(ctx context.Context, fn func(tx post.Tx) error) error {
	if err := s.check("InTx"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.data.clone()
	if err := fn(unlocked{s}); err != nil {
		s.data = snap
		return err
	}
	return nil
}

func (d postData) clone() postData {
	out := postData{
		posts:    make(map[string]*post.Post, len(d.posts)),
		comments: make(map[string]*post.Comment, len(d.comments)),
	}
	for id, p := range d.posts {
		out.posts[id] = copyPost(p)
	}
	for id, c := range d.comments {
		cc := *c
		out.comments[id] = &cc
	}
	return out
}

func copyPost(p *post.Post) *post.Post {
	out := *p
	out.CommentIDs = slices.Clone(p.CommentIDs)
	if out.CommentIDs == nil {
		out.CommentIDs = []string{}
	}
	return &out
}

// --- Tx, locked entry points ---

func (s *Posts) GetPost(ctx context.Context, id string) (*post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unlocked{s}.GetPost(ctx, id)
}

func (s *Posts) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unlocked{s}.DeletePost(ctx, id)
}

func (s *Posts) SetCover(ctx context.Context, postID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unlocked{s}.SetCover(ctx, postID, url)
}

func (s *Posts) GetComment(ctx context.Context, id string) (*post.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unlocked{s}.GetComment(ctx, id)
}

func (s *Posts) InsertComment(ctx context.Context, c *post.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unlocked{s}.InsertComment(ctx, c)
}

func (s *Posts) DeleteComment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unlocked{s}.DeleteComment(ctx, id)
}

func (s *Posts) DeleteCommentsByPost(ctx context.Context, postID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unlocked{s}.DeleteCommentsByPost(ctx, postID)
}

func (s *Posts) AppendCommentRef(ctx context.Context, postID, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unlocked{s}.AppendCommentRef(ctx, postID, commentID)
}

func (s *Posts) RemoveCommentRef(ctx context.Context, postID, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unlocked{s}.RemoveCommentRef(ctx, postID, commentID)
}

// --- Tx implementation ---

func (u unlocked) GetPost(_ context.Context, id string) (*post.Post, error) {
	if err := u.s.check("GetPost"); err != nil {
		return nil, err
	}
	p, ok := u.s.data.posts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", post.ErrNotFound, id)
	}
	return copyPost(p), nil
}

func (u unlocked) DeletePost(_ context.Context, id string) error {
	if err := u.s.check("DeletePost"); err != nil {
		return err
	}
	if _, ok := u.s.data.posts[id]; !ok {
		return fmt.Errorf("%w: %s", post.ErrNotFound, id)
	}
	delete(u.s.data.posts, id)
	return nil
}

func (u unlocked) SetCover(_ context.Context, postID, url string) error {
	if err := u.s.check("SetCover"); err != nil {
		return err
	}
	p, ok := u.s.data.posts[postID]
	if !ok {
		return fmt.Errorf("%w: %s", post.ErrNotFound, postID)
	}
	p.CoverImgURL = url
	p.UpdatedAt = u.s.clock.now()
	return nil
}

func (u unlocked) GetComment(_ context.Context, id string) (*post.Comment, error) {
	if err := u.s.check("GetComment"); err != nil {
		return nil, err
	}
	c, ok := u.s.data.comments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", post.ErrCommentNotFound, id)
	}
	out := *c
	return &out, nil
}

func (u unlocked) InsertComment(_ context.Context, c *post.Comment) error {
	if err := u.s.check("InsertComment"); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := u.s.clock.now()
	c.CreatedAt, c.UpdatedAt = now, now
	stored := *c
	u.s.data.comments[c.ID] = &stored
	return nil
}

func (u unlocked) DeleteComment(_ context.Context, id string) error {
	if err := u.s.check("DeleteComment"); err != nil {
		return err
	}
	if _, ok := u.s.data.comments[id]; !ok {
		return fmt.Errorf("%w: %s", post.ErrCommentNotFound, id)
	}
	delete(u.s.data.comments, id)
	return nil
}

func (u unlocked) DeleteCommentsByPost(_ context.Context, postID string) (int64, error) {
	if err := u.s.check("DeleteCommentsByPost"); err != nil {
		return 0, err
	}
	var n int64
	for id, c := range u.s.data.comments {
		if c.PostID == postID {
			delete(u.s.data.comments, id)
			n++
		}
	}
	return n, nil
}

func (u unlocked) AppendCommentRef(_ context.Context, postID, commentID string) error {
	if err := u.s.check("AppendCommentRef"); err != nil {
		return err
	}
	p, ok := u.s.data.posts[postID]
	if !ok {
		return fmt.Errorf("%w: %s", post.ErrNotFound, postID)
	}
	p.CommentIDs = append(p.CommentIDs, commentID)
	return nil
}

func (u unlocked) RemoveCommentRef(_ context.Context, postID, commentID string) error {
	if err := u.s.check("RemoveCommentRef"); err != nil {
		return err
	}
	p, ok := u.s.data.posts[postID]
	if !ok {
		return fmt.Errorf("%w: %s", post.ErrNotFound, postID)
	}
	p.CommentIDs = slices.DeleteFunc(p.CommentIDs, func(id string) bool { return id == commentID })
	return nil
}

// --- Repository ---

func (s *Posts) CreatePost(_ context.Context, p *post.Post) error {
	if err := s.check("CreatePost"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = uuid.NewString()
	p.CommentIDs = []string{}
	now := s.clock.now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.data.posts[p.ID] = copyPost(p)
	return nil
}

func (s *Posts) UpdatePost(_ context.Context, p *post.Post) error {
	if err := s.check("UpdatePost"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.data.posts[p.ID]
	if !ok {
		return fmt.Errorf("%w: %s", post.ErrNotFound, p.ID)
	}
	stored.Title = p.Title
	stored.Content = p.Content
	stored.CoverImgURL = p.CoverImgURL
	stored.IsPublished = p.IsPublished
	stored.UpdatedAt = s.clock.now()
	p.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *Posts) ListPosts(_ context.Context, q post.ListQuery) ([]post.Post, error) {
	if err := s.check("ListPosts"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []post.Post{}
	for _, p := range s.data.posts {
		if q.Published != nil && p.IsPublished != *q.Published {
			continue
		}
		out = append(out, *copyPost(p))
	}
	sortPosts(out, q.Sort)

	if q.Skip > 0 {
		if q.Skip >= len(out) {
			return []post.Post{}, nil
		}
		out = out[q.Skip:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Posts) ListPostsByAuthor(_ context.Context, authorID string) ([]post.Post, error) {
	if err := s.check("ListPostsByAuthor"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []post.Post{}
	for _, p := range s.data.posts {
		if p.AuthorID == authorID {
			out = append(out, *copyPost(p))
		}
	}
	sortPosts(out, "-createdAt")
	return out, nil
}

func (s *Posts) UpdateComment(_ context.Context, id, content string) (*post.Comment, error) {
	if err := s.check("UpdateComment"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.data.comments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", post.ErrCommentNotFound, id)
	}
	c.Content = content
	c.UpdatedAt = s.clock.now()
	out := *c
	return &out, nil
}

func (s *Posts) ListComments(_ context.Context, sortSpec string) ([]post.Comment, error) {
	return s.listComments("ListComments", sortSpec, func(*post.Comment) bool { return true })
}

func (s *Posts) ListCommentsByPost(_ context.Context, postID string) ([]post.Comment, error) {
	return s.listComments("ListCommentsByPost", "createdAt", func(c *post.Comment) bool { return c.PostID == postID })
}

func (s *Posts) ListCommentsByAuthor(_ context.Context, authorID string) ([]post.Comment, error) {
	return s.listComments("ListCommentsByAuthor", "createdAt", func(c *post.Comment) bool { return c.AuthorID == authorID })
}

func (s *Posts) listComments(op, sortSpec string, keep func(*post.Comment) bool) ([]post.Comment, error) {
	if err := s.check(op); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []post.Comment{}
	for _, c := range s.data.comments {
		if keep(c) {
			out = append(out, *c)
		}
	}
	less := comparator(sortSpec, map[string]func(i, j int) int{
		"createdAt": func(i, j int) int { return out[i].CreatedAt.Compare(out[j].CreatedAt) },
		"updatedAt": func(i, j int) int { return out[i].UpdatedAt.Compare(out[j].UpdatedAt) },
	}, func(i, j int) int { return out[i].CreatedAt.Compare(out[j].CreatedAt) })
	sort.SliceStable(out, less)
	return out, nil
}

func sortPosts(posts []post.Post, spec string) {
	less := comparator(spec, map[string]func(i, j int) int{
		"createdAt": func(i, j int) int { return posts[i].CreatedAt.Compare(posts[j].CreatedAt) },
		"updatedAt": func(i, j int) int { return posts[i].UpdatedAt.Compare(posts[j].UpdatedAt) },
		"title":     func(i, j int) int { return strings.Compare(posts[i].Title, posts[j].Title) },
	}, func(i, j int) int { return posts[i].CreatedAt.Compare(posts[j].CreatedAt) })
	sort.SliceStable(posts, less)
}

// comparator builds a sort.SliceStable less function from a spec such as
// "title,-createdAt", matching the SQL store's ordering. Unknown fields
// are ignored; with none left the order is newest first.
func comparator(spec string, fields map[string]func(i, j int) int, created func(i, j int) int) func(i, j int) bool {
	type key struct {
		cmp  func(i, j int) int
		desc bool
	}
	var keys []key
	for _, f := range strings.Split(spec, ",") {
		f = strings.TrimSpace(f)
		desc := strings.HasPrefix(f, "-")
		if cmp, ok := fields[strings.TrimPrefix(f, "-")]; ok {
			keys = append(keys, key{cmp, desc})
		}
	}
	if len(keys) == 0 {
		keys = []key{{created, true}}
	}
	return func(i, j int) bool {
		for _, k := range keys {
			c := k.cmp(i, j)
			if k.desc {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	}
}
