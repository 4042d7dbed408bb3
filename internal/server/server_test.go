package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/auth"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/config"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/events"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/graph"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/media"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/memstore"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/server"
)

type harness struct {
	srv      *server.Server
	accounts *memstore.Accounts
	posts    *memstore.Posts
	objects  *memstore.Objects
	stageDir string
}

func newHarness(t *testing.T, mode string) *harness {
	t.Helper()
	h := &harness{
		accounts: memstore.NewAccounts(),
		posts:    memstore.NewPosts(),
		objects:  memstore.NewObjects("https://media.example.com"),
		stageDir: t.TempDir(),
	}
	cfg := &config.Config{ListenAddr: ":0", AuthMode: mode, CORSOrigins: []string{"*"}}

	var strategy auth.Strategy = auth.NewJWTStrategy("test-secret", "blog-api", time.Hour)
	if mode == config.AuthModeSession {
		strategy = auth.NewSessionStrategy(memstore.NewSessions(), "test-secret", time.Hour)
	}
	creds := auth.NewManager(bcrypt.MinCost, strategy)

	m, err := media.NewManager(h.objects, h.stageDir, 1<<20)
	require.NoError(t, err)
	feed := events.NewManager(memstore.NewEvents())
	t.Cleanup(feed.Shutdown)

	h.srv = server.New(server.Deps{
		Config:      cfg,
		Credentials: creds,
		Accounts:    h.accounts,
		Posts:       h.posts,
		Media:       m,
		Graph:       graph.New(h.accounts, h.posts, m, feed),
		Events:      feed,
	})
	return h
}

type upload struct {
	name, contentType, data string
}

// call is one request. A non-nil form is sent as multipart, a non-nil
// body as JSON.
type call struct {
	method, path string
	token        string
	cookie       *http.Cookie
	form         map[string]string
	file         *upload
	body         any
}

func (h *harness) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var (
		buf         bytes.Buffer
		contentType string
	)
	switch {
	case c.form != nil || c.file != nil:
		w := multipart.NewWriter(&buf)
		for k, v := range c.form {
			require.NoError(t, w.WriteField(k, v))
		}
		if c.file != nil {
			hdr := textproto.MIMEHeader{}
			hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+c.file.name+`"`)
			hdr.Set("Content-Type", c.file.contentType)
			part, err := w.CreatePart(hdr)
			require.NoError(t, err)
			_, err = part.Write([]byte(c.file.data))
			require.NoError(t, err)
		}
		require.NoError(t, w.Close())
		contentType = w.FormDataContentType()
	case c.body != nil:
		require.NoError(t, json.NewEncoder(&buf).Encode(c.body))
		contentType = "application/json"
	}

	r := httptest.NewRequest(c.method, c.path, &buf)
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		r.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.cookie != nil {
		r.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, r)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorPaths(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	var body struct {
		Errors []struct {
			Path string `json:"path"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	out := make([]string, 0, len(body.Errors))
	for _, e := range body.Errors {
		out = append(out, e.Path)
	}
	return out
}

func signupForm(username string) map[string]string {
	return map[string]string{
		"firstName":       "Alice",
		"lastName":        "Liddell",
		"email":           username + "@example.com",
		"username":        username,
		"password":        "wonderland",
		"passwordConfirm": "wonderland",
	}
}

func (h *harness) stagingEmpty(t *testing.T) bool {
	t.Helper()
	entries, err := os.ReadDir(h.stageDir)
	require.NoError(t, err)
	return len(entries) == 0
}

// signup registers username in token mode and returns its token and id.
func (h *harness) signup(t *testing.T, username string) (token, id string) {
	t.Helper()
	rec := h.do(t, call{method: http.MethodPost, path: "/users/signup", form: signupForm(username)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	return body["token"].(string), body["userId"].(string)
}

func TestSignupNeverExposesPassword(t *testing.T) {
	h := newHarness(t, config.AuthModeToken)
	token, id := h.signup(t, "alice")
	assert.NotEmpty(t, token)

	rec := h.do(t, call{method: http.MethodGet, path: "/users/" + id, token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "wonderland")

	user := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "Alice Liddell", user["displayName"])
}

func TestDuplicateSignupWritesNothing(t *testing.T) {
	h := newHarness(t, config.AuthModeToken)
	h.signup(t, "alice")

	rec := h.do(t, call{
		method: http.MethodPost, path: "/users/signup",
		form: signupForm("alice"),
		file: &upload{"me.png", "image/png", "avatar"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "DuplicateIdentity", decode(t, rec)["error"])
	assert.ElementsMatch(t, []string{"email", "username"}, errorPaths(t, rec))
	assert.Equal(t, 1, h.accounts.Len())
	assert.Equal(t, 0, h.objects.Len())
	assert.True(t, h.stagingEmpty(t))
}

func TestSignupRejectsNonImage(t *testing.T) {
	h := newHarness(t, config.AuthModeToken)

	form := signupForm("alice")
	form["password"] = "short"
	rec := h.do(t, call{
		method: http.MethodPost, path: "/users/signup",
		form: form,
		file: &upload{"cv.pdf", "application/pdf", "%PDF"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.ElementsMatch(t, []string{"file", "password"}, errorPaths(t, rec))
	assert.Equal(t, 0, h.accounts.Len())
	assert.Equal(t, 0, h.objects.Len())
	assert.True(t, h.stagingEmpty(t))
}

func TestSignupWhileAuthenticated(t *testing.T) {
	h := newHarness(t, config.AuthModeToken)
	token, _ := h.signup(t, "alice")

	rec := h.do(t, call{method: http.MethodPost, path: "/users/signup", token: token, form: signupForm("bob")})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "AlreadyAuthenticatedError", decode(t, rec)["error"])
	assert.Equal(t, 1, h.accounts.Len())
}

func TestSignin(t *testing.T) {
	h := newHarness(t, config.AuthModeToken)
	h.signup(t, "alice")

	rec := h.do(t, call{method: http.MethodPost, path: "/users/signin",
		body: map[string]string{"username": "alice", "password": "wrongpassword"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, []string{"password"}, errorPaths(t, rec))

	rec = h.do(t, call{method: http.MethodPost, path: "/users/signin",
		body: map[string]string{"username": "nobody", "password": "wonderland"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, []string{"username"}, errorPaths(t, rec))

	rec = h.do(t, call{method: http.MethodPost, path: "/users/signin",
		body: map[string]string{"username": "alice", "password": "wonderland"}})
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode(t, rec)["token"].(string)

	rec = h.do(t, call{method: http.MethodGet, path: "/authenticated", token: token})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnauthenticatedCommentIsRejected(t *testing.T) {
	h := newHarness(t, config.AuthModeToken)
	token, _ := h.signup(t, "alice")
	rec := h.do(t, call{method: http.MethodPost, path: "/posts", token: token,
		form: map[string]string{"title": "Hello", "content": "World"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	postID := decode(t, rec)["id"].(string)

	rec = h.do(t, call{method: http.MethodPost, path: "/comments/" + postID, body: map[string]string{"content": "Nice"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "You are not authenticated.", decode(t, rec)["message"])

	all, err := h.posts.ListComments(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestPostLifecycle(t *testing.T) {
	h := newHarness(t, config.AuthModeToken)
	alice, _ := h.signup(t, "alice")
	bob, _ := h.signup(t, "bob")

	rec := h.do(t, call{method: http.MethodPost, path: "/posts", token: alice,
		form: map[string]string{"title": "Hello", "content": "World", "isPublished": "true"},
		file: &upload{"cover.jpg", "image/jpeg", "cover"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode(t, rec)
	postID := created["id"].(string)
	assert.True(t, h.objects.Has(created["coverImgUrl"].(string)))

	rec = h.do(t, call{method: http.MethodPost, path: "/comments/" + postID, token: bob,
		body: map[string]string{"content": "Great read"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	commentID := decode(t, rec)["id"].(string)

	rec = h.do(t, call{method: http.MethodGet, path: "/posts/" + postID})
	require.Equal(t, http.StatusOK, rec.Code)
	comments := decode(t, rec)["comments"].([]any)
	require.Len(t, comments, 1)
	author := comments[0].(map[string]any)["author"].(map[string]any)
	assert.Equal(t, "bob", author["username"])

	rec = h.do(t, call{method: http.MethodPut, path: "/comments/" + commentID, token: alice,
		body: map[string]string{"content": "Edited"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, call{method: http.MethodDelete, path: "/posts/" + postID, token: bob})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, call{method: http.MethodDelete, path: "/posts/" + postID, token: alice})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Post deleted successfully.", decode(t, rec)["message"])

	rec = h.do(t, call{method: http.MethodGet, path: "/posts/" + postID})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = h.do(t, call{method: http.MethodGet, path: "/comments/" + commentID, token: bob})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, h.objects.Len())
}

func TestListPostsFilters(t *testing.T) {
	h := newHarness(t, config.AuthModeToken)
	token, _ := h.signup(t, "alice")
	for _, p := range []map[string]string{
		{"title": "Draft", "content": "not yet"},
		{"title": "Live", "content": "out now", "isPublished": "on"},
	} {
		rec := h.do(t, call{method: http.MethodPost, path: "/posts", token: token, form: p})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := h.do(t, call{method: http.MethodGet, path: "/posts?isPublished=true"})
	require.Equal(t, http.StatusOK, rec.Code)
	var posts []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "Live", posts[0]["title"])

	rec = h.do(t, call{method: http.MethodGet, path: "/posts?sort=title&limit=1&skip=1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "Live", posts[0]["title"])
}

func TestAvatarReplaceLeavesOneAsset(t *testing.T) {
	h := newHarness(t, config.AuthModeToken)
	token, id := h.signup(t, "alice")

	profile := signupForm("alice")
	delete(profile, "password")
	delete(profile, "passwordConfirm")

	var urls []string
	for _, data := range []string{"first", "second"} {
		rec := h.do(t, call{method: http.MethodPut, path: "/users/" + id, token: token,
			form: profile, file: &upload{"me.png", "image/png", data}})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		updated := decode(t, rec)["updatedUser"].(map[string]any)
		urls = append(urls, updated["profilePicUrl"].(string))
	}

	assert.NotEqual(t, urls[0], urls[1])
	assert.Equal(t, 1, h.objects.Len())
	assert.True(t, h.objects.Has(urls[1]))
	assert.True(t, h.stagingEmpty(t))
}

func TestUpdateOtherUserIsForbidden(t *testing.T) {
	h := newHarness(t, config.AuthModeToken)
	_, aliceID := h.signup(t, "alice")
	bob, _ := h.signup(t, "bob")

	rec := h.do(t, call{method: http.MethodDelete, path: "/users/" + aliceID, token: bob})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 2, h.accounts.Len())
}

func TestDeleteUserCascades(t *testing.T) {
	h := newHarness(t, config.AuthModeToken)
	alice, aliceID := h.signup(t, "alice")
	bob, _ := h.signup(t, "bob")

	rec := h.do(t, call{method: http.MethodPost, path: "/posts", token: alice,
		form: map[string]string{"title": "Mine", "content": "by alice"}})
	require.Equal(t, http.StatusOK, rec.Code)
	postID := decode(t, rec)["id"].(string)
	rec = h.do(t, call{method: http.MethodPost, path: "/comments/" + postID, token: bob,
		body: map[string]string{"content": "hello alice"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, call{method: http.MethodDelete, path: "/users/" + aliceID, token: alice})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	all, err := h.posts.ListComments(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, 1, h.accounts.Len())

	// The token now resolves to a missing identity.
	rec = h.do(t, call{method: http.MethodGet, path: "/authenticated", token: alice})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionMode(t *testing.T) {
	h := newHarness(t, config.AuthModeSession)

	rec := h.do(t, call{method: http.MethodPost, path: "/users/signup", form: signupForm("alice")})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, decode(t, rec), "token")

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	rec = h.do(t, call{method: http.MethodGet, path: "/authenticated", cookie: session})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, call{method: http.MethodPost, path: "/users/logout", cookie: session})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, call{method: http.MethodGet, path: "/authenticated", cookie: session})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestActivityFeedReplay(t *testing.T) {
	h := newHarness(t, config.AuthModeToken)
	h.signup(t, "alice")

	ts := httptest.NewServer(h.srv)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events?cursor=0"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var e events.Event
	require.NoError(t, json.Unmarshal(frame, &e))
	assert.Equal(t, int64(1), e.Seq)
	assert.Equal(t, events.IdentityCreated, e.Type)
}

func TestActivityFeedRejectsBadCursor(t *testing.T) {
	h := newHarness(t, config.AuthModeToken)
	rec := h.do(t, call{method: http.MethodGet, path: "/events?cursor=-4"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, config.AuthModeSession)
	rec := h.do(t, call{method: http.MethodGet, path: "/health"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "session", decode(t, rec)["authMode"])
}
