package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{New(KindValidation, "bad"), http.StatusUnprocessableEntity},
		{New(KindDuplicateIdentity, "taken"), http.StatusUnprocessableEntity},
		{Unauthenticated("no"), http.StatusUnauthorized},
		{Forbidden("no"), http.StatusForbidden},
		{New(KindAlreadyAuthenticated, "signed in"), http.StatusForbidden},
		{NotFound("gone"), http.StatusNotFound},
		{External("file", "upload failed", errors.New("503")), http.StatusBadGateway},
		{Persistence("write failed", errors.New("conn reset")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NotFound("gone")), http.StatusNotFound},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Status(tc.err), tc.err.Error())
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("handler: %w", NotFound("post 42"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrAuthentication))
}

func TestListCombinesFieldAndMediaErrors(t *testing.T) {
	var l List
	assert.NoError(t, l.Err("nothing"))

	l.Add("title", "Title should be 3-32 characters long")
	l.AddError("file", New(KindInvalidMediaType, "Please upload an image file."))

	err := l.Err("Failed to create post")
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	var ae *Error
	require.True(t, errors.As(err, &ae))
	require.Len(t, ae.Fields, 2)
	assert.Equal(t, "file", ae.Fields[1].Path)
	assert.Equal(t, KindInvalidMediaType, ae.Fields[1].Kind)
	assert.True(t, l.Has("title"))
}

func TestListOnlyDuplicates(t *testing.T) {
	var l List
	l.AddError("username", New(KindDuplicateIdentity, "Username already in use."))
	assert.Equal(t, KindDuplicateIdentity, KindOf(l.Err("Failed signup")))
}

func TestExternalErrorKeepsField(t *testing.T) {
	var l List
	l.AddError("ignored", External("file", "upload failed", errors.New("timeout")))
	require.Equal(t, 1, l.Len())
	assert.Equal(t, "file", l.Fields()[0].Path)
	assert.Equal(t, KindExternalService, l.Fields()[0].Kind)
}
