package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/frame":
			w.Header().Set("Content-Type", "image/x-nv21")
			_, _ = w.Write([]byte{1, 2, 3, 4, 5, 6})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(5 * time.Second)

	body, contentType, err := Fetch(context.Background(), c, srv.URL+"/frame", 6)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, body)
	assert.Equal(t, "image/x-nv21", contentType)

	_, _, err = Fetch(context.Background(), c, srv.URL+"/frame", 5)
	assert.True(t, errors.Is(err, ErrTooLarge))

	_, _, err = Fetch(context.Background(), c, srv.URL+"/missing", 0)
	assert.Error(t, err)
}

func TestSetTimeout(t *testing.T) {
	before := GetHTTPClient()
	SetTimeout(0)
	assert.Same(t, before, GetHTTPClient())

	SetTimeout(2 * time.Second)
	assert.Equal(t, 2*time.Second, GetHTTPClient().Timeout)
}
