package telegram

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestSplitByBytes(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"short"}, splitByBytes("short", 10))
	assert.Equal(t, []string{"abc", "def", "g"}, splitByBytes("abcdefg", 3))

	// Multi-byte runes are never cut.
	parts := splitByBytes(strings.Repeat("ж", 5), 4)
	assert.Equal(t, []string{"жж", "жж", "ж"}, parts)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), 4)
	}
}

func TestTruncateByBytes(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "abc", truncateByBytes("abc", 5))
	assert.Equal(t, "ж", truncateByBytes("жж", 3))
}

func TestDownload(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/photo":
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write(pngHeader)
		case "/doc":
			w.Header().Set("Content-Type", "application/pdf; charset=binary")
			_, _ = w.Write([]byte("%PDF-1.4"))
		default:
			http.Error(w, "gone", http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	c := &Client{httpClient: srv.Client()}
	ctx := context.Background()

	item, err := c.download(ctx, srv.URL+"/photo")
	require.NoError(t, err)
	assert.Equal(t, "image/png", item.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngHeader), item.Data)

	item, err = c.download(ctx, srv.URL+"/doc")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", item.MimeType)

	_, err = c.download(ctx, srv.URL+"/missing")
	require.ErrorContains(t, err, "404")
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	_, err := New(Options{HTTPClient: http.DefaultClient})
	require.Error(t, err)
	_, err = New(Options{Token: "t"})
	require.Error(t, err)
}
