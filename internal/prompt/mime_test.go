package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gemini-session-client/internal/gemini"
)

var (
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")
	pdfBytes = []byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n")
)

func TestParseDataURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"data:image/png;base64,AAAA", "image/png", true},
		{"data:application/pdf;base64,", "application/pdf", true},
		{"data:Image/JPEG;base64,/9j/", "image/jpeg", true},
		{"data:image/png;charset=x;base64,AAAA", "image/png", true},
		{"data:image/png,AAAA", "", false},
		{"data:;base64,AAAA", "", false},
		{"data:image/png;base64", "", false},
		{"image/png;base64,AAAA", "", false},
		{"AAAA", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseDataURL(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripDataURLPrefix(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "AAAA", StripDataURLPrefix("data:image/png;base64,AAAA"))
	assert.Equal(t, "AA,AA", StripDataURLPrefix("data:image/png;base64,AA,AA"))
	assert.Equal(t, "AAAA", StripDataURLPrefix("AAAA"))
	assert.Equal(t, "a,b", StripDataURLPrefix("a,b"))
}

func TestSniffMIME(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "image/png", SniffMIME(pngBytes))
	assert.Equal(t, "application/pdf", SniffMIME(pdfBytes))
	assert.Equal(t, "text/plain", SniffMIME([]byte("hello world")))
}

func TestValidateMIME(t *testing.T) {
	t.Parallel()
	for _, ok := range []string{"image/png", "image/webp", "application/pdf"} {
		assert.NoError(t, ValidateMIME(ok), ok)
	}
	for _, bad := range []string{"text/plain", "application/json", "image/", "", "application/pdfx"} {
		err := ValidateMIME(bad)
		require.ErrorIs(t, err, gemini.ErrInvalidInput, bad)
		assert.Contains(t, err.Error(), "unsupported mime type: "+bad)
	}
}

func TestResolveBase64MIME(t *testing.T) {
	t.Parallel()
	got, err := ResolveBase64MIME(FileByBase64{Data: "data:image/png;base64,AAAA"})
	require.NoError(t, err)
	assert.Equal(t, "image/png", got)

	got, err = ResolveBase64MIME(FileByBase64{Data: "data:image/png;base64,AAAA", MimeType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", got)

	_, err = ResolveBase64MIME(FileByBase64{Data: "AAAA"})
	require.ErrorIs(t, err, gemini.ErrInvalidInput)
	assert.Contains(t, err.Error(), "mime type required")

	_, err = ResolveBase64MIME(FileByBase64{Data: "AAAA", MimeType: "audio/mpeg"})
	require.ErrorIs(t, err, gemini.ErrInvalidInput)
	assert.Contains(t, err.Error(), "unsupported mime type: audio/mpeg")
}
