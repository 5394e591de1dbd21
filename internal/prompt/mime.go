package prompt

import (
	"net/http"
	"strings"

	"gemini-session-client/internal/gemini"
)

const (
	dataURLScheme  = "data:"
	dataURLParam   = ";"
	dataURLDataSep = ","
	base64Marker   = "base64"

	mimePDF         = "application/pdf"
	mimeImagePrefix = "image/"
)

// ParseDataURL reads the MIME type out of a "data:<mime>;base64," header.
// Only the text before the first comma is inspected.
func ParseDataURL(s string) (string, bool) {
	if !strings.HasPrefix(s, dataURLScheme) {
		return "", false
	}
	idx := strings.Index(s, dataURLDataSep)
	if idx < 0 {
		return "", false
	}

	params := strings.Split(s[len(dataURLScheme):idx], dataURLParam)
	if len(params) < 2 || strings.TrimSpace(params[len(params)-1]) != base64Marker {
		return "", false
	}

	mimeType := strings.ToLower(strings.TrimSpace(params[0]))
	if mimeType == "" {
		return "", false
	}
	return mimeType, true
}

// StripDataURLPrefix drops everything up to and including the first comma
// when s starts with "data:". Other input is returned unchanged.
func StripDataURLPrefix(s string) string {
	if !strings.HasPrefix(s, dataURLScheme) {
		return s
	}
	if idx := strings.Index(s, dataURLDataSep); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

// SniffMIME detects a MIME type from content, without parameters.
func SniffMIME(data []byte) string {
	mimeType := http.DetectContentType(data)
	if idx := strings.Index(mimeType, dataURLParam); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// ValidateMIME accepts application/pdf and image/*.
func ValidateMIME(mimeType string) error {
	if mimeType == mimePDF || (strings.HasPrefix(mimeType, mimeImagePrefix) && len(mimeType) > len(mimeImagePrefix)) {
		return nil
	}
	return gemini.InvalidInput("unsupported mime type: %s", mimeType)
}

// ResolveBase64MIME picks the MIME type of a base64 item: the explicit
// annotation, else the data URL header.
func ResolveBase64MIME(item FileByBase64) (string, error) {
	mimeType := strings.ToLower(strings.TrimSpace(item.MimeType))
	if mimeType == "" {
		var ok bool
		if mimeType, ok = ParseDataURL(item.Data); !ok {
			return "", gemini.InvalidInput("mime type required")
		}
	}
	if err := ValidateMIME(mimeType); err != nil {
		return "", err
	}
	return mimeType, nil
}

// resolveContentMIME sniffs and validates raw file bytes.
func resolveContentMIME(data []byte) (string, error) {
	mimeType := SniffMIME(data)
	if err := ValidateMIME(mimeType); err != nil {
		return "", err
	}
	return mimeType, nil
}
