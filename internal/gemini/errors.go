package gemini

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Error kinds. Every error produced by this package and by the prompt
// normalizer matches exactly one of them with errors.Is.
var (
	ErrInvalidInput = errors.New("gemini: invalid input")
	ErrNetwork      = errors.New("gemini: network error")
	ErrTransport    = errors.New("gemini: transport error")
	ErrHTTP         = errors.New("gemini: http error")
	ErrAPI          = errors.New("gemini: api error")
	ErrDecode       = errors.New("gemini: decode error")
)

// Error carries the kind plus whatever detail the failure had.
// Status and Body are set for ErrHTTP, Code and RemoteStatus for ErrAPI (and
// for ErrHTTP when the body carries them), Body for ErrDecode.
type Error struct {
	Kind         error
	Message      string
	Status       int
	Code         int
	RemoteStatus string
	Body         string
	Err          error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())

	switch {
	case errors.Is(e.Kind, ErrHTTP):
		fmt.Fprintf(&b, ": status %d", e.Status)
	case errors.Is(e.Kind, ErrAPI):
		fmt.Fprintf(&b, ": code %d", e.Code)
		if e.RemoteStatus != "" {
			fmt.Fprintf(&b, " %s", e.RemoteStatus)
		}
	}

	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil && e.Message != e.Err.Error() {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error { return e.Err }

var _ error = (*Error)(nil)

func InvalidInput(format string, args ...any) error {
	return &Error{Kind: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func NetworkError(url string, err error) error {
	return &Error{Kind: ErrNetwork, Message: "fetch " + url, Err: err}
}

func transportError(err error) error {
	return &Error{Kind: ErrTransport, Err: err}
}

// httpError keeps the raw body as the message. When the body is a Google
// error envelope its code and status are lifted out as well.
func httpError(status int, body []byte) error {
	e := &Error{
		Kind:    ErrHTTP,
		Status:  status,
		Message: strings.TrimSpace(string(body)),
		Body:    string(body),
	}
	if gjson.ValidBytes(body) {
		remote := gjson.GetBytes(body, "error")
		e.Code = int(remote.Get("code").Int())
		e.RemoteStatus = remote.Get("status").String()
	}
	return e
}

func decodeError(body []byte, err error) error {
	return &Error{Kind: ErrDecode, Message: err.Error(), Body: string(body), Err: err}
}

func apiErr(e apiError) error {
	return &Error{Kind: ErrAPI, Code: e.Code, RemoteStatus: e.Status, Message: e.Message}
}
