package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gemini-session-client/internal/gemini"
	"gemini-session-client/internal/prompt"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))
}

// fakeGemini answers generateContent calls with queued bodies and keeps the
// decoded requests.
type fakeGemini struct {
	mu       sync.Mutex
	replies  []string
	requests []gemini.Request
	calls    int
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, _ := io.ReadAll(r.Body)
	var req gemini.Request
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.requests = append(f.requests, req)

	reply := `{}`
	if f.calls < len(f.replies) {
		reply = f.replies[f.calls]
	}
	f.calls++
	_, _ = w.Write([]byte(reply))
}

func (f *fakeGemini) Requests() []gemini.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gemini.Request(nil), f.requests...)
}

func (f *fakeGemini) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func textReply(text string) string {
	raw, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}}},
		},
	})
	return string(raw)
}

func newTestSession(t *testing.T, includeHistory bool, replies ...string) (*Session, *fakeGemini) {
	t.Helper()
	fake := &fakeGemini{replies: replies}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := New(Options{
		APIKey:         "test-key",
		Model:          "gemini-2.0-flash",
		IncludeHistory: includeHistory,
		BaseURL:        srv.URL,
		HTTPClient:     srv.Client(),
	})
	require.NoError(t, err)
	return s, fake
}

func msg(role gemini.Role, text string) gemini.Message {
	return gemini.Message{Role: role, Part: gemini.TextPart(text)}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	_, err := New(Options{APIKey: "k"})
	require.Error(t, err)
	_, err = New(Options{Model: "m"})
	require.Error(t, err)

	s, err := New(Options{APIKey: "k", Model: "m"})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, "m", s.Model())
}

func TestSession_ConversationReplaysHistory(t *testing.T) {
	t.Parallel()
	s, fake := newTestSession(t, true, textReply("Hello"), textReply("Goodbye"))
	ctx := context.Background()

	answer, err := s.SendText(ctx, "Hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello", answer)
	assert.Equal(t, []gemini.Message{msg(gemini.RoleUser, "Hi"), msg(gemini.RoleModel, "Hello")}, s.History())

	answer, err = s.SendText(ctx, "Bye")
	require.NoError(t, err)
	assert.Equal(t, "Goodbye", answer)

	require.Len(t, fake.Requests(), 2)
	assert.Equal(t, []gemini.Content{
		{Role: gemini.RoleUser, Parts: []gemini.Part{gemini.TextPart("Hi")}},
	}, fake.Requests()[0].Contents)
	assert.Equal(t, []gemini.Content{
		{Role: gemini.RoleUser, Parts: []gemini.Part{gemini.TextPart("Hi")}},
		{Role: gemini.RoleModel, Parts: []gemini.Part{gemini.TextPart("Hello")}},
		{Role: gemini.RoleUser, Parts: []gemini.Part{gemini.TextPart("Bye")}},
	}, fake.Requests()[1].Contents)
	assert.Len(t, s.History(), 4)
}

func TestSession_WithoutHistoryReplay(t *testing.T) {
	t.Parallel()
	s, fake := newTestSession(t, false, textReply("one"), textReply("two"))
	ctx := context.Background()

	_, err := s.SendText(ctx, "a")
	require.NoError(t, err)
	_, err = s.SendText(ctx, "b")
	require.NoError(t, err)

	require.Len(t, fake.Requests(), 2)
	assert.Len(t, fake.Requests()[1].Contents, 1)
	assert.Len(t, s.History(), 4)
}

func TestSession_OneHistoryRowPerPart(t *testing.T) {
	t.Parallel()
	s, fake := newTestSession(t, true, textReply("A cat"), textReply("ok"))
	ctx := context.Background()

	_, err := s.SendPrompt(ctx, gemini.ResponseText,
		prompt.Text{Text: "What is this?"},
		prompt.FileByBase64{Data: "data:image/png;base64,iVBO"},
	)
	require.NoError(t, err)
	assert.Equal(t, []gemini.Message{
		msg(gemini.RoleUser, "What is this?"),
		{Role: gemini.RoleUser, Part: gemini.InlinePart("image/png", "iVBO")},
		msg(gemini.RoleModel, "A cat"),
	}, s.History())

	require.Len(t, fake.Requests()[0].Contents, 1)
	assert.Len(t, fake.Requests()[0].Contents[0].Parts, 2)

	_, err = s.SendText(ctx, "thanks")
	require.NoError(t, err)
	contents := fake.Requests()[1].Contents
	require.Len(t, contents, 4)
	assert.Equal(t, []gemini.Part{gemini.InlinePart("image/png", "iVBO")}, contents[1].Parts)
}

func TestSession_APIErrorKeepsUserTurn(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t, true, `{"error":{"code":400,"message":"bad request","status":"INVALID_ARGUMENT"}}`)

	_, err := s.SendText(context.Background(), "Hi")
	require.ErrorIs(t, err, gemini.ErrAPI)
	assert.Contains(t, err.Error(), "bad request")
	assert.Equal(t, []gemini.Message{msg(gemini.RoleUser, "Hi")}, s.History())
}

func TestSession_DecodeError(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t, true, `not json`)

	_, err := s.SendText(context.Background(), "Hi")
	require.ErrorIs(t, err, gemini.ErrDecode)
	assert.Equal(t, []gemini.Message{msg(gemini.RoleUser, "Hi")}, s.History())
}

func TestSession_InvalidInputBeforeNetwork(t *testing.T) {
	t.Parallel()
	s, fake := newTestSession(t, true)

	_, err := s.SendPrompt(context.Background(), gemini.ResponseText,
		prompt.FileByPath{Path: filepath.Join(t.TempDir(), "missing.pdf")})
	require.ErrorIs(t, err, gemini.ErrInvalidInput)
	assert.Zero(t, fake.Calls())
	assert.Empty(t, s.History())

	_, err = s.SendPrompt(context.Background(), gemini.ResponseText, prompt.FileByBase64{Data: "iVBO"})
	require.ErrorIs(t, err, gemini.ErrInvalidInput)
	assert.Zero(t, fake.Calls())
}

func TestSession_EmptyAnswerStillRecorded(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t, true, `{"candidates":[{"finishReason":"SAFETY"}]}`)

	answer, err := s.SendText(context.Background(), "Hi")
	require.NoError(t, err)
	assert.Empty(t, answer)
	assert.Equal(t, []gemini.Message{msg(gemini.RoleUser, "Hi"), msg(gemini.RoleModel, "")}, s.History())
}

func TestSession_ClearHistory(t *testing.T) {
	t.Parallel()
	s, fake := newTestSession(t, true, textReply("Hello"), textReply("Again"))
	ctx := context.Background()

	_, err := s.SendText(ctx, "Hi")
	require.NoError(t, err)

	s.ClearHistory()
	assert.Empty(t, s.History())

	_, err = s.SendText(ctx, "Once more")
	require.NoError(t, err)
	assert.Equal(t, []gemini.Content{
		{Role: gemini.RoleUser, Parts: []gemini.Part{gemini.TextPart("Once more")}},
	}, fake.Requests()[1].Contents)
}

func TestSession_StructuredReply(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t, false, textReply("```json\n{\"a\":1}\n```"), textReply("no json here"))
	ctx := context.Background()

	reply, err := s.SendPrompt(ctx, gemini.ResponseStructured, prompt.Texts("give json")...)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, reply.Value())

	reply, err = s.SendPrompt(ctx, gemini.ResponseStructured, prompt.Texts("give json")...)
	require.NoError(t, err)
	assert.False(t, reply.OK())
	assert.Contains(t, reply.Text, "no ```json block")
	assert.Equal(t, msg(gemini.RoleModel, "no json here"), s.History()[3])
}
