package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"gemini-session-client/internal/gemini"
	"gemini-session-client/internal/httpclient"
	"gemini-session-client/internal/prompt"
)

type Options struct {
	APIKey         string
	Model          string
	IncludeHistory bool

	BaseURL           string
	APIVersion        string
	SystemInstruction string
	ThinkingModel     string
	ThinkingBudget    int

	// HTTPClient is shared by the API exchange and URL downloads.
	HTTPClient       *http.Client
	MaxFetchBytes    int64
	FetchConcurrency int

	Logger *slog.Logger
}

// Session is one conversation with one model. It is not safe for concurrent
// SendPrompt calls; see Store for per-key serialization.
type Session struct {
	id             string
	model          string
	includeHistory bool
	buildOpts      gemini.BuildOptions

	client     *gemini.Client
	normalizer *prompt.Normalizer
	history    *History
	logger     *slog.Logger
}

func New(opts Options) (*Session, error) {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		return nil, errors.New("session: model is empty")
	}

	id := uuid.NewString()

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("session", id, "model", model)

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = httpclient.New(httpclient.Options{Timeout: gemini.DefaultTimeout})
	}

	client, err := gemini.New(gemini.Options{
		APIKey:     opts.APIKey,
		BaseURL:    opts.BaseURL,
		APIVersion: opts.APIVersion,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	normalizer := prompt.NewNormalizer(prompt.Options{
		Fetcher: prompt.NewFetcher(prompt.FetcherOptions{
			HTTPClient: httpClient,
			MaxBytes:   opts.MaxFetchBytes,
		}),
		Concurrency: opts.FetchConcurrency,
		Logger:      logger,
	})

	return &Session{
		id:             id,
		model:          model,
		includeHistory: opts.IncludeHistory,
		buildOpts: gemini.BuildOptions{
			Model:             model,
			SystemInstruction: opts.SystemInstruction,
			ThinkingModel:     opts.ThinkingModel,
			ThinkingBudget:    opts.ThinkingBudget,
		},
		client:     client,
		normalizer: normalizer,
		history:    NewHistory(),
		logger:     logger,
	}, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Model() string { return s.model }

// SendPrompt runs one exchange. The user parts are recorded in the history as
// soon as they are normalized and stay there if a later step fails; the model
// reply is recorded only after a successfully parsed response.
func (s *Session) SendPrompt(ctx context.Context, rt gemini.ResponseType, items ...prompt.Item) (gemini.Reply, error) {
	var replay []gemini.Message
	if s.includeHistory {
		replay = s.history.All()
	}

	parts, err := s.normalizer.Normalize(ctx, items, s.history)
	if err != nil {
		return gemini.Reply{}, err
	}

	req := gemini.BuildRequest(parts, replay, s.buildOpts)

	raw, err := s.client.Exchange(ctx, s.model, req)
	if err != nil {
		return gemini.Reply{}, err
	}

	answer, err := gemini.ParseResponse(raw)
	if err != nil {
		return gemini.Reply{}, err
	}
	if !answer.Found {
		s.logger.Debug("response has no text", "bytes", len(raw))
	}

	s.history.Append(gemini.Message{Role: gemini.RoleModel, Part: gemini.TextPart(answer.Text)})

	return gemini.FormatReply(answer, rt), nil
}

// SendText sends a single text prompt and returns the trimmed answer.
func (s *Session) SendText(ctx context.Context, text string) (string, error) {
	reply, err := s.SendPrompt(ctx, gemini.ResponseText, prompt.Text{Text: text})
	if err != nil {
		return "", err
	}
	return reply.Text, nil
}

func (s *Session) History() []gemini.Message {
	return s.history.All()
}

func (s *Session) ClearHistory() {
	s.history.Clear()
}
