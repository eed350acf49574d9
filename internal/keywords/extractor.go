// Package keywords obtains search keywords for a free-text question.
package keywords

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chatter.go -package=mocks maamar-search/internal/keywords Chatter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"maamar-search/internal/contextutil"
	"maamar-search/internal/llm"
)

// ErrUnavailable is returned when keywords cannot be obtained from the
// extraction service: no client configured, feature disabled, or the call failed.
var ErrUnavailable = errors.New("keyword extraction unavailable")

// DefaultTimeout bounds a single extraction call.
const DefaultTimeout = 10 * time.Second

// Chatter is the chat-completion capability the extractor needs.
type Chatter interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Extractor asks an LLM for the keywords of a question and caches the answer
// for the lifetime of the process. It is safe for concurrent use.
type Extractor struct {
	chat    Chatter
	enabled bool
	timeout time.Duration

	mu    sync.RWMutex
	cache map[string][]string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithEnabled switches extraction on or off. A disabled extractor always
// returns ErrUnavailable.
func WithEnabled(enabled bool) Option {
	return func(e *Extractor) {
		e.enabled = enabled
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewExtractor creates an Extractor. A nil chat means no credentials were
// configured.
func NewExtractor(chat Chatter, opts ...Option) *Extractor {
	e := &Extractor{
		chat:    chat,
		enabled: true,
		timeout: DefaultTimeout,
		cache:   make(map[string][]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Available reports whether Extract can reach the service at all.
func (e *Extractor) Available() bool {
	return e != nil && e.enabled && e.chat != nil
}

// Extract returns the keywords of question. An empty, non-nil list means the
// service found nothing worth searching for. Failures wrap ErrUnavailable.
func (e *Extractor) Extract(ctx context.Context, question string) ([]string, error) {
	if !e.Available() {
		return nil, ErrUnavailable
	}

	key := strings.TrimSpace(question)
	if key == "" {
		return []string{}, nil
	}

	e.mu.RLock()
	cached, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		return clone(cached), nil
	}

	logger := contextutil.LoggerFromContext(ctx)

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	answer, err := e.chat.ChatWithMessages(callCtx, prompt(question), llm.ChatParams{
		Temperature: 0,
		MaxTokens:   1000,
	})
	if err != nil {
		logger.WarnContext(ctx, "keyword extraction failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	keywords := ParseResponse(answer)
	logger.DebugContext(ctx, "keywords extracted", "question", key, "keywords", keywords)

	e.mu.Lock()
	e.cache[key] = keywords
	e.mu.Unlock()

	return clone(keywords), nil
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
