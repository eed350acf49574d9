package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_search_service.go -package=mocks maamar-search/internal/service SearchService
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_deliverer.go -package=mocks maamar-search/internal/service Deliverer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"maamar-search/internal/contextutil"
	"maamar-search/internal/markup"
	"maamar-search/internal/search"
)

const (
	// DefaultTopN is the result count when the request names none.
	DefaultTopN = 1
	// PreviewRunes is the length of text_preview.
	PreviewRunes = 300
	// NoResultsMessage is delivered when nothing matched.
	NoResultsMessage = "לא נמצאו מאמרים תואמים."
	// MissingTermsMessage is the validation message for an empty request.
	MissingTermsMessage = "Please provide at least a 'name' or a 'question'."

	deliveryTimeout = 15 * time.Second
)

// Deliverer pushes values into a conversation.
type Deliverer interface {
	Inject(ctx context.Context, clientID, conversationID string, values map[string]string) error
}

// SearchRequest is one search as received from a client.
type SearchRequest struct {
	Title    string
	Question string
	Year     string
	// Raw is free text in the "[title] [שנת] [year] [question]" form. It
	// fills whichever of Title, Year and Question are empty.
	Raw      string
	TopN     int
	MinScore int
	Exact    bool
	Strict   bool
	// Semantic is nil when the client did not say; the blend is then allowed.
	Semantic *bool
}

// Conversation identifies where results are delivered. Both IDs are
// required for delivery.
type Conversation struct {
	ClientID       string
	ConversationID string
}

// Valid reports whether results should be delivered.
func (c Conversation) Valid() bool {
	return c.ClientID != "" && c.ConversationID != ""
}

// ResultItem is one ranked maamar.
type ResultItem struct {
	Key                  string         `json:"key"`
	Name                 string         `json:"name"`
	Score                int            `json:"score"`
	TextPreview          string         `json:"text_preview"`
	FullText             string         `json:"full_text"`
	Filename             string         `json:"filename"`
	Year                 string         `json:"year"`
	KeywordScore         int            `json:"keyword_score"`
	SemanticScore        int            `json:"semantic_score"`
	MatchedKeywords      []string       `json:"matched_keywords,omitempty"`
	MatchedKeywordCounts map[string]int `json:"matched_keyword_counts,omitempty"`
}

// SearchResponse is the ranked result list.
type SearchResponse struct {
	Count   int          `json:"count"`
	Results []ResultItem `json:"results"`
}

// SearchService validates search requests, runs them and delivers the answer.
type SearchService interface {
	// Search runs req. When conv is valid the outcome, success or failure,
	// is also delivered to the conversation.
	Search(ctx context.Context, req SearchRequest, conv Conversation) (SearchResponse, error)
}

type searchService struct {
	engine    search.Engine
	deliverer Deliverer
	logger    *slog.Logger
}

// NewSearchService creates a SearchService. deliverer may be nil, in which
// case conversations are ignored.
func NewSearchService(engine search.Engine, deliverer Deliverer) SearchService {
	return &searchService{
		engine:    engine,
		deliverer: deliverer,
		logger:    slog.Default(),
	}
}

func (s *searchService) getLogger(ctx context.Context) *slog.Logger {
	if ctx.Value(contextutil.LoggerKey()) != nil {
		return contextutil.LoggerFromContext(ctx)
	}
	return s.logger
}

// Search implements SearchService.
func (s *searchService) Search(ctx context.Context, req SearchRequest, conv Conversation) (SearchResponse, error) {
	logger := s.getLogger(ctx)

	q, err := buildQuery(req)
	if err != nil {
		logger.WarnContext(ctx, "invalid search request", "error", err)
		var ve *ValidationError
		if errors.As(err, &ve) {
			s.deliver(ctx, conv, map[string]string{"server_search": ve.Message})
		}
		return SearchResponse{}, err
	}
	logger.InfoContext(ctx, "search params", "name", q.Title, "year", q.Year, "question", q.Question, "top_n", q.Limit)

	results, err := s.engine.Search(ctx, q)
	if err != nil {
		logger.ErrorContext(ctx, "search failed", "error", err)
		s.deliver(ctx, conv, map[string]string{"answer": "Error: " + err.Error()})
		return SearchResponse{}, WrapError(err, "failed to search")
	}

	resp := NewResponse(results)

	answer := NoResultsMessage
	if len(resp.Results) > 0 {
		answer = resp.Results[0].FullText
	}
	s.deliver(ctx, conv, map[string]string{"server_search": answer})

	logger.InfoContext(ctx, "search request processed", "count", resp.Count)
	return resp, nil
}

// buildQuery validates req and turns it into an engine query.
func buildQuery(req SearchRequest) (search.Query, error) {
	title := strings.TrimSpace(req.Title)
	year := strings.TrimSpace(req.Year)
	question := strings.TrimSpace(req.Question)

	if raw := strings.TrimSpace(req.Raw); raw != "" {
		parsed := search.ParseInput(raw)
		if title == "" {
			title = parsed.Title
		}
		if year == "" {
			year = parsed.Year
		}
		if question == "" {
			question = parsed.Question
		}
	}

	if title == "" && question == "" && year == "" {
		return search.Query{}, &ValidationError{Field: "name", Message: MissingTermsMessage}
	}
	if req.TopN < 0 {
		return search.Query{}, &ValidationError{Field: "top_n", Message: "top_n must not be negative"}
	}
	if req.MinScore < 0 || req.MinScore > 100 {
		return search.Query{}, &ValidationError{Field: "min_score", Message: "min_score must be between 0 and 100"}
	}

	limit := req.TopN
	if limit == 0 {
		limit = DefaultTopN
	}
	return search.Query{
		Title:          title,
		Year:           year,
		Question:       question,
		Limit:          limit,
		MinScore:       req.MinScore,
		UseSemantic:    req.Semantic == nil || *req.Semantic,
		Exact:          req.Exact,
		StrictKeywords: req.Strict,
	}, nil
}

// NewResponse converts engine results into the response shape.
func NewResponse(results []search.Result) SearchResponse {
	resp := SearchResponse{
		Count:   len(results),
		Results: make([]ResultItem, len(results)),
	}
	for i, r := range results {
		resp.Results[i] = toItem(r)
	}
	return resp
}

func toItem(r search.Result) ResultItem {
	return ResultItem{
		Key:                  r.Key,
		Name:                 r.Name,
		Score:                r.Score,
		TextPreview:          markup.Preview(r.Text, PreviewRunes),
		FullText:             r.Text,
		Filename:             r.Filename,
		Year:                 r.Year,
		KeywordScore:         r.KeywordScore,
		SemanticScore:        r.SemanticScore,
		MatchedKeywords:      r.MatchedKeywords,
		MatchedKeywordCounts: r.MatchedKeywordCounts,
	}
}

// deliver injects values into conv. Failures are logged only; the HTTP
// caller still gets its response.
func (s *searchService) deliver(ctx context.Context, conv Conversation, values map[string]string) {
	if s.deliverer == nil || !conv.Valid() {
		return
	}
	logger := s.getLogger(ctx)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
	defer cancel()
	if err := s.deliverer.Inject(ctx, conv.ClientID, conv.ConversationID, values); err != nil {
		logger.ErrorContext(ctx, "failed to deliver search response", "conversation_id", conv.ConversationID, "error", err)
	}
}
