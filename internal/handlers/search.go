package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"maamar-search/internal/contextutil"
	"maamar-search/internal/keywords"
	"maamar-search/internal/search"
	"maamar-search/internal/service"
)

// maxBodyBytes bounds POST bodies.
const maxBodyBytes = 1 << 20

// SearchHandler handles HTTP requests for maamar searches.
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// SearchPayload is the POST body. "article" and "quastion" are accepted as
// aliases of "name" and "question". Numbers and flags may also be sent as
// strings. An omitted "semantic" leaves the blend on.
//
// swagger:model SearchPayload
type SearchPayload struct {
	Name     string    `json:"name"`
	Article  string    `json:"article"`
	Question string    `json:"question"`
	Quastion string    `json:"quastion"`
	Year     string    `json:"year"`
	Q        string    `json:"q"`
	TopN     flexInt   `json:"top_n"`
	MinScore flexInt   `json:"min_score"`
	Exact    flexBool  `json:"exact"`
	Strict   flexBool  `json:"strict"`
	Semantic *flexBool `json:"semantic"`
}

// envelopeItem is one element of the Humains request format, whose value
// holds a JSON-encoded SearchPayload.
type envelopeItem struct {
	Value string `json:"value"`
}

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP handles HTTP requests for maamar searches.
//
// swagger:route GET /search searchMaamar
//
// # Search maamarim by title, year and question
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Ranked results
//	  schema:
//	    "$ref": "#/definitions/SearchResponse"
//	'400':
//	  description: Missing search terms or malformed parameters
//	'502':
//	  description: Keyword extraction unavailable in strict mode
//	'503':
//	  description: Corpus not loaded
//	'500':
//	  description: Internal server error
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var (
		req service.SearchRequest
		err error
	)
	switch r.Method {
	case http.MethodGet:
		req, err = requestFromQuery(r)
	case http.MethodPost:
		req, err = requestFromBody(r)
	default:
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if err != nil {
		logger.WarnContext(ctx, "invalid search request", "error", err)
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv := service.Conversation{
		ClientID:       strings.TrimSpace(r.Header.Get("client-id")),
		ConversationID: strings.TrimSpace(r.Header.Get("conversation-id")),
	}
	logger.DebugContext(ctx, "search request", "humains", conv.Valid())

	resp, err := h.searchService.Search(ctx, req, conv)
	if err != nil {
		h.handleSearchError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// handleSearchError maps service errors to HTTP status codes.
func (h *SearchHandler) handleSearchError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		h.writeError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, keywords.ErrUnavailable):
		logger.WarnContext(ctx, "strict keyword extraction failed", "error", err)
		h.writeError(w, http.StatusBadGateway, "Keyword extraction service unavailable")
	case errors.Is(err, search.ErrCorpusRequired):
		logger.ErrorContext(ctx, "search without corpus", "error", err)
		h.writeError(w, http.StatusServiceUnavailable, "Corpus not loaded")
	default:
		logger.ErrorContext(ctx, "search failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to search")
	}
}

// writeError writes an error response.
func (h *SearchHandler) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

func requestFromQuery(r *http.Request) (service.SearchRequest, error) {
	q := r.URL.Query()
	first := func(keys ...string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(q.Get(k)); v != "" {
				return v
			}
		}
		return ""
	}

	p := SearchPayload{
		Name:     first("name", "article"),
		Question: first("question", "quastion"),
		Year:     q.Get("year"),
		Q:        q.Get("q"),
	}
	var err error
	if p.TopN, err = parseIntParam("top_n", q.Get("top_n")); err != nil {
		return service.SearchRequest{}, err
	}
	if p.MinScore, err = parseIntParam("min_score", q.Get("min_score")); err != nil {
		return service.SearchRequest{}, err
	}
	p.Exact = flexBool(parseBool(q.Get("exact")))
	p.Strict = flexBool(parseBool(q.Get("strict")))
	if q.Has("semantic") {
		semantic := flexBool(parseBool(q.Get("semantic")))
		p.Semantic = &semantic
	}
	return p.request(), nil
}

func requestFromBody(r *http.Request) (service.SearchRequest, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return service.SearchRequest{}, fmt.Errorf("failed to read request body")
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return service.SearchRequest{}, nil
	}

	var p SearchPayload
	if raw[0] == '[' {
		var items []envelopeItem
		if err := json.Unmarshal(raw, &items); err != nil {
			return service.SearchRequest{}, fmt.Errorf("invalid request body")
		}
		if len(items) == 0 || strings.TrimSpace(items[0].Value) == "" {
			return service.SearchRequest{}, fmt.Errorf("request envelope has no value")
		}
		raw = []byte(items[0].Value)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return service.SearchRequest{}, fmt.Errorf("invalid request body")
	}
	return p.request(), nil
}

func (p SearchPayload) request() service.SearchRequest {
	pick := func(a, b string) string {
		if a = strings.TrimSpace(a); a != "" {
			return a
		}
		return strings.TrimSpace(b)
	}
	var semantic *bool
	if p.Semantic != nil {
		v := bool(*p.Semantic)
		semantic = &v
	}
	return service.SearchRequest{
		Title:    pick(p.Name, p.Article),
		Question: pick(p.Question, p.Quastion),
		Year:     strings.TrimSpace(p.Year),
		Raw:      strings.TrimSpace(p.Q),
		TopN:     int(p.TopN),
		MinScore: int(p.MinScore),
		Exact:    bool(p.Exact),
		Strict:   bool(p.Strict),
		Semantic: semantic,
	}
}

func parseIntParam(name, v string) (flexInt, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return flexInt(n), nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// flexInt decodes from a JSON number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	*f = flexInt(n)
	return nil
}

// flexBool decodes from a JSON bool or a string such as "true" or "1".
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	*f = flexBool(parseBool(strings.Trim(string(b), `"`)))
	return nil
}
