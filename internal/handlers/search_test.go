package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"maamar-search/internal/keywords"
	"maamar-search/internal/search"
	search_mocks "maamar-search/internal/search/mocks"
	"maamar-search/internal/service"
	"maamar-search/internal/service/mocks"
)

func TestSearchHandler_RequestParsing(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   service.SearchRequest
	}{
		{
			name:   "GET with primary names",
			method: http.MethodGet,
			target: "/search?" + url.Values{"name": {"באתי לגני"}, "question": {"שכינה"}, "top_n": {"10"}}.Encode(),
			want:   service.SearchRequest{Title: "באתי לגני", Question: "שכינה", TopN: 10},
		},
		{
			name:   "GET with aliases and flags",
			method: http.MethodGet,
			target: "/search?" + url.Values{"article": {"זקן"}, "quastion": {"אמונה"}, "exact": {"true"}, "strict": {"1"}, "semantic": {"yes"}, "min_score": {"30"}, "year": {"תשל״ו"}}.Encode(),
			want:   service.SearchRequest{Title: "זקן", Question: "אמונה", Year: "תשל״ו", MinScore: 30, Exact: true, Strict: true, Semantic: boolPtr(true)},
		},
		{
			name:   "GET with raw input",
			method: http.MethodGet,
			target: "/search?" + url.Values{"q": {"באתי לגני תשי״א"}}.Encode(),
			want:   service.SearchRequest{Raw: "באתי לגני תשי״א"},
		},
		{
			name:   "POST standard object",
			method: http.MethodPost,
			target: "/search",
			body:   `{"name": " באתי לגני ", "question": "שכינה", "top_n": 3, "semantic": true}`,
			want:   service.SearchRequest{Title: "באתי לגני", Question: "שכינה", TopN: 3, Semantic: boolPtr(true)},
		},
		{
			name:   "GET with semantic turned off",
			method: http.MethodGet,
			target: "/search?" + url.Values{"question": {"שכינה"}, "semantic": {"false"}}.Encode(),
			want:   service.SearchRequest{Question: "שכינה", Semantic: boolPtr(false)},
		},
		{
			name:   "POST semantic false as string",
			method: http.MethodPost,
			target: "/search",
			body:   `{"question": "שכינה", "semantic": "0"}`,
			want:   service.SearchRequest{Question: "שכינה", Semantic: boolPtr(false)},
		},
		{
			name:   "POST semantic null",
			method: http.MethodPost,
			target: "/search",
			body:   `{"question": "שכינה", "semantic": null}`,
			want:   service.SearchRequest{Question: "שכינה"},
		},
		{
			name:   "POST aliases with string numbers",
			method: http.MethodPost,
			target: "/search",
			body:   `{"article": "זקן", "quastion": "אמונה", "top_n": "2", "strict": "true"}`,
			want:   service.SearchRequest{Title: "זקן", Question: "אמונה", TopN: 2, Strict: true},
		},
		{
			name:   "POST envelope",
			method: http.MethodPost,
			target: "/search",
			body:   `[{"value": "{\"article\": \"באתי לגני\", \"quastion\": \"שכינה\"}", "type": "json"}]`,
			want:   service.SearchRequest{Title: "באתי לגני", Question: "שכינה"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockSearchService(ctrl)
			svc.EXPECT().
				Search(gomock.Any(), tt.want, service.Conversation{}).
				Return(service.SearchResponse{Results: []service.ResultItem{}}, nil)

			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			NewSearchHandler(svc).ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestSearchHandler_Response(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockSearchService(ctrl)
	svc.EXPECT().
		Search(gomock.Any(), gomock.Any(), service.Conversation{ClientID: "c1", ConversationID: "v1"}).
		Return(service.SearchResponse{
			Count: 1,
			Results: []service.ResultItem{{
				Name:                 "באתי לגני",
				Score:                100,
				TextPreview:          "באתי לגני אחותי",
				FullText:             "באתי לגני אחותי כלה",
				Filename:             "k3",
				Year:                 "תשי״א",
				MatchedKeywordCounts: map[string]int{"שכינה": 2},
			}},
		}, nil)

	req := httptest.NewRequest(http.MethodGet, "/search?name=x", nil)
	req.Header.Set("Client-Id", "c1")
	req.Header.Set("CONVERSATION-ID", "v1")
	w := httptest.NewRecorder()
	NewSearchHandler(svc).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["count"] != float64(1) {
		t.Errorf("count = %v", body["count"])
	}
	first := body["results"].([]any)[0].(map[string]any)
	for _, field := range []string{"name", "score", "text_preview", "full_text", "filename", "year", "keyword_score", "semantic_score", "matched_keyword_counts"} {
		if _, ok := first[field]; !ok {
			t.Errorf("result is missing %q", field)
		}
	}
}

func TestSearchHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "validation",
			err:        service.WrapError(&service.ValidationError{Field: "name", Message: service.MissingTermsMessage}, "search"),
			wantStatus: http.StatusBadRequest,
			wantError:  service.MissingTermsMessage,
		},
		{
			name:       "strict extraction",
			err:        service.WrapError(keywords.ErrUnavailable, "failed to search"),
			wantStatus: http.StatusBadGateway,
			wantError:  "Keyword extraction service unavailable",
		},
		{
			name:       "no corpus",
			err:        service.WrapError(search.ErrCorpusRequired, "failed to search"),
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "Corpus not loaded",
		},
		{
			name:       "other",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to search",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockSearchService(ctrl)
			svc.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return(service.SearchResponse{}, tt.err)

			w := httptest.NewRecorder()
			NewSearchHandler(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search?name=x", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
			}
		})
	}
}

func TestSearchHandler_BadInput(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{name: "non-numeric top_n", method: http.MethodGet, target: "/search?name=x&top_n=many", status: http.StatusBadRequest},
		{name: "broken JSON", method: http.MethodPost, target: "/search", body: `{"name":`, status: http.StatusBadRequest},
		{name: "empty envelope", method: http.MethodPost, target: "/search", body: `[]`, status: http.StatusBadRequest},
		{name: "envelope with broken value", method: http.MethodPost, target: "/search", body: `[{"value":"{oops"}]`, status: http.StatusBadRequest},
		{name: "wrong method", method: http.MethodDelete, target: "/search", status: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockSearchService(ctrl)

			w := httptest.NewRecorder()
			NewSearchHandler(svc).ServeHTTP(w, httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body)))
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestSearchHandler_SemanticDefault(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   bool
	}{
		{name: "GET omitted", method: http.MethodGet, target: "/search?question=x", want: true},
		{name: "GET off", method: http.MethodGet, target: "/search?question=x&semantic=false", want: false},
		{name: "POST omitted", method: http.MethodPost, target: "/search", body: `{"question": "x"}`, want: true},
		{name: "POST off", method: http.MethodPost, target: "/search", body: `{"question": "x", "semantic": false}`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			engine := search_mocks.NewMockEngine(ctrl)
			engine.EXPECT().
				Search(gomock.Any(), search.Query{Question: "x", Limit: service.DefaultTopN, UseSemantic: tt.want}).
				Return(nil, nil)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			NewSearchHandler(service.NewSearchService(engine, nil)).ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
			}
		})
	}
}

// The handler passes its request context through to the service.
func TestSearchHandler_Context(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockSearchService(ctrl)

	type key struct{}
	svc.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ service.SearchRequest, _ service.Conversation) (service.SearchResponse, error) {
			if ctx.Value(key{}) != "v" {
				t.Error("request context was not passed to the service")
			}
			return service.SearchResponse{}, nil
		})

	req := httptest.NewRequest(http.MethodGet, "/search?name=x", nil)
	req = req.WithContext(context.WithValue(req.Context(), key{}, "v"))
	NewSearchHandler(svc).ServeHTTP(httptest.NewRecorder(), req)
}

func boolPtr(b bool) *bool {
	return &b
}
