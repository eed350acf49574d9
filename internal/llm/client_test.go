package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	client := NewClient("https://api.groq.com/openai/v1", "test-key", "test-model", 10*time.Second)
	if client.BaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("NewClient() BaseURL = %v", client.BaseURL)
	}
	if client.client.Timeout != 10*time.Second {
		t.Errorf("NewClient() timeout = %v, want 10s", client.client.Timeout)
	}

	noTimeout := NewClient("http://localhost:8080", "k", "m", 0)
	if noTimeout.client != http.DefaultClient {
		t.Error("NewClient() with zero timeout should use http.DefaultClient")
	}
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		base     string
		resource string
		want     string
	}{
		{base: "https://api.groq.com/openai/v1", resource: "chat/completions", want: "https://api.groq.com/openai/v1/chat/completions"},
		{base: "https://api.openai.com/v1/", resource: "embeddings", want: "https://api.openai.com/v1/embeddings"},
		{base: "http://localhost:8080", resource: "chat/completions", want: "http://localhost:8080/v1/chat/completions"},
		{base: " http://localhost:8080/ ", resource: "/embeddings", want: "http://localhost:8080/v1/embeddings"},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			if got := EndpointURL(tt.base, tt.resource); got != tt.want {
				t.Errorf("EndpointURL(%q, %q) = %q, want %q", tt.base, tt.resource, got, tt.want)
			}
		})
	}
}

func TestClient_ChatWithMessages(t *testing.T) {
	tests := []struct {
		name       string
		params     ChatParams
		serverResp func(t *testing.T, w http.ResponseWriter, r *http.Request)
		wantReply  string
		wantErr    bool
	}{
		{
			name:   "successful chat",
			params: ChatParams{Temperature: 0, MaxTokens: 1000},
			serverResp: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.URL.Path != "/openai/v1/chat/completions" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if r.Header.Get("Authorization") != "Bearer test-key" {
					t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
				}

				var raw map[string]any
				if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
					t.Fatalf("decode request: %v", err)
				}
				if raw["model"] != "test-model" {
					t.Errorf("model = %v", raw["model"])
				}
				if temp, ok := raw["temperature"]; !ok || temp.(float64) != 0 {
					t.Errorf("temperature = %v, want explicit 0", temp)
				}
				if raw["max_tokens"].(float64) != 1000 {
					t.Errorf("max_tokens = %v", raw["max_tokens"])
				}

				_ = json.NewEncoder(w).Encode(ChatResponse{
					Choices: []ChatChoice{{Message: Message{Role: "assistant", Content: "שכינה, אהבה"}}},
				})
			},
			wantReply: "שכינה, אהבה",
		},
		{
			name: "no choices returned",
			serverResp: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(ChatResponse{})
			},
			wantErr: true,
		},
		{
			name: "bad status",
			serverResp: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid key"}`))
			},
			wantErr: true,
		},
		{
			name: "invalid json",
			serverResp: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.serverResp(t, w, r)
			}))
			defer server.Close()

			client := NewClient(server.URL+"/openai/v1", "test-key", "test-model", time.Second)
			reply, err := client.ChatWithMessages(context.Background(), []Message{
				{Role: "system", Content: "extract"},
				{Role: "user", Content: "question"},
			}, tt.params)

			if (err != nil) != tt.wantErr {
				t.Fatalf("ChatWithMessages() error = %v, wantErr %v", err, tt.wantErr)
			}
			if reply != tt.wantReply {
				t.Errorf("ChatWithMessages() = %q, want %q", reply, tt.wantReply)
			}
		})
	}
}

func TestClient_ChatWithMessages_DefaultModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "default-model" {
			t.Errorf("model = %q, want default-model", req.Model)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("messages = %+v", req.Messages)
		}
		_ = json.NewEncoder(w).Encode(ChatResponse{Choices: []ChatChoice{{Message: Message{Content: "ok"}}}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "default-model", 0)
	reply, err := client.ChatWithMessages(context.Background(), []Message{{Role: "user", Content: "hi"}}, ChatParams{})
	if err != nil || reply != "ok" {
		t.Errorf("ChatWithMessages() = %q, %v", reply, err)
	}
}

func TestClient_ChatWithMessages_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m", 20*time.Millisecond)
	if _, err := client.ChatWithMessages(context.Background(), []Message{{Role: "user", Content: "hi"}}, ChatParams{}); err == nil {
		t.Error("ChatWithMessages() expected timeout error")
	}
}
