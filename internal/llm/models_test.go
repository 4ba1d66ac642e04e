package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestListModels(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"openai shape", `{"data":[{"id":"gpt-4o"},{"id":"gpt-4o-mini"},{"id":"a-model"}]}`, []string{"a-model", "gpt-4o", "gpt-4o-mini"}},
		{"ollama shape", `{"models":[{"name":"qwen3"},{"name":"llama3"}]}`, []string{"llama3", "qwen3"}},
		{"empty", `{}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var auth, path string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				auth = r.Header.Get("Authorization")
				path = r.URL.Path
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			got, err := ListModels(context.Background(), srv.URL+"/v1/", "k")
			if err != nil {
				t.Fatalf("ListModels failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
			if path != "/v1/models" || auth != "Bearer k" {
				t.Errorf("Unexpected request: %s %q", path, auth)
			}
		})
	}
}

func TestListModelsErrors(t *testing.T) {
	if _, err := ListModels(context.Background(), "ftp://example.com", ""); err == nil {
		t.Error("Expected error for non-http base URL")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusUnauthorized)
	}))
	defer srv.Close()

	if _, err := ListModels(context.Background(), srv.URL, "bad"); err == nil {
		t.Error("Expected error for 401")
	}
}

func TestConnectionCheck(t *testing.T) {
	ctx := context.Background()

	ok := newChatServer(t, func(w http.ResponseWriter, stream bool) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completion("H"))
	})
	if got, err := TestConnection(ctx, testConfig(ok.srv.URL)); err != nil || !got {
		t.Errorf("Expected success, got %v %v", got, err)
	}
	ok.mu.Lock()
	if ok.body["max_tokens"] != float64(1) {
		t.Errorf("Expected max_tokens 1, got %v", ok.body["max_tokens"])
	}
	ok.mu.Unlock()

	rejected := newChatServer(t, func(w http.ResponseWriter, stream bool) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"bad key"}}`)
	})
	if got, err := TestConnection(ctx, testConfig(rejected.srv.URL)); err != nil || got {
		t.Errorf("Expected rejection without error, got %v %v", got, err)
	}

	if got, err := TestConnection(ctx, Config{APIKey: "k", BaseURL: "not a url"}); err == nil || got {
		t.Errorf("Expected invalid URL error, got %v %v", got, err)
	}
	if got, err := TestConnection(ctx, Config{BaseURL: ok.srv.URL}); err != nil || got {
		t.Errorf("Expected false for empty key, got %v %v", got, err)
	}
}
