package provider

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"itassist/internal/config"
	"itassist/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func newTestOllama(url string, maxRetries int) *Ollama {
	return NewOllama(config.ProviderConfig{
		URL:            url,
		Model:          "test-model",
		TimeoutSeconds: 5,
		MaxRetries:     maxRetries,
	}, testLogger())
}

func TestChat_ReturnsAssistantContent(t *testing.T) {
	var gotReq ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaResponse{
			Message: ollamaMsg{Role: "assistant", Content: "run `df -h`"},
			Done:    true,
		})
	}))
	defer srv.Close()

	o := newTestOllama(srv.URL, 0)
	reply, err := o.Chat(context.Background(), []domain.Message{
		{Role: "system", Content: "you are an IT assistant"},
		{Role: "user", Content: "check disk space"},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != "run `df -h`" {
		t.Fatalf("unexpected reply: %q", reply)
	}

	if gotReq.Model != "test-model" {
		t.Fatalf("expected model test-model, got %q", gotReq.Model)
	}
	if gotReq.Stream {
		t.Fatal("chat must not request streaming")
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[1].Content != "check disk space" {
		t.Fatalf("messages not forwarded: %+v", gotReq.Messages)
	}
	if gotReq.Options["num_ctx"] != float64(2048) || gotReq.Options["temperature"] != 0.7 {
		t.Fatalf("options not forwarded: %+v", gotReq.Options)
	}
}

func TestChat_RetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(ollamaResponse{
			Message: ollamaMsg{Role: "assistant", Content: "ok"},
			Done:    true,
		})
	}))
	defer srv.Close()

	o := newTestOllama(srv.URL, 2)
	reply, err := o.Chat(context.Background(), []domain.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != "ok" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestChat_ClientErrorIsNotRetried(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	o := newTestOllama(srv.URL, 3)
	_, err := o.Chat(context.Background(), []domain.Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected status in error, got: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("4xx must not be retried, got %d attempts", attempts)
	}
}

func TestChat_UnreachableServer(t *testing.T) {
	o := newTestOllama("http://127.0.0.1:1", 0)
	_, err := o.Chat(context.Background(), []domain.Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

func TestModels_ParsesTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"models":[{"name":"llama3.2"},{"name":"codellama:13b"}]}`))
	}))
	defer srv.Close()

	o := newTestOllama(srv.URL, 0)
	models, err := o.Models(context.Background())
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if len(models) != 2 || models[0] != "llama3.2" || models[1] != "codellama:13b" {
		t.Fatalf("unexpected models: %v", models)
	}
}

func TestHealthy_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	o := newTestOllama(srv.URL, 0)
	if err := o.Healthy(context.Background()); err != nil {
		t.Fatalf("healthy: %v", err)
	}
}

func TestHealthy_Unreachable(t *testing.T) {
	o := newTestOllama("http://127.0.0.1:1", 0)
	if err := o.Healthy(context.Background()); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}
