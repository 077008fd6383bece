package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"bastion-panel/internal/config"
)

func newSynthServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req synthRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Text == "" {
			http.Error(w, "empty text", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFF-fake-audio:" + req.Voice))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSynthesizeWritesTempFile(t *testing.T) {
	server := newSynthServer(t)
	client := NewClient(config.TTSConfig{
		Endpoint:      server.URL,
		Voice:         "en_US-standard",
		RatePerMinute: 600,
		Burst:         10,
		MaxChars:      100,
	})

	path, err := client.Synthesize(context.Background(), "g1", "hello there", "")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read temp file: %v", err)
	}
	if string(data) != "RIFF-fake-audio:en_US-standard" {
		t.Fatalf("unexpected audio body %q", data)
	}
}

func TestSynthesizeValidation(t *testing.T) {
	server := newSynthServer(t)
	client := NewClient(config.TTSConfig{
		Endpoint:      server.URL,
		RatePerMinute: 600,
		Burst:         10,
		MaxChars:      10,
	})

	if _, err := client.Synthesize(context.Background(), "g1", "", ""); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if _, err := client.Synthesize(context.Background(), "g1", "this text is far too long", ""); !errors.Is(err, ErrTextTooLong) {
		t.Fatalf("expected ErrTextTooLong, got %v", err)
	}

	// ten runes, nineteen bytes; the cap counts characters
	path, err := client.Synthesize(context.Background(), "g1", "привет мир", "")
	if err != nil {
		t.Fatalf("multibyte text within cap: %v", err)
	}
	os.Remove(path)
}

func TestSynthesizeRateLimitPerGuild(t *testing.T) {
	server := newSynthServer(t)
	client := NewClient(config.TTSConfig{
		Endpoint:      server.URL,
		RatePerMinute: 1,
		Burst:         1,
		MaxChars:      100,
	})

	path, err := client.Synthesize(context.Background(), "g1", "hello", "")
	if err != nil {
		t.Fatalf("first synthesize: %v", err)
	}
	os.Remove(path)

	if _, err := client.Synthesize(context.Background(), "g1", "hello again", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// a different guild has its own bucket
	path, err = client.Synthesize(context.Background(), "g2", "hello", "")
	if err != nil {
		t.Fatalf("other guild synthesize: %v", err)
	}
	os.Remove(path)
}

func TestSynthesizeServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(config.TTSConfig{Endpoint: server.URL, RatePerMinute: 600, Burst: 10})
	if _, err := client.Synthesize(context.Background(), "g1", "hello", ""); err == nil {
		t.Fatalf("expected error from failing service")
	}
}
