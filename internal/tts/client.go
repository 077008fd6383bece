package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"bastion-panel/internal/config"

	"golang.org/x/time/rate"
)

var (
	ErrRateLimited = errors.New("tts rate limit exceeded")
	ErrEmptyText   = errors.New("text is empty")
	ErrTextTooLong = errors.New("text exceeds maximum length")
)

// Client talks to an external speech-synthesis HTTP service and enforces a
// per-guild token bucket so a single guild cannot exhaust the synthesizer.
type Client struct {
	cfg      config.TTSConfig
	http     *http.Client
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewClient(cfg config.TTSConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: timeout},
		limiters: make(map[string]*rate.Limiter),
	}
}

func (c *Client) limiter(guildID string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	limiter := c.limiters[guildID]
	if limiter == nil {
		perMinute := c.cfg.RatePerMinute
		if perMinute <= 0 {
			perMinute = 6
		}
		burst := c.cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(perMinute/60.0), burst)
		c.limiters[guildID] = limiter
	}
	return limiter
}

// Allow reports whether the guild has synthesis budget left without
// consuming it twice; Synthesize calls it internally.
func (c *Client) Allow(guildID string) bool {
	return c.limiter(guildID).Allow()
}

type synthRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// Synthesize validates and rate-checks the request, posts it to the speech
// service and writes the returned audio to a temp file. The caller owns the
// file and must remove it after playback.
func (c *Client) Synthesize(ctx context.Context, guildID, text, voice string) (string, error) {
	if text == "" {
		return "", ErrEmptyText
	}
	if c.cfg.MaxChars > 0 && utf8.RuneCountInString(text) > c.cfg.MaxChars {
		return "", ErrTextTooLong
	}
	if !c.Allow(guildID) {
		return "", ErrRateLimited
	}
	if voice == "" {
		voice = c.cfg.Voice
	}

	body, err := json.Marshal(synthRequest{Text: text, Voice: voice})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tts service returned status %d", resp.StatusCode)
	}

	file, err := os.CreateTemp("", "bastion-tts-*.audio")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", fmt.Errorf("tts download: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", err
	}
	return file.Name(), nil
}
