// Package webhook delivers terminal job payloads to user-supplied callback URLs.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Sender posts payloads with bounded retries. The zero value is not usable;
// construct with NewSender.
type Sender struct {
	client   *http.Client
	attempts int
	base     time.Duration
	cap      time.Duration
}

func NewSender() *Sender {
	return &Sender{
		client:   &http.Client{Timeout: 30 * time.Second},
		attempts: 8,
		base:     time.Second,
		cap:      5 * time.Minute,
	}
}

// Send dispatches the JSON payload to callbackURL asynchronously. ctx should
// be context.WithoutCancel(jobCtx) so retries survive the job's own lifetime
// but stop on server shutdown.
func (s *Sender) Send(ctx context.Context, callbackURL string, payload []byte) {
	if err := validateURL(callbackURL); err != nil {
		slog.Warn("webhook: rejected callback URL", "url", callbackURL, "error", err)
		return
	}
	go s.send(ctx, callbackURL, payload)
}

// validateURL blocks non-HTTP(S) schemes and private/internal IP ranges.
func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	host := u.Hostname()
	ips, err := net.LookupHost(host)
	if err != nil {
		return fmt.Errorf("DNS lookup failed: %w", err)
	}

	for _, ipStr := range ips {
		ip := net.ParseIP(ipStr)
		if ip == nil {
			continue
		}
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return fmt.Errorf("private/internal IP blocked: %s", ipStr)
		}
	}

	return nil
}

func (s *Sender) send(ctx context.Context, callbackURL string, payload []byte) {
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if ctx.Err() != nil {
			return
		}
		err := s.post(ctx, callbackURL, payload)
		if err == nil {
			return
		}
		slog.Warn("webhook attempt failed", "attempt", attempt, "url", callbackURL, "error", err)
		if attempt < s.attempts {
			time.Sleep(s.jitter(attempt))
		}
	}
	slog.Error("webhook: all retries exhausted", "url", callbackURL)
}

// jitter returns a random duration between 0 and min(cap, base * 2^attempt).
// Full jitter prevents synchronized retries when multiple webhooks fail at once.
func (s *Sender) jitter(attempt int) time.Duration {
	exp := s.base * (1 << attempt)
	if exp > s.cap {
		exp = s.cap
	}
	return time.Duration(rand.Int63n(int64(exp)))
}

func (s *Sender) post(ctx context.Context, callbackURL string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return nil
}
