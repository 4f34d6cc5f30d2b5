package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Notifier pushes operational warnings (guard trips, activation failures) to
// a signed webhook. A per-key cooldown keeps repeated trips from spamming the
// channel. A Notifier with an empty webhook is a no-op.
type Notifier struct {
	webhook    string
	secret     string
	cooldown   time.Duration
	httpClient *http.Client

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func New(webhook, secret string, timeout, cooldown time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Notifier{
		webhook:  webhook,
		secret:   secret,
		cooldown: cooldown,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		lastSent: make(map[string]time.Time),
	}
}

// Warn sends a keyed warning unless the same key fired within the cooldown
// window. Delivery failures are logged, never propagated.
func (n *Notifier) Warn(ctx context.Context, key, text string) {
	if n == nil || n.webhook == "" {
		return
	}
	if !n.shouldSend(key) {
		return
	}
	if err := n.send(ctx, key, text); err != nil {
		log.Printf("notify: send %q failed: %v", key, err)
	}
}

func (n *Notifier) shouldSend(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := time.Now()
	if last, ok := n.lastSent[key]; ok && n.cooldown > 0 && now.Sub(last) < n.cooldown {
		return false
	}
	n.lastSent[key] = now
	return true
}

func (n *Notifier) send(ctx context.Context, key, text string) error {
	payload := map[string]any{
		"key":  key,
		"text": text,
		"ts":   time.Now().Unix(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	endpoint, err := n.signedURL()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

func (n *Notifier) signedURL() (string, error) {
	if n.secret == "" {
		return n.webhook, nil
	}

	ts := time.Now().UnixMilli()
	signature := sign(fmt.Sprintf("%d\n%s", ts, n.secret), n.secret)

	u, err := url.Parse(n.webhook)
	if err != nil {
		return "", fmt.Errorf("invalid webhook url: %w", err)
	}
	q := u.Query()
	q.Set("timestamp", fmt.Sprintf("%d", ts))
	q.Set("sign", signature)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func sign(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(message))
	sum := mac.Sum(nil)
	return base64.StdEncoding.EncodeToString(sum)
}
