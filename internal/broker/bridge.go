package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Bridge talks to a Shioaji bridge service over REST. One Bridge instance is
// one brokerage session on the bridge side; the simulation flag is fixed at
// construction, like the underlying SDK.
type Bridge struct {
	baseURL    string
	simulation bool
	httpClient *http.Client
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// NewBridge creates a bridge client for the given base URL.
func NewBridge(baseURL string, simulation bool, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		baseURL:    baseURL,
		simulation: simulation,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		b.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) BridgeOption {
	return func(b *Bridge) {
		b.httpClient = hc
	}
}

func (b *Bridge) ActivateCA(ctx context.Context, caPath, caPassword, personID string) (bool, error) {
	var out struct {
		Activated bool `json:"activated"`
	}
	err := b.post(ctx, "/ca/activate", map[string]any{
		"ca_path":     caPath,
		"ca_password": caPassword,
		"person_id":   personID,
	}, &out)
	if err != nil {
		return false, err
	}
	return out.Activated, nil
}

func (b *Bridge) Login(ctx context.Context, apiKey, secretKey string) ([]Account, error) {
	var out struct {
		Accounts []Account `json:"accounts"`
	}
	err := b.post(ctx, "/login", map[string]any{
		"api_key":    apiKey,
		"secret_key": secretKey,
		"simulation": b.simulation,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Accounts, nil
}

func (b *Bridge) FetchContracts(ctx context.Context) (*Directory, error) {
	var dir Directory
	if err := b.get(ctx, "/contracts", &dir); err != nil {
		return nil, err
	}
	dir.Reindex()
	return &dir, nil
}

func (b *Bridge) Usage(ctx context.Context) (Usage, error) {
	var u Usage
	if err := b.get(ctx, "/usage", &u); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (b *Bridge) Snapshots(ctx context.Context, contracts []Contract) ([]Snapshot, error) {
	var out struct {
		Snapshots []Snapshot `json:"snapshots"`
	}
	err := b.post(ctx, "/snapshots", map[string]any{
		"contracts": contracts,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Snapshots, nil
}

func (b *Bridge) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return b.do(req, out)
}

func (b *Bridge) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return b.do(req, out)
}

func (b *Bridge) do(req *http.Request, out any) error {
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bridge request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("bridge %s returned %d: %s", req.URL.Path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode bridge response %s: %w", req.URL.Path, err)
	}
	return nil
}
