package callsession

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is the provider's answer while a new session is still
// propagating. It is the only join error worth retrying.
var ErrSessionNotFound = errors.New("call session not found")

// CreateCallRequest describes the two parties of a call.
type CreateCallRequest struct {
	BookingID        string `json:"bookingId"`
	ProfessionalID   string `json:"professionalId"`
	ProfessionalName string `json:"professionalName"`
	PatientID        string `json:"patientId"`
	PatientName      string `json:"patientName"`
	Medium           string `json:"medium"`
	TTLSeconds       int    `json:"ttlSeconds"`
}

// Handle is what a participant needs to enter a call.
type Handle struct {
	SessionID string `json:"id"`
	URL       string `json:"url"`
}

// Provider is the video-conferencing backend.
type Provider interface {
	CreateCall(ctx context.Context, req CreateCallRequest) (string, error)
	Join(ctx context.Context, sessionID string) (*Handle, error)
}

// HTTPProvider talks to a REST video API: POST /sessions creates a call and
// GET /sessions/{id} answers 404 until the call has propagated.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *HTTPProvider) CreateCall(ctx context.Context, req CreateCallRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/sessions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var handle Handle
	if err := p.do(httpReq, &handle); err != nil {
		return "", fmt.Errorf("create call failed: %w", err)
	}
	if handle.SessionID == "" {
		return "", errors.New("create call failed: provider returned no session id")
	}
	return handle.SessionID, nil
}

func (p *HTTPProvider) Join(ctx context.Context, sessionID string) (*Handle, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/sessions/"+sessionID, nil)
	if err != nil {
		return nil, err
	}
	var handle Handle
	if err := p.do(httpReq, &handle); err != nil {
		return nil, err
	}
	return &handle, nil
}

func (p *HTTPProvider) do(req *http.Request, out interface{}) error {
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrSessionNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("video provider returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response failed: %w", err)
	}
	return nil
}

// LocalProvider is an in-process provider for development. Sessions become
// joinable after the configured propagation delay.
type LocalProvider struct {
	mu        sync.Mutex
	delay     time.Duration
	readyAt   map[string]time.Time
	now       func() time.Time
	urlPrefix string
}

func NewLocalProvider(propagation time.Duration) *LocalProvider {
	return &LocalProvider{
		delay:     propagation,
		readyAt:   make(map[string]time.Time),
		now:       time.Now,
		urlPrefix: "local://call/",
	}
}

func (p *LocalProvider) CreateCall(ctx context.Context, req CreateCallRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := uuid.NewString()
	p.readyAt[id] = p.now().Add(p.delay)
	return id, nil
}

func (p *LocalProvider) Join(ctx context.Context, sessionID string) (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ready, ok := p.readyAt[sessionID]
	if !ok || p.now().Before(ready) {
		return nil, ErrSessionNotFound
	}
	return &Handle{SessionID: sessionID, URL: p.urlPrefix + sessionID}, nil
}
