package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// PiperSynthesizer talks to a self-hosted Piper TTS sidecar. The sidecar
// exposes POST /synthesize taking {"text": ...} and returning WAV bytes.
type PiperSynthesizer struct {
	baseURL    string
	httpClient *http.Client
}

// NewPiperSynthesizer builds a client for the Piper sidecar at baseURL.
func NewPiperSynthesizer(baseURL string, httpClient *http.Client) *PiperSynthesizer {
	if strings.TrimSpace(baseURL) == "" {
		panic("speech: piper base url cannot be empty")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &PiperSynthesizer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (p *PiperSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("speech: synthesis text cannot be empty")
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("speech: piper request marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/synthesize", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("speech: piper request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech: piper call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("speech: piper returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("speech: piper response read: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("speech: piper returned empty audio")
	}
	return audio, nil
}
