package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultDeepgramBaseURL = "https://api.deepgram.com"

// DeepgramTranscriber transcribes single utterances through Deepgram's
// prerecorded listen endpoint.
type DeepgramTranscriber struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// DeepgramOption customizes the transcriber.
type DeepgramOption func(*DeepgramTranscriber)

// WithDeepgramModel overrides the default nova-2 model.
func WithDeepgramModel(model string) DeepgramOption {
	return func(d *DeepgramTranscriber) {
		d.model = model
	}
}

// WithDeepgramBaseURL points the client at a different endpoint. Used in
// tests.
func WithDeepgramBaseURL(baseURL string) DeepgramOption {
	return func(d *DeepgramTranscriber) {
		d.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithDeepgramHTTPClient replaces the underlying HTTP client.
func WithDeepgramHTTPClient(client *http.Client) DeepgramOption {
	return func(d *DeepgramTranscriber) {
		d.httpClient = client
	}
}

func NewDeepgramTranscriber(apiKey string, opts ...DeepgramOption) *DeepgramTranscriber {
	if strings.TrimSpace(apiKey) == "" {
		panic("speech: deepgram api key cannot be empty")
	}
	d := &DeepgramTranscriber{
		apiKey:     apiKey,
		model:      "nova-2",
		baseURL:    defaultDeepgramBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DeepgramTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (Transcript, error) {
	if len(audio) == 0 {
		return Transcript{}, errors.New("speech: audio cannot be empty")
	}
	if mimeType == "" {
		mimeType = "audio/wav"
	}

	query := url.Values{}
	query.Set("model", d.model)
	query.Set("smart_format", "true")
	query.Set("punctuate", "true")

	endpoint := d.baseURL + "/v1/listen?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audio))
	if err != nil {
		return Transcript{}, fmt.Errorf("speech: deepgram request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", mimeType)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return Transcript{}, fmt.Errorf("speech: deepgram call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Transcript{}, fmt.Errorf("speech: deepgram returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded struct {
		Results struct {
			Channels []struct {
				Alternatives []struct {
					Transcript string  `json:"transcript"`
					Confidence float64 `json:"confidence"`
				} `json:"alternatives"`
			} `json:"channels"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Transcript{}, fmt.Errorf("speech: deepgram response parse: %w", err)
	}
	if len(decoded.Results.Channels) == 0 || len(decoded.Results.Channels[0].Alternatives) == 0 {
		return Transcript{}, errors.New("speech: deepgram response contained no transcript")
	}

	alt := decoded.Results.Channels[0].Alternatives[0]
	return Transcript{
		Text:       strings.TrimSpace(alt.Transcript),
		Confidence: alt.Confidence,
	}, nil
}
