package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SpeechResult is synthesized narration audio.
type SpeechResult struct {
	Audio           []byte
	DurationSeconds int
}

// SpeechClient converts a briefing script to audio.
type SpeechClient interface {
	Synthesize(ctx context.Context, text string) (*SpeechResult, error)
}

type httpSpeechClient struct {
	client  *http.Client
	baseURL string
	voice   string
	keys    ProviderKeySource
}

// NewSpeechClient creates a SpeechClient for the configured TTS provider.
func NewSpeechClient(baseURL, voice string, keys ProviderKeySource, timeout time.Duration) SpeechClient {
	return &httpSpeechClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		voice:   voice,
		keys:    keys,
	}
}

func (c *httpSpeechClient) Synthesize(ctx context.Context, text string) (*SpeechResult, error) {
	apiKey, err := c.keys.Key(ctx, ProviderSpeech)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("cannot synthesize empty script")
	}

	requestBody := map[string]string{
		"text":   text,
		"voice":  c.voice,
		"format": "mp3",
	}
	bodyJSON, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal speech request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tts", bytes.NewReader(bodyJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create speech request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech request failed: HTTP %d: %s", resp.StatusCode, string(audio))
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("speech response contained no audio")
	}

	duration := 0
	if header := resp.Header.Get("X-Duration-Seconds"); header != "" {
		if v, err := strconv.Atoi(header); err == nil {
			duration = v
		}
	}
	if duration == 0 {
		// Not all providers report duration; estimate from narration pace.
		duration = len(strings.Fields(text)) * 60 / narrationWordsPerMinute
	}

	return &SpeechResult{Audio: audio, DurationSeconds: duration}, nil
}
