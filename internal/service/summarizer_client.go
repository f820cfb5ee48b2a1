package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Words per minute of finished narration; drives the target word count.
const narrationWordsPerMinute = 150

// SummaryRequest describes one briefing script to produce.
type SummaryRequest struct {
	Subject       string // slot name or topic display name
	Articles      []Article
	TargetMinutes int
}

// Script is a finished briefing script ready for speech synthesis.
type Script struct {
	Text      string
	WordCount int
}

// Summarizer turns a set of articles into a narration-ready script.
type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (*Script, error)
}

type httpSummarizer struct {
	client  *http.Client
	baseURL string
	model   string
	keys    ProviderKeySource
}

// NewSummarizer creates a Summarizer backed by a generateContent-style LLM API.
func NewSummarizer(baseURL, model string, keys ProviderKeySource, timeout time.Duration) Summarizer {
	return &httpSummarizer{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		model:   model,
		keys:    keys,
	}
}

func (s *httpSummarizer) Summarize(ctx context.Context, req SummaryRequest) (*Script, error) {
	apiKey, err := s.keys.Key(ctx, ProviderSummarizer)
	if err != nil {
		return nil, err
	}
	if len(req.Articles) == 0 {
		return nil, fmt.Errorf("no articles to summarize for %s", req.Subject)
	}

	prompt := buildPrompt(req)
	requestBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}
	bodyJSON, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summarize request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.baseURL, s.model, apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create summarize request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("summarize request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read summarize response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("summarize request failed: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode summarize response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("summarize response contained no candidates")
	}

	text := strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return nil, fmt.Errorf("summarize response contained empty script")
	}
	return &Script{Text: text, WordCount: len(strings.Fields(text))}, nil
}

func buildPrompt(req SummaryRequest) string {
	targetWords := req.TargetMinutes * narrationWordsPerMinute

	var b strings.Builder
	fmt.Fprintf(&b, "You are a senior news editor producing a %d-minute audio briefing on %s.\n", req.TargetMinutes, req.Subject)
	fmt.Fprintf(&b, "Write roughly %d words of clean flowing prose for text-to-speech:\n", targetWords)
	b.WriteString("no markdown, no headers, no asterisks, spell out numbers and percentages.\n")
	b.WriteString("Use only facts from the articles below and never repeat a story.\n\n")
	for i, a := range req.Articles {
		content := a.Content
		if len(content) > 1500 {
			content = content[:1500]
		}
		fmt.Fprintf(&b, "[ARTICLE %d]\nTitle: %s\nSource: %s\nContent: %s\n\n", i+1, a.Title, a.Source, content)
	}
	return b.String()
}
