package service

import (
	"context"
	"fmt"

	"marketmotion/internal/config"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// Provider names used for key lookup.
const (
	ProviderNews       = "news"
	ProviderSummarizer = "summarizer"
	ProviderSpeech     = "speech"
)

// ProviderKeySource resolves API keys for the generation collaborators.
type ProviderKeySource interface {
	Key(ctx context.Context, provider string) (string, error)
}

type secretManagerKeySource struct {
	client    *secretmanager.Client
	projectID string
	fallback  map[string]string
}

// NewProviderKeySource builds a key source backed by GCP Secret Manager, with
// env-configured keys as fallback. Without a project ID it is fallback-only,
// which is how local development runs.
func NewProviderKeySource(ctx context.Context, cfg *config.Config) (ProviderKeySource, error) {
	fallback := map[string]string{
		ProviderNews:       cfg.NewsAPIKey,
		ProviderSummarizer: cfg.SummarizerAPIKey,
		ProviderSpeech:     cfg.SpeechAPIKey,
	}
	if cfg.GCPProjectID == "" {
		return &secretManagerKeySource{fallback: fallback}, nil
	}

	var opts []option.ClientOption
	if cfg.GoogleCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GoogleCredentialsFile))
	}
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &secretManagerKeySource{
		client:    client,
		projectID: cfg.GCPProjectID,
		fallback:  fallback,
	}, nil
}

func (s *secretManagerKeySource) Key(ctx context.Context, provider string) (string, error) {
	if s.client != nil {
		name := fmt.Sprintf("projects/%s/secrets/marketmotion-%s-api-key/versions/latest", s.projectID, provider)
		result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
		if err == nil {
			return string(result.Payload.Data), nil
		}
		// Fall through to the env key; a missing secret is expected in
		// environments that configure keys directly.
	}
	if key := s.fallback[provider]; key != "" {
		return key, nil
	}
	return "", fmt.Errorf("no API key configured for provider %s", provider)
}
