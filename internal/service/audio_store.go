package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"marketmotion/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Signed URL lifetimes by tier. Free links are shorter to discourage sharing.
const (
	freeURLExpiry    = 30 * time.Minute
	premiumURLExpiry = 60 * time.Minute
)

// AudioStore persists synthesized briefing audio and hands out signed
// playback URLs.
type AudioStore interface {
	Upload(ctx context.Context, briefingDate time.Time, briefingType string, audio []byte) (string, error)
	// UploadText stores the narration script next to its audio so clients can
	// offer a transcript download.
	UploadText(ctx context.Context, briefingDate time.Time, briefingType, text string) (string, error)
	PresignedURL(ctx context.Context, storagePath, tier string) (string, error)
}

type s3AudioStore struct {
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
	storeLogger   zerolog.Logger
}

// NewAudioStore creates an AudioStore backed by an S3-compatible bucket.
func NewAudioStore(s3Client *s3.Client, bucketName string, logger zerolog.Logger) AudioStore {
	return &s3AudioStore{
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    bucketName,
		storeLogger:   logger.With().Str("service", "AudioStore").Logger(),
	}
}

// Upload writes the audio under a date-partitioned key and returns the
// storage path. A fresh UUID per upload means regenerated briefings never
// collide with the file a client may still be streaming.
func (s *s3AudioStore) Upload(ctx context.Context, briefingDate time.Time, briefingType string, audio []byte) (string, error) {
	storagePath := fmt.Sprintf("%s/%s/%s.mp3", briefingDate.Format("2006/01/02"), briefingType, uuid.NewString())

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(storagePath),
		Body:        bytes.NewReader(audio),
		ContentType: aws.String("audio/mpeg"),
	})
	if err != nil {
		s.storeLogger.Error().Err(err).Str("storage_path", storagePath).Msg("Failed to upload audio to S3")
		return "", fmt.Errorf("failed to upload audio: %w", err)
	}
	return storagePath, nil
}

func (s *s3AudioStore) UploadText(ctx context.Context, briefingDate time.Time, briefingType, text string) (string, error) {
	storagePath := fmt.Sprintf("%s/%s/%s.txt", briefingDate.Format("2006/01/02"), briefingType, uuid.NewString())

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(storagePath),
		Body:        bytes.NewReader([]byte(text)),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		s.storeLogger.Error().Err(err).Str("storage_path", storagePath).Msg("Failed to upload transcript to S3")
		return "", fmt.Errorf("failed to upload transcript: %w", err)
	}
	return storagePath, nil
}

// PresignedURL generates a signed playback URL for the given storage path.
func (s *s3AudioStore) PresignedURL(ctx context.Context, storagePath, tier string) (string, error) {
	expiry := premiumURLExpiry
	if tier == model.TierFree {
		expiry = freeURLExpiry
	}

	resp, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(storagePath),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		s.storeLogger.Error().Err(err).Str("storage_path", storagePath).Msg("Failed to generate presigned URL")
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return resp.URL, nil
}
