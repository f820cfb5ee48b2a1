// Package topic consumes topic briefing jobs from pgmq. It mirrors the slot
// orchestrator: retry with backoff, then dead-letter.
package topic

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"marketmotion/internal/pgmq"
	"marketmotion/internal/repository"
	"marketmotion/internal/service"
	"marketmotion/internal/util"

	"github.com/rs/zerolog"
)

// Options carries the queue knobs from config.
type Options struct {
	Queue           string
	DeadLetterQueue string
	PollTimeoutSec  int
	PollMaxMsg      int
	MaxRetries      int
	BackoffInitial  time.Duration
	BackoffMax      time.Duration
}

type job struct {
	JobID     string `json:"job_id"`
	TopicName string `json:"topic_name"`
	UserID    string `json:"user_id"` // empty for scheduled runs
	Date      string `json:"date"`    // YYYY-MM-DD; empty means today
	Force     bool   `json:"force"`
}

// Run starts the topic orchestrator and blocks until ctx is cancelled.
func Run(ctx context.Context, logger zerolog.Logger, client *pgmq.Client, gen service.GenerationService, opts Options) error {
	logger = logger.With().Str("orchestrator", "topic").Logger()
	logger.Info().Str("queue", opts.Queue).Msg("Starting topic orchestrator")

	attempts := make(map[int64]int)
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down topic orchestrator")
			return nil
		default:
		}

		msgs, err := client.ReadWithPoll(ctx, opts.Queue, opts.PollTimeoutSec, opts.PollMaxMsg)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info().Msg("Shutting down topic orchestrator")
				return nil
			}
			logger.Error().Err(err).Msg("Error reading topic queue")
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range msgs {
			if done := handle(ctx, logger, client, gen, opts, attempts, msg); done {
				delete(attempts, msg.ID)
			}
		}
	}
}

func handle(ctx context.Context, logger zerolog.Logger, client *pgmq.Client, gen service.GenerationService, opts Options, attempts map[int64]int, msg *pgmq.Message) bool {
	logger.Info().Int64("msg_id", msg.ID).Msgf("Received topic job: %s", string(msg.Data))

	var j job
	if err := json.Unmarshal(msg.Data, &j); err != nil || j.TopicName == "" {
		logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Malformed topic job, dead-lettering")
		deadLetter(ctx, logger, client, opts, msg)
		return true
	}

	date := util.BriefingDate(time.Now())
	if j.Date != "" {
		parsed, err := time.Parse("2006-01-02", j.Date)
		if err != nil {
			logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Bad date in topic job, dead-lettering")
			deadLetter(ctx, logger, client, opts, msg)
			return true
		}
		date = parsed
	}

	_, err := gen.GenerateTopicBriefing(ctx, service.TopicBriefingParams{
		TopicName: j.TopicName,
		UserID:    j.UserID,
		Date:      date,
		Force:     j.Force,
	})
	switch {
	case err == nil:
		ack(ctx, logger, client, opts.Queue, msg.ID)
		return true
	case errors.Is(err, service.ErrDailyLimitReached):
		logger.Info().Int64("msg_id", msg.ID).Str("topic", j.TopicName).Msg("Topic briefing already exists, dropping job")
		ack(ctx, logger, client, opts.Queue, msg.ID)
		return true
	case errors.Is(err, repository.ErrNotFound):
		// Unknown topic will not become known on retry.
		logger.Error().Err(err).Int64("msg_id", msg.ID).Str("topic", j.TopicName).Msg("Unknown topic, dead-lettering")
		deadLetter(ctx, logger, client, opts, msg)
		return true
	default:
		attempts[msg.ID]++
		n := attempts[msg.ID]
		if n > opts.MaxRetries {
			logger.Error().Err(err).Int64("msg_id", msg.ID).Int("attempts", n).Msg("Retry budget spent, dead-lettering topic job")
			deadLetter(ctx, logger, client, opts, msg)
			return true
		}
		wait := backoff(opts.BackoffInitial, opts.BackoffMax, n)
		logger.Warn().Err(err).Int64("msg_id", msg.ID).Int("attempt", n).Dur("backoff", wait).Msg("Topic job failed, will retry")
		sleep(ctx, wait)
		return false
	}
}

func ack(ctx context.Context, logger zerolog.Logger, client *pgmq.Client, queue string, msgID int64) {
	if err := client.Delete(ctx, queue, []int64{msgID}); err != nil {
		logger.Error().Err(err).Int64("msg_id", msgID).Msg("Error deleting topic message")
	}
}

func deadLetter(ctx context.Context, logger zerolog.Logger, client *pgmq.Client, opts Options, msg *pgmq.Message) {
	if opts.DeadLetterQueue != "" {
		if err := client.Send(ctx, opts.DeadLetterQueue, msg.Data); err != nil {
			logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Failed to dead-letter topic job")
			return
		}
	}
	ack(ctx, logger, client, opts.Queue, msg.ID)
}

func backoff(initial, max time.Duration, attempt int) time.Duration {
	wait := initial
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= max {
			return max
		}
	}
	if wait > max {
		return max
	}
	return wait
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
