// Package briefing consumes slot generation jobs from pgmq and drives the
// generation pipeline. Failed jobs are retried with exponential backoff and
// parked on a dead letter queue once the retry budget is spent.
package briefing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"marketmotion/internal/pgmq"
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
	JobID        string `json:"job_id"`
	Date         string `json:"date"` // YYYY-MM-DD; empty means today
	BriefingType string `json:"briefing_type"`
	Force        bool   `json:"force"`
}

// Run starts the briefing orchestrator and blocks until ctx is cancelled.
func Run(ctx context.Context, logger zerolog.Logger, client *pgmq.Client, gen service.GenerationService, opts Options) error {
	logger = logger.With().Str("orchestrator", "briefing").Logger()
	logger.Info().Str("queue", opts.Queue).Msg("Starting briefing orchestrator")

	attempts := make(map[int64]int)
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down briefing orchestrator")
			return nil
		default:
		}

		msgs, err := client.ReadWithPoll(ctx, opts.Queue, opts.PollTimeoutSec, opts.PollMaxMsg)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info().Msg("Shutting down briefing orchestrator")
				return nil
			}
			logger.Error().Err(err).Msg("Error reading briefing queue")
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

// handle processes one message. It returns true when the message is finished
// (deleted or dead-lettered) and its attempt counter can be dropped.
func handle(ctx context.Context, logger zerolog.Logger, client *pgmq.Client, gen service.GenerationService, opts Options, attempts map[int64]int, msg *pgmq.Message) bool {
	logger.Info().Int64("msg_id", msg.ID).Msgf("Received briefing job: %s", string(msg.Data))

	var j job
	if err := json.Unmarshal(msg.Data, &j); err != nil || j.BriefingType == "" {
		logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Malformed briefing job, dead-lettering")
		deadLetter(ctx, logger, client, opts, msg)
		return true
	}

	date := util.BriefingDate(time.Now())
	if j.Date != "" {
		parsed, err := time.Parse("2006-01-02", j.Date)
		if err != nil {
			logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Bad date in briefing job, dead-lettering")
			deadLetter(ctx, logger, client, opts, msg)
			return true
		}
		date = parsed
	}

	_, err := gen.GenerateSlotBriefing(ctx, service.SlotBriefingParams{
		Date:         date,
		BriefingType: j.BriefingType,
		Force:        j.Force,
	})
	switch {
	case err == nil:
		ack(ctx, logger, client, opts.Queue, msg.ID)
		return true
	case errors.Is(err, service.ErrDailyLimitReached):
		// Someone already filled the slot; the job's outcome exists, so this
		// duplicate trigger is complete.
		logger.Info().Int64("msg_id", msg.ID).Str("briefing_type", j.BriefingType).Msg("Slot already filled, dropping job")
		ack(ctx, logger, client, opts.Queue, msg.ID)
		return true
	default:
		attempts[msg.ID]++
		n := attempts[msg.ID]
		if n > opts.MaxRetries {
			logger.Error().Err(err).Int64("msg_id", msg.ID).Int("attempts", n).Msg("Retry budget spent, dead-lettering briefing job")
			deadLetter(ctx, logger, client, opts, msg)
			return true
		}
		wait := backoff(opts.BackoffInitial, opts.BackoffMax, n)
		logger.Warn().Err(err).Int64("msg_id", msg.ID).Int("attempt", n).Dur("backoff", wait).Msg("Briefing job failed, will retry")
		sleep(ctx, wait)
		return false
	}
}

func ack(ctx context.Context, logger zerolog.Logger, client *pgmq.Client, queue string, msgID int64) {
	if err := client.Delete(ctx, queue, []int64{msgID}); err != nil {
		logger.Error().Err(err).Int64("msg_id", msgID).Msg("Error deleting briefing message")
	}
}

func deadLetter(ctx context.Context, logger zerolog.Logger, client *pgmq.Client, opts Options, msg *pgmq.Message) {
	if opts.DeadLetterQueue != "" {
		if err := client.Send(ctx, opts.DeadLetterQueue, msg.Data); err != nil {
			logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Failed to dead-letter briefing job")
			return // keep the original so nothing is lost
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
