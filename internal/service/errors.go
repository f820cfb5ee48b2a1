package service

import "errors"

// ErrDailyLimitReached is returned when the usage ledger blocks a generation
// request: the slot already has content or the day's budget is spent.
var ErrDailyLimitReached = errors.New("daily_limit_reached")

// ErrUpstreamUnavailable is returned when a generation collaborator (news,
// summarizer, speech) fails. No catalog row is written in that case; the slot
// stays open for retry.
var ErrUpstreamUnavailable = errors.New("upstream_unavailable")

// ErrNotSubscribed is returned when a user requests topic content for a topic
// they do not actively follow.
var ErrNotSubscribed = errors.New("not_subscribed")

// ErrInvalidTopicCategory is returned when a topic is seeded with a category
// outside the closed set.
var ErrInvalidTopicCategory = errors.New("invalid_topic_category")
