package models

// LotteryConfig is the single config row for a lottery namespace. It is
// created by a season commence, flipped inactive by a season end, and read
// on every submission. While Active is true, Jackpot holds the secret target
// emoji for the running season.
type LotteryConfig struct {
	Active     bool   `json:"active"`
	HasWinner  bool   `json:"hasWinner"`
	Jackpot    string `json:"jackpot"`
	Season     uint64 `json:"season"`
	RetryInHrs int64  `json:"retryInHrs"`
	// DataNamespaceID points at the current season's guess bucket. Commence
	// rotates the bucket and records the fresh id here so guesses never leak
	// across seasons.
	DataNamespaceID string `json:"dataNamespaceID,omitempty"`
}

// Guess is a submitter's most recent try. The store keeps only the last guess
// per submitter; CreatedAt doubles as the cooldown anchor.
type Guess struct {
	Value     string `json:"value"`
	CreatedAt int64  `json:"created_at"`
}

// CalendarEvent is the body posted to /calendar_start and /calendar_end.
type CalendarEvent struct {
	CalendarName string `json:"calendar_name"`
}

// Submission is the body posted to /submit/discord/:submitter.
type Submission struct {
	Submission string `json:"submission"`
	TS         int64  `json:"ts"`
}

// MessageEvent is a chat message event delivered to /events.
// https://api.slack.com/events/message
type MessageEvent struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	User    string `json:"user"`
	Text    string `json:"text"`
	// Slack message timestamps are compared as strings, keep them opaque.
	TS string `json:"ts"`
}
