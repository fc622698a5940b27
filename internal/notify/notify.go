// Package notify delivers plain-text announcements to a chat backend. Slack
// and Discord are interchangeable behind the Notifier interface; failures are
// reported as *Error, never retried or swallowed.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Error is a chat dispatch failure. Provider lets callers tell "game state
// changed but nobody was told" apart from store failures.
type Error struct {
	Provider string
	Reason   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s notification failed: %s", e.Provider, e.Reason)
}

// Notifier posts a message to a single chat backend.
type Notifier interface {
	Post(ctx context.Context, message string) error
}

const slackBaseURL = "https://slack.com/api"

// SlackNotifier posts via chat.postMessage to a fixed channel.
// https://api.slack.com/methods/chat.postMessage
type SlackNotifier struct {
	// BaseURL is the Slack API root. Tests point it at a local server.
	BaseURL string

	http    *http.Client
	token   string
	channel string
}

// NewSlack creates a notifier for the given channel using a bearer token.
func NewSlack(token, channel string) *SlackNotifier {
	return &SlackNotifier{
		BaseURL: slackBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		token:   token,
		channel: channel,
	}
}

// postMessageResponse covers both shapes Slack returns for chat.postMessage:
// success with channel and ts, or failure with an error string. The union is
// discriminated by the Error field being non-empty, not by a tag.
type postMessageResponse struct {
	OK      bool   `json:"ok"`
	Channel string `json:"channel,omitempty"`
	TS      string `json:"ts,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (n *SlackNotifier) Post(ctx context.Context, message string) error {
	payload, err := json.Marshal(map[string]string{
		"channel": n.channel,
		"text":    message,
	})
	if err != nil {
		return &Error{Provider: "slack", Reason: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		n.BaseURL+"/chat.postMessage", bytes.NewReader(payload))
	if err != nil {
		return &Error{Provider: "slack", Reason: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+n.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return &Error{Provider: "slack", Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Provider: "slack", Reason: err.Error()}
	}
	var decoded postMessageResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return &Error{Provider: "slack", Reason: fmt.Sprintf("decode response: %v", err)}
	}
	if decoded.Error != "" || !decoded.OK {
		reason := decoded.Error
		if reason == "" {
			reason = "provider reported not ok"
		}
		return &Error{Provider: "slack", Reason: reason}
	}
	return nil
}

// DiscordNotifier executes a preconfigured webhook. The webhook returns no
// body on success, so absence of a transport error is the success signal.
// https://discord.com/developers/docs/resources/webhook#execute-webhook
type DiscordNotifier struct {
	session      *discordgo.Session
	webhookID    string
	webhookToken string
}

// NewDiscord creates a notifier from a webhook URL of the form
// .../webhooks/{id}/{token}. The secret token in the URL is the only auth.
func NewDiscord(webhookURL string) (*DiscordNotifier, error) {
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &DiscordNotifier{
		session:      session,
		webhookID:    id,
		webhookToken: token,
	}, nil
}

func (n *DiscordNotifier) Post(ctx context.Context, message string) error {
	_, err := n.session.WebhookExecute(n.webhookID, n.webhookToken, false,
		&discordgo.WebhookParams{Content: message},
		discordgo.WithContext(ctx))
	if err != nil {
		return &Error{Provider: "discord", Reason: err.Error()}
	}
	return nil
}

func parseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse webhook url: %w", err)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, segment := range segments {
		if segment == "webhooks" && i+2 < len(segments) {
			return segments[i+1], segments[i+2], nil
		}
	}
	return "", "", fmt.Errorf("webhook url %q has no id/token segments", raw)
}
