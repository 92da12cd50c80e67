// Package notify sends board-change notifications to Slack via incoming
// webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrNotConfigured is returned when no webhook URL is set.
var ErrNotConfigured = errors.New("slack webhook URL not configured")

// Notification carries everything the message needs about a status change.
type Notification struct {
	Title        string
	URL          string
	Status       string
	ProjectTitle string
	ProjectURL   string
	Actor        string
}

// Fallback is the flat one-line rendering used as the message's text field
// (shown in push notifications and clients without Block Kit).
func (n Notification) Fallback() string {
	return fmt.Sprintf("'%s' moved to '%s' by %s", n.Title, n.Status, n.Actor)
}

// SlackNotifier posts Block Kit messages to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	httpClient *http.Client
}

// NewSlackNotifier creates a notifier for the given webhook URL. The channel
// override only takes effect on legacy webhooks; modern webhooks are bound to
// a channel at creation.
func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		httpClient: http.DefaultClient,
	}
}

type slackMessage struct {
	Channel string       `json:"channel,omitempty"`
	Text    string       `json:"text"`
	Blocks  []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string         `json:"type"`
	Text     *slackText     `json:"text,omitempty"`
	Elements []slackElement `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	AltText  string `json:"alt_text,omitempty"`
}

// Send posts the notification. Draft items have no URL of their own; the
// project URL is used as the link target instead.
func (n *SlackNotifier) Send(ctx context.Context, notification Notification) error {
	if n.webhookURL == "" {
		return ErrNotConfigured
	}

	itemURL := notification.URL
	if itemURL == "" {
		itemURL = notification.ProjectURL
	}

	msg := slackMessage{
		Channel: n.channel,
		Text:    notification.Fallback(),
		Blocks: []slackBlock{
			{
				Type: "section",
				Text: &slackText{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*<%s|%s>* moved to *%s*", itemURL, notification.Title, notification.Status),
				},
			},
			{
				Type: "context",
				Elements: []slackElement{
					{
						Type:     "image",
						ImageURL: fmt.Sprintf("https://github.com/%s.png", notification.Actor),
						AltText:  notification.Actor,
					},
					{
						Type: "mrkdwn",
						Text: fmt.Sprintf("<https://github.com/%s|%s> · <%s|%s>",
							notification.Actor, notification.Actor,
							notification.ProjectURL, notification.ProjectTitle),
					},
				},
			},
		},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("slack API %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
