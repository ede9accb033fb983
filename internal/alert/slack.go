// Package alert implements the optional ops failure-alert sink: a
// best-effort, fire-and-forget Slack notification posted whenever a
// firing's outcome is NOK. Like the status client, it must never block the
// dispatch engine.
package alert

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/slack-go/slack"
)

const postTimeout = 10 * time.Second

// SlackSink posts a one-line message to a configured channel on failure.
type SlackSink struct {
	api     *slack.Client
	channel string
}

// NewSlackSink constructs a SlackSink. token is used directly; unlike the
// status client's upstream bus, this path is always best-effort and has
// no reconnect supervision of its own — a failed post is simply logged.
func NewSlackSink(token, channel string) *SlackSink {
	return &SlackSink{
		api:     slack.New(token),
		channel: channel,
	}
}

// NotifyFailure posts a failure notice for id. It runs on the firing's own
// goroutine and never blocks the dispatch engine beyond its own call site.
func (s *SlackSink) NotifyFailure(id string, exitCode int) {
	ctx, cancel := context.WithTimeout(context.Background(), postTimeout)
	defer cancel()

	text := fmt.Sprintf(":rotating_light: timer %q failed (exit code %d)", id, exitCode)
	if _, _, err := s.api.PostMessageContext(ctx, s.channel, slack.MsgOptionText(text, false)); err != nil {
		log.Printf("alert: failed to post slack notification for %s: %v", id, err)
	}
}
