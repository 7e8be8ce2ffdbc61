package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobmarket/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// SlackNotifier posts run summaries to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts each run to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify sends the report as one Block Kit message. A 429 is retried once
// after Retry-After.
func (s *SlackNotifier) Notify(ctx context.Context, r model.RunReport) error {
	body, err := json.Marshal(buildPayload(r))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(ctx, body)
	if err != nil {
		return err
	}

	if status == http.StatusTooManyRequests {
		secs, _ := strconv.Atoi(retryAfter)
		if secs <= 0 {
			secs = 1
		}
		s.logger.Warn("slack rate limited, retrying", "retry_after_secs", secs)
		select {
		case <-ctx.Done():
			return fmt.Errorf("slack retry cancelled: %w", ctx.Err())
		case <-time.After(time.Duration(secs) * time.Second):
		}

		status, _, err = s.post(ctx, body)
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		if status != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", status)
		}
		s.logger.Info("slack message sent", "run_id", r.RunID, "retried", true)
		return nil
	}

	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}
	s.logger.Info("slack message sent", "run_id", r.RunID)
	return nil
}

func (s *SlackNotifier) post(ctx context.Context, body []byte) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("building slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, resp.Header.Get("Retry-After"), nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func statusEmoji(status string) string {
	switch status {
	case model.RunFailed:
		return "🔴"
	case model.RunPartial:
		return "🟠"
	}
	return "🟢"
}

func window(r model.RunReport) string {
	if r.From == "" && r.To == "" {
		return "all dates"
	}
	return r.From + " → " + r.To
}

func buildPayload(r model.RunReport) slackPayload {
	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("%s Ingestion %s: %q", statusEmoji(r.Status), r.Status, r.Keyword)},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Window:*\n" + window(r)},
				{Type: "mrkdwn", Text: "*Run:*\n" + r.RunID},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Fetched:*\n%d", r.Fetched)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*New rows:*\n%d", r.Inserted)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Duplicates:*\n%d", r.Duplicates)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Unclassified:*\n%d", r.Dropped)},
			},
		},
	}

	if r.SnapshotKey != "" {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "*Snapshot:* `" + r.SnapshotKey + "`"},
		})
	}
	if r.PagesSkipped > 0 {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf("*Skipped pages (%d):* %s", r.PagesSkipped, strings.Join(r.SkippedRanges, ", "))},
		})
	}
	if r.Error != "" {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "*Error:* " + r.Error},
		})
	}

	blocks = append(blocks, slackBlock{Type: "divider"})
	return slackPayload{Blocks: blocks}
}

// SendTestMessage sends a sample run report to verify the integration works.
func SendTestMessage(ctx context.Context, n model.Notifier) error {
	now := time.Now()
	return n.Notify(ctx, model.RunReport{
		RunID:          "test-run",
		Keyword:        "data",
		From:           now.AddDate(0, 0, -7).Format("2006-01-02"),
		To:             now.Format("2006-01-02"),
		StartedAt:      now.Add(-time.Minute),
		FinishedAt:     now,
		PagesRequested: 1,
		Fetched:        1,
		Inserted:       1,
		Status:         model.RunSuccess,
	})
}
