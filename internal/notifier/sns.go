package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/amishk599/jobmarket/internal/model"
)

// Ensure SNSNotifier implements model.Notifier.
var _ model.Notifier = (*SNSNotifier)(nil)

// SNSAPI is the subset of the SNS client used by SNSNotifier.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier publishes run reports as JSON to an SNS topic, for
// downstream consumers such as the dashboard refresh job.
type SNSNotifier struct {
	client   SNSAPI
	topicARN string
	logger   *slog.Logger
}

// NewSNSClient builds an SNS client from the default AWS configuration.
func NewSNSClient(ctx context.Context, region string) (*sns.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return sns.NewFromConfig(cfg), nil
}

func NewSNSNotifier(client SNSAPI, topicARN string, logger *slog.Logger) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN, logger: logger}
}

type snsMessage struct {
	RunID         string   `json:"run_id"`
	Status        string   `json:"status"`
	Keyword       string   `json:"keyword"`
	From          string   `json:"from,omitempty"`
	To            string   `json:"to,omitempty"`
	Fetched       int      `json:"fetched"`
	Inserted      int      `json:"inserted"`
	Duplicates    int      `json:"duplicates"`
	Dropped       int      `json:"dropped"`
	PagesSkipped  int      `json:"pages_skipped"`
	SkippedRanges []string `json:"skipped_ranges,omitempty"`
	SnapshotKey   string   `json:"snapshot_key,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// Notify publishes the report. The status is also set as a message
// attribute so subscribers can filter on it.
func (n *SNSNotifier) Notify(ctx context.Context, r model.RunReport) error {
	msg, err := json.Marshal(snsMessage{
		RunID:         r.RunID,
		Status:        r.Status,
		Keyword:       r.Keyword,
		From:          r.From,
		To:            r.To,
		Fetched:       r.Fetched,
		Inserted:      r.Inserted,
		Duplicates:    r.Duplicates,
		Dropped:       r.Dropped,
		PagesSkipped:  r.PagesSkipped,
		SkippedRanges: r.SkippedRanges,
		SnapshotKey:   r.SnapshotKey,
		Error:         r.Error,
	})
	if err != nil {
		return fmt.Errorf("marshal sns message: %w", err)
	}

	out, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String("jobmarket ingestion " + r.Status),
		Message:  aws.String(string(msg)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"status": {DataType: aws.String("String"), StringValue: aws.String(r.Status)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	n.logger.Info("sns message published", "run_id", r.RunID, "message_id", aws.ToString(out.MessageId))
	return nil
}
