package notify

import (
	"context"
	"fmt"

	"lead-intake-service/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSAPI is the slice of the SNS client used by the alerter, extracted for
// mocking.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSAlerter publishes an ops alert when a reviewer notice exhausts its
// retry budget. Alerts are best-effort; a publish failure is logged by the
// caller and never affects the ledger.
type SNSAlerter struct {
	client   SNSAPI
	topicARN string
}

func NewSNSAlerter(ctx context.Context, region, topicARN string) (*SNSAlerter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &SNSAlerter{client: sns.NewFromConfig(awsCfg), topicARN: topicARN}, nil
}

// NewSNSAlerterWithClient builds an alerter around an existing client, used
// by tests.
func NewSNSAlerterWithClient(client SNSAPI, topicARN string) *SNSAlerter {
	return &SNSAlerter{client: client, topicARN: topicARN}
}

func (a *SNSAlerter) FailureRecorded(ctx context.Context, rec *models.FailedNotification) error {
	message := fmt.Sprintf(
		"Reviewer notification for lead %s (%s) exhausted retries: %s",
		rec.LeadUUID, rec.LeadEmail, rec.ErrorMessage,
	)
	_, err := a.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(a.topicARN),
		Subject:  aws.String("Lead notification delivery failed"),
		Message:  aws.String(message),
	})
	return err
}
