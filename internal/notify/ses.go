package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the slice of the SES client used by the transport, extracted
// for mocking.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESTransport sends mail through AWS SES.
type SESTransport struct {
	client    SESAPI
	fromEmail string
}

func NewSESTransport(ctx context.Context, region, fromEmail string) (*SESTransport, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &SESTransport{
		client:    ses.NewFromConfig(awsCfg),
		fromEmail: fromEmail,
	}, nil
}

// NewSESTransportWithClient builds a transport around an existing client,
// used by tests.
func NewSESTransportWithClient(client SESAPI, fromEmail string) *SESTransport {
	return &SESTransport{client: client, fromEmail: fromEmail}
}

func (t *SESTransport) Send(ctx context.Context, recipients []string, subject, body string) error {
	_, err := t.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: recipients,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(t.fromEmail),
	})
	return err
}
