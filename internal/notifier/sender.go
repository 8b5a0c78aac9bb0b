package notifier

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/courseworks/fulfillment-backend/pkg/errors"
)

// Sender delivers a single composed email.
type Sender interface {
	Send(ctx context.Context, message *mail.SGMailV3) error
}

type sendgridSender struct {
	client *sendgrid.Client
}

// NewSendgridSender returns a Sender backed by the SendGrid v3 API.
func NewSendgridSender(apiKey string) (Sender, error) {
	if apiKey == "" {
		return nil, errors.New(errors.CodeDependency, "sendgrid api key is required")
	}
	return &sendgridSender{client: sendgrid.NewSendClient(apiKey)}, nil
}

func (s *sendgridSender) Send(ctx context.Context, message *mail.SGMailV3) error {
	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "sendgrid send failed")
	}
	if resp.StatusCode >= 400 {
		return errors.New(errors.CodeDependency, fmt.Sprintf("sendgrid returned status %d", resp.StatusCode))
	}
	return nil
}
