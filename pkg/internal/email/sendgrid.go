package email

import (
	"context"
	"fmt"

	sendgridgo "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

//go:generate mockery --name Service
type Service interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

type sendGridClient struct {
	client     *sendgridgo.Client
	sender     string
	senderName string
	logger     *zap.Logger
}

func NewSendGridClient(apiKey, sender, senderName string, logger *zap.Logger) Service {
	return sendGridClient{
		client:     sendgridgo.NewSendClient(apiKey),
		sender:     sender,
		senderName: senderName,
		logger:     logger.Named("sendgrid"),
	}
}

func (c sendGridClient) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	from := mail.NewEmail(c.senderName, c.sender)
	recipient := mail.NewEmail(to, to)

	message := mail.NewSingleEmail(from, subject, recipient, "", htmlBody)
	resp, err := c.client.SendWithContext(ctx, message)
	if err != nil {
		c.logger.Error("send email error",
			zap.Error(err))
		return err
	}

	statusOK := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !statusOK {
		c.logger.Error("send email error",
			zap.String("recipient", to),
			zap.Int("status", resp.StatusCode),
			zap.String("response", resp.Body),
		)
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}

	c.logger.Info("Letter sent",
		zap.String("recipient", to),
		zap.String("subject", subject))
	return nil
}

// NoopService drops every message. Used when no SendGrid key is configured.
type NoopService struct {
	Logger *zap.Logger
}

func (s NoopService) SendEmail(_ context.Context, to, subject, _ string) error {
	s.Logger.Warn("email delivery disabled, dropping message",
		zap.String("recipient", to),
		zap.String("subject", subject))
	return nil
}
