// Package notify renders and sends the transactional emails of the service.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/bitebliss/bitebliss-engine/pkg/internal/email"
	"github.com/bitebliss/bitebliss-engine/pkg/recipes/db/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	ReceiptSubject  = "Payment Receipt - Bite Bliss"
	defaultFeature  = "Full access to all features"
	receiptDateForm = "January 2, 2006"
)

type Notifier struct {
	logger    *zap.Logger
	mailer    email.Service
	clientURL string
	timeout   time.Duration
	now       func() time.Time
}

func New(logger *zap.Logger, mailer email.Service, clientURL string, timeout time.Duration) *Notifier {
	return &Notifier{
		logger:    logger.Named("notify"),
		mailer:    mailer,
		clientURL: strings.TrimSuffix(clientURL, "/"),
		timeout:   timeout,
		now:       time.Now,
	}
}

type page struct {
	Year   int
	Footer bool

	Username   string
	Email      string
	Plan       string
	Features   []string
	AccountURL string
	Date       string
	Amount     string
	Message    template.HTML
}

func (n *Notifier) SubscriptionConfirmation(ctx context.Context, user model.User, plan model.SubscriptionPlan) error {
	body, err := render(confirmationTmpl, page{
		Year:       n.now().Year(),
		Footer:     true,
		Username:   user.Username,
		Plan:       plan.Name,
		Features:   Features(plan),
		AccountURL: n.clientURL + "/account",
	})
	if err != nil {
		return err
	}
	return n.send(ctx, user.Email, ConfirmationSubject(plan), body)
}

func (n *Notifier) PaymentReceipt(ctx context.Context, user model.User, amountCents int64, plan model.SubscriptionPlan) error {
	body, err := render(receiptTmpl, page{
		Year:     n.now().Year(),
		Footer:   true,
		Username: user.Username,
		Email:    user.Email,
		Plan:     plan.Name,
		Date:     n.now().Format(receiptDateForm),
		Amount:   FormatAmount(amountCents),
	})
	if err != nil {
		return err
	}
	return n.send(ctx, user.Email, ReceiptSubject, body)
}

// Custom wraps an admin-authored HTML message in the standard container.
// The message is trusted markup and is not escaped.
func (n *Notifier) Custom(ctx context.Context, to, subject, message string) error {
	body, err := render(customTmpl, page{
		Message: template.HTML(message),
	})
	if err != nil {
		return err
	}
	return n.send(ctx, to, subject, body)
}

func (n *Notifier) send(ctx context.Context, to, subject, body string) error {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}
	if err := n.mailer.SendEmail(ctx, to, subject, body); err != nil {
		return fmt.Errorf("send %q to %s: %w", subject, to, err)
	}
	return nil
}

func render(t *template.Template, p page) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func ConfirmationSubject(plan model.SubscriptionPlan) string {
	return fmt.Sprintf("Welcome to %s! 🎉", plan.Name)
}

// FormatAmount renders an amount in the smallest currency unit as dollars.
func FormatAmount(cents int64) string {
	return "$" + decimal.New(cents, -2).StringFixed(2)
}

// Features decodes the plan's feature list, falling back to a generic line.
func Features(plan model.SubscriptionPlan) []string {
	var features []string
	if len(plan.Features) > 0 {
		if err := json.Unmarshal(plan.Features, &features); err != nil {
			features = nil
		}
	}
	if len(features) == 0 {
		return []string{defaultFeature}
	}
	return features
}
