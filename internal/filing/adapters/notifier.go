package adapters

import (
	"context"
	"fmt"
	"log/slog"

	"probata/internal/filing/models"
	"probata/internal/filing/ports"
	dErrors "probata/pkg/domain-errors"
)

// Sender delivers one rendered message over a concrete channel (SMTP
// relay, SMS gateway, print queue).
type Sender interface {
	Send(ctx context.Context, method models.ConsentMethod, recipient, subject, body string) error
}

// ChannelNotifier turns a consent delivery into a channel-specific message
// with the stakeholder's response link.
type ChannelNotifier struct {
	sender  Sender
	baseURL string
	logger  *slog.Logger
}

func NewChannelNotifier(sender Sender, baseURL string, logger *slog.Logger) *ChannelNotifier {
	return &ChannelNotifier{
		sender:  sender,
		baseURL: baseURL,
		logger:  logger,
	}
}

// SendConsentRequest composes and dispatches the consent request message.
// The response link embeds the one-time token; the domain keeps only its
// hash.
func (n *ChannelNotifier) SendConsentRequest(ctx context.Context, delivery ports.ConsentDelivery) error {
	recipient, err := recipientFor(delivery)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/consent-responses/%s/%s?token=%s",
		n.baseURL, delivery.ApplicationID.String(), delivery.ConsentID.String(), delivery.Token)
	subject := fmt.Sprintf("Consent requested: estate of %s", delivery.DeceasedName)
	body := fmt.Sprintf(
		"Dear %s,\n\nA succession filing for the estate of %s requires your consent.\n"+
			"Respond here: %s\n\nIf you do not recognise this request, ignore this message.\n",
		delivery.StakeholderName, delivery.DeceasedName, link)

	if err := n.sender.Send(ctx, delivery.Method, recipient, subject, body); err != nil {
		return fmt.Errorf("deliver consent request over %s: %w", delivery.Method, err)
	}

	n.logger.InfoContext(ctx, "consent request dispatched",
		"application_id", delivery.ApplicationID.String(),
		"consent_id", delivery.ConsentID.String(),
		"method", delivery.Method.String(),
	)
	return nil
}

// recipientFor picks the address matching the requested channel.
func recipientFor(delivery ports.ConsentDelivery) (string, error) {
	switch delivery.Method {
	case models.ConsentMethodEmail:
		if delivery.Email == "" {
			return "", dErrors.New(dErrors.CodeValidation, "stakeholder has no email address on file")
		}
		return delivery.Email, nil
	case models.ConsentMethodSMS:
		if delivery.Phone == "" {
			return "", dErrors.New(dErrors.CodeValidation, "stakeholder has no phone number on file")
		}
		return delivery.Phone, nil
	case models.ConsentMethodPostal:
		return delivery.StakeholderName, nil
	case models.ConsentMethodInPerson:
		return delivery.StakeholderName, nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown consent method %q", delivery.Method)
	}
}

// LogSender writes outbound messages to the log. It stands in for the SMTP
// relay and SMS gateway in development and tests.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, method models.ConsentMethod, recipient, subject, body string) error {
	s.logger.InfoContext(ctx, "outbound message",
		"method", method.String(),
		"recipient", recipient,
		"subject", subject,
		"bytes", len(body),
	)
	return nil
}
