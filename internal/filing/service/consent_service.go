package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
	"golang.org/x/crypto/bcrypt"

	"probata/internal/filing/models"
	"probata/internal/filing/ports"
	id "probata/pkg/domain"
	dErrors "probata/pkg/domain-errors"
	"probata/pkg/requestcontext"
)

// AddConsentInput identifies the stakeholder whose agreement is requested.
type AddConsentInput struct {
	StakeholderName string
	Email           string
	Phone           string
	Required        bool
}

// AddConsent registers a stakeholder consent record on the application.
func (s *Service) AddConsent(ctx context.Context, applicationID id.ApplicationID, input AddConsentInput) (models.ApplicationState, error) {
	return s.mutate(ctx, "add_consent", applicationID, func(app *models.Application, now time.Time) error {
		consent, err := models.NewConsent(id.NewConsentID(), id.NewStakeholderID(),
			input.StakeholderName, input.Email, input.Phone, input.Required, now)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return dErrors.New(dErrors.CodeValidation, err.Error())
			}
			return err
		}
		return app.AddConsentRequest(consent, now)
	})
}

// SendConsent dispatches a consent request over the chosen channel. The
// response token is minted here; only its bcrypt hash reaches the domain,
// and the plaintext goes out once with the delivery.
func (s *Service) SendConsent(ctx context.Context, applicationID id.ApplicationID,
	consentID id.ConsentID, method models.ConsentMethod) (models.ApplicationState, error) {
	return s.dispatchConsent(ctx, "send_consent", applicationID, consentID, method, false)
}

// ResendConsent re-dispatches an expired or withdrawn consent request with
// fresh credentials.
func (s *Service) ResendConsent(ctx context.Context, applicationID id.ApplicationID,
	consentID id.ConsentID, method models.ConsentMethod) (models.ApplicationState, error) {
	return s.dispatchConsent(ctx, "resend_consent", applicationID, consentID, method, true)
}

func (s *Service) dispatchConsent(ctx context.Context, op string, applicationID id.ApplicationID,
	consentID id.ConsentID, method models.ConsentMethod, resend bool) (models.ApplicationState, error) {

	token := uuid.NewString()
	tokenHash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return models.ApplicationState{}, dErrors.Wrap(err, dErrors.CodeInternal, "hash consent token")
	}

	var delivery ports.ConsentDelivery
	state, err := s.mutate(ctx, op, applicationID, func(app *models.Application, now time.Time) error {
		expiresAt := now.Add(s.consentTTL)
		var opErr error
		if resend {
			opErr = app.ResendConsentRequest(consentID, method, string(tokenHash), expiresAt, now)
		} else {
			opErr = app.SendConsentRequest(consentID, method, string(tokenHash), expiresAt, now)
		}
		if opErr != nil {
			return opErr
		}
		consent, err := app.ConsentByID(consentID)
		if err != nil {
			return err
		}
		delivery = ports.ConsentDelivery{
			ApplicationID:   applicationID,
			ConsentID:       consentID,
			StakeholderName: consent.StakeholderName,
			Email:           consent.Email,
			Phone:           consent.Phone,
			Method:          method,
			Token:           token,
			DeceasedName:    app.Context().DeceasedName(),
		}
		return nil
	})
	if err != nil {
		return models.ApplicationState{}, err
	}

	// Delivery happens after the save. A failed send is recoverable: the
	// request stays PENDING and can be re-sent once it expires.
	if err := s.notifier.SendConsentRequest(ctx, delivery); err != nil {
		s.logger.Warn("consent request delivery failed",
			"error", err,
			"application_id", applicationID.String(),
			"consent_id", consentID.String(),
			"method", method.String())
	}
	return state, nil
}

// ConsentResponseInput is a stakeholder's answer to a consent request,
// authenticated by the token from the delivery.
type ConsentResponseInput struct {
	Token           string
	Granted         bool
	Reason          string
	DeclineCategory models.DeclineCategory
	Method          models.ConsentMethod
}

// RespondToConsent records a stakeholder's grant or decline. The caller is
// authenticated by the response token, not a session; client IP and a device
// label derived from the User-Agent are kept for the audit trail.
func (s *Service) RespondToConsent(ctx context.Context, applicationID id.ApplicationID,
	consentID id.ConsentID, input ConsentResponseInput) (models.ApplicationState, error) {

	meta := models.ResponseMeta{
		IP:     requestcontext.ClientIP(ctx),
		Device: deviceLabel(requestcontext.UserAgent(ctx)),
		Method: input.Method,
	}
	return s.mutate(ctx, "respond_to_consent", applicationID, func(app *models.Application, now time.Time) error {
		consent, err := app.ConsentByID(consentID)
		if err != nil {
			return err
		}
		if consent.TokenHash == "" {
			return dErrors.New(dErrors.CodeUnauthorized, "consent request was never dispatched")
		}
		if bcrypt.CompareHashAndPassword([]byte(consent.TokenHash), []byte(input.Token)) != nil {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid consent response token")
		}
		if input.Granted {
			return app.RecordConsentGranted(consentID, meta, now)
		}
		return app.RecordConsentDeclined(consentID, input.Reason, input.DeclineCategory, meta, now)
	})
}

// WithdrawConsent retracts a previously granted consent.
func (s *Service) WithdrawConsent(ctx context.Context, applicationID id.ApplicationID,
	consentID id.ConsentID, reason string) (models.ApplicationState, error) {
	return s.mutate(ctx, "withdraw_consent", applicationID, func(app *models.Application, now time.Time) error {
		return app.RecordConsentWithdrawn(consentID, reason, now)
	})
}

// deviceLabel renders a short human-readable device description for the
// consent audit trail, e.g. "Chrome on Linux".
func deviceLabel(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := useragent.New(rawUA)
	browser, _ := ua.Browser()
	os := ua.OSInfo().Name
	switch {
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	default:
		return os
	}
}
