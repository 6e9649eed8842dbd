package models

import (
	"time"

	id "probata/pkg/domain"
	dErrors "probata/pkg/domain-errors"
)

// ResponseMeta captures where a consent response came from. Collected by the
// transport layer; the domain only records it.
type ResponseMeta struct {
	IP     string
	Device string
	Method ConsentMethod
}

// Consent is one stakeholder's recorded position on the application, owned by
// exactly one Application.
//
// Invariants:
//   - at most one consent per stakeholder (enforced by the aggregate)
//   - a consent participates in the readiness gate iff status != NOT_REQUIRED
//   - responses are only recordable after the request was sent
//   - expiry is a data field checked against the command time, never a timer
type Consent struct {
	id              id.ConsentID
	stakeholderID   id.StakeholderID
	stakeholderName string
	email           string
	phone           string
	status          ConsentStatus
	requestMethod   ConsentMethod
	tokenHash       string
	sentAt          *time.Time
	expiresAt       *time.Time
	respondedAt     *time.Time
	response        ResponseMeta
	declineReason   string
	declineCategory DeclineCategory
	withdrawReason  string
	createdAt       time.Time
	updatedAt       time.Time
}

// NewConsent creates a consent record for a stakeholder. Non-required
// stakeholders (e.g. already-renounced heirs) are recorded for completeness
// but never gate the filing.
func NewConsent(consentID id.ConsentID, stakeholderID id.StakeholderID, name, email, phone string, required bool, now time.Time) (*Consent, error) {
	if consentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "consent id is required")
	}
	if stakeholderID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "stakeholder id is required")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "stakeholder name is required")
	}
	status := ConsentPending
	if !required {
		status = ConsentNotRequired
	}
	return &Consent{
		id:              consentID,
		stakeholderID:   stakeholderID,
		stakeholderName: name,
		email:           email,
		phone:           phone,
		status:          status,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

func (c *Consent) ID() id.ConsentID                 { return c.id }
func (c *Consent) StakeholderID() id.StakeholderID  { return c.stakeholderID }
func (c *Consent) StakeholderName() string          { return c.stakeholderName }
func (c *Consent) Email() string                    { return c.email }
func (c *Consent) Phone() string                    { return c.phone }
func (c *Consent) Status() ConsentStatus            { return c.status }
func (c *Consent) RequestMethod() ConsentMethod     { return c.requestMethod }
func (c *Consent) TokenHash() string                { return c.tokenHash }
func (c *Consent) DeclineReason() string            { return c.declineReason }
func (c *Consent) DeclineCategory() DeclineCategory { return c.declineCategory }
func (c *Consent) WithdrawReason() string           { return c.withdrawReason }
func (c *Consent) Response() ResponseMeta           { return c.response }
func (c *Consent) CreatedAt() time.Time             { return c.createdAt }
func (c *Consent) UpdatedAt() time.Time             { return c.updatedAt }

func (c *Consent) SentAt() *time.Time      { return cloneTime(c.sentAt) }
func (c *Consent) ExpiresAt() *time.Time   { return cloneTime(c.expiresAt) }
func (c *Consent) RespondedAt() *time.Time { return cloneTime(c.respondedAt) }

// IsSent reports whether the request has been dispatched to the stakeholder.
func (c *Consent) IsSent() bool { return c.sentAt != nil }

// IsExpired reports whether a sent, unanswered request has passed its expiry.
func (c *Consent) IsExpired(now time.Time) bool {
	return c.status == ConsentPending && c.expiresAt != nil && now.After(*c.expiresAt)
}

// Send dispatches the consent request: records method, the hash of the
// single-use response token, and the expiry window.
func (c *Consent) Send(method ConsentMethod, tokenHash string, expiresAt time.Time, now time.Time) error {
	if c.status != ConsentPending {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"consent for %s cannot be sent (status %s)", c.stakeholderName, c.status)
	}
	if c.IsSent() {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"consent request for %s was already sent", c.stakeholderName)
	}
	return c.dispatch(method, tokenHash, expiresAt, now)
}

// Resend re-dispatches an expired pending request with a fresh token and
// expiry. Unexpired pending requests cannot be re-sent. A withdrawn consent
// may also be re-requested; it returns to PENDING with fresh credentials and
// its previous response cleared.
func (c *Consent) Resend(method ConsentMethod, tokenHash string, expiresAt time.Time, now time.Time) error {
	switch c.status {
	case ConsentPending:
		if !c.IsSent() {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"consent request for %s was never sent", c.stakeholderName)
		}
		if !c.IsExpired(now) {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"consent request for %s has not expired", c.stakeholderName)
		}
	case ConsentWithdrawn:
		c.status = ConsentPending
		c.respondedAt = nil
		c.response = ResponseMeta{}
		c.withdrawReason = ""
	default:
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"consent for %s cannot be re-requested (status %s)", c.stakeholderName, c.status)
	}
	return c.dispatch(method, tokenHash, expiresAt, now)
}

func (c *Consent) dispatch(method ConsentMethod, tokenHash string, expiresAt time.Time, now time.Time) error {
	if !method.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "consent method is required")
	}
	if tokenHash == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "token hash is required")
	}
	if !expiresAt.After(now) {
		return dErrors.New(dErrors.CodeInvariantViolation, "expiry must be in the future")
	}
	c.requestMethod = method
	c.tokenHash = tokenHash
	sent := now
	c.sentAt = &sent
	exp := expiresAt
	c.expiresAt = &exp
	c.updatedAt = now
	return nil
}

// RecordGranted records the stakeholder's agreement.
func (c *Consent) RecordGranted(meta ResponseMeta, now time.Time) error {
	if err := c.ensureRespondable(ConsentGranted, now); err != nil {
		return err
	}
	c.status = ConsentGranted
	c.finishResponse(meta, now)
	return nil
}

// RecordDeclined records the stakeholder's refusal with reason and category.
func (c *Consent) RecordDeclined(reason string, category DeclineCategory, meta ResponseMeta, now time.Time) error {
	if err := c.ensureRespondable(ConsentDeclined, now); err != nil {
		return err
	}
	if reason == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "decline reason is required")
	}
	if !category.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "decline category is required")
	}
	c.status = ConsentDeclined
	c.declineReason = reason
	c.declineCategory = category
	c.finishResponse(meta, now)
	return nil
}

// RecordWithdrawn retracts a previously granted consent.
func (c *Consent) RecordWithdrawn(reason string, now time.Time) error {
	if !c.status.CanTransitionTo(ConsentWithdrawn) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"consent for %s cannot be withdrawn (status %s)", c.stakeholderName, c.status)
	}
	if reason == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "withdrawal reason is required")
	}
	c.status = ConsentWithdrawn
	c.withdrawReason = reason
	c.updatedAt = now
	return nil
}

func (c *Consent) ensureRespondable(target ConsentStatus, now time.Time) error {
	if !c.status.CanTransitionTo(target) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"consent for %s cannot move from %s to %s", c.stakeholderName, c.status, target)
	}
	if !c.IsSent() {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"consent request for %s was never sent", c.stakeholderName)
	}
	if c.IsExpired(now) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"consent request for %s has expired", c.stakeholderName)
	}
	return nil
}

func (c *Consent) finishResponse(meta ResponseMeta, now time.Time) {
	responded := now
	c.respondedAt = &responded
	c.response = meta
	c.updatedAt = now
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	out := *t
	return &out
}

// ConsentState is the persistence snapshot of a Consent.
type ConsentState struct {
	ID              id.ConsentID
	StakeholderID   id.StakeholderID
	StakeholderName string
	Email           string
	Phone           string
	Status          ConsentStatus
	RequestMethod   ConsentMethod
	TokenHash       string
	SentAt          *time.Time
	ExpiresAt       *time.Time
	RespondedAt     *time.Time
	ResponseIP      string
	ResponseDevice  string
	ResponseMethod  ConsentMethod
	DeclineReason   string
	DeclineCategory DeclineCategory
	WithdrawReason  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Snapshot exports the consent for persistence.
func (c *Consent) Snapshot() ConsentState {
	return ConsentState{
		ID:              c.id,
		StakeholderID:   c.stakeholderID,
		StakeholderName: c.stakeholderName,
		Email:           c.email,
		Phone:           c.phone,
		Status:          c.status,
		RequestMethod:   c.requestMethod,
		TokenHash:       c.tokenHash,
		SentAt:          c.SentAt(),
		ExpiresAt:       c.ExpiresAt(),
		RespondedAt:     c.RespondedAt(),
		ResponseIP:      c.response.IP,
		ResponseDevice:  c.response.Device,
		ResponseMethod:  c.response.Method,
		DeclineReason:   c.declineReason,
		DeclineCategory: c.declineCategory,
		WithdrawReason:  c.withdrawReason,
		CreatedAt:       c.createdAt,
		UpdatedAt:       c.updatedAt,
	}
}

// RestoreConsent rebuilds a consent from a persistence snapshot.
func RestoreConsent(s ConsentState) (*Consent, error) {
	if !s.Status.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown consent status %q", s.Status)
	}
	c := &Consent{
		id:              s.ID,
		stakeholderID:   s.StakeholderID,
		stakeholderName: s.StakeholderName,
		email:           s.Email,
		phone:           s.Phone,
		status:          s.Status,
		requestMethod:   s.RequestMethod,
		tokenHash:       s.TokenHash,
		sentAt:          cloneTime(s.SentAt),
		expiresAt:       cloneTime(s.ExpiresAt),
		respondedAt:     cloneTime(s.RespondedAt),
		response: ResponseMeta{
			IP:     s.ResponseIP,
			Device: s.ResponseDevice,
			Method: s.ResponseMethod,
		},
		declineReason:   s.DeclineReason,
		declineCategory: s.DeclineCategory,
		withdrawReason:  s.WithdrawReason,
		createdAt:       s.CreatedAt,
		updatedAt:       s.UpdatedAt,
	}
	return c, nil
}
