// Package handler exposes the filing workflow over HTTP. Staff command
// routes sit behind JWT auth; the consent response route is public because
// stakeholders authenticate with the token from their consent link.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"probata/internal/filing/models"
	"probata/internal/filing/service"
	"probata/internal/filing/store"
	"probata/internal/platform/metrics"
	"probata/internal/platform/middleware"
	id "probata/pkg/domain"
	dErrors "probata/pkg/domain-errors"
	"probata/pkg/platform/httputil"
	"probata/pkg/requestcontext"
)

const requestTimeout = 30 * time.Second

// Service defines the filing operations the HTTP layer depends on.
type Service interface {
	CreateApplication(ctx context.Context, input service.CreateApplicationInput) (models.ApplicationState, error)
	GenerateDocuments(ctx context.Context, applicationID id.ApplicationID) (models.ApplicationState, error)
	ApproveDocuments(ctx context.Context, applicationID id.ApplicationID, approverID string) (models.ApplicationState, error)
	SupersedeDocument(ctx context.Context, applicationID id.ApplicationID, documentID id.DocumentID) (models.ApplicationState, error)
	RequestDocumentSignatures(ctx context.Context, applicationID id.ApplicationID, documentID id.DocumentID) (models.ApplicationState, error)
	SignDocument(ctx context.Context, applicationID id.ApplicationID, documentID id.DocumentID, signatoryID id.StakeholderID, name string) (models.ApplicationState, error)
	AmendDocument(ctx context.Context, applicationID id.ApplicationID, documentID id.DocumentID) (models.ApplicationState, error)
	RecordDocumentCourtOutcome(ctx context.Context, applicationID id.ApplicationID, documentID id.DocumentID, accepted bool, reason string) (models.ApplicationState, error)

	AddConsent(ctx context.Context, applicationID id.ApplicationID, input service.AddConsentInput) (models.ApplicationState, error)
	SendConsent(ctx context.Context, applicationID id.ApplicationID, consentID id.ConsentID, method models.ConsentMethod) (models.ApplicationState, error)
	ResendConsent(ctx context.Context, applicationID id.ApplicationID, consentID id.ConsentID, method models.ConsentMethod) (models.ApplicationState, error)
	RespondToConsent(ctx context.Context, applicationID id.ApplicationID, consentID id.ConsentID, input service.ConsentResponseInput) (models.ApplicationState, error)
	WithdrawConsent(ctx context.Context, applicationID id.ApplicationID, consentID id.ConsentID, reason string) (models.ApplicationState, error)

	PayFilingFee(ctx context.Context, applicationID id.ApplicationID, amountCents int64) (models.ApplicationState, error)
	FileWithCourt(ctx context.Context, applicationID id.ApplicationID, caseNumber, receipt string) (models.ApplicationState, error)
	RecordCourtReviewStarted(ctx context.Context, applicationID id.ApplicationID) (models.ApplicationState, error)
	RecordCourtRejection(ctx context.Context, applicationID id.ApplicationID, reason string) (models.ApplicationState, error)
	RecordGrantApproved(ctx context.Context, applicationID id.ApplicationID, grantNumber string) (models.ApplicationState, error)
	Withdraw(ctx context.Context, applicationID id.ApplicationID, reason string) (models.ApplicationState, error)

	GetApplication(ctx context.Context, applicationID id.ApplicationID) (models.ApplicationState, error)
	ListApplications(ctx context.Context, filter store.Filter) ([]models.ApplicationState, error)
	GetSummary(ctx context.Context, applicationID id.ApplicationID) (store.ApplicationSummary, error)
	GetReadiness(ctx context.Context, applicationID id.ApplicationID) (models.ReadinessReport, error)
}

// Handler wires filing endpoints to the filing service.
type Handler struct {
	service        Service
	logger         *slog.Logger
	metrics        *metrics.Metrics
	jwtValidator   middleware.JWTValidator
	consentLimiter func(http.Handler) http.Handler
}

type Option func(h *Handler)

// WithConsentRateLimit guards the public consent response route with the
// given middleware.
func WithConsentRateLimit(limiter func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.consentLimiter = limiter
	}
}

// New constructs a filing handler with its dependencies.
func New(service Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator, opts ...Option) *Handler {
	h := &Handler{
		service:      service,
		logger:       logger,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the filing routes. All routes share the base chain;
// staff routes additionally require a bearer token.
func (h *Handler) Register(r chi.Router) {
	base := chi.NewRouter()
	base.Use(middleware.Recovery(h.logger))
	base.Use(middleware.RequestID)
	base.Use(middleware.RequestMetadata)
	base.Use(middleware.Logger(h.logger))
	base.Use(middleware.Latency(h.metrics))
	base.Use(middleware.Timeout(requestTimeout))
	base.Use(middleware.ContentTypeJSON)

	base.Group(func(staff chi.Router) {
		staff.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		staff.Post("/applications", h.handleCreateApplication)
		staff.Get("/applications", h.handleListApplications)
		staff.Get("/applications/{applicationID}", h.handleGetApplication)
		staff.Get("/applications/{applicationID}/summary", h.handleGetSummary)
		staff.Get("/applications/{applicationID}/readiness", h.handleGetReadiness)

		staff.Post("/applications/{applicationID}/documents/generate", h.handleGenerateDocuments)
		staff.Post("/applications/{applicationID}/documents/approve", h.handleApproveDocuments)
		staff.Post("/applications/{applicationID}/documents/{documentID}/supersede", h.handleSupersedeDocument)
		staff.Post("/applications/{applicationID}/documents/{documentID}/signatures", h.handleRequestSignatures)
		staff.Post("/applications/{applicationID}/documents/{documentID}/sign", h.handleSignDocument)
		staff.Post("/applications/{applicationID}/documents/{documentID}/amend", h.handleAmendDocument)
		staff.Post("/applications/{applicationID}/documents/{documentID}/court-outcome", h.handleDocumentCourtOutcome)

		staff.Post("/applications/{applicationID}/consents", h.handleAddConsent)
		staff.Post("/applications/{applicationID}/consents/{consentID}/send", h.handleSendConsent)
		staff.Post("/applications/{applicationID}/consents/{consentID}/resend", h.handleResendConsent)
		staff.Post("/applications/{applicationID}/consents/{consentID}/withdraw", h.handleWithdrawConsent)

		staff.Post("/applications/{applicationID}/fee", h.handlePayFee)
		staff.Post("/applications/{applicationID}/file", h.handleFileWithCourt)
		staff.Post("/applications/{applicationID}/court-review", h.handleCourtReviewStarted)
		staff.Post("/applications/{applicationID}/rejection", h.handleCourtRejection)
		staff.Post("/applications/{applicationID}/grant", h.handleGrantApproved)
		staff.Post("/applications/{applicationID}/withdraw", h.handleWithdraw)
	})

	// Token-authenticated stakeholder endpoint, no staff session.
	if h.consentLimiter != nil {
		base.With(h.consentLimiter).Post("/consent-responses/{applicationID}/{consentID}", h.handleConsentResponse)
	} else {
		base.Post("/consent-responses/{applicationID}/{consentID}", h.handleConsentResponse)
	}

	r.Mount("/", base)
}

// applicationID pulls and parses the application ID path parameter. On
// failure it writes the error response and reports ok=false.
func (h *Handler) applicationID(w http.ResponseWriter, r *http.Request) (id.ApplicationID, bool) {
	appID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ApplicationID{}, false
	}
	return appID, true
}

func (h *Handler) documentID(w http.ResponseWriter, r *http.Request) (id.DocumentID, bool) {
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.DocumentID{}, false
	}
	return docID, true
}

func (h *Handler) consentID(w http.ResponseWriter, r *http.Request) (id.ConsentID, bool) {
	consentID, err := id.ParseConsentID(chi.URLParam(r, "consentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ConsentID{}, false
	}
	return consentID, true
}

// writeState writes a full application snapshot response.
func (h *Handler) writeState(w http.ResponseWriter, status int, state models.ApplicationState, err error) {
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, status, FromState(state))
}

func (h *Handler) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateApplicationRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	state, err := h.service.CreateApplication(ctx, req.ToInput())
	h.writeState(w, http.StatusCreated, state, err)
}

func (h *Handler) handleListApplications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := listFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	states, err := h.service.ListApplications(ctx, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	responses := make([]ApplicationResponse, 0, len(states))
	for _, state := range states {
		responses = append(responses, FromState(state))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"applications": responses})
}

// listFilter builds a store filter from query parameters.
func listFilter(r *http.Request) (store.Filter, error) {
	var filter store.Filter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := models.ParseApplicationStatus(raw)
		if err != nil {
			return store.Filter{}, err
		}
		filter.Status = status
	}
	filter.Jurisdiction = r.URL.Query().Get("jurisdiction")
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return store.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "limit must be a non-negative integer")
		}
		filter.Limit = limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return store.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "offset must be a non-negative integer")
		}
		filter.Offset = offset
	}
	return filter, nil
}

func (h *Handler) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	state, err := h.service.GetApplication(r.Context(), appID)
	h.writeState(w, http.StatusOK, state, err)
}

func (h *Handler) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	summary, err := h.service.GetSummary(r.Context(), appID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleGetReadiness(w http.ResponseWriter, r *http.Request) {
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	report, err := h.service.GetReadiness(r.Context(), appID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromReadiness(report))
}

func (h *Handler) handleGenerateDocuments(w http.ResponseWriter, r *http.Request) {
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	state, err := h.service.GenerateDocuments(r.Context(), appID)
	h.writeState(w, http.StatusOK, state, err)
}

func (h *Handler) handleApproveDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	approverID := requestcontext.ActorID(ctx)
	if approverID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	state, err := h.service.ApproveDocuments(ctx, appID, approverID)
	h.writeState(w, http.StatusOK, state, err)
}

func (h *Handler) handleSupersedeDocument(w http.ResponseWriter, r *http.Request) {
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	docID, ok := h.documentID(w, r)
	if !ok {
		return
	}
	state, err := h.service.SupersedeDocument(r.Context(), appID, docID)
	h.writeState(w, http.StatusOK, state, err)
}

func (h *Handler) handleRequestSignatures(w http.ResponseWriter, r *http.Request) {
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	docID, ok := h.documentID(w, r)
	if !ok {
		return
	}
	state, err := h.service.RequestDocumentSignatures(r.Context(), appID, docID)
	h.writeState(w, http.StatusOK, state, err)
}

func (h *Handler) handleSignDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	docID, ok := h.documentID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SignDocumentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	signatoryID := id.NewStakeholderID()
	if req.SignatoryID != "" {
		parsed, err := id.ParseStakeholderID(req.SignatoryID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		signatoryID = parsed
	}
	state, err := h.service.SignDocument(ctx, appID, docID, signatoryID, req.Name)
	h.writeState(w, http.StatusOK, state, err)
}

func (h *Handler) handleAmendDocument(w http.ResponseWriter, r *http.Request) {
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	docID, ok := h.documentID(w, r)
	if !ok {
		return
	}
	state, err := h.service.AmendDocument(r.Context(), appID, docID)
	h.writeState(w, http.StatusOK, state, err)
}

func (h *Handler) handleDocumentCourtOutcome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	docID, ok := h.documentID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CourtOutcomeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	state, err := h.service.RecordDocumentCourtOutcome(ctx, appID, docID, req.Accepted, req.Reason)
	h.writeState(w, http.StatusOK, state, err)
}

func (h *Handler) handleAddConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddConsentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	state, err := h.service.AddConsent(ctx, appID, req.ToInput())
	h.writeState(w, http.StatusCreated, state, err)
}

func (h *Handler) handleSendConsent(w http.ResponseWriter, r *http.Request) {
	h.dispatchConsent(w, r, h.service.SendConsent)
}

func (h *Handler) handleResendConsent(w http.ResponseWriter, r *http.Request) {
	h.dispatchConsent(w, r, h.service.ResendConsent)
}

func (h *Handler) dispatchConsent(w http.ResponseWriter, r *http.Request,
	send func(context.Context, id.ApplicationID, id.ConsentID, models.ConsentMethod) (models.ApplicationState, error)) {
	ctx := r.Context()
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SendConsentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	method, _ := models.ParseConsentMethod(req.Method)
	state, err := send(ctx, appID, consentID, method)
	h.writeState(w, http.StatusOK, state, err)
}

func (h *Handler) handleConsentResponse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ConsentResponseRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	state, err := h.service.RespondToConsent(ctx, appID, consentID, req.ToInput())
	h.writeState(w, http.StatusOK, state, err)
}

func (h *Handler) handleWithdrawConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReasonRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	state, err := h.service.WithdrawConsent(ctx, appID, consentID, req.Reason)
	h.writeState(w, http.StatusOK, state, err)
}

func (h *Handler) handlePayFee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[PayFeeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	state, err := h.service.PayFilingFee(ctx, appID, req.AmountCents)
	h.writeState(w, http.StatusOK, state, err)
}

func (h *Handler) handleFileWithCourt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[FileRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	state, err := h.service.FileWithCourt(ctx, appID, req.CourtCaseNumber, req.FilingReceipt)
	h.writeState(w, http.StatusOK, state, err)
}

func (h *Handler) handleCourtReviewStarted(w http.ResponseWriter, r *http.Request) {
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	state, err := h.service.RecordCourtReviewStarted(r.Context(), appID)
	h.writeState(w, http.StatusOK, state, err)
}

func (h *Handler) handleCourtRejection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReasonRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	state, err := h.service.RecordCourtRejection(ctx, appID, req.Reason)
	h.writeState(w, http.StatusOK, state, err)
}

func (h *Handler) handleGrantApproved(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[GrantRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	state, err := h.service.RecordGrantApproved(ctx, appID, req.GrantNumber)
	h.writeState(w, http.StatusOK, state, err)
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, ok := h.applicationID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReasonRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	state, err := h.service.Withdraw(ctx, appID, req.Reason)
	h.writeState(w, http.StatusOK, state, err)
}
