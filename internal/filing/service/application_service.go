package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"probata/internal/filing/models"
	"probata/internal/filing/ports"
	id "probata/pkg/domain"
	dErrors "probata/pkg/domain-errors"
	"probata/pkg/requestcontext"
)

// CreateApplicationInput carries the classification facts for a new filing.
type CreateApplicationInput struct {
	Regime           models.SuccessionRegime
	ReligiousCourt   bool
	EstateValueCents int64
	HeirCount        int
	HasMinorHeirs    bool
	DeceasedName     string
	Jurisdiction     string
}

// CreateApplication opens a DRAFT application.
func (s *Service) CreateApplication(ctx context.Context, input CreateApplicationInput) (models.ApplicationState, error) {
	start := time.Now()
	state, err := s.createApplication(ctx, input)
	s.observe("create_application", start, err)
	return state, err
}

func (s *Service) createApplication(ctx context.Context, input CreateApplicationInput) (models.ApplicationState, error) {
	fctx, err := models.NewFilingContext(input.Regime, input.ReligiousCourt, input.EstateValueCents,
		input.HeirCount, input.HasMinorHeirs, input.DeceasedName, input.Jurisdiction)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return models.ApplicationState{}, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return models.ApplicationState{}, err
	}
	app, err := models.NewApplication(id.NewApplicationID(), fctx, requestcontext.Now(ctx))
	if err != nil {
		return models.ApplicationState{}, err
	}
	state := app.Snapshot()
	if err := s.store.Insert(ctx, state); err != nil {
		return models.ApplicationState{}, translateStoreError(err)
	}
	app.MarkPersisted()
	s.publishEvents(ctx, app.PullEvents())
	s.refreshSummary(ctx, state)
	s.recordAudit(ctx, "create_application", state.ID)
	s.logger.Info("filing application created",
		"application_id", state.ID.String(),
		"regime", state.Regime.String(),
		"jurisdiction", state.Jurisdiction)
	return state, nil
}

// GenerateDocuments renders every required document the application does not
// yet carry and attaches the results. Rendering fans out concurrently and
// happens before the transactional attach, so a slow renderer never holds
// the application lock.
func (s *Service) GenerateDocuments(ctx context.Context, applicationID id.ApplicationID) (models.ApplicationState, error) {
	start := time.Now()
	state, err := s.generateDocuments(ctx, applicationID)
	s.observe("generate_documents", start, err)
	return state, err
}

type renderedDocument struct {
	id          id.DocumentID
	docType     models.DocumentType
	signatories int
	ref         models.StorageRef
}

func (s *Service) generateDocuments(ctx context.Context, applicationID id.ApplicationID) (models.ApplicationState, error) {
	stored, err := s.store.Get(ctx, applicationID)
	if err != nil {
		return models.ApplicationState{}, translateStoreError(err)
	}
	app, err := models.RestoreApplication(stored)
	if err != nil {
		return models.ApplicationState{}, dErrors.Wrap(err, dErrors.CodeInternal, "stored application is inconsistent")
	}

	fctx := app.Context()
	present := make(map[models.DocumentType]bool)
	for _, d := range app.Documents() {
		if d.Status != models.DocStatusSuperseded {
			present[d.Type] = true
		}
	}
	var missing []models.DocumentType
	for _, docType := range fctx.RequiredDocumentTypes() {
		if !present[docType] {
			missing = append(missing, docType)
		}
	}
	if len(missing) == 0 {
		return models.ApplicationState{}, dErrors.New(dErrors.CodeInvariantViolation,
			"all required documents are already generated")
	}

	rendered := make([]renderedDocument, len(missing))
	g, gCtx := errgroup.WithContext(ctx)
	for i, docType := range missing {
		rendered[i] = renderedDocument{
			id:          id.NewDocumentID(),
			docType:     docType,
			signatories: requiredSignatoriesFor(docType, fctx),
		}
		g.Go(func() error {
			ref, err := s.renderer.Render(gCtx, ports.RenderRequest{
				ApplicationID: applicationID,
				DocumentID:    rendered[i].id,
				Type:          docType,
				Context:       fctx,
				VersionNumber: 1,
			})
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "render "+docType.String())
			}
			rendered[i].ref = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.ApplicationState{}, err
	}

	return s.mutate(ctx, "attach_documents", applicationID, func(app *models.Application, now time.Time) error {
		for _, r := range rendered {
			doc, err := models.NewDocument(r.id, r.docType, r.signatories, now)
			if err != nil {
				return err
			}
			if err := doc.AttachVersion(r.ref, now); err != nil {
				return err
			}
			if err := app.AddDocument(doc, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// requiredSignatoriesFor decides who must sign each artifact. The heir
// affidavit is sworn by every heir; the rest are court-generated and unsigned.
func requiredSignatoriesFor(docType models.DocumentType, fctx models.FilingContext) int {
	if docType == models.DocTypeHeirAffidavit {
		return fctx.HeirCount()
	}
	return 0
}

// ApproveDocuments approves every document awaiting decision.
func (s *Service) ApproveDocuments(ctx context.Context, applicationID id.ApplicationID, approverID string) (models.ApplicationState, error) {
	return s.mutate(ctx, "approve_documents", applicationID, func(app *models.Application, now time.Time) error {
		return app.ApproveAllPendingDocuments(approverID, now)
	})
}

// SupersedeDocument renders a fresh artifact of the same type and swaps it in
// for the given document.
func (s *Service) SupersedeDocument(ctx context.Context, applicationID id.ApplicationID, documentID id.DocumentID) (models.ApplicationState, error) {
	start := time.Now()
	state, err := s.supersedeDocument(ctx, applicationID, documentID)
	s.observe("supersede_document", start, err)
	return state, err
}

func (s *Service) supersedeDocument(ctx context.Context, applicationID id.ApplicationID, documentID id.DocumentID) (models.ApplicationState, error) {
	stored, err := s.store.Get(ctx, applicationID)
	if err != nil {
		return models.ApplicationState{}, translateStoreError(err)
	}
	app, err := models.RestoreApplication(stored)
	if err != nil {
		return models.ApplicationState{}, dErrors.Wrap(err, dErrors.CodeInternal, "stored application is inconsistent")
	}
	old, err := app.DocumentByID(documentID)
	if err != nil {
		return models.ApplicationState{}, err
	}

	replacementID := id.NewDocumentID()
	ref, err := s.renderer.Render(ctx, ports.RenderRequest{
		ApplicationID: applicationID,
		DocumentID:    replacementID,
		Type:          old.Type,
		Context:       app.Context(),
		VersionNumber: 1,
	})
	if err != nil {
		return models.ApplicationState{}, dErrors.Wrap(err, dErrors.CodeInternal, "render "+old.Type.String())
	}

	return s.mutate(ctx, "supersede_document", applicationID, func(app *models.Application, now time.Time) error {
		replacement, err := models.NewDocument(replacementID, old.Type, old.RequiredSignatories, now)
		if err != nil {
			return err
		}
		if err := replacement.AttachVersion(ref, now); err != nil {
			return err
		}
		return app.SupersedeDocument(documentID, replacement, now)
	})
}

// RequestDocumentSignatures opens the signing flow on an approved document.
func (s *Service) RequestDocumentSignatures(ctx context.Context, applicationID id.ApplicationID, documentID id.DocumentID) (models.ApplicationState, error) {
	return s.mutate(ctx, "request_signatures", applicationID, func(app *models.Application, now time.Time) error {
		return app.RequestDocumentSignatures(documentID, now)
	})
}

// SignDocument records one stakeholder's signature.
func (s *Service) SignDocument(ctx context.Context, applicationID id.ApplicationID, documentID id.DocumentID,
	signatoryID id.StakeholderID, name string) (models.ApplicationState, error) {
	return s.mutate(ctx, "sign_document", applicationID, func(app *models.Application, now time.Time) error {
		return app.SignDocument(documentID, signatoryID, name, now)
	})
}

// PayFilingFee records the court fee payment. The amount must match the fee
// schedule for the estate.
func (s *Service) PayFilingFee(ctx context.Context, applicationID id.ApplicationID, amountCents int64) (models.ApplicationState, error) {
	return s.mutate(ctx, "pay_filing_fee", applicationID, func(app *models.Application, now time.Time) error {
		if due := app.Context().FilingFeeCents(); amountCents != due {
			return dErrors.Newf(dErrors.CodeValidation,
				"fee amount %d does not match the %d due for this estate", amountCents, due)
		}
		return app.MarkFilingFeePaid(amountCents, now)
	})
}

// FileWithCourt submits a READY_TO_FILE application.
func (s *Service) FileWithCourt(ctx context.Context, applicationID id.ApplicationID, caseNumber, receipt string) (models.ApplicationState, error) {
	state, err := s.mutate(ctx, "file_with_court", applicationID, func(app *models.Application, now time.Time) error {
		return app.FileWithCourt(caseNumber, receipt, now)
	})
	if err == nil {
		s.metrics.IncrementApplicationsFiled()
		s.logger.Info("application filed with court",
			"application_id", applicationID.String(),
			"court_case_number", caseNumber)
	}
	return state, err
}

// RecordCourtReviewStarted notes the court has taken the filing under review.
func (s *Service) RecordCourtReviewStarted(ctx context.Context, applicationID id.ApplicationID) (models.ApplicationState, error) {
	return s.mutate(ctx, "court_review_started", applicationID, func(app *models.Application, now time.Time) error {
		return app.RecordCourtReviewStarted(now)
	})
}

// RecordDocumentCourtOutcome records the court's per-document decision.
func (s *Service) RecordDocumentCourtOutcome(ctx context.Context, applicationID id.ApplicationID,
	documentID id.DocumentID, accepted bool, reason string) (models.ApplicationState, error) {
	return s.mutate(ctx, "document_court_outcome", applicationID, func(app *models.Application, now time.Time) error {
		return app.RecordDocumentCourtOutcome(documentID, accepted, reason, now)
	})
}

// AmendDocument renders a corrected version of a court-rejected document.
func (s *Service) AmendDocument(ctx context.Context, applicationID id.ApplicationID, documentID id.DocumentID) (models.ApplicationState, error) {
	start := time.Now()
	state, err := s.amendDocument(ctx, applicationID, documentID)
	s.observe("amend_document", start, err)
	return state, err
}

func (s *Service) amendDocument(ctx context.Context, applicationID id.ApplicationID, documentID id.DocumentID) (models.ApplicationState, error) {
	stored, err := s.store.Get(ctx, applicationID)
	if err != nil {
		return models.ApplicationState{}, translateStoreError(err)
	}
	app, err := models.RestoreApplication(stored)
	if err != nil {
		return models.ApplicationState{}, dErrors.Wrap(err, dErrors.CodeInternal, "stored application is inconsistent")
	}
	doc, err := app.DocumentByID(documentID)
	if err != nil {
		return models.ApplicationState{}, err
	}

	ref, err := s.renderer.Render(ctx, ports.RenderRequest{
		ApplicationID: applicationID,
		DocumentID:    documentID,
		Type:          doc.Type,
		Context:       app.Context(),
		VersionNumber: len(doc.Versions) + 1,
	})
	if err != nil {
		return models.ApplicationState{}, dErrors.Wrap(err, dErrors.CodeInternal, "render "+doc.Type.String())
	}

	return s.mutate(ctx, "amend_document", applicationID, func(app *models.Application, now time.Time) error {
		return app.AmendDocument(documentID, ref, now)
	})
}

// RecordCourtRejection records the court's refusal of the filing.
func (s *Service) RecordCourtRejection(ctx context.Context, applicationID id.ApplicationID, reason string) (models.ApplicationState, error) {
	return s.mutate(ctx, "court_rejection", applicationID, func(app *models.Application, now time.Time) error {
		return app.RecordCourtRejection(reason, now)
	})
}

// RecordGrantApproved records the issued grant.
func (s *Service) RecordGrantApproved(ctx context.Context, applicationID id.ApplicationID, grantNumber string) (models.ApplicationState, error) {
	return s.mutate(ctx, "grant_approved", applicationID, func(app *models.Application, now time.Time) error {
		return app.RecordGrantApproved(grantNumber, now)
	})
}

// Withdraw abandons the application.
func (s *Service) Withdraw(ctx context.Context, applicationID id.ApplicationID, reason string) (models.ApplicationState, error) {
	return s.mutate(ctx, "withdraw", applicationID, func(app *models.Application, now time.Time) error {
		return app.Withdraw(reason, now)
	})
}
