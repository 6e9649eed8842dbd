package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"probata/internal/filing/models"
	id "probata/pkg/domain"
	"probata/pkg/platform/sentinel"
	"probata/pkg/platform/tx"
)

// Schema is the DDL for the filing tables. Applied by EnsureSchema; kept here
// rather than in a migration tool so integration tests and local setups share
// one source.
const Schema = `
CREATE TABLE IF NOT EXISTS filing_applications (
	id                 TEXT PRIMARY KEY,
	version            BIGINT NOT NULL,
	regime             TEXT NOT NULL,
	religious_court    BOOLEAN NOT NULL,
	estate_value_cents BIGINT NOT NULL,
	heir_count         INTEGER NOT NULL,
	has_minor_heirs    BOOLEAN NOT NULL,
	deceased_name      TEXT NOT NULL,
	jurisdiction       TEXT NOT NULL,
	status             TEXT NOT NULL,
	fee_paid           BOOLEAN NOT NULL,
	fee_amount_cents   BIGINT NOT NULL,
	fee_paid_at        TIMESTAMPTZ,
	court_case_number  TEXT NOT NULL DEFAULT '',
	filing_receipt     TEXT NOT NULL DEFAULT '',
	filed_at           TIMESTAMPTZ,
	reviewed_by        TEXT NOT NULL DEFAULT '',
	reviewed_at        TIMESTAMPTZ,
	grant_number       TEXT NOT NULL DEFAULT '',
	granted_at         TIMESTAMPTZ,
	rejection_reason   TEXT NOT NULL DEFAULT '',
	rejected_at        TIMESTAMPTZ,
	withdrawal_reason  TEXT NOT NULL DEFAULT '',
	withdrawn_at       TIMESTAMPTZ,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_filing_applications_status ON filing_applications (status);
CREATE INDEX IF NOT EXISTS idx_filing_applications_jurisdiction ON filing_applications (jurisdiction);

CREATE TABLE IF NOT EXISTS filing_documents (
	id                   TEXT PRIMARY KEY,
	application_id       TEXT NOT NULL REFERENCES filing_applications (id) ON DELETE CASCADE,
	doc_type             TEXT NOT NULL,
	status               TEXT NOT NULL,
	required_signatories INTEGER NOT NULL,
	approved_by          TEXT NOT NULL DEFAULT '',
	approved_at          TIMESTAMPTZ,
	rejection_reason     TEXT NOT NULL DEFAULT '',
	position             INTEGER NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_filing_documents_application ON filing_documents (application_id);

CREATE TABLE IF NOT EXISTS filing_document_versions (
	document_id TEXT NOT NULL REFERENCES filing_documents (id) ON DELETE CASCADE,
	number      INTEGER NOT NULL,
	storage_url TEXT NOT NULL,
	checksum    TEXT NOT NULL,
	size_bytes  BIGINT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (document_id, number)
);

CREATE TABLE IF NOT EXISTS filing_document_signatures (
	document_id  TEXT NOT NULL REFERENCES filing_documents (id) ON DELETE CASCADE,
	signatory_id TEXT NOT NULL,
	name         TEXT NOT NULL,
	signed_at    TIMESTAMPTZ NOT NULL,
	position     INTEGER NOT NULL,
	PRIMARY KEY (document_id, signatory_id)
);

CREATE TABLE IF NOT EXISTS filing_consents (
	id               TEXT PRIMARY KEY,
	application_id   TEXT NOT NULL REFERENCES filing_applications (id) ON DELETE CASCADE,
	stakeholder_id   TEXT NOT NULL,
	stakeholder_name TEXT NOT NULL,
	email            TEXT NOT NULL DEFAULT '',
	phone            TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL,
	request_method   TEXT NOT NULL DEFAULT '',
	token_hash       TEXT NOT NULL DEFAULT '',
	sent_at          TIMESTAMPTZ,
	expires_at       TIMESTAMPTZ,
	responded_at     TIMESTAMPTZ,
	response_ip      TEXT NOT NULL DEFAULT '',
	response_device  TEXT NOT NULL DEFAULT '',
	response_method  TEXT NOT NULL DEFAULT '',
	decline_reason   TEXT NOT NULL DEFAULT '',
	decline_category TEXT NOT NULL DEFAULT '',
	withdraw_reason  TEXT NOT NULL DEFAULT '',
	position         INTEGER NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_filing_consents_application ON filing_consents (application_id);
`

// EnsureSchema creates the filing tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure filing schema: %w", err)
	}
	return nil
}

// PostgresStore persists application snapshots in PostgreSQL. Child rows are
// replaced wholesale on update; the version guard on the root row makes the
// replacement safe under concurrent writers.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the transaction bound to ctx when one exists, else the pool.
func (s *PostgresStore) q(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

const applicationColumns = `id, version, regime, religious_court, estate_value_cents, heir_count,
	has_minor_heirs, deceased_name, jurisdiction, status, fee_paid, fee_amount_cents, fee_paid_at,
	court_case_number, filing_receipt, filed_at, reviewed_by, reviewed_at, grant_number, granted_at,
	rejection_reason, rejected_at, withdrawal_reason, withdrawn_at, created_at, updated_at`

func (s *PostgresStore) Insert(ctx context.Context, state models.ApplicationState) error {
	q := s.q(ctx)
	query := `
		INSERT INTO filing_applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25, $26)
	`
	_, err := q.ExecContext(ctx, query,
		state.ID.String(), state.Version, state.Regime.String(), state.ReligiousCourt,
		state.EstateValue, state.HeirCount, state.HasMinorHeirs, state.DeceasedName,
		state.Jurisdiction, state.Status.String(), state.FeePaid, state.FeeAmountCents,
		nullTime(state.FeePaidAt), state.CourtCaseNumber, state.FilingReceipt, nullTime(state.FiledAt),
		state.ReviewedBy, nullTime(state.ReviewedAt), state.GrantNumber, nullTime(state.GrantedAt),
		state.RejectionReason, nullTime(state.RejectedAt), state.WithdrawalReason, nullTime(state.WithdrawnAt),
		state.CreatedAt, state.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert application: %w", err)
	}
	if err := s.insertChildren(ctx, q, state); err != nil {
		return err
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, state models.ApplicationState, previousVersion int64) error {
	q := s.q(ctx)
	query := `
		UPDATE filing_applications SET
			version = $2, status = $3, fee_paid = $4, fee_amount_cents = $5, fee_paid_at = $6,
			court_case_number = $7, filing_receipt = $8, filed_at = $9, reviewed_by = $10,
			reviewed_at = $11, grant_number = $12, granted_at = $13, rejection_reason = $14,
			rejected_at = $15, withdrawal_reason = $16, withdrawn_at = $17, updated_at = $18
		WHERE id = $1 AND version = $19
	`
	res, err := q.ExecContext(ctx, query,
		state.ID.String(), state.Version, state.Status.String(), state.FeePaid,
		state.FeeAmountCents, nullTime(state.FeePaidAt), state.CourtCaseNumber, state.FilingReceipt,
		nullTime(state.FiledAt), state.ReviewedBy, nullTime(state.ReviewedAt), state.GrantNumber,
		nullTime(state.GrantedAt), state.RejectionReason, nullTime(state.RejectedAt),
		state.WithdrawalReason, nullTime(state.WithdrawnAt), state.UpdatedAt,
		previousVersion,
	)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update application: rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		err := q.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM filing_applications WHERE id = $1)`, state.ID.String()).Scan(&exists)
		if err != nil {
			return fmt.Errorf("update application: existence check: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrVersionConflict
	}
	// Children are replaced wholesale; the version guard above serializes
	// writers, so no finer-grained child diffing is needed.
	for _, del := range []string{
		`DELETE FROM filing_documents WHERE application_id = $1`,
		`DELETE FROM filing_consents WHERE application_id = $1`,
	} {
		if _, err := q.ExecContext(ctx, del, state.ID.String()); err != nil {
			return fmt.Errorf("update application: clear children: %w", err)
		}
	}
	return s.insertChildren(ctx, q, state)
}

func (s *PostgresStore) insertChildren(ctx context.Context, q querier, state models.ApplicationState) error {
	for pos, d := range state.Documents {
		_, err := q.ExecContext(ctx, `
			INSERT INTO filing_documents (id, application_id, doc_type, status, required_signatories,
				approved_by, approved_at, rejection_reason, position, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			d.ID.String(), state.ID.String(), d.Type.String(), d.Status.String(),
			d.RequiredSignatories, d.ApprovedBy, nullTime(d.ApprovedAt), d.RejectionReason,
			pos, d.CreatedAt, d.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		for _, v := range d.Versions {
			_, err := q.ExecContext(ctx, `
				INSERT INTO filing_document_versions (document_id, number, storage_url, checksum, size_bytes, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, d.ID.String(), v.Number, v.StorageURL, v.Checksum, v.SizeBytes, v.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert document version: %w", err)
			}
		}
		for pos, sig := range d.Signatures {
			_, err := q.ExecContext(ctx, `
				INSERT INTO filing_document_signatures (document_id, signatory_id, name, signed_at, position)
				VALUES ($1, $2, $3, $4, $5)
			`, d.ID.String(), sig.SignatoryID.String(), sig.Name, sig.SignedAt, pos)
			if err != nil {
				return fmt.Errorf("insert signature: %w", err)
			}
		}
	}
	for pos, c := range state.Consents {
		_, err := q.ExecContext(ctx, `
			INSERT INTO filing_consents (id, application_id, stakeholder_id, stakeholder_name, email,
				phone, status, request_method, token_hash, sent_at, expires_at, responded_at,
				response_ip, response_device, response_method, decline_reason, decline_category,
				withdraw_reason, position, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		`,
			c.ID.String(), state.ID.String(), c.StakeholderID.String(), c.StakeholderName,
			c.Email, c.Phone, c.Status.String(), c.RequestMethod.String(), c.TokenHash,
			nullTime(c.SentAt), nullTime(c.ExpiresAt), nullTime(c.RespondedAt),
			c.ResponseIP, c.ResponseDevice, c.ResponseMethod.String(), c.DeclineReason,
			c.DeclineCategory.String(), c.WithdrawReason, pos, c.CreatedAt, c.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert consent: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, applicationID id.ApplicationID) (models.ApplicationState, error) {
	q := s.q(ctx)
	row := q.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM filing_applications WHERE id = $1`, applicationID.String())
	state, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ApplicationState{}, sentinel.ErrNotFound
		}
		return models.ApplicationState{}, fmt.Errorf("get application: %w", err)
	}
	if err := s.loadChildren(ctx, q, &state); err != nil {
		return models.ApplicationState{}, err
	}
	return state, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]models.ApplicationState, error) {
	q := s.q(ctx)
	query := `SELECT ` + applicationColumns + ` FROM filing_applications WHERE 1=1`
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status.String())
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Jurisdiction != "" {
		args = append(args, filter.Jurisdiction)
		query += fmt.Sprintf(" AND jurisdiction = $%d", len(args))
	}
	query += " ORDER BY created_at"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []models.ApplicationState
	for rows.Next() {
		state, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("list applications: %w", err)
		}
		out = append(out, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	for i := range out {
		if err := s.loadChildren(ctx, q, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) loadChildren(ctx context.Context, q querier, state *models.ApplicationState) error {
	docRows, err := q.QueryContext(ctx, `
		SELECT id, doc_type, status, required_signatories, approved_by, approved_at,
			rejection_reason, created_at, updated_at
		FROM filing_documents WHERE application_id = $1 ORDER BY position
	`, state.ID.String())
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	defer docRows.Close()

	for docRows.Next() {
		var (
			d          models.DocumentState
			rawID      string
			docType    string
			status     string
			approvedAt sql.NullTime
		)
		if err := docRows.Scan(&rawID, &docType, &status, &d.RequiredSignatories,
			&d.ApprovedBy, &approvedAt, &d.RejectionReason, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return fmt.Errorf("scan document: %w", err)
		}
		docID, err := id.ParseDocumentID(rawID)
		if err != nil {
			return fmt.Errorf("scan document: %w", err)
		}
		d.ID = docID
		d.Type = models.DocumentType(docType)
		d.Status = models.DocumentStatus(status)
		d.ApprovedAt = timePtr(approvedAt)
		state.Documents = append(state.Documents, d)
	}
	if err := docRows.Err(); err != nil {
		return fmt.Errorf("load documents: %w", err)
	}

	for i := range state.Documents {
		if err := s.loadDocumentDetail(ctx, q, &state.Documents[i]); err != nil {
			return err
		}
	}

	conRows, err := q.QueryContext(ctx, `
		SELECT id, stakeholder_id, stakeholder_name, email, phone, status, request_method,
			token_hash, sent_at, expires_at, responded_at, response_ip, response_device,
			response_method, decline_reason, decline_category, withdraw_reason, created_at, updated_at
		FROM filing_consents WHERE application_id = $1 ORDER BY position
	`, state.ID.String())
	if err != nil {
		return fmt.Errorf("load consents: %w", err)
	}
	defer conRows.Close()

	for conRows.Next() {
		var (
			c                              models.ConsentState
			rawID, rawStakeholder          string
			status, reqMethod, respMethod  string
			category                       string
			sentAt, expiresAt, respondedAt sql.NullTime
		)
		if err := conRows.Scan(&rawID, &rawStakeholder, &c.StakeholderName, &c.Email, &c.Phone,
			&status, &reqMethod, &c.TokenHash, &sentAt, &expiresAt, &respondedAt,
			&c.ResponseIP, &c.ResponseDevice, &respMethod, &c.DeclineReason, &category,
			&c.WithdrawReason, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return fmt.Errorf("scan consent: %w", err)
		}
		consentID, err := id.ParseConsentID(rawID)
		if err != nil {
			return fmt.Errorf("scan consent: %w", err)
		}
		stakeholderID, err := id.ParseStakeholderID(rawStakeholder)
		if err != nil {
			return fmt.Errorf("scan consent: %w", err)
		}
		c.ID = consentID
		c.StakeholderID = stakeholderID
		c.Status = models.ConsentStatus(status)
		c.RequestMethod = models.ConsentMethod(reqMethod)
		c.ResponseMethod = models.ConsentMethod(respMethod)
		c.DeclineCategory = models.DeclineCategory(category)
		c.SentAt = timePtr(sentAt)
		c.ExpiresAt = timePtr(expiresAt)
		c.RespondedAt = timePtr(respondedAt)
		state.Consents = append(state.Consents, c)
	}
	return conRows.Err()
}

func (s *PostgresStore) loadDocumentDetail(ctx context.Context, q querier, d *models.DocumentState) error {
	verRows, err := q.QueryContext(ctx, `
		SELECT number, storage_url, checksum, size_bytes, created_at
		FROM filing_document_versions WHERE document_id = $1 ORDER BY number
	`, d.ID.String())
	if err != nil {
		return fmt.Errorf("load document versions: %w", err)
	}
	defer verRows.Close()
	for verRows.Next() {
		var v models.DocumentVersion
		if err := verRows.Scan(&v.Number, &v.StorageURL, &v.Checksum, &v.SizeBytes, &v.CreatedAt); err != nil {
			return fmt.Errorf("scan document version: %w", err)
		}
		d.Versions = append(d.Versions, v)
	}
	if err := verRows.Err(); err != nil {
		return fmt.Errorf("load document versions: %w", err)
	}

	sigRows, err := q.QueryContext(ctx, `
		SELECT signatory_id, name, signed_at
		FROM filing_document_signatures WHERE document_id = $1 ORDER BY position
	`, d.ID.String())
	if err != nil {
		return fmt.Errorf("load signatures: %w", err)
	}
	defer sigRows.Close()
	for sigRows.Next() {
		var (
			sig   models.Signature
			rawID string
		)
		if err := sigRows.Scan(&rawID, &sig.Name, &sig.SignedAt); err != nil {
			return fmt.Errorf("scan signature: %w", err)
		}
		signatoryID, err := id.ParseStakeholderID(rawID)
		if err != nil {
			return fmt.Errorf("scan signature: %w", err)
		}
		sig.SignatoryID = signatoryID
		d.Signatures = append(d.Signatures, sig)
	}
	return sigRows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (models.ApplicationState, error) {
	var (
		state                              models.ApplicationState
		rawID, regime, status              string
		feePaidAt, filedAt, reviewedAt     sql.NullTime
		grantedAt, rejectedAt, withdrawnAt sql.NullTime
	)
	err := row.Scan(&rawID, &state.Version, &regime, &state.ReligiousCourt, &state.EstateValue,
		&state.HeirCount, &state.HasMinorHeirs, &state.DeceasedName, &state.Jurisdiction, &status,
		&state.FeePaid, &state.FeeAmountCents, &feePaidAt, &state.CourtCaseNumber,
		&state.FilingReceipt, &filedAt, &state.ReviewedBy, &reviewedAt, &state.GrantNumber,
		&grantedAt, &state.RejectionReason, &rejectedAt, &state.WithdrawalReason, &withdrawnAt,
		&state.CreatedAt, &state.UpdatedAt)
	if err != nil {
		return models.ApplicationState{}, err
	}
	appID, err := id.ParseApplicationID(rawID)
	if err != nil {
		return models.ApplicationState{}, err
	}
	state.ID = appID
	state.Regime = models.SuccessionRegime(regime)
	state.Status = models.ApplicationStatus(status)
	state.FeePaidAt = timePtr(feePaidAt)
	state.FiledAt = timePtr(filedAt)
	state.ReviewedAt = timePtr(reviewedAt)
	state.GrantedAt = timePtr(grantedAt)
	state.RejectedAt = timePtr(rejectedAt)
	state.WithdrawnAt = timePtr(withdrawnAt)
	return state, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
