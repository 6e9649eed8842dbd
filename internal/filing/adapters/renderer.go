// Package adapters provides the production implementations of the filing
// service ports: document rendering backed by the blob store and consent
// delivery over the configured channels.
package adapters

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"text/template"

	"probata/internal/filing/models"
	"probata/internal/filing/ports"
	"probata/internal/storage"
	dErrors "probata/pkg/domain-errors"
)

// documentTemplates holds one court-form template per document type. The
// bodies are plain text stand-ins for the court's prescribed PDF forms.
var documentTemplates = map[models.DocumentType]string{
	models.DocTypePetition: `PETITION FOR {{.Regime}} SUCCESSION
In the matter of the estate of {{.DeceasedName}}
Jurisdiction: {{.Jurisdiction}}
Estate value: {{.EstateValueCents}} cents
Heirs: {{.HeirCount}}
Version: {{.VersionNumber}}
`,
	models.DocTypeHeirAffidavit: `AFFIDAVIT OF HEIRS
Estate of {{.DeceasedName}}
The undersigned {{.HeirCount}} heir(s) swear to the schedule of beneficiaries.
Version: {{.VersionNumber}}
`,
	models.DocTypeEstateInventory: `INVENTORY OF THE ESTATE
Estate of {{.DeceasedName}}
Declared value: {{.EstateValueCents}} cents
Version: {{.VersionNumber}}
`,
	models.DocTypeWillAnnexure: `ANNEXURE: LAST WILL AND TESTAMENT
Estate of {{.DeceasedName}}
Version: {{.VersionNumber}}
`,
	models.DocTypeGuardianshipAnnex: `ANNEXURE: GUARDIANSHIP OF MINOR HEIRS
Estate of {{.DeceasedName}}
Version: {{.VersionNumber}}
`,
	models.DocTypeFeeStatement: `STATEMENT OF ASSESSED FILING FEES
Estate of {{.DeceasedName}}
Assessed fee: {{.FeeCents}} cents
Version: {{.VersionNumber}}
`,
}

type templateData struct {
	Regime           models.SuccessionRegime
	DeceasedName     string
	Jurisdiction     string
	EstateValueCents int64
	HeirCount        int
	FeeCents         int64
	VersionNumber    int
}

// TemplateRenderer renders court documents from the filing context and
// persists them in the blob store.
type TemplateRenderer struct {
	blobs     storage.BlobStore
	templates map[models.DocumentType]*template.Template
}

func NewTemplateRenderer(blobs storage.BlobStore) (*TemplateRenderer, error) {
	parsed := make(map[models.DocumentType]*template.Template, len(documentTemplates))
	for docType, body := range documentTemplates {
		tmpl, err := template.New(docType.String()).Parse(body)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", docType, err)
		}
		parsed[docType] = tmpl
	}
	return &TemplateRenderer{blobs: blobs, templates: parsed}, nil
}

// Render produces the document content, stores it and returns its reference.
func (r *TemplateRenderer) Render(ctx context.Context, req ports.RenderRequest) (models.StorageRef, error) {
	tmpl, ok := r.templates[req.Type]
	if !ok {
		return models.StorageRef{}, dErrors.Newf(dErrors.CodeInvalidInput,
			"no template for document type %q", req.Type)
	}

	var buf bytes.Buffer
	data := templateData{
		Regime:           req.Context.Regime(),
		DeceasedName:     req.Context.DeceasedName(),
		Jurisdiction:     req.Context.Jurisdiction(),
		EstateValueCents: req.Context.EstateValueCents(),
		HeirCount:        req.Context.HeirCount(),
		FeeCents:         req.Context.FilingFeeCents(),
		VersionNumber:    req.VersionNumber,
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return models.StorageRef{}, fmt.Errorf("render %s: %w", req.Type, err)
	}

	key := fmt.Sprintf("documents/%s/%s/v%d.txt",
		req.ApplicationID.String(), req.DocumentID.String(), req.VersionNumber)
	if err := r.blobs.Put(ctx, storage.Object{
		Key:         key,
		ContentType: "text/plain; charset=utf-8",
		Data:        buf.Bytes(),
	}); err != nil {
		return models.StorageRef{}, fmt.Errorf("store rendered document: %w", err)
	}

	sum := sha256.Sum256(buf.Bytes())
	return models.StorageRef{
		StorageURL: "blob://" + key,
		Checksum:   "sha256:" + hex.EncodeToString(sum[:]),
		SizeBytes:  int64(buf.Len()),
	}, nil
}
