package processing

import (
	"context"
	"fmt"
	"time"

	"github.com/CorrelAid/form_upload_processor/models"
	"github.com/CorrelAid/form_upload_processor/operations"
	"github.com/CorrelAid/form_upload_processor/validators"
	"go.uber.org/zap"
)

type Processor struct {
	rules        *Rules
	extractor    TextExtractor
	store        *operations.Store
	uploadFolder string
	retention    time.Duration
	logger       *zap.SugaredLogger
	now          func() time.Time
}

type Options struct {
	Rules        *Rules
	Extractor    TextExtractor
	Store        *operations.Store
	UploadFolder string
	Retention    time.Duration
	Logger       *zap.SugaredLogger
}

func NewProcessor(opts Options) *Processor {
	extractor := opts.Extractor
	if extractor == nil {
		extractor = PDFExtractor{}
	}
	return &Processor{
		rules:        opts.Rules,
		extractor:    extractor,
		store:        opts.Store,
		uploadFolder: opts.UploadFolder,
		retention:    opts.Retention,
		logger:       opts.Logger,
		now:          time.Now,
	}
}

// Process stores the upload, classifies it, pulls out its fields, checks the
// required ones and records the submission.
func (p *Processor) Process(ctx context.Context, data models.ProcessedFormData) (*models.Submission, error) {
	now := p.now().UTC()

	path, err := operations.SaveUpload(p.uploadFolder, data.FileName, data.FileContent)
	if err != nil {
		return nil, err
	}
	ackID := operations.NewAcknowledgmentID(now)

	text, err := p.extractor.Extract(ctx, data.ContentType, data.FileContent)
	if err != nil {
		_ = operations.RemoveUpload(path)
		return nil, fmt.Errorf("text extraction failed: %w", err)
	}

	classification := p.rules.Classify(text)
	fields := p.rules.ParseFields(text)

	var validation validators.Validation
	if classification.FormType == UnknownFormType {
		validation = validators.Validation{
			MissingFields: []string{"form_type"},
			Status:        validators.StatusPending,
		}
	} else {
		validation = validators.ValidateExtractedData(fields, p.rules.Required(classification.FormType))
	}

	submission := &models.Submission{
		AcknowledgmentID: ackID,
		FormType:         classification.FormType,
		CustomerName:     fields["customer_name"],
		CustomerEmail:    fields["email"],
		BranchCode:       fields["branch_code"],
		UploadedFilePath: path,
		ExtractedText:    text,
		StructuredData:   fields,
		MissingFields:    validation.MissingFields,
		Status:           validation.Status,
		ConfidenceScore:  classification.Confidence,
		CreatedAt:        now,
	}
	if err := p.store.InsertSubmission(submission, p.retention); err != nil {
		_ = operations.RemoveUpload(path)
		return nil, fmt.Errorf("saving submission: %w", err)
	}

	p.logger.Infow("Processed upload",
		"acknowledgment_id", ackID,
		"form_type", submission.FormType,
		"status", submission.Status,
		"missing", len(submission.MissingFields),
		"confidence", submission.ConfidenceScore,
	)
	return submission, nil
}
