package processing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CorrelAid/form_upload_processor/inits"
	"github.com/CorrelAid/form_upload_processor/models"
	"github.com/CorrelAid/form_upload_processor/operations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const chequeBookText = `Bank XYZ - Cheque Book Request Form
Customer Name: John Doe
Account Number: 1234567890
Email: john.doe@example.com
Mobile: +91-9876543210
Branch Code: BR001
Address: 123 Main Street, Cityville
Number of cheque leaves requested: 25
Delivery Option: Collect at Branch
`

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) Extract(context.Context, string, []byte) (string, error) {
	return f.text, f.err
}

func testRules(t *testing.T) *Rules {
	t.Helper()
	rules, err := DefaultRules()
	require.NoError(t, err)
	return rules
}

func TestDefaultRules(t *testing.T) {
	rules := testRules(t)

	require.Len(t, rules.FormTypes, 7)
	assert.Equal(t, []string{"customer_name", "account_number", "number_of_leaves", "email"}, rules.Required("Cheque Book Request"))
	assert.Nil(t, rules.Required("Mortgage"))
}

func TestParseRules_Invalid(t *testing.T) {
	tests := map[string]string{
		"not yaml":   "form_types: [",
		"empty":      "fields: {}",
		"no name":    "form_types:\n  - keywords: [a]",
		"duplicates": "form_types:\n  - name: A\n  - name: A",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRules([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadRules_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	doc := "form_types:\n  - name: Loan Request\n    keywords: [\"LOAN AMOUNT\"]\n    required: [amount]\nfields:\n  amount: [\"Loan Amount\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, "Loan Request", rules.Classify("loan amount: 5").FormType)
	assert.Equal(t, map[string]string{"amount": "5"}, rules.ParseFields("Loan Amount: 5"))

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	rules := testRules(t)

	tests := []struct {
		name string
		text string
		want string
	}{
		{"cheque book", chequeBookText, "Cheque Book Request"},
		{"transfer", "RTGS/NEFT Transfer\nBeneficiary Name: Jane\nIFSC Code: XYZB0000123\nTransfer Type: NEFT", "RTGS/NEFT Transfer"},
		{"kyc", "KYC Update\nDocument Type: PAN Card", "KYC Update"},
		{"locker", "Locker Number: L-123\nRequest Type: Surrender", "Locker Access/Surrender"},
		{"nothing", "lorem ipsum", UnknownFormType},
		{"empty", "", UnknownFormType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rules.Classify(tt.text)
			assert.Equal(t, tt.want, got.FormType)
			if tt.want == UnknownFormType {
				assert.Zero(t, got.Confidence)
			} else {
				assert.Greater(t, got.Confidence, 0.0)
				assert.LessOrEqual(t, got.Confidence, 1.0)
			}
		})
	}
}

func TestParseFields(t *testing.T) {
	rules := testRules(t)

	fields := rules.ParseFields(chequeBookText + "Customer Name: Somebody Else\nEmail:\n")

	assert.Equal(t, "John Doe", fields["customer_name"])
	assert.Equal(t, "1234567890", fields["account_number"])
	assert.Equal(t, "john.doe@example.com", fields["email"])
	assert.Equal(t, "25", fields["number_of_leaves"])
	assert.Equal(t, "BR001", fields["branch_code"])
	assert.NotContains(t, fields, "delivery_option")
}

func TestPDFExtractor(t *testing.T) {
	text, err := PDFExtractor{}.Extract(context.Background(), "image/png", []byte{0x89, 'P'})
	require.NoError(t, err)
	assert.Empty(t, text)

	_, err = PDFExtractor{}.Extract(context.Background(), "application/pdf", []byte("not a pdf"))
	assert.Error(t, err)
}

func newTestProcessor(t *testing.T, extractor TextExtractor) (*Processor, *operations.Store, string) {
	t.Helper()
	db, err := inits.DBInit()
	require.NoError(t, err)
	logger := zaptest.NewLogger(t).Sugar()
	store := operations.NewStore(db, logger)
	dir := t.TempDir()

	p := NewProcessor(Options{
		Rules:        testRules(t),
		Extractor:    extractor,
		Store:        store,
		UploadFolder: dir,
		Retention:    time.Hour,
		Logger:       logger,
	})
	p.now = func() time.Time { return time.Date(2024, 12, 20, 10, 0, 0, 0, time.UTC) }
	return p, store, dir
}

func TestProcessor_CompleteForm(t *testing.T) {
	p, store, dir := newTestProcessor(t, fakeExtractor{text: chequeBookText})

	submission, err := p.Process(context.Background(), models.ProcessedFormData{
		FileName:    "cheque.pdf",
		ContentType: "application/pdf",
		FileContent: []byte("%PDF-1.4"),
	})
	require.NoError(t, err)

	assert.Regexp(t, `^ACK-20241220-[0-9A-F]{8}$`, submission.AcknowledgmentID)
	assert.Equal(t, "Cheque Book Request", submission.FormType)
	assert.Equal(t, "ready", submission.Status)
	assert.Empty(t, submission.MissingFields)
	assert.Equal(t, "John Doe", submission.CustomerName)
	assert.Equal(t, "john.doe@example.com", submission.CustomerEmail)
	assert.Equal(t, "BR001", submission.BranchCode)
	assert.Equal(t, dir, filepath.Dir(submission.UploadedFilePath))
	assert.FileExists(t, submission.UploadedFilePath)

	stored, err := store.GetSubmission(submission.AcknowledgmentID)
	require.NoError(t, err)
	assert.Equal(t, submission, stored)
}

func TestProcessor_MissingFields(t *testing.T) {
	p, _, _ := newTestProcessor(t, fakeExtractor{text: "Cheque Book Request\nCustomer Name: John Doe\n"})

	submission, err := p.Process(context.Background(), models.ProcessedFormData{FileName: "c.pdf", ContentType: "application/pdf"})
	require.NoError(t, err)

	assert.Equal(t, "pending", submission.Status)
	assert.Equal(t, []string{"account_number", "number_of_leaves", "email"}, submission.MissingFields)
}

func TestProcessor_UnknownForm(t *testing.T) {
	p, _, _ := newTestProcessor(t, fakeExtractor{})

	submission, err := p.Process(context.Background(), models.ProcessedFormData{FileName: "scan.png", ContentType: "image/png"})
	require.NoError(t, err)

	assert.Equal(t, UnknownFormType, submission.FormType)
	assert.Equal(t, "pending", submission.Status)
	assert.Equal(t, []string{"form_type"}, submission.MissingFields)
}

func TestProcessor_ExtractionFailure(t *testing.T) {
	p, _, dir := newTestProcessor(t, fakeExtractor{err: errors.New("boom")})

	_, err := p.Process(context.Background(), models.ProcessedFormData{FileName: "c.pdf", ContentType: "application/pdf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
