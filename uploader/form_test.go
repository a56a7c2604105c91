package uploader

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// apiStub answers POST /api/upload with a fixed status and body and records
// what it received.
type apiStub struct {
	status   int
	body     string
	requests atomic.Int32

	mu       sync.Mutex
	fileName string
	content  string
	partType string
}

func (s *apiStub) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		if r.Method != http.MethodPost || r.URL.Path != UploadPath {
			http.NotFound(w, r)
			return
		}
		file, header, err := r.FormFile(FileField)
		if err == nil {
			data, _ := io.ReadAll(file)
			s.mu.Lock()
			s.fileName, s.content = header.Filename, string(data)
			s.partType = header.Header.Get("Content-Type")
			s.mu.Unlock()
			file.Close()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.status)
		_, _ = io.WriteString(w, s.body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newFile(name, content string) *File {
	return &File{Name: name, Content: strings.NewReader(content)}
}

func submit(t *testing.T, stub *apiStub, file *File) (View, []View) {
	t.Helper()
	srv := stub.server(t)
	var views []View
	form := NewForm(NewClient(srv.URL, srv.Client()), RendererFunc(func(v View) { views = append(views, v) }), nil)
	return form.Submit(context.Background(), file), views
}

func TestSubmit_NoFileSkipsRequest(t *testing.T) {
	stub := &apiStub{status: http.StatusOK, body: `{}`}

	final, views := submit(t, stub, nil)

	assert.Equal(t, MsgChooseFile, final.Status)
	assert.Equal(t, ClassError, final.StatusClass)
	assert.False(t, final.ResultVisible)
	assert.Len(t, views, 1)
	assert.Zero(t, stub.requests.Load())
}

func TestSubmit_SuccessAllFields(t *testing.T) {
	stub := &apiStub{status: http.StatusOK, body: `{
		"success": true,
		"acknowledgment_id": "ACK-20241220-9F3C1A2B",
		"form_type": "Cheque Book Request",
		"status": "pending",
		"missing_fields": ["account_number", "email"]
	}`}

	final, views := submit(t, stub, newFile("cheque.pdf", "%PDF-1.4"))

	require.Len(t, views, 2)
	assert.Equal(t, MsgUploading, views[0].Status)
	assert.Equal(t, ClassInfo, views[0].StatusClass)
	assert.False(t, views[0].ResultVisible)

	assert.Equal(t, View{
		Status:        MsgCompleted,
		StatusClass:   ClassSuccess,
		AckID:         "ACK-20241220-9F3C1A2B",
		FormType:      "Cheque Book Request",
		FormStatus:    "pending",
		MissingFields: "account_number, email",
		ResultVisible: true,
	}, final)

	assert.Equal(t, int32(1), stub.requests.Load())
	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.Equal(t, "cheque.pdf", stub.fileName)
	assert.Equal(t, "%PDF-1.4", stub.content)
	assert.Equal(t, "application/pdf", stub.partType)
}

func TestSubmit_DeclaredContentType(t *testing.T) {
	stub := &apiStub{status: http.StatusOK, body: `{}`}

	file := newFile("scan", "x")
	file.ContentType = "image/png"
	submit(t, stub, file)

	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.Equal(t, "image/png", stub.partType)
}

func TestSubmit_SuccessPlaceholders(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		missing string
	}{
		{name: "empty object", body: `{}`, missing: "None"},
		{name: "empty array", body: `{"missing_fields": []}`, missing: "None"},
		{name: "null fields", body: `{"acknowledgment_id": null, "form_type": "", "status": false, "missing_fields": null}`, missing: "None"},
		{name: "not an array", body: `{"missing_fields": "email"}`, missing: "None"},
		{name: "array body", body: `[]`, missing: "None"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			final, _ := submit(t, &apiStub{status: http.StatusOK, body: tt.body}, newFile("a.png", "x"))

			assert.Equal(t, MsgCompleted, final.Status)
			assert.Equal(t, "-", final.AckID)
			assert.Equal(t, "-", final.FormType)
			assert.Equal(t, "-", final.FormStatus)
			assert.Equal(t, tt.missing, final.MissingFields)
			assert.True(t, final.ResultVisible)
		})
	}
}

func TestSubmit_NonStringValues(t *testing.T) {
	final, _ := submit(t, &apiStub{status: http.StatusCreated, body: `{"acknowledgment_id": 42, "status": true, "missing_fields": ["a", 7]}`}, newFile("a.png", "x"))

	assert.Equal(t, "42", final.AckID)
	assert.Equal(t, "true", final.FormStatus)
	assert.Equal(t, "a, 7", final.MissingFields)
}

func TestSubmit_MissingFieldsKeepZeroAndFalse(t *testing.T) {
	final, _ := submit(t, &apiStub{status: http.StatusOK, body: `{"status": 0, "missing_fields": [0, false, null, "x", 0.0]}`}, newFile("a.png", "x"))

	assert.Equal(t, "-", final.FormStatus)
	assert.Equal(t, "0, false, , x, 0", final.MissingFields)
}

func TestSubmit_ErrorResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "detail", status: http.StatusBadRequest, body: `{"detail":"bad format"}`, want: "Upload failed: bad format"},
		{name: "unparsable body", status: http.StatusInternalServerError, body: `<html>oops</html>`, want: "Upload failed: Error 500"},
		{name: "no detail", status: http.StatusNotFound, body: `{"error":"x"}`, want: "Upload failed: Error 404"},
		{name: "empty detail", status: http.StatusTooManyRequests, body: `{"detail":""}`, want: "Upload failed: Error 429"},
		{name: "empty body", status: http.StatusBadGateway, body: ``, want: "Upload failed: Error 502"},
		{name: "redirect class", status: http.StatusNotModified, body: ``, want: "Upload failed: Error 304"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			final, views := submit(t, &apiStub{status: tt.status, body: tt.body}, newFile("a.pdf", "x"))

			require.Len(t, views, 2)
			assert.Equal(t, tt.want, final.Status)
			assert.Equal(t, ClassError, final.StatusClass)
			assert.False(t, final.ResultVisible)
		})
	}
}

func TestSubmit_NetworkErrorIsUnexpected(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	form := NewForm(NewClient(url, nil), nil, zap.New(core).Sugar())
	final := form.Submit(context.Background(), newFile("a.pdf", "x"))

	assert.Equal(t, MsgUnexpected, final.Status)
	assert.Equal(t, ClassError, final.StatusClass)
	assert.False(t, final.ResultVisible)
	assert.Equal(t, 1, logs.Len())
}

func TestSubmit_InvalidSuccessBody(t *testing.T) {
	for _, body := range []string{`{"acknowledgment_id":`, `null`, ``} {
		final, _ := submit(t, &apiStub{status: http.StatusOK, body: body}, newFile("a.pdf", "x"))

		assert.Equal(t, MsgUnexpected, final.Status, body)
		assert.False(t, final.ResultVisible, body)
	}
}

type uploaderFunc func(ctx context.Context, file *File) (*Result, error)

func (f uploaderFunc) Upload(ctx context.Context, file *File) (*Result, error) { return f(ctx, file) }

func TestSubmit_KeepsHiddenFieldsBetweenSubmits(t *testing.T) {
	calls := 0
	form := NewForm(uploaderFunc(func(context.Context, *File) (*Result, error) {
		calls++
		if calls == 1 {
			return &Result{AcknowledgmentID: "ACK-1", FormType: "KYC Update", Status: "ready"}, nil
		}
		return nil, errors.New("connection reset")
	}), nil, nil)

	first := form.Submit(context.Background(), newFile("a.pdf", "x"))
	require.True(t, first.ResultVisible)

	noFile := form.Submit(context.Background(), nil)
	assert.Equal(t, MsgChooseFile, noFile.Status)
	assert.True(t, noFile.ResultVisible)

	failed := form.Submit(context.Background(), newFile("b.pdf", "y"))
	assert.Equal(t, MsgUnexpected, failed.Status)
	assert.False(t, failed.ResultVisible)
	assert.Equal(t, "ACK-1", failed.AckID)
	assert.Equal(t, failed, form.View())
	assert.Equal(t, 2, calls)
}
