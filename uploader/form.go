package uploader

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	MsgChooseFile  = "Please choose a file to upload."
	MsgUploading   = "Uploading and processing..."
	MsgCompleted   = "Upload and processing completed."
	MsgUnexpected  = "Unexpected error during upload."
	uploadFailed   = "Upload failed: "
	placeholder    = "-"
	noneMissing    = "None"
	ClassError     = "status error"
	ClassInfo      = "status info"
	ClassSuccess   = "status success"
	missingJoinSep = ", "
)

// View is everything the upload form shows: the status line and the result
// area with its four fields.
type View struct {
	Status        string
	StatusClass   string
	AckID         string
	FormType      string
	FormStatus    string
	MissingFields string
	ResultVisible bool
}

// Renderer receives the view after every change.
type Renderer interface {
	Render(View)
}

type RendererFunc func(View)

func (f RendererFunc) Render(v View) { f(v) }

// Uploader is the transport the form submits through.
type Uploader interface {
	Upload(ctx context.Context, file *File) (*Result, error)
}

// Form is the upload form handler. It keeps the current view between submits
// the way a page keeps its nodes; hidden result fields keep their old text.
type Form struct {
	uploader Uploader
	renderer Renderer
	logger   *zap.SugaredLogger

	mu   sync.Mutex
	view View
}

func NewForm(uploader Uploader, renderer Renderer, logger *zap.SugaredLogger) *Form {
	if renderer == nil {
		renderer = RendererFunc(func(View) {})
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Form{uploader: uploader, renderer: renderer, logger: logger}
}

// View returns the current view.
func (f *Form) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

// Submit handles one submission and returns the final view. A nil file means
// nothing was chosen and no request is made. Overlapping submits are not
// prevented; the one that finishes last owns the view.
func (f *Form) Submit(ctx context.Context, file *File) View {
	if file == nil {
		return f.update(func(v *View) {
			v.Status, v.StatusClass = MsgChooseFile, ClassError
		})
	}

	f.update(func(v *View) {
		v.Status, v.StatusClass = MsgUploading, ClassInfo
		v.ResultVisible = false
	})

	result, err := f.uploader.Upload(ctx, file)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return f.update(func(v *View) {
				v.Status, v.StatusClass = uploadFailed+statusErr.Message(), ClassError
			})
		}
		f.logger.Errorw("Upload failed", "file", file.Name, "err", err)
		return f.update(func(v *View) {
			v.Status, v.StatusClass = MsgUnexpected, ClassError
		})
	}

	return f.update(func(v *View) {
		v.Status, v.StatusClass = MsgCompleted, ClassSuccess
		v.AckID = orPlaceholder(result.AcknowledgmentID)
		v.FormType = orPlaceholder(result.FormType)
		v.FormStatus = orPlaceholder(result.Status)
		if len(result.MissingFields) > 0 {
			v.MissingFields = strings.Join(result.MissingFields, missingJoinSep)
		} else {
			v.MissingFields = noneMissing
		}
		v.ResultVisible = true
	})
}

func (f *Form) update(change func(*View)) View {
	f.mu.Lock()
	change(&f.view)
	v := f.view
	f.mu.Unlock()

	f.renderer.Render(v)
	return v
}

func orPlaceholder(s string) string {
	if s == "" {
		return placeholder
	}
	return s
}
