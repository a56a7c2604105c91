package handlers

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/CorrelAid/form_upload_processor/models"
	"github.com/CorrelAid/form_upload_processor/operations"
	"github.com/CorrelAid/form_upload_processor/processing"
	"github.com/CorrelAid/form_upload_processor/uploader"
	"github.com/CorrelAid/form_upload_processor/validators"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type API struct {
	processor   *processing.Processor
	store       *operations.Store
	maxFileSize int64
	logger      *zap.SugaredLogger
}

func NewAPI(processor *processing.Processor, store *operations.Store, maxFileSize int64, logger *zap.SugaredLogger) *API {
	return &API{
		processor:   processor,
		store:       store,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

func (a *API) Register(r gin.IRouter) {
	r.GET("/health", a.Health)
	api := r.Group("/api")
	api.POST("/upload", a.Upload)
	api.GET("/status/:acknowledgment_id", a.Status)
}

func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) Upload(c *gin.Context) {
	file, err := c.FormFile(uploader.FileField)
	if err != nil {
		abort(c, http.StatusBadRequest, "No file uploaded")
		return
	}

	processed, err := validators.ValidateProcessFormData(models.FormData{File: file}, a.maxFileSize)
	submission, replyErr := a.process(c.Request.Context(), file.Filename, processed, err)
	if replyErr != nil {
		abort(c, replyErr.StatusCode, replyErr.Detail)
		return
	}

	c.JSON(http.StatusOK, models.NewUploadResponse(submission))
}

// process runs a validated upload through the processor. Failures come back
// with the status code and detail the upload endpoint replies with.
func (a *API) process(ctx context.Context, fileName string, processed models.ProcessedFormData, err error) (*models.Submission, *uploader.StatusError) {
	switch {
	case errors.Is(err, validators.ErrFileRequired):
		return nil, &uploader.StatusError{StatusCode: http.StatusBadRequest, Detail: "No file uploaded"}
	case errors.Is(err, validators.ErrFileTooLarge):
		return nil, &uploader.StatusError{StatusCode: http.StatusRequestEntityTooLarge, Detail: "File too large"}
	case errors.Is(err, validators.ErrUnsupportedType):
		return nil, &uploader.StatusError{StatusCode: http.StatusBadRequest, Detail: "Unsupported file type"}
	case err != nil:
		a.logger.Errorw("Reading upload failed", "file", fileName, "err", err)
		return nil, &uploader.StatusError{StatusCode: http.StatusBadRequest, Detail: "Could not read uploaded file"}
	}

	submission, err := a.processor.Process(ctx, processed)
	if err != nil {
		a.logger.Errorw("Processing failed", "file", fileName, "err", err)
		return nil, &uploader.StatusError{StatusCode: http.StatusInternalServerError, Detail: "Processing failed: " + err.Error()}
	}
	return submission, nil
}

func (a *API) Status(c *gin.Context) {
	submission, err := a.store.GetSubmission(c.Param("acknowledgment_id"))
	if errors.Is(err, operations.ErrNotFound) {
		abort(c, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		a.logger.Errorw("Status lookup failed", "err", err)
		abort(c, http.StatusInternalServerError, "Status lookup failed")
		return
	}
	c.JSON(http.StatusOK, models.NewStatusResponse(submission))
}

func abort(c *gin.Context, code int, detail string) {
	c.AbortWithStatusJSON(code, models.ErrorResponse{Detail: detail})
}

// Uploader submits files straight to this API without going over the network
// or through router middleware. Failures carry the upload endpoint's replies.
func (a *API) Uploader() uploader.Uploader {
	return localUploader{api: a}
}

type localUploader struct {
	api *API
}

func (l localUploader) Upload(ctx context.Context, file *uploader.File) (*uploader.Result, error) {
	content := file.Content
	if content == nil {
		content = strings.NewReader("")
	}

	processed, err := validators.ValidateUpload(filepath.Base(file.Name), file.ContentType, content, l.api.maxFileSize)
	submission, replyErr := l.api.process(ctx, file.Name, processed, err)
	if replyErr != nil {
		return nil, replyErr
	}

	reply := models.NewUploadResponse(submission)
	return &uploader.Result{
		AcknowledgmentID: reply.AcknowledgmentID,
		FormType:         reply.FormType,
		Status:           reply.Status,
		MissingFields:    reply.MissingFields,
	}, nil
}
