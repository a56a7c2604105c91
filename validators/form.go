package validators

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/CorrelAid/form_upload_processor/models"
)

var (
	ErrFileRequired    = errors.New("file field is required")
	ErrFileTooLarge    = errors.New("file size exceeds the maximum limit")
	ErrUnsupportedType = errors.New("unsupported file type")
)

var allowedTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

func ValidateProcessFormData(formData models.FormData, maxSize int64) (models.ProcessedFormData, error) {
	if formData.File == nil {
		return models.ProcessedFormData{}, ErrFileRequired
	}
	if formData.File.Size > maxSize {
		return models.ProcessedFormData{}, ErrFileTooLarge
	}

	src, err := formData.File.Open()
	if err != nil {
		return models.ProcessedFormData{}, err
	}
	defer src.Close()

	return ValidateUpload(formData.File.Filename, formData.File.Header.Get("Content-Type"), src, maxSize)
}

// ValidateUpload reads at most maxSize bytes of an upload and checks its type.
func ValidateUpload(fileName, declaredType string, src io.Reader, maxSize int64) (models.ProcessedFormData, error) {
	data, err := io.ReadAll(io.LimitReader(src, maxSize+1))
	if err != nil {
		return models.ProcessedFormData{}, err
	}
	if int64(len(data)) > maxSize {
		return models.ProcessedFormData{}, ErrFileTooLarge
	}

	contentType := detectContentType(declaredType, data)
	if !allowedTypes[contentType] {
		return models.ProcessedFormData{}, ErrUnsupportedType
	}

	return models.ProcessedFormData{
		FileName:    fileName,
		ContentType: contentType,
		FileContent: data,
	}, nil
}

// detectContentType trusts the declared part type unless it is missing or
// generic, in which case the bytes are sniffed.
func detectContentType(declared string, data []byte) string {
	if declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != "application/octet-stream" {
			return mediaType
		}
	}
	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mediaType
}
