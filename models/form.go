package models

import (
	"mime/multipart"
	"time"
)

type FormData struct {
	File *multipart.FileHeader
}

type ProcessedFormData struct {
	FileName    string
	ContentType string
	FileContent []byte
}

// Submission is one processed upload as kept in the store.
type Submission struct {
	ID               int64
	AcknowledgmentID string
	FormType         string
	CustomerName     string
	CustomerEmail    string
	BranchCode       string
	UploadedFilePath string
	ExtractedText    string
	StructuredData   map[string]string
	MissingFields    []string
	Status           string
	ConfidenceScore  float64
	CreatedAt        time.Time
	Expiry           int64
}

type UploadResponse struct {
	Success          bool     `json:"success"`
	ID               int64    `json:"id"`
	AcknowledgmentID string   `json:"acknowledgment_id"`
	UploadedFilePath string   `json:"uploaded_file_path"`
	FormType         string   `json:"form_type"`
	Status           string   `json:"status"`
	MissingFields    []string `json:"missing_fields"`
	Message          string   `json:"message"`
}

type StatusResponse struct {
	AcknowledgmentID string   `json:"acknowledgment_id"`
	FormType         string   `json:"form_type"`
	Status           string   `json:"status"`
	MissingFields    []string `json:"missing_fields"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

func NewUploadResponse(s *Submission) UploadResponse {
	return UploadResponse{
		Success:          true,
		ID:               s.ID,
		AcknowledgmentID: s.AcknowledgmentID,
		UploadedFilePath: s.UploadedFilePath,
		FormType:         s.FormType,
		Status:           s.Status,
		MissingFields:    nonNil(s.MissingFields),
		Message:          "File processed and saved",
	}
}

func NewStatusResponse(s *Submission) StatusResponse {
	return StatusResponse{
		AcknowledgmentID: s.AcknowledgmentID,
		FormType:         s.FormType,
		Status:           s.Status,
		MissingFields:    nonNil(s.MissingFields),
	}
}

func nonNil(fields []string) []string {
	if fields == nil {
		return []string{}
	}
	return fields
}
