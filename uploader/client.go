// Package uploader submits a single document to the form processing API and
// turns the reply into what the upload form displays.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	UploadPath = "/api/upload"
	FileField  = "file"
)

// File is the document picked for one submit. An empty ContentType is
// guessed from the name.
type File struct {
	Name        string
	ContentType string
	Content     io.Reader
}

// Result is the processing outcome reported by the API. Scalar fields the API
// left out, or sent as null, false, 0 or "", are empty. Inside missing_fields
// only null is empty; 0 and false keep their text.
type Result struct {
	AcknowledgmentID string
	FormType         string
	Status           string
	MissingFields    []string
}

func (r *Result) UnmarshalJSON(data []byte) error {
	*r = Result{}
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		// scalars and arrays carry none of the fields
		return nil
	}

	var raw struct {
		AcknowledgmentID json.RawMessage `json:"acknowledgment_id"`
		FormType         json.RawMessage `json:"form_type"`
		Status           json.RawMessage `json:"status"`
		MissingFields    json.RawMessage `json:"missing_fields"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.AcknowledgmentID = displayText(raw.AcknowledgmentID)
	r.FormType = displayText(raw.FormType)
	r.Status = displayText(raw.Status)

	var items []json.RawMessage
	if len(raw.MissingFields) > 0 && json.Unmarshal(raw.MissingFields, &items) == nil {
		r.MissingFields = make([]string, 0, len(items))
		for _, item := range items {
			r.MissingFields = append(r.MissingFields, elementText(item))
		}
	}
	return nil
}

// displayText renders a JSON value the way it is shown to the user.
// Falsy values render as the empty string.
func displayText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case nil:
		return ""
	case bool:
		if t {
			return "true"
		}
		return ""
	case float64:
		if t == 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return string(bytes.TrimSpace(raw))
	}
}

// elementText renders one list element the way a join shows it.
func elementText(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		switch t := v.(type) {
		case bool:
			return strconv.FormatBool(t)
		case float64:
			if t == 0 {
				return "0"
			}
		}
	}
	return displayText(raw)
}

// StatusError is returned for any non-2xx reply.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	return "upload failed: " + e.Message()
}

// Message is the API's detail, or "Error <status>" when it sent none.
func (e *StatusError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("Error %d", e.StatusCode)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for the API at baseURL. A nil httpClient means a
// plain client without a timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Upload posts file as multipart form data under the "file" field. It issues
// exactly one request and never retries.
func (c *Client) Upload(ctx context.Context, file *File) (*Result, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreatePart(fileHeader(file.Name, file.ContentType))
	if err != nil {
		return nil, err
	}
	if file.Content != nil {
		if _, err := io.Copy(part, file.Content); err != nil {
			return nil, fmt.Errorf("reading file: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+UploadPath, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Detail: errorDetail(data)}
	}

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, errors.New("decoding response: null body")
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &result, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// fileHeader declares the part type, falling back to the file extension like
// a browser does.
func fileHeader(name, contentType string) textproto.MIMEHeader {
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(name))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FileField, quoteEscaper.Replace(filepath.Base(name))))
	h.Set("Content-Type", contentType)
	return h
}

func errorDetail(body []byte) string {
	var reply struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return ""
	}
	return displayText(reply.Detail)
}
