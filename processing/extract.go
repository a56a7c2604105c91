package processing

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

const maxTextSize = 1024 * 1024

// TextExtractor turns uploaded bytes into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, contentType string, content []byte) (string, error)
}

// PDFExtractor reads the text layer of PDFs. Images have no text layer and
// produce empty text.
type PDFExtractor struct{}

func (PDFExtractor) Extract(ctx context.Context, contentType string, content []byte) (text string, err error) {
	if contentType != "application/pdf" {
		return "", nil
	}
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var builder strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		pageText, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			// keep whatever the other pages yield
			continue
		}
		if builder.Len()+len(pageText) > maxTextSize {
			if remaining := maxTextSize - builder.Len(); remaining > 0 {
				builder.WriteString(pageText[:remaining])
			}
			break
		}
		builder.WriteString(pageText)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}
