package operations

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

const filePerm = 0o640

// SaveUpload writes content under dir with a unique prefix so uploads with the
// same original name never overwrite each other.
func SaveUpload(dir, fileName string, content []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating upload folder: %w", err)
	}
	dest := filepath.Join(dir, ksuid.New().String()+"_"+processName(fileName))
	if err := os.WriteFile(dest, content, filePerm); err != nil {
		return "", fmt.Errorf("writing upload: %w", err)
	}
	return dest, nil
}

func RemoveUpload(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// NewAcknowledgmentID returns an id like ACK-20241220-9F3C1A2B.
func NewAcknowledgmentID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("ACK-%s-%s", now.UTC().Format("20060102"), strings.ToUpper(random))
}

func processName(input string) string {
	base := filepath.Base(strings.ReplaceAll(input, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "upload"
	}

	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "upload"
	}
	return b.String()
}
