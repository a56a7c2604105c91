package validators

import "strings"

const (
	StatusReady   = "ready"
	StatusPending = "pending"
)

type Validation struct {
	IsComplete    bool
	MissingFields []string
	Status        string
}

// ValidateExtractedData reports which required fields are absent or blank.
func ValidateExtractedData(data map[string]string, required []string) Validation {
	missing := []string{}
	for _, field := range required {
		if strings.TrimSpace(data[field]) == "" {
			missing = append(missing, field)
		}
	}

	complete := len(missing) == 0
	status := StatusPending
	if complete {
		status = StatusReady
	}
	return Validation{
		IsComplete:    complete,
		MissingFields: missing,
		Status:        status,
	}
}
