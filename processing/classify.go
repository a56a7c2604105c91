package processing

import (
	"strings"
)

type Classification struct {
	FormType   string
	Confidence float64
}

// Classify scores every form type by keyword hits in text. The form name
// counts as a keyword worth two hits.
func (r *Rules) Classify(text string) Classification {
	lower := strings.ToLower(text)

	best, bestScore, total := -1, 0, 0
	for i, ft := range r.FormTypes {
		score := 2 * strings.Count(lower, strings.ToLower(ft.Name))
		for _, kw := range ft.Keywords {
			if kw != "" {
				score += strings.Count(lower, kw)
			}
		}
		total += score
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 {
		return Classification{FormType: UnknownFormType}
	}
	return Classification{
		FormType:   r.FormTypes[best].Name,
		Confidence: float64(bestScore) / float64(total),
	}
}
