package matcher

import (
	"regexp"
	"strings"

	"invoice-reconciliation-service/internal/models"
)

// FilterNoise implements Pass 0. Movements whose upper-cased
// description contains any exclusion keyword as a whole word are moved
// to the noise bucket and never rejoin the pipeline. With an empty
// keyword list the filter is a no-op.
func FilterNoise(movements []*models.LedgerMovement, keywords []string) (relevant, noise []*models.LedgerMovement, err error) {
	if len(keywords) == 0 {
		return movements, nil, nil
	}

	escaped := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToUpper(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		escaped = append(escaped, regexp.QuoteMeta(kw))
	}
	if len(escaped) == 0 {
		return movements, nil, nil
	}

	pattern, err := regexp.Compile(`\b(?:` + strings.Join(escaped, "|") + `)\b`)
	if err != nil {
		return nil, nil, err
	}

	relevant = make([]*models.LedgerMovement, 0, len(movements))
	for _, lm := range movements {
		if pattern.MatchString(lm.DescriptionUpper) {
			noise = append(noise, lm)
		} else {
			relevant = append(relevant, lm)
		}
	}
	return relevant, noise, nil
}
