package server

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	minSubmissionURLs = 1
	maxSubmissionURLs = 10
)

// urlPattern accepts absolute http(s) URLs with a domain, localhost or an
// IPv4 host, an optional port and an optional path.
var urlPattern = regexp.MustCompile(`(?i)^https?://` +
	`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+[A-Z]{2,6}\.?|` +
	`localhost|` +
	`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
	`(?::\d+)?` +
	`(?:/?|[/?]\S+)$`)

// validateURLs trims and checks a submission batch before the pipeline
// runs. It returns the cleaned list or the first validation failure.
func validateURLs(urls []string) ([]string, error) {
	if len(urls) < minSubmissionURLs || len(urls) > maxSubmissionURLs {
		return nil, fmt.Errorf("between %d and %d urls required", minSubmissionURLs, maxSubmissionURLs)
	}
	cleaned := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if !urlPattern.MatchString(u) {
			return nil, fmt.Errorf("invalid URL format: %s", u)
		}
		cleaned = append(cleaned, u)
	}
	return cleaned, nil
}
