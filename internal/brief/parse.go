package brief

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when the model output contains no brace-delimited
// JSON object at all.
var ErrNoJSON = errors.New("no JSON object found in response")

// ExtractJSON pulls a JSON value out of free-form model output. It takes
// the substring from the first '{' to the last '}' and hands it to the
// standard parser, which tolerates prose or code fences around the object.
func ExtractJSON(raw string) (interface{}, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return nil, ErrNoJSON
	}
	var value interface{}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &value); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return value, nil
}

// Validate coerces a parsed value into a Result. It fails only when the
// value is not an object; missing or mistyped fields are silently replaced
// by safe defaults, never reported.
func Validate(value interface{}) (Result, error) {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return Result{}, errors.New("parsed result is not a JSON object")
	}

	res := Result{
		Summary:               "No summary generated.",
		KeyPoints:             []KeyPoint{},
		ConflictingClaims:     []ConflictingClaim{},
		VerificationChecklist: []string{},
	}

	if s, ok := obj["summary"].(string); ok {
		res.Summary = s
	}

	if items, ok := obj["key_points"].([]interface{}); ok {
		for _, item := range items {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			res.KeyPoints = append(res.KeyPoints, KeyPoint{
				Point:         asString(m["point"]),
				SourceURL:     asString(m["source_url"]),
				SourceSnippet: asString(m["source_snippet"]),
			})
		}
	}

	if items, ok := obj["conflicting_claims"].([]interface{}); ok {
		for _, item := range items {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			claim := ConflictingClaim{Claim: asString(m["claim"]), Sources: []string{}}
			if srcs, ok := m["sources"].([]interface{}); ok {
				for _, s := range srcs {
					if u, ok := s.(string); ok {
						claim.Sources = append(claim.Sources, u)
					}
				}
			}
			res.ConflictingClaims = append(res.ConflictingClaims, claim)
		}
	}

	if items, ok := obj["verification_checklist"].([]interface{}); ok {
		for _, item := range items {
			if s, ok := item.(string); ok {
				res.VerificationChecklist = append(res.VerificationChecklist, s)
			}
		}
	}

	return res, nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}
