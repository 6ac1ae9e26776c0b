package server

import (
	"encoding/json"
	"time"

	"github.com/mohammad-safakhou/briefer/internal/store"
)

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// SubmitBriefRequest is the URL submission payload.
type SubmitBriefRequest struct {
	URLs []string `json:"urls"`
}

// BriefResponse is a research brief record as served to clients. Result is
// null while the record is still processing or has failed.
type BriefResponse struct {
	ID           string          `json:"id"`
	CreatedAt    time.Time       `json:"created_at"`
	RawURLs      []string        `json:"raw_urls"`
	Result       json.RawMessage `json:"result"`
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// StatusResponse reports component health for /api/status.
type StatusResponse struct {
	Backend  string `json:"backend"`
	Database string `json:"database"`
	LLM      string `json:"llm"`
}

func toBriefResponse(b store.Brief) BriefResponse {
	return BriefResponse{
		ID:           b.ID,
		CreatedAt:    b.CreatedAt,
		RawURLs:      b.RawURLs,
		Result:       b.Result,
		Status:       b.Status,
		ErrorMessage: b.ErrorMessage,
	}
}
