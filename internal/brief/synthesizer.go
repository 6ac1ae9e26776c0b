package brief

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohammad-safakhou/briefer/internal/fetch"
	"github.com/mohammad-safakhou/briefer/internal/llm"
)

var synthesisRetries = promauto.NewCounter(prometheus.CounterOpts{
	Name: "briefer_synthesis_retries_total",
	Help: "Number of corrective retries issued against the completion API.",
})

// maxAttempts bounds the retry protocol: one shot plus one corrective
// retry, then terminal failure.
const maxAttempts = 2

// retryInstruction is appended as a user message after a failed attempt.
const retryInstruction = "Return ONLY valid JSON. No explanation."

// ChatClient is the completion transport the synthesizer needs. *llm.Client
// satisfies it; tests inject a scripted fake.
type ChatClient interface {
	ChatCompletion(ctx context.Context, messages []llm.Message) (string, error)
}

// Synthesizer drives the bounded retry loop that turns sources into a
// validated Result.
type Synthesizer struct {
	client ChatClient
	logger *log.Logger
}

// NewSynthesizer wires a synthesizer to a completion client.
func NewSynthesizer(client ChatClient, logger *log.Logger) *Synthesizer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Synthesizer{client: client, logger: logger}
}

// Generate asks the model for a research brief over the sources. A failed
// first attempt (transport error, empty content, unparsable output) is fed
// back to the model with a corrective instruction; a failed second attempt
// is terminal and carries a prefix of the last raw response for diagnosis.
// Each attempt's output is discarded entirely on failure; there is no
// partial result.
func (s *Synthesizer) Generate(ctx context.Context, sources []fetch.Source) (Result, error) {
	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: BuildPrompt(sources)},
	}

	var lastRaw string
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		s.logger.Printf("generating research brief (attempt %d)", attempt)

		raw, err := s.client.ChatCompletion(ctx, messages)
		if err == nil {
			lastRaw = raw
			if strings.TrimSpace(raw) == "" {
				err = errors.New("empty response from LLM")
			}
		}
		if err == nil {
			var value interface{}
			if value, err = ExtractJSON(raw); err == nil {
				var res Result
				if res, err = Validate(value); err == nil {
					return res, nil
				}
			}
		}

		s.logger.Printf("generation attempt %d failed: %v", attempt, err)
		if attempt < maxAttempts {
			synthesisRetries.Inc()
			messages = append(messages,
				llm.Message{Role: "assistant", Content: lastRaw},
				llm.Message{Role: "user", Content: retryInstruction},
			)
		}
	}

	return Result{}, fmt.Errorf("failed to parse JSON. Raw response: %s...", truncate(lastRaw, 500))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
