package brief

import (
	"context"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/briefer/internal/fetch"
	"github.com/mohammad-safakhou/briefer/internal/llm"
)

type scriptedCall struct {
	raw string
	err error
}

// scriptedClient replays canned completions and records every call.
type scriptedClient struct {
	script []scriptedCall
	calls  [][]llm.Message
}

func (c *scriptedClient) ChatCompletion(ctx context.Context, messages []llm.Message) (string, error) {
	msgs := make([]llm.Message, len(messages))
	copy(msgs, messages)
	c.calls = append(c.calls, msgs)
	call := c.script[len(c.calls)-1]
	return call.raw, call.err
}

var testSources = []fetch.Source{
	{URL: "https://a.example", Title: "A", Content: "alpha"},
	{URL: "https://b.example", Title: "B", Content: "beta"},
}

func TestGenerateFirstAttemptSuccess(t *testing.T) {
	client := &scriptedClient{script: []scriptedCall{
		{raw: `{"summary":"fine","key_points":[],"conflicting_claims":[],"verification_checklist":[]}`},
	}}
	s := NewSynthesizer(client, nil)

	res, err := s.Generate(context.Background(), testSources)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Summary != "fine" {
		t.Fatalf("summary = %q", res.Summary)
	}
	if len(client.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(client.calls))
	}
	first := client.calls[0]
	if len(first) != 2 || first[0].Role != "system" || first[1].Role != "user" {
		t.Fatalf("unexpected initial messages: %+v", first)
	}
	if !strings.Contains(first[1].Content, "SOURCE 2:") {
		t.Fatalf("user prompt missing sources")
	}
}

func TestGenerateRetriesOnceThenSucceeds(t *testing.T) {
	client := &scriptedClient{script: []scriptedCall{
		{raw: "I could not produce JSON, sorry"},
		{raw: "```{\"summary\":\"second try\"}```"},
	}}
	s := NewSynthesizer(client, nil)

	res, err := s.Generate(context.Background(), testSources)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Summary != "second try" {
		t.Fatalf("summary = %q", res.Summary)
	}
	if len(client.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(client.calls))
	}

	// exactly one corrective message pair appended
	second := client.calls[1]
	if len(second) != 4 {
		t.Fatalf("expected 4 messages on retry, got %d", len(second))
	}
	if second[2].Role != "assistant" || second[2].Content != "I could not produce JSON, sorry" {
		t.Fatalf("failed output not echoed back: %+v", second[2])
	}
	if second[3].Role != "user" || second[3].Content != "Return ONLY valid JSON. No explanation." {
		t.Fatalf("corrective instruction missing: %+v", second[3])
	}
}

func TestGenerateRetriesOnTransportError(t *testing.T) {
	client := &scriptedClient{script: []scriptedCall{
		{err: context.DeadlineExceeded},
		{raw: `{"summary":"recovered"}`},
	}}
	s := NewSynthesizer(client, nil)

	res, err := s.Generate(context.Background(), testSources)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Summary != "recovered" {
		t.Fatalf("summary = %q", res.Summary)
	}
}

func TestGenerateRetriesOnEmptyContent(t *testing.T) {
	client := &scriptedClient{script: []scriptedCall{
		{raw: "   "},
		{raw: `{"summary":"ok"}`},
	}}
	s := NewSynthesizer(client, nil)

	if _, err := s.Generate(context.Background(), testSources); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(client.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(client.calls))
	}
}

func TestGenerateTerminalFailureCarriesRawPrefix(t *testing.T) {
	longRaw := "X" + strings.Repeat("y", 600)
	client := &scriptedClient{script: []scriptedCall{
		{raw: "still not json"},
		{raw: longRaw},
	}}
	s := NewSynthesizer(client, nil)

	_, err := s.Generate(context.Background(), testSources)
	if err == nil {
		t.Fatalf("expected terminal error")
	}
	if !strings.Contains(err.Error(), longRaw[:500]) {
		t.Fatalf("error missing raw prefix: %v", err)
	}
	if strings.Contains(err.Error(), longRaw) {
		t.Fatalf("raw response not truncated to 500 chars")
	}
	if len(client.calls) != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", len(client.calls))
	}
}
