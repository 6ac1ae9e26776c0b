package brief

import (
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/briefer/internal/fetch"
)

// systemPrompt fixes the analyst role and the conflict-detection rule.
const systemPrompt = `You are a research analyst.
You must synthesize across all provided sources.
Compare themes, highlight contrasts, and identify trade-offs.
If multiple sources exist, the summary must integrate them into a comparative analysis.
Conflicting claims must be generated when one source asserts a claim and another disputes, rejects, or contradicts it.
Example: If Source A states 'Human activity causes climate change' and Source B disputes this, it MUST be a conflicting claim.
Focus on identifying statements that cannot both be true simultaneously.
Do not treat neutral differences as conflict.
You must return ONLY valid JSON.
No markdown, no emojis, no headings, no explanations.
Return raw JSON only.`

// promptInstructions is appended after the rendered sources and pins the
// exact output contract.
const promptInstructions = `Return the research brief in EXACTLY this JSON format:

{
  "summary": "",
  "key_points": [
    {
      "point": "",
      "source_url": "",
      "source_snippet": ""
    }
  ],
  "conflicting_claims": [
    {
      "claim": "",
      "sources": []
    }
  ],
  "verification_checklist": []
}

Instructions:
- Compare core claims of each source.
- Identify agreements and shared evidence.
- Identify statements that cannot both be true simultaneously.
- Highlight trade-offs and opposing argumentative viewpoints.
- All source_snippet values must be exact excerpts from the provided content.

Rules:
- Do not include any text outside the JSON.
- Do not wrap in backticks.
- Do not add formatting.
- Populate 'conflicting_claims' when sources make clearly contradictory factual or argumentative statements.
- If one source asserts a claim and another disputes, rejects, or contradicts it, this MUST appear in 'conflicting_claims'.
- If no direct contradiction exists, 'conflicting_claims' must be an empty array [].
- Summary must synthesize across ALL sources.`

// BuildPrompt renders the sources in input order followed by the fixed
// instruction block. Pure and deterministic.
func BuildPrompt(sources []fetch.Source) string {
	var b strings.Builder
	for i, src := range sources {
		fmt.Fprintf(&b, "SOURCE %d:\n", i+1)
		fmt.Fprintf(&b, "URL: %s\n", src.URL)
		fmt.Fprintf(&b, "CONTENT:\n%s\n\n", src.Content)
	}
	b.WriteString(promptInstructions)
	return b.String()
}
