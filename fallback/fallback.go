// Package fallback produces the canned response served when the inference
// endpoint is unreachable. Output is deterministic per (problem, language) and
// follows the same three-section structure as a real model response, so the
// client rendering path is identical either way.
package fallback

import (
	"fmt"
	"strings"

	"dsa-assist-service/models"
	"dsa-assist-service/prompt"
)

// Generate returns the offline assistance text. It never fails and contains no
// code, so sanitization is a no-op on it.
func Generate(p *models.Problem, lang models.Language) string {
	var b strings.Builder

	b.WriteString("The AI assistant is currently unavailable, so here is general guidance instead.\n\n")

	fmt.Fprintf(&b, "%s\n", prompt.SectionExplanation)
	fmt.Fprintf(&b, "\"%s\" is rated %s. Read the statement slowly and restate it in your own words: what is the input, what is the required output, and what transformation connects them? Most problems at this level become approachable once the requirement is phrased plainly.\n\n",
		p.Title, strings.ToLower(p.Difficulty))

	fmt.Fprintf(&b, "%s\n", prompt.SectionTopics)
	b.WriteString("Work out which data structures fit the input shape: arrays and strings suggest iteration and two-pointer scans, repeated lookups suggest hash tables, ordering requirements suggest sorting or heaps, and nested or hierarchical data suggests trees, recursion, or stacks. Identify which of these the statement is nudging you toward.\n\n")

	fmt.Fprintf(&b, "%s\n", prompt.SectionStrategy)
	fmt.Fprintf(&b, "1. Re-read the constraints and estimate how large the input can get; that bounds the complexity a solution in %s needs.\n", lang.Display())
	b.WriteString("2. Solve the sample by hand and write down each decision you made; those decisions are the skeleton of the algorithm.\n")
	b.WriteString("3. Start from the naive approach, state its time and space cost in plain words, and ask which repeated work a better data structure could avoid.\n")
	b.WriteString("4. Use the hint from the problem once you have a naive approach, not before.")

	return b.String()
}
