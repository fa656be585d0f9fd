// Package prompt builds the instruction prompt sent to the inference endpoint.
// Building is a pure function of (problem, language); no randomness, no
// external state.
package prompt

import (
	"fmt"
	"strings"

	"dsa-assist-service/models"
)

// Section headings mandated in every generated response. The fallback
// generator mirrors the same structure so clients always see the same shape.
const (
	SectionExplanation = "Problem Explanation"
	SectionTopics      = "DSA Topics Involved"
	SectionStrategy    = "Solution Strategy (No Code)"
)

// Build assembles the instruction prompt for a problem and target language.
func Build(p *models.Problem, lang models.Language) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a patient computer science tutor helping a student who is practicing %s.\n", lang.Display())
	b.WriteString("Explain concepts only. Do NOT write any code, pseudocode, or code-like syntax in your answer.\n")
	b.WriteString("Your response MUST contain exactly these three sections, in this order:\n\n")

	fmt.Fprintf(&b, "1. %s: Explain the problem in plain language and name which data structures and algorithms concepts it touches.\n", SectionExplanation)
	fmt.Fprintf(&b, "2. %s: List every DSA topic involved and explain each one for a layperson.\n", SectionTopics)
	fmt.Fprintf(&b, "3. %s: Give a numbered, code-free strategy for solving the problem, including time and space complexity in plain words.\n\n", SectionStrategy)

	b.WriteString("Remember: NO code. No snippets, no function signatures, no syntax of any programming language.\n\n")

	b.WriteString("PROBLEM:\n")
	fmt.Fprintf(&b, "Title: %s\n", p.Title)
	fmt.Fprintf(&b, "Difficulty: %s\n", p.Difficulty)
	fmt.Fprintf(&b, "Statement: %s\n", p.Description)
	fmt.Fprintf(&b, "Input Format: %s\n", p.InputFormat)
	fmt.Fprintf(&b, "Output Format: %s\n", p.OutputFormat)
	fmt.Fprintf(&b, "Constraints: %s\n", p.Constraints)
	fmt.Fprintf(&b, "Hint: %s\n", p.Hint)
	fmt.Fprintf(&b, "Sample Input: %s\n", p.SampleInput)
	fmt.Fprintf(&b, "Sample Output: %s\n", p.SampleOutput)
	if len(p.TopicTags) > 0 {
		fmt.Fprintf(&b, "Topic Tags: %s\n", strings.Join(p.TopicTags, ", "))
	}

	b.WriteString("\nOnce more: respond with concepts and plain-language reasoning only, never with code.\n")

	return b.String()
}
