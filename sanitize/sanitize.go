// Package sanitize enforces the "concepts only, no code" policy on model
// output. Detection is heuristic and best-effort: it removes the common shapes
// code takes in LLM responses (fenced blocks, inline spans, code-idiom lines)
// but is not a security boundary and makes no guarantee of zero leaked code.
package sanitize

import (
	"regexp"
	"strings"
)

// Rule is one independently testable code-detection strategy.
type Rule interface {
	Name() string
	Strip(text string) string
}

// DefaultRules returns the rule chain in application order.
func DefaultRules() []Rule {
	return []Rule{
		FencedBlocks{},
		InlineSpans{},
		IdiomLines{},
	}
}

// Sanitize applies the default rule chain and collapses the blank runs left
// behind. Approximately idempotent: reapplying does not change output for
// typical inputs, though the line heuristics make this a property to test
// rather than an invariant.
func Sanitize(text string) string {
	for _, rule := range DefaultRules() {
		text = rule.Strip(text)
	}
	return strings.TrimSpace(collapseBlankRuns(text))
}

var (
	fencedBlockRe = regexp.MustCompile("(?s)```.*?```")
	inlineSpanRe  = regexp.MustCompile("`[^`\n]*`")
	blankRunRe    = regexp.MustCompile(`\n([ \t]*\n){3,}`)
)

// FencedBlocks removes paired triple-backtick spans entirely. An unpaired
// trailing fence drops the rest of the text, matching how a truncated model
// response should never leak a half-open code block.
type FencedBlocks struct{}

func (FencedBlocks) Name() string { return "fenced-blocks" }

func (FencedBlocks) Strip(text string) string {
	text = fencedBlockRe.ReplaceAllString(text, "")
	if i := strings.Index(text, "```"); i >= 0 {
		text = text[:i]
	}
	return text
}

// InlineSpans removes single-backtick inline code spans, content included.
type InlineSpans struct{}

func (InlineSpans) Name() string { return "inline-spans" }

func (InlineSpans) Strip(text string) string {
	return inlineSpanRe.ReplaceAllString(text, "")
}

// idiomPatterns match lines that look like statements in the mainstream
// languages the assistant covers. Each pattern errs on the side of dropping
// prose that reads like code.
var idiomPatterns = []*regexp.Regexp{
	// control flow with code punctuation
	regexp.MustCompile(`^\s*(if|for|while|switch|elif|else)\b.*[{:()]`),
	// function/class/type declarations
	regexp.MustCompile(`^\s*(def|func|function|class|struct|public|private|protected|static|void)\b`),
	// imports and includes
	regexp.MustCompile(`^\s*(import|from|#include|using|require\()`),
	// print/output calls
	regexp.MustCompile(`^\s*(print|println|console\.log|System\.out|printf|cout|fmt\.Print)`),
	// assignment to a bare identifier
	regexp.MustCompile(`^\s*[A-Za-z_][A-Za-z0-9_.\[\]]*\s*(=|:=|\+=|-=|\*=|/=)\s*\S`),
	// indented lines carrying code punctuation
	regexp.MustCompile(`^\s{4,}.*[;{}=<>]`),
	// statement terminators and lone braces
	regexp.MustCompile(`^\s*[{}]\s*$`),
	regexp.MustCompile(`;\s*$`),
}

// IdiomLines drops whole lines matching language-idiom patterns for common
// control-flow and declaration keywords.
type IdiomLines struct{}

func (IdiomLines) Name() string { return "idiom-lines" }

func (IdiomLines) Strip(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if looksLikeCode(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func looksLikeCode(line string) bool {
	for _, re := range idiomPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// collapseBlankRuns reduces runs of 3+ blank lines to a single blank line.
func collapseBlankRuns(text string) string {
	return blankRunRe.ReplaceAllString(text, "\n\n")
}
