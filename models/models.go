package models

import (
	"strings"
	"time"
)

// Language is a supported target programming language, canonical lowercase.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageJava       Language = "java"
	LanguageCpp        Language = "cpp"
	LanguageC          Language = "c"
)

// languageDisplayMap maps canonical language codes to display names used in prompts
// and client-facing payloads.
var languageDisplayMap = map[Language]string{
	LanguagePython:     "Python",
	LanguageJavaScript: "JavaScript",
	LanguageJava:       "Java",
	LanguageCpp:        "C++",
	LanguageC:          "C",
}

// SupportedLanguages returns the supported set in a stable order.
func SupportedLanguages() []Language {
	return []Language{LanguagePython, LanguageJavaScript, LanguageJava, LanguageCpp, LanguageC}
}

// ParseLanguage normalizes a raw language selector (case-insensitive) and reports
// whether it belongs to the supported set.
func ParseLanguage(raw string) (Language, bool) {
	lang := Language(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := languageDisplayMap[lang]
	return lang, ok
}

// Display returns the human-readable name for the language, or the raw value
// when the language is outside the supported set.
func (l Language) Display() string {
	if name, ok := languageDisplayMap[l]; ok {
		return name
	}
	return string(l)
}

// Problem is a single practice problem from the catalog. Records are read-only;
// Index is the ordinal position assigned by the catalog provider.
type Problem struct {
	Index        int      `json:"index"`
	Title        string   `json:"title"`
	Difficulty   string   `json:"difficulty"`
	Description  string   `json:"description"`
	InputFormat  string   `json:"input_format"`
	OutputFormat string   `json:"output_format"`
	Constraints  string   `json:"constraints"`
	Hint         string   `json:"hint"`
	SampleInput  string   `json:"sample_input"`
	SampleOutput string   `json:"sample_output"`
	TopicTags    []string `json:"topic_tags,omitempty"`
}

// AssistRequest is one client call for conceptual assistance. Language is the
// raw selector as received; validation happens in the assist service per the
// configured policy.
type AssistRequest struct {
	Index    int
	Language string
	Refresh  bool
}

// StoredResponse is the single-slot cache record. At most one exists at a time;
// each save overwrites the previous one.
type StoredResponse struct {
	QuestionIndex int       `json:"question_index"`
	Title         string    `json:"title"`
	Language      Language  `json:"language"`
	Response      string    `json:"response"`
	CreatedAt     time.Time `json:"created_at"`
}

// IsEmpty reports whether the record is the cleared sentinel.
func (r *StoredResponse) IsEmpty() bool {
	return r == nil || r.Response == ""
}

// Matches reports whether the record can serve the given (index, language) pair.
func (r *StoredResponse) Matches(index int, lang Language) bool {
	return !r.IsEmpty() && r.QuestionIndex == index && r.Language == lang
}

// Stream event names. Within one stream, metadata precedes all data events and
// exactly one terminal event (complete or error) ends the stream.
const (
	EventMetadata = "metadata"
	EventData     = "data"
	EventComplete = "complete"
	EventError    = "error"
)

// StreamEvent is one server-sent event emitted by the assistance pipeline.
type StreamEvent struct {
	Name    string
	Payload interface{}
}

// MetadataPayload opens a stream with request context for the client.
type MetadataPayload struct {
	Title           string `json:"title"`
	Language        string `json:"language"`
	LanguageDisplay string `json:"languageDisplay"`
	FromCache       bool   `json:"fromCache"`
}

// DataPayload carries one response fragment. Concatenation of all data payloads
// in emission order is the full response text. Fallback marks the canned
// offline response so clients can tell degraded output from a real failure.
type DataPayload struct {
	Text     string `json:"text"`
	Fallback bool   `json:"fallback,omitempty"`
}

// CompletePayload terminates a successful stream.
type CompletePayload struct {
	Complete bool `json:"complete"`
}

// ErrorPayload terminates a failed stream.
type ErrorPayload struct {
	Error string `json:"error"`
}
