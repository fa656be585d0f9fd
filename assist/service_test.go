package assist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dsa-assist-service/catalog"
	"dsa-assist-service/config"
	"dsa-assist-service/fallback"
	"dsa-assist-service/models"
	"dsa-assist-service/ollama"
	"dsa-assist-service/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `[
  {"title": "Two Sum", "difficulty": "Easy", "description": "Find two numbers adding to a target."},
  {"title": "Valid Parentheses", "difficulty": "Easy", "description": "Check bracket balance."}
]`

// fakeGenerator is a deterministic in-process stand-in for the inference
// endpoint.
type fakeGenerator struct {
	fragments   []string
	failConnect bool
	failAfter   int // fail after this many fragments; 0 disables
	lastPrompt  string
}

func (f *fakeGenerator) Stream(_ context.Context, prompt string) (<-chan ollama.Chunk, error) {
	f.lastPrompt = prompt
	if f.failConnect {
		return nil, errors.New("connection refused")
	}

	ch := make(chan ollama.Chunk, len(f.fragments)+2)
	go func() {
		defer close(ch)
		for i, fragment := range f.fragments {
			if f.failAfter > 0 && i == f.failAfter {
				ch <- ollama.Chunk{Err: errors.New("stream interrupted")}
				return
			}
			ch <- ollama.Chunk{Content: fragment}
		}
		ch <- ollama.Chunk{Done: true}
	}()
	return ch, nil
}

func testConfig(policy string) *config.Config {
	return &config.Config{
		LanguagePolicy:  policy,
		DefaultLanguage: "python",
	}
}

func newTestService(t *testing.T, policy string, gen Generator) (*Service, store.ResponseStore) {
	t.Helper()

	catalogPath := filepath.Join(t.TempDir(), "problems.json")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalog), 0644))

	st := store.NewFileStore(filepath.Join(t.TempDir(), "cache.json"))
	svc := NewService(testConfig(policy), catalog.NewFileProvider(catalogPath), st, gen)
	return svc, st
}

func collect(t *testing.T, ch <-chan models.StreamEvent) []models.StreamEvent {
	t.Helper()
	var events []models.StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func dataText(events []models.StreamEvent) string {
	var b strings.Builder
	for _, ev := range events {
		if ev.Name == models.EventData {
			b.WriteString(ev.Payload.(models.DataPayload).Text)
		}
	}
	return b.String()
}

func TestStreamGeneratesAndPersists(t *testing.T) {
	gen := &fakeGenerator{fragments: []string{"Use a hash table ", "to remember seen values."}}
	svc, st := newTestService(t, config.PolicyLenient, gen)

	events := collect(t, svc.Stream(context.Background(), models.AssistRequest{Index: 0, Language: "python"}))

	require.Len(t, events, 4)
	assert.Equal(t, models.EventMetadata, events[0].Name)
	meta := events[0].Payload.(models.MetadataPayload)
	assert.Equal(t, "Two Sum", meta.Title)
	assert.Equal(t, "python", meta.Language)
	assert.Equal(t, "Python", meta.LanguageDisplay)
	assert.False(t, meta.FromCache)

	assert.Equal(t, models.EventData, events[1].Name)
	assert.Equal(t, models.EventData, events[2].Name)
	assert.False(t, events[1].Payload.(models.DataPayload).Fallback)
	assert.Equal(t, "Use a hash table to remember seen values.", dataText(events))

	assert.Equal(t, models.EventComplete, events[3].Name)

	record, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, record.QuestionIndex)
	assert.Equal(t, models.LanguagePython, record.Language)
	assert.Equal(t, "Use a hash table to remember seen values.", record.Response)

	assert.Contains(t, gen.lastPrompt, "Two Sum")
	assert.Contains(t, gen.lastPrompt, "Python")
}

func TestStreamCacheHitShortCircuits(t *testing.T) {
	gen := &fakeGenerator{fragments: []string{"fresh generation"}}
	svc, st := newTestService(t, config.PolicyLenient, gen)
	require.NoError(t, st.Save(0, "Two Sum", "cached conceptual answer", models.LanguagePython))

	events := collect(t, svc.Stream(context.Background(), models.AssistRequest{Index: 0, Language: "python"}))

	require.Len(t, events, 3)
	assert.True(t, events[0].Payload.(models.MetadataPayload).FromCache)
	assert.Equal(t, "cached conceptual answer", events[1].Payload.(models.DataPayload).Text)
	assert.Equal(t, models.EventComplete, events[2].Name)
	// Generation never ran.
	assert.Empty(t, gen.lastPrompt)
}

func TestStreamCacheMissOnLanguageChange(t *testing.T) {
	gen := &fakeGenerator{fragments: []string{"regenerated for Java"}}
	svc, st := newTestService(t, config.PolicyLenient, gen)
	require.NoError(t, st.Save(0, "Two Sum", "python answer", models.LanguagePython))

	events := collect(t, svc.Stream(context.Background(), models.AssistRequest{Index: 0, Language: "java"}))

	assert.False(t, events[0].Payload.(models.MetadataPayload).FromCache)
	assert.Equal(t, "regenerated for Java", dataText(events))

	record, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, models.LanguageJava, record.Language)
}

func TestStreamRefreshBypassesCache(t *testing.T) {
	gen := &fakeGenerator{fragments: []string{"fresh answer"}}
	svc, st := newTestService(t, config.PolicyLenient, gen)
	require.NoError(t, st.Save(0, "Two Sum", "stale answer", models.LanguagePython))

	events := collect(t, svc.Stream(context.Background(), models.AssistRequest{Index: 0, Language: "python", Refresh: true}))

	assert.False(t, events[0].Payload.(models.MetadataPayload).FromCache)
	assert.Equal(t, "fresh answer", dataText(events))
}

func TestStreamFallbackOnConnectFailure(t *testing.T) {
	gen := &fakeGenerator{failConnect: true}
	svc, st := newTestService(t, config.PolicyLenient, gen)

	events := collect(t, svc.Stream(context.Background(), models.AssistRequest{Index: 1, Language: "python"}))

	require.Len(t, events, 3)
	assert.Equal(t, models.EventMetadata, events[0].Name)
	data := events[1].Payload.(models.DataPayload)
	assert.True(t, data.Fallback)
	assert.Contains(t, data.Text, "unavailable")
	assert.Equal(t, models.EventComplete, events[2].Name)

	// The canned response is persisted like a real one.
	record, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, data.Text, record.Response)

	// Deterministic per (problem, language).
	problem := &models.Problem{Index: 1, Title: "Valid Parentheses", Difficulty: "Easy", Description: "Check bracket balance."}
	assert.Equal(t, fallback.Generate(problem, models.LanguagePython), data.Text)
}

func TestStreamFallbackOnMidStreamFailure(t *testing.T) {
	gen := &fakeGenerator{fragments: []string{"partial ", "output"}, failAfter: 1}
	svc, _ := newTestService(t, config.PolicyLenient, gen)

	events := collect(t, svc.Stream(context.Background(), models.AssistRequest{Index: 0, Language: "python"}))

	// The partial fragment was already relayed; the fallback follows as a
	// tagged data event, never a transport error.
	last := events[len(events)-1]
	assert.Equal(t, models.EventComplete, last.Name)

	var sawFallback bool
	for _, ev := range events {
		if ev.Name == models.EventData && ev.Payload.(models.DataPayload).Fallback {
			sawFallback = true
		}
		assert.NotEqual(t, models.EventError, ev.Name)
	}
	assert.True(t, sawFallback)
}

func TestStreamProblemNotFound(t *testing.T) {
	gen := &fakeGenerator{}
	svc, _ := newTestService(t, config.PolicyLenient, gen)

	events := collect(t, svc.Stream(context.Background(), models.AssistRequest{Index: 99, Language: "python"}))

	require.Len(t, events, 1)
	assert.Equal(t, models.EventError, events[0].Name)
}

func TestStrictPolicyRejectsMissingAndUnsupported(t *testing.T) {
	gen := &fakeGenerator{fragments: []string{"never used"}}
	svc, _ := newTestService(t, config.PolicyStrict, gen)

	_, err := svc.Assist(context.Background(), models.AssistRequest{Index: 0, Language: ""})
	assert.ErrorIs(t, err, ErrLanguageRequired)

	_, err = svc.Assist(context.Background(), models.AssistRequest{Index: 0, Language: "rust"})
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)

	events := collect(t, svc.Stream(context.Background(), models.AssistRequest{Index: 0, Language: "rust"}))
	require.Len(t, events, 1)
	assert.Equal(t, models.EventError, events[0].Name)
}

func TestLenientPolicySubstitutesDefault(t *testing.T) {
	gen := &fakeGenerator{fragments: []string{"default language answer"}}
	svc, st := newTestService(t, config.PolicyLenient, gen)

	events := collect(t, svc.Stream(context.Background(), models.AssistRequest{Index: 0, Language: "rust"}))

	meta := events[0].Payload.(models.MetadataPayload)
	assert.Equal(t, "python", meta.Language)

	record, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, models.LanguagePython, record.Language)
}

func TestLenientUnsupportedDefaultNormalized(t *testing.T) {
	gen := &fakeGenerator{fragments: []string{"normalized answer"}}

	catalogPath := filepath.Join(t.TempDir(), "problems.json")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalog), 0644))
	st := store.NewFileStore(filepath.Join(t.TempDir(), "cache.json"))

	cfg := &config.Config{LanguagePolicy: config.PolicyLenient, DefaultLanguage: "rust"}
	svc := NewService(cfg, catalog.NewFileProvider(catalogPath), st, gen)

	events := collect(t, svc.Stream(context.Background(), models.AssistRequest{Index: 0, Language: ""}))

	// A misconfigured default never leaves the supported set.
	meta := events[0].Payload.(models.MetadataPayload)
	assert.Equal(t, string(models.LanguagePython), meta.Language)
	assert.NotContains(t, gen.lastPrompt, "rust")

	record, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, models.LanguagePython, record.Language)
}

func TestInvalidIndexRejected(t *testing.T) {
	gen := &fakeGenerator{}
	svc, _ := newTestService(t, config.PolicyLenient, gen)

	_, err := svc.Assist(context.Background(), models.AssistRequest{Index: -1, Language: "python"})
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestAssistMatchesStreamedText(t *testing.T) {
	fragments := []string{"Scan the array once. ", "Remember complements in a hash table."}

	streamGen := &fakeGenerator{fragments: fragments}
	streamSvc, _ := newTestService(t, config.PolicyLenient, streamGen)
	events := collect(t, streamSvc.Stream(context.Background(), models.AssistRequest{Index: 0, Language: "python"}))

	syncGen := &fakeGenerator{fragments: fragments}
	syncSvc, _ := newTestService(t, config.PolicyLenient, syncGen)
	result, err := syncSvc.Assist(context.Background(), models.AssistRequest{Index: 0, Language: "python"})
	require.NoError(t, err)

	assert.Equal(t, result.Response, dataText(events))
	assert.False(t, result.FromCache)
	assert.False(t, result.Fallback)
	assert.Equal(t, "Two Sum", result.Title)
	assert.Equal(t, "Python", result.LanguageDisplay)
}

func TestAssistCacheHit(t *testing.T) {
	gen := &fakeGenerator{fragments: []string{"unused"}}
	svc, st := newTestService(t, config.PolicyLenient, gen)
	require.NoError(t, st.Save(1, "Valid Parentheses", "stack based reasoning", models.LanguagePython))

	result, err := svc.Assist(context.Background(), models.AssistRequest{Index: 1, Language: "python"})
	require.NoError(t, err)

	assert.True(t, result.FromCache)
	assert.Equal(t, "stack based reasoning", result.Response)
	assert.Empty(t, gen.lastPrompt)
}

// failingStore always errors on writes; generation must still complete.
type failingStore struct{}

func (failingStore) Load() (*models.StoredResponse, error) { return nil, store.ErrCacheMiss }
func (failingStore) Save(int, string, string, models.Language) error {
	return errors.New("disk full")
}
func (failingStore) Clear() error { return errors.New("disk full") }

func TestPersistenceFailureIsNonFatal(t *testing.T) {
	catalogPath := filepath.Join(t.TempDir(), "problems.json")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalog), 0644))

	gen := &fakeGenerator{fragments: []string{"still delivered"}}
	svc := NewService(testConfig(config.PolicyLenient), catalog.NewFileProvider(catalogPath), failingStore{}, gen)

	events := collect(t, svc.Stream(context.Background(), models.AssistRequest{Index: 0, Language: "python"}))

	assert.Equal(t, models.EventComplete, events[len(events)-1].Name)
	assert.Equal(t, "still delivered", dataText(events))
}

func TestStreamStopsOnCancelledContext(t *testing.T) {
	gen := &fakeGenerator{fragments: []string{"a", "b", "c"}}
	svc, st := newTestService(t, config.PolicyLenient, gen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := collect(t, svc.Stream(ctx, models.AssistRequest{Index: 0, Language: "python"}))

	// No terminal event and no partial save after disconnect.
	for _, ev := range events {
		assert.NotEqual(t, models.EventComplete, ev.Name)
	}
	_, err := st.Load()
	assert.ErrorIs(t, err, store.ErrCacheMiss)
}
