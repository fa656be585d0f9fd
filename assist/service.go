// Package assist orchestrates the assistance pipeline: validate the request,
// serve from the single-slot cache when possible, otherwise stream a
// generation from the inference endpoint, sanitize, persist, and finalize.
package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dsa-assist-service/catalog"
	"dsa-assist-service/config"
	"dsa-assist-service/fallback"
	"dsa-assist-service/metrics"
	"dsa-assist-service/models"
	"dsa-assist-service/ollama"
	"dsa-assist-service/prompt"
	"dsa-assist-service/sanitize"
	"dsa-assist-service/store"

	"github.com/apex/log"
)

// Validation errors. These are the only conditions a client sees as a genuine
// failure besides an unreadable catalog; inference failures degrade to the
// fallback response instead.
var (
	ErrLanguageRequired    = errors.New("language selector is required")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrInvalidIndex        = errors.New("problem index must be non-negative")
)

// Generator is the streaming inference dependency.
type Generator interface {
	Stream(ctx context.Context, prompt string) (<-chan ollama.Chunk, error)
}

// Service runs the assistance state machine. All state is request-scoped; the
// only shared resource is the injected single-slot response store.
type Service struct {
	cfg     *config.Config
	catalog catalog.Provider
	store   store.ResponseStore
	llm     Generator
}

// NewService wires the pipeline dependencies.
func NewService(cfg *config.Config, cat catalog.Provider, st store.ResponseStore, llm Generator) *Service {
	return &Service{
		cfg:     cfg,
		catalog: cat,
		store:   st,
		llm:     llm,
	}
}

// Result is the buffered response of the non-streaming variant.
type Result struct {
	Title           string          `json:"title"`
	Language        models.Language `json:"language"`
	LanguageDisplay string          `json:"languageDisplay"`
	Response        string          `json:"response"`
	FromCache       bool            `json:"fromCache"`
	Fallback        bool            `json:"fallback,omitempty"`
}

// Stream runs the pipeline and emits ordered events into the returned channel.
// The producer stops when ctx is cancelled (client disconnect); in-flight
// accumulation is not persisted in that case.
func (s *Service) Stream(ctx context.Context, req models.AssistRequest) <-chan models.StreamEvent {
	ch := make(chan models.StreamEvent, 16)

	go func() {
		defer close(ch)

		emit := func(ev models.StreamEvent) bool {
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		lang, problem, cached, err := s.resolve(ctx, req)
		if err != nil {
			metrics.AssistRequestsTotal.WithLabelValues("error").Inc()
			emit(models.StreamEvent{Name: models.EventError, Payload: models.ErrorPayload{Error: err.Error()}})
			return
		}

		if cached != nil {
			metrics.AssistRequestsTotal.WithLabelValues("cache_hit").Inc()
			if !emit(models.StreamEvent{Name: models.EventMetadata, Payload: metadataFor(problem, lang, true)}) {
				return
			}
			if !emit(models.StreamEvent{Name: models.EventData, Payload: models.DataPayload{Text: cached.Response}}) {
				return
			}
			emit(models.StreamEvent{Name: models.EventComplete, Payload: models.CompletePayload{Complete: true}})
			return
		}

		if !emit(models.StreamEvent{Name: models.EventMetadata, Payload: metadataFor(problem, lang, false)}) {
			return
		}

		text, usedFallback, err := s.generate(ctx, problem, lang, func(fragment string) bool {
			metrics.StreamFragmentsTotal.Inc()
			return emit(models.StreamEvent{Name: models.EventData, Payload: models.DataPayload{Text: fragment}})
		})
		if err != nil {
			// Cancelled mid-relay; no partial save.
			return
		}

		if usedFallback {
			metrics.AssistRequestsTotal.WithLabelValues("fallback").Inc()
			if !emit(models.StreamEvent{Name: models.EventData, Payload: models.DataPayload{Text: text, Fallback: true}}) {
				return
			}
		} else {
			metrics.AssistRequestsTotal.WithLabelValues("generated").Inc()
		}

		s.persist(problem, lang, text)
		emit(models.StreamEvent{Name: models.EventComplete, Payload: models.CompletePayload{Complete: true}})
	}()

	return ch
}

// Assist is the non-streaming variant: same cache/generate/fallback logic,
// buffered into one response, byte-identical to what the streaming variant
// would accumulate for the same request.
func (s *Service) Assist(ctx context.Context, req models.AssistRequest) (*Result, error) {
	lang, problem, cached, err := s.resolve(ctx, req)
	if err != nil {
		metrics.AssistRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if cached != nil {
		metrics.AssistRequestsTotal.WithLabelValues("cache_hit").Inc()
		return &Result{
			Title:           problem.Title,
			Language:        lang,
			LanguageDisplay: lang.Display(),
			Response:        cached.Response,
			FromCache:       true,
		}, nil
	}

	text, usedFallback, err := s.generate(ctx, problem, lang, nil)
	if err != nil {
		return nil, err
	}

	if usedFallback {
		metrics.AssistRequestsTotal.WithLabelValues("fallback").Inc()
	} else {
		metrics.AssistRequestsTotal.WithLabelValues("generated").Inc()
	}

	s.persist(problem, lang, text)
	return &Result{
		Title:           problem.Title,
		Language:        lang,
		LanguageDisplay: lang.Display(),
		Response:        text,
		Fallback:        usedFallback,
	}, nil
}

// resolve validates the request, loads the problem, and checks the cache.
func (s *Service) resolve(ctx context.Context, req models.AssistRequest) (models.Language, *models.Problem, *models.StoredResponse, error) {
	if req.Index < 0 {
		return "", nil, nil, ErrInvalidIndex
	}

	lang, err := s.resolveLanguage(req.Language)
	if err != nil {
		return "", nil, nil, err
	}

	problem, err := s.catalog.ProblemByIndex(ctx, req.Index)
	if err != nil {
		return "", nil, nil, err
	}

	var cached *models.StoredResponse
	if !req.Refresh {
		record, err := s.store.Load()
		switch {
		case err == nil && record.Matches(req.Index, lang):
			cached = record
		case err != nil && !errors.Is(err, store.ErrCacheMiss):
			// Cache reads are an optimization; a broken store must not fail
			// the request.
			log.Errorf("failed to load cached response: %v", err)
		}
	}

	return lang, problem, cached, nil
}

// resolveLanguage applies the configured validation policy. Strict rejects an
// absent or unsupported selector; lenient substitutes the configured default.
func (s *Service) resolveLanguage(raw string) (models.Language, error) {
	strict := s.cfg.LanguagePolicy == config.PolicyStrict

	if strings.TrimSpace(raw) == "" {
		if strict {
			return "", ErrLanguageRequired
		}
		return s.defaultLanguage(), nil
	}

	lang, ok := models.ParseLanguage(raw)
	if !ok {
		if strict {
			return "", fmt.Errorf("%w: %q (supported: %v)", ErrUnsupportedLanguage, raw, models.SupportedLanguages())
		}
		log.Warnf("unsupported language %q, defaulting to %s", raw, s.cfg.DefaultLanguage)
		return s.defaultLanguage(), nil
	}
	return lang, nil
}

// defaultLanguage returns the configured default, constrained to the supported
// set. Startup validates the value, but the service guards it anyway so an
// out-of-set default can never flow into prompts or cache records.
func (s *Service) defaultLanguage() models.Language {
	if lang, ok := models.ParseLanguage(s.cfg.DefaultLanguage); ok {
		return lang
	}
	log.Warnf("unsupported default language %q, using %s", s.cfg.DefaultLanguage, models.LanguagePython)
	return models.LanguagePython
}

// generate streams from the inference endpoint, forwarding each fragment to
// onFragment (when set) in arrival order and accumulating the full text. Any
// inference failure degrades to the deterministic fallback response; the
// returned error is non-nil only when ctx was cancelled mid-relay.
func (s *Service) generate(ctx context.Context, problem *models.Problem, lang models.Language, onFragment func(string) bool) (string, bool, error) {
	instruction := prompt.Build(problem, lang)

	start := time.Now()
	chunks, err := s.llm.Stream(ctx, instruction)
	if err != nil {
		log.Warnf("inference endpoint unavailable, using fallback: %v", err)
		return fallback.Generate(problem, lang), true, nil
	}

	var acc strings.Builder
	for chunk := range chunks {
		if chunk.Err != nil {
			log.Warnf("inference stream failed, using fallback: %v", chunk.Err)
			return fallback.Generate(problem, lang), true, nil
		}
		if chunk.Done {
			break
		}
		if onFragment != nil && !onFragment(chunk.Content) {
			return "", false, ctx.Err()
		}
		acc.WriteString(chunk.Content)
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	metrics.InferenceDurationSeconds.Observe(time.Since(start).Seconds())

	return sanitize.Sanitize(acc.String()), false, nil
}

// persist best-effort caches the final text. Failures are logged and counted,
// never surfaced: caching is an optimization, not a correctness requirement.
func (s *Service) persist(problem *models.Problem, lang models.Language, text string) {
	if err := s.store.Save(problem.Index, problem.Title, text, lang); err != nil {
		metrics.CacheWriteErrorsTotal.Inc()
		log.Errorf("failed to cache response: %v", err)
	}
}

func metadataFor(p *models.Problem, lang models.Language, fromCache bool) models.MetadataPayload {
	return models.MetadataPayload{
		Title:           p.Title,
		Language:        string(lang),
		LanguageDisplay: lang.Display(),
		FromCache:       fromCache,
	}
}
