package archie

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/oraraka-deko/archie/internal/logger"
)

// Extractor returns the visible text of the page at url.
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Generator turns a prompt into the model's reply.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Archie answers questions about the configured sources. It holds no
// per-query state and is safe for concurrent use.
type Archie struct {
	extractor Extractor
	generator Generator
	sources   []Source
	parallel  bool
	log       *logger.Logger
}

// New builds the extractor and generation client described by cfg.
func New(ctx context.Context, cfg Config) (*Archie, error) {
	hc := cfg.httpClient()
	cfg.HTTPClient = hc
	gen, err := NewGenerationClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log := logger.OrNop(cfg.Logger)
	return &Archie{
		extractor: NewWebExtractor(hc, log),
		generator: gen,
		sources:   cfg.sources(),
		parallel:  cfg.ParallelFetch,
		log:       log,
	}, nil
}

// Sources returns the pages consulted for every query, in prompt order.
func (a *Archie) Sources() []Source {
	return append([]Source(nil), a.sources...)
}

// Answer fetches every source, composes the grounding prompt and returns the
// generated reply. The first fetch failure aborts the query unchanged and the
// generator is not called.
func (a *Archie) Answer(ctx context.Context, query string) (string, error) {
	var (
		texts []string
		err   error
	)
	if a.parallel {
		texts, err = a.fetchParallel(ctx)
	} else {
		texts, err = a.fetchSequential(ctx)
	}
	if err != nil {
		a.log.Debug("source fetch failed", "error", err)
		return "", err
	}

	prompt := buildPrompt(query, a.sources, texts)
	a.log.Debug("prompt composed", "sources", len(a.sources), "prompt_chars", len(prompt))
	return a.generator.Generate(ctx, prompt)
}

func (a *Archie) fetchSequential(ctx context.Context) ([]string, error) {
	texts := make([]string, 0, len(a.sources))
	for _, src := range a.sources {
		text, err := a.extractor.Extract(ctx, src.URL)
		if err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, nil
}

// fetchParallel keeps results in source order; the first failure to occur
// cancels the remaining fetches and is returned.
func (a *Archie) fetchParallel(ctx context.Context) ([]string, error) {
	texts := make([]string, len(a.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range a.sources {
		g.Go(func() error {
			text, err := a.extractor.Extract(gctx, src.URL)
			if err != nil {
				return err
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return texts, nil
}
