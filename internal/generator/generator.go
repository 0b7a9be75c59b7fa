package generator

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/raaihank/passforge/internal/random"
	"github.com/raaihank/passforge/internal/rules"
)

// Generator produces random passwords that satisfy a rule set
type Generator struct {
	source *random.Source
	config Config
	logger *zap.Logger
}

// Option customises a Generator
type Option func(*Generator)

// WithSource replaces the crypto/rand backed source
func WithSource(src *random.Source) Option {
	return func(g *Generator) {
		if src != nil {
			g.source = src
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithConfig sets batch size and worker count
func WithConfig(cfg Config) Option {
	return func(g *Generator) {
		g.config = cfg
	}
}

// New creates a generator
func New(opts ...Option) *Generator {
	g := &Generator{
		source: random.Default(),
		config: Config{BatchSize: DefaultBatchSize, Workers: 1},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.config.BatchSize <= 0 {
		g.config.BatchSize = DefaultBatchSize
	}
	if g.config.Workers <= 0 {
		g.config.Workers = 1
	}
	return g
}

// BatchSize returns the configured default batch size
func (g *Generator) BatchSize() int {
	return g.config.BatchSize
}

// Generate draws one password. Every enabled class contributes at least one
// character, the rest is filled from the union pool and the result is
// shuffled so the guaranteed characters carry no positional signal.
func (g *Generator) Generate(r rules.RuleSet) (string, error) {
	r = r.Normalize()
	charset := rules.Resolve(r)

	length, err := g.source.IntRange(r.MinLength, r.MaxLength)
	if err != nil {
		return "", &GenerationFailure{Op: "choose length", Err: err}
	}

	password := make([]rune, 0, length)
	for _, required := range charset.Required {
		if len(password) >= length {
			break
		}
		ch, err := g.source.Pick([]rune(required.Chars))
		if err != nil {
			return "", &GenerationFailure{Op: "draw " + required.Class.String(), Err: err}
		}
		password = append(password, ch)
	}

	pool := []rune(charset.Pool)
	for len(password) < length {
		ch, err := g.source.Pick(pool)
		if err != nil {
			return "", &GenerationFailure{Op: "draw filler", Err: err}
		}
		password = append(password, ch)
	}

	if err := g.source.Shuffle(password); err != nil {
		return "", &GenerationFailure{Op: "shuffle", Err: err}
	}

	return string(password), nil
}

// GenerateBatch draws count independent passwords. With more than one
// worker the draws run concurrently; results keep no particular order
// relation to the draw sequence. A count of zero or less uses the
// configured batch size.
func (g *Generator) GenerateBatch(ctx context.Context, r rules.RuleSet, count int) ([]string, error) {
	if count <= 0 {
		count = g.config.BatchSize
	}

	workers := g.config.Workers
	if workers > count {
		workers = count
	}

	passwords := make([]string, count)
	jobs := make(chan int)
	errs := make(chan error, workers)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				pw, err := g.Generate(r)
				if err != nil {
					errs <- err
					return
				}
				passwords[i] = pw
			}
		}()
	}

	var firstErr error
	func() {
		defer close(jobs)
		for i := 0; i < count; i++ {
			select {
			case <-ctx.Done():
				firstErr = ctx.Err()
				return
			case err := <-errs:
				firstErr = err
				return
			case jobs <- i:
			}
		}
	}()

	wg.Wait()
	close(errs)

	if firstErr == nil {
		firstErr = <-errs
	}
	if firstErr != nil {
		g.logger.Error("Batch generation failed",
			zap.Int("requested", count),
			zap.Error(firstErr))
		return nil, firstErr
	}

	g.logger.Debug("Batch generated",
		zap.Int("count", count),
		zap.Int("workers", workers),
		zap.Int("min_length", r.MinLength),
		zap.Int("max_length", r.MaxLength))

	return passwords, nil
}
