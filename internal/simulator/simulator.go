// Package simulator turns a decision scenario into a narrative: it builds the prompt,
// calls the provider within the retry budget, rejects answers that are too short and
// applies the failure policy.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/BerylCAtieno/forked/internal/metrics"
	"github.com/BerylCAtieno/forked/internal/models"
	"github.com/BerylCAtieno/forked/internal/provider"
	"github.com/BerylCAtieno/forked/internal/scenario"
)

var ErrOutputTooShort = errors.New("response too short")

// Policy decides what a failed simulation turns into.
type Policy string

const (
	PolicySurfaceError Policy = "surface_error"
	PolicyFallback     Policy = "return_fallback_payload"
)

func (p Policy) Valid() bool {
	return p == PolicySurfaceError || p == PolicyFallback
}

type Options struct {
	Temperature     float32
	MaxOutputTokens int

	// MaxAttempts is the total number of provider calls per simulation.
	MaxAttempts int
	RetryWait   time.Duration

	// MinOutputLength is counted in characters after trimming whitespace.
	MinOutputLength int
	OnFailure       Policy
}

func DefaultOptions() Options {
	return Options{
		Temperature:     0.7,
		MaxOutputTokens: 1500,
		MaxAttempts:     1,
		RetryWait:       time.Second,
		MinOutputLength: 100,
		OnFailure:       PolicyFallback,
	}
}

type Result struct {
	RawOutput string
	Fallback  bool
	Attempts  int

	// Cause is the failure that was masked by the fallback narrative.
	Cause error
}

type Simulator struct {
	provider provider.Provider
	opts     Options
	logger   *zap.Logger
	sleep    func(context.Context, time.Duration) error
}

func New(p provider.Provider, opts Options, logger *zap.Logger) *Simulator {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.OnFailure == "" {
		opts.OnFailure = PolicyFallback
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		provider: p,
		opts:     opts,
		logger:   logger,
		sleep:    sleepContext,
	}
}

func (s *Simulator) Options() Options { return s.opts }

// Simulate runs one scenario. Missing fields are reported as models.ErrMissingFields
// without touching the provider. Under PolicyFallback provider and output failures
// produce a fallback Result and a nil error.
func (s *Simulator) Simulate(ctx context.Context, req models.GenerationRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	prompt := scenario.BuildPrompt(req)
	s.logger.Debug("sending simulation prompt",
		zap.String("provider", s.provider.Name()),
		zap.String("model", s.provider.Model()),
		zap.Int("prompt_chars", len(prompt)))

	text, attempts, err := s.generate(ctx, provider.Request{
		Prompt:          prompt,
		Temperature:     s.opts.Temperature,
		MaxOutputTokens: s.opts.MaxOutputTokens,
	})
	if err == nil {
		text = strings.TrimSpace(text)
		if n := utf8.RuneCountInString(text); n < s.opts.MinOutputLength {
			metrics.IncShortOutput()
			err = fmt.Errorf("%w: %d characters, want at least %d", ErrOutputTooShort, n, s.opts.MinOutputLength)
		}
	}

	if err != nil {
		if s.opts.OnFailure == PolicyFallback {
			s.logger.Warn("serving fallback narrative", zap.Int("attempts", attempts), zap.Error(err))
			metrics.IncSimulation("fallback")
			return &Result{
				RawOutput: scenario.FallbackNarrative(),
				Fallback:  true,
				Attempts:  attempts,
				Cause:     err,
			}, nil
		}
		metrics.IncSimulation("failed")
		return nil, err
	}

	metrics.IncSimulation("generated")
	return &Result{RawOutput: text, Attempts: attempts}, nil
}

// Ping sends the fixed connectivity prompt once, with provider defaults and no retry.
func (s *Simulator) Ping(ctx context.Context) (string, error) {
	return s.call(ctx, provider.Request{Prompt: scenario.TestPrompt})
}

func (s *Simulator) generate(ctx context.Context, req provider.Request) (string, int, error) {
	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			metrics.IncProviderRetry(s.provider.Name())
			s.logger.Warn("retrying provider call",
				zap.Int("attempt", attempt),
				zap.Duration("wait", s.opts.RetryWait))
			if err := s.sleep(ctx, s.opts.RetryWait); err != nil {
				return "", attempt - 1, errors.Join(lastErr, err)
			}
		}

		text, err := s.call(ctx, req)
		if err == nil {
			return text, attempt, nil
		}
		lastErr = err
		s.logger.Error("provider call failed",
			zap.String("provider", s.provider.Name()),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.opts.MaxAttempts),
			zap.Error(err))
	}
	return "", s.opts.MaxAttempts, lastErr
}

func (s *Simulator) call(ctx context.Context, req provider.Request) (string, error) {
	start := time.Now()
	text, err := s.provider.Generate(ctx, req)

	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.ObserveProviderCall(s.provider.Name(), s.provider.Model(), result, time.Since(start))

	return text, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
