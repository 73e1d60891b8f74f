package ddmin

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Verdict is the oracle's answer for a candidate subset. The polarity
// is deliberately inverted from classic delta debugging: we shrink a
// subset that still SUCCEEDS, so "the workload passed" is Sufficient
// and triggers further reduction.
type Verdict int

const (
	Insufficient Verdict = iota
	Sufficient
)

func (v Verdict) String() string {
	if v == Sufficient {
		return "sufficient"
	}
	return "insufficient"
}

// Evaluator decides whether a candidate subset is sufficient. It is
// the only capability the engine needs; implementations may be slow
// and side-effecting (the real one deploys a policy and runs a
// workload), which is why the engine is strictly sequential.
type Evaluator interface {
	Evaluate(ctx context.Context, subset []string) (Verdict, error)
}

// Trial describes one completed oracle evaluation, surfaced so
// operators can diagnose a flaky oracle after the fact.
type Trial struct {
	Seq         int
	Granularity int
	Subset      []string
	Verdict     Verdict
	Duration    time.Duration
}

type Observer func(Trial)

type Options struct {
	Observer Observer
}

type Option func(*Options)

func WithObserver(fn Observer) Option {
	return func(o *Options) {
		o.Observer = fn
	}
}

// Minimize runs the ddmin search over the given ordered identifiers
// and returns a 1-minimal subset for which the evaluator still reports
// Sufficient. It assumes the full input set is sufficient; callers
// should verify that up front if they want a clear error instead of
// getting the full set back unchanged.
//
// Results are not memoized. The oracle is not guaranteed to be a pure
// function of the subset (propagation timing varies between trials),
// so an identical candidate may legitimately be evaluated twice.
//
// Any evaluator error aborts the whole search: a partial result from
// an interrupted search cannot be trusted to be even locally minimal.
func Minimize(ctx context.Context, ids []string, eval Evaluator, opts ...Option) ([]string, error) {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}

	run := &search{eval: eval, observer: options.Observer}

	current := ids
	n := 2

	for len(current) >= 2 {
		if n > len(current) {
			n = len(current)
		}

		chunks := split(current, n)

		// A chunk alone sufficing is the strongest reduction this
		// round: jump to it and start over at the coarsest split.
		next, err := run.firstSufficient(ctx, n, chunks)
		if err != nil {
			return nil, err
		}
		if next != nil {
			log.Debug().Int("size", len(next)).Msg("reduced to single chunk")
			current = next
			n = 2
			continue
		}

		// Otherwise try removing one chunk at a time.
		complements := make([][]string, len(chunks))
		for i := range chunks {
			complements[i] = without(current, chunks, i)
		}
		next, err = run.firstSufficient(ctx, n, complements)
		if err != nil {
			return nil, err
		}
		if next != nil {
			log.Debug().Int("size", len(next)).Msg("removed one chunk")
			current = next
			n--
			if n < 2 {
				n = 2
			}
			continue
		}

		if n >= len(current) {
			break // finest granularity exhausted: 1-minimal
		}
		n *= 2
		if n > len(current) {
			n = len(current)
		}
	}

	log.Info().
		Int("initial", len(ids)).
		Int("final", len(current)).
		Int("trials", run.trials).
		Msg("search converged")
	return current, nil
}

type search struct {
	eval     Evaluator
	observer Observer
	trials   int
}

func (s *search) firstSufficient(ctx context.Context, granularity int, candidates [][]string) ([]string, error) {
	for _, candidate := range candidates {
		verdict, err := s.try(ctx, granularity, candidate)
		if err != nil {
			return nil, err
		}
		if verdict == Sufficient {
			return candidate, nil
		}
	}
	return nil, nil
}

func (s *search) try(ctx context.Context, granularity int, subset []string) (Verdict, error) {
	start := time.Now()
	verdict, err := s.eval.Evaluate(ctx, subset)
	if err != nil {
		return verdict, err
	}

	s.trials++
	trial := Trial{
		Seq:         s.trials,
		Granularity: granularity,
		Subset:      subset,
		Verdict:     verdict,
		Duration:    time.Since(start),
	}

	log.Debug().
		Int("trial", trial.Seq).
		Int("granularity", granularity).
		Int("size", len(subset)).
		Stringer("verdict", verdict).
		Dur("took", trial.Duration).
		Msg("evaluated candidate")

	if s.observer != nil {
		s.observer(trial)
	}
	return verdict, nil
}

// split partitions ids into n contiguous near-equal chunks; the last
// chunk absorbs the remainder. n must not exceed len(ids), so no chunk
// is ever empty.
func split(ids []string, n int) [][]string {
	chunks := make([][]string, 0, n)
	size := len(ids) / n
	offset := 0
	for i := 0; i < n; i++ {
		end := offset + size
		if i == n-1 {
			end = len(ids)
		}
		chunks = append(chunks, ids[offset:end])
		offset = end
	}
	return chunks
}

// without returns ids with the idx-th chunk removed, preserving order.
func without(ids []string, chunks [][]string, idx int) []string {
	out := make([]string, 0, len(ids)-len(chunks[idx]))
	for i, chunk := range chunks {
		if i == idx {
			continue
		}
		out = append(out, chunk...)
	}
	return out
}
