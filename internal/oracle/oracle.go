package oracle

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/KanoComputing/aws-tools/internal/ddmin"
	"github.com/KanoComputing/aws-tools/internal/policy"
)

// Deployer makes a document the active version of the target policy
// resource and only returns once the caller-configured settle duration
// has passed, so a subsequent test run sees the new version.
type Deployer interface {
	Deploy(ctx context.Context, doc *policy.Document) error
}

// Runner executes the external test workload and returns its raw exit
// status. Exit 0 means the workload succeeded under the currently
// deployed policy.
type Runner interface {
	Run(ctx context.Context) (int, error)
}

// Adapter turns "deploy candidate, run workload, read exit status"
// into the single Evaluate call the reduction engine understands.
//
// Every Evaluate mutates the active version of the shared target
// policy. Concurrent calls against the same target would race on which
// candidate is live when the workload runs, so the adapter must only
// ever be driven sequentially.
type Adapter struct {
	doc      *policy.Document
	deployer Deployer
	runner   Runner
	pinned   policy.PartSet
}

var _ ddmin.Evaluator = (*Adapter)(nil)

type AdapterOption func(*Adapter)

// WithPinned unions the given part IDs into every candidate before
// reconstruction. Pinned parts are excluded from the search sequence,
// so without this the reconstructed candidates would be missing them.
func WithPinned(pinned policy.PartSet) AdapterOption {
	return func(a *Adapter) {
		a.pinned = pinned
	}
}

func New(doc *policy.Document, deployer Deployer, runner Runner, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		doc:      doc,
		deployer: deployer,
		runner:   runner,
		pinned:   policy.PartSet{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Evaluate reports whether the subset (plus pinned parts) is enough
// for the workload to succeed.
//
// A subset reconstructing to zero statements is insufficient a priori:
// a policy with no statements grants nothing, and probing it would
// waste a full deploy-settle-run round-trip.
func (a *Adapter) Evaluate(ctx context.Context, subset []string) (ddmin.Verdict, error) {
	kept := policy.NewPartSet(subset...).Union(a.pinned)
	candidate := policy.Reconstruct(a.doc, kept)

	if len(candidate.Statements) == 0 {
		log.Debug().Msg("candidate reconstructs to an empty document, skipping oracle")
		return ddmin.Insufficient, nil
	}

	if err := a.deployer.Deploy(ctx, candidate); err != nil {
		return ddmin.Insufficient, fmt.Errorf("deploying candidate policy: %w", err)
	}

	exitCode, err := a.runner.Run(ctx)
	if err != nil {
		return ddmin.Insufficient, fmt.Errorf("running test oracle: %w", err)
	}

	// Exit 0 means the workload passed under the candidate, which for
	// this search is the signal to keep shrinking. Do not confuse this
	// with "pass means keep everything".
	if exitCode == 0 {
		return ddmin.Sufficient, nil
	}
	return ddmin.Insufficient, nil
}
