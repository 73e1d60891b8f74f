package oracle

import (
	"context"
	"fmt"
	"testing"

	"github.com/KanoComputing/aws-tools/internal/ddmin"
	"github.com/KanoComputing/aws-tools/internal/policy"
)

type fakeDeployer struct {
	deployed []*policy.Document
	err      error
}

func (f *fakeDeployer) Deploy(_ context.Context, doc *policy.Document) error {
	if f.err != nil {
		return f.err
	}
	f.deployed = append(f.deployed, doc)
	return nil
}

type fakeRunner struct {
	exitCode int
	err      error
	runs     int
}

func (f *fakeRunner) Run(_ context.Context) (int, error) {
	f.runs++
	return f.exitCode, f.err
}

func testDocument() *policy.Document {
	return &policy.Document{
		Version: "2012-10-17",
		Statements: []policy.Statement{
			{
				Sid:      "Read",
				Effect:   policy.EffectAllow,
				Action:   policy.StringList{"s3:GetObject"},
				Resource: policy.StringList{"arn:aws:s3:::data/*"},
			},
		},
	}
}

func TestAdapter_Evaluate_ExitCodeMapping(t *testing.T) {
	tests := []struct {
		name     string
		exitCode int
		want     ddmin.Verdict
	}{
		{name: "Zero Means Sufficient", exitCode: 0, want: ddmin.Sufficient},
		{name: "One Means Insufficient", exitCode: 1, want: ddmin.Insufficient},
		{name: "Other Nonzero Means Insufficient", exitCode: 42, want: ddmin.Insufficient},
	}

	subset := []string{
		"Read/action/s3:GetObject",
		"Read/resource/arn:aws:s3:::data/*",
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deployer := &fakeDeployer{}
			runner := &fakeRunner{exitCode: tt.exitCode}
			adapter := New(testDocument(), deployer, runner)

			got, err := adapter.Evaluate(context.Background(), subset)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
			if len(deployer.deployed) != 1 {
				t.Errorf("expected one deployment, got %d", len(deployer.deployed))
			}
			if runner.runs != 1 {
				t.Errorf("expected one oracle run, got %d", runner.runs)
			}
		})
	}
}

// An empty reconstruction must be answered locally: no deploy, no run.
func TestAdapter_Evaluate_EmptySubset(t *testing.T) {
	deployer := &fakeDeployer{}
	runner := &fakeRunner{exitCode: 0}
	adapter := New(testDocument(), deployer, runner)

	got, err := adapter.Evaluate(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != ddmin.Insufficient {
		t.Errorf("empty subset must be insufficient, got %s", got)
	}
	if len(deployer.deployed) != 0 {
		t.Error("empty subset must not be deployed")
	}
	if runner.runs != 0 {
		t.Error("empty subset must not invoke the oracle")
	}
}

// A subset whose statements all collapse is as empty as no subset.
func TestAdapter_Evaluate_CollapsedStatement(t *testing.T) {
	deployer := &fakeDeployer{}
	runner := &fakeRunner{exitCode: 0}
	adapter := New(testDocument(), deployer, runner)

	// action kept, resource dropped: statement collapses
	got, err := adapter.Evaluate(context.Background(), []string{"Read/action/s3:GetObject"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != ddmin.Insufficient {
		t.Errorf("collapsed document must be insufficient, got %s", got)
	}
	if len(deployer.deployed) != 0 || runner.runs != 0 {
		t.Error("collapsed document must not reach AWS")
	}
}

func TestAdapter_Evaluate_PinnedPartsAlwaysKept(t *testing.T) {
	deployer := &fakeDeployer{}
	runner := &fakeRunner{exitCode: 0}
	pinned := policy.NewPartSet("Read/resource/arn:aws:s3:::data/*")
	adapter := New(testDocument(), deployer, runner, WithPinned(pinned))

	// only the action in the subset; the pinned resource completes it
	got, err := adapter.Evaluate(context.Background(), []string{"Read/action/s3:GetObject"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != ddmin.Sufficient {
		t.Errorf("expected sufficient, got %s", got)
	}
	if len(deployer.deployed) != 1 {
		t.Fatalf("expected one deployment, got %d", len(deployer.deployed))
	}
	stmt := deployer.deployed[0].Statements[0]
	if len(stmt.Resource) != 1 || stmt.Resource[0] != "arn:aws:s3:::data/*" {
		t.Errorf("pinned resource missing from deployed candidate: %+v", stmt)
	}
}

func TestAdapter_Evaluate_ErrorsPropagate(t *testing.T) {
	subset := []string{
		"Read/action/s3:GetObject",
		"Read/resource/arn:aws:s3:::data/*",
	}

	t.Run("Deploy Failure", func(t *testing.T) {
		deployer := &fakeDeployer{err: fmt.Errorf("throttled")}
		runner := &fakeRunner{}
		adapter := New(testDocument(), deployer, runner)

		if _, err := adapter.Evaluate(context.Background(), subset); err == nil {
			t.Error("expected deploy error to propagate")
		}
		if runner.runs != 0 {
			t.Error("oracle must not run after a failed deploy")
		}
	})

	t.Run("Runner Failure", func(t *testing.T) {
		deployer := &fakeDeployer{}
		runner := &fakeRunner{err: fmt.Errorf("executable not found")}
		adapter := New(testDocument(), deployer, runner)

		if _, err := adapter.Evaluate(context.Background(), subset); err == nil {
			t.Error("expected runner error to propagate")
		}
	})
}
