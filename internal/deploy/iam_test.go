package deploy

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/KanoComputing/aws-tools/internal/policy"
)

type fakeIAM struct {
	versions []types.PolicyVersion

	listErr   error
	createErr error

	created []string // policy documents passed to CreatePolicyVersion
	deleted []string // version IDs passed to DeletePolicyVersion
}

func (f *fakeIAM) ListPolicyVersions(_ context.Context, _ *iam.ListPolicyVersionsInput, _ ...func(*iam.Options)) (*iam.ListPolicyVersionsOutput, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &iam.ListPolicyVersionsOutput{Versions: f.versions}, nil
}

func (f *fakeIAM) CreatePolicyVersion(_ context.Context, params *iam.CreatePolicyVersionInput, _ ...func(*iam.Options)) (*iam.CreatePolicyVersionOutput, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, aws.ToString(params.PolicyDocument))
	return &iam.CreatePolicyVersionOutput{}, nil
}

func (f *fakeIAM) DeletePolicyVersion(_ context.Context, params *iam.DeletePolicyVersionInput, _ ...func(*iam.Options)) (*iam.DeletePolicyVersionOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.VersionId))
	return &iam.DeletePolicyVersionOutput{}, nil
}

func version(id string, isDefault bool, age time.Duration) types.PolicyVersion {
	created := time.Now().Add(-age)
	return types.PolicyVersion{
		VersionId:        aws.String(id),
		IsDefaultVersion: isDefault,
		CreateDate:       &created,
	}
}

func testDocument() *policy.Document {
	return &policy.Document{
		Version: "2012-10-17",
		Statements: []policy.Statement{
			{
				Sid:      "Read",
				Effect:   policy.EffectAllow,
				Action:   policy.StringList{"s3:GetObject"},
				Resource: policy.StringList{"*"},
			},
		},
	}
}

const testARN = "arn:aws:iam::123456789012:policy/candidate"

func TestIAMDeployer_Deploy_UnderVersionLimit(t *testing.T) {
	client := &fakeIAM{
		versions: []types.PolicyVersion{
			version("v2", true, time.Hour),
			version("v1", false, 2*time.Hour),
		},
	}
	deployer := NewIAMDeployer(client, testARN, 0)

	if err := deployer.Deploy(context.Background(), testDocument()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.deleted) != 0 {
		t.Errorf("no eviction expected under the limit, deleted %v", client.deleted)
	}
	if len(client.created) != 1 {
		t.Fatalf("expected one created version, got %d", len(client.created))
	}
	if client.created[0] == "" {
		t.Error("created version has empty document")
	}
}

func TestIAMDeployer_Deploy_EvictsOldestNonDefault(t *testing.T) {
	client := &fakeIAM{
		versions: []types.PolicyVersion{
			version("v5", true, time.Hour),
			version("v4", false, 2*time.Hour),
			version("v3", false, 3*time.Hour),
			version("v2", false, 4*time.Hour),
			version("v1", false, 5*time.Hour), // oldest, must go
		},
	}
	deployer := NewIAMDeployer(client, testARN, 0)

	if err := deployer.Deploy(context.Background(), testDocument()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.deleted) != 1 || client.deleted[0] != "v1" {
		t.Errorf("expected eviction of v1, deleted %v", client.deleted)
	}
	if len(client.created) != 1 {
		t.Errorf("expected one created version, got %d", len(client.created))
	}
}

// The default version is the active candidate and must survive even
// when it is the oldest.
func TestIAMDeployer_Deploy_NeverEvictsDefault(t *testing.T) {
	client := &fakeIAM{
		versions: []types.PolicyVersion{
			version("v1", true, 5*time.Hour), // oldest but default
			version("v2", false, 4*time.Hour),
			version("v3", false, 3*time.Hour),
			version("v4", false, 2*time.Hour),
			version("v5", false, time.Hour),
		},
	}
	deployer := NewIAMDeployer(client, testARN, 0)

	if err := deployer.Deploy(context.Background(), testDocument()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.deleted) != 1 || client.deleted[0] != "v2" {
		t.Errorf("expected eviction of v2 (oldest non-default), deleted %v", client.deleted)
	}
}

func TestIAMDeployer_Deploy_Errors(t *testing.T) {
	t.Run("List Failure", func(t *testing.T) {
		client := &fakeIAM{listErr: fmt.Errorf("access denied")}
		deployer := NewIAMDeployer(client, testARN, 0)
		if err := deployer.Deploy(context.Background(), testDocument()); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("Create Failure", func(t *testing.T) {
		client := &fakeIAM{createErr: fmt.Errorf("throttled")}
		deployer := NewIAMDeployer(client, testARN, 0)
		if err := deployer.Deploy(context.Background(), testDocument()); err == nil {
			t.Error("expected error")
		}
	})
}

// A cancelled context during the settle wait must surface as an error,
// not as a silent success with an unpropagated policy.
func TestIAMDeployer_Deploy_CancelledDuringSettle(t *testing.T) {
	client := &fakeIAM{}
	deployer := NewIAMDeployer(client, testARN, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := deployer.Deploy(ctx, testDocument())
	if err == nil {
		t.Fatal("expected error")
	}
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
