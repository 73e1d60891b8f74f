package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/rs/zerolog/log"

	"github.com/KanoComputing/aws-tools/internal/policy"
)

// maxPolicyVersions is the IAM limit on stored versions per managed
// policy. When a deploy would exceed it, the oldest non-default
// version is evicted first.
const maxPolicyVersions = 5

// API is the slice of the IAM client the deployer needs.
type API interface {
	ListPolicyVersions(ctx context.Context, params *iam.ListPolicyVersionsInput, optFns ...func(*iam.Options)) (*iam.ListPolicyVersionsOutput, error)
	CreatePolicyVersion(ctx context.Context, params *iam.CreatePolicyVersionInput, optFns ...func(*iam.Options)) (*iam.CreatePolicyVersionOutput, error)
	DeletePolicyVersion(ctx context.Context, params *iam.DeletePolicyVersionInput, optFns ...func(*iam.Options)) (*iam.DeletePolicyVersionOutput, error)
}

// IAMDeployer publishes candidate documents as the default version of
// a managed policy.
type IAMDeployer struct {
	client API
	arn    string
	settle time.Duration
}

// NewIAMDeployer returns a deployer for the policy identified by arn.
// settle is how long Deploy blocks after activating a new version
// before returning; IAM propagation to the tested principal is
// eventually consistent, and the right wait is an empirical property
// of the environment, so it is a parameter and not a constant.
func NewIAMDeployer(client API, arn string, settle time.Duration) *IAMDeployer {
	return &IAMDeployer{
		client: client,
		arn:    arn,
		settle: settle,
	}
}

func (d *IAMDeployer) Deploy(ctx context.Context, doc *policy.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding candidate document: %w", err)
	}

	if err := d.evictOldestVersion(ctx); err != nil {
		return err
	}

	_, err = d.client.CreatePolicyVersion(ctx, &iam.CreatePolicyVersionInput{
		PolicyArn:      aws.String(d.arn),
		PolicyDocument: aws.String(string(body)),
		SetAsDefault:   true,
	})
	if err != nil {
		return fmt.Errorf("creating policy version for '%s': %w", d.arn, err)
	}

	log.Debug().
		Str("policy", d.arn).
		Dur("settle", d.settle).
		Msg("new version active, waiting for propagation")
	return d.wait(ctx)
}

// evictOldestVersion deletes the oldest non-default version when the
// policy is at the version retention limit. The default version is
// never deleted: it is the currently-active candidate.
func (d *IAMDeployer) evictOldestVersion(ctx context.Context) error {
	out, err := d.client.ListPolicyVersions(ctx, &iam.ListPolicyVersionsInput{
		PolicyArn: aws.String(d.arn),
	})
	if err != nil {
		return fmt.Errorf("listing versions of '%s': %w", d.arn, err)
	}
	if len(out.Versions) < maxPolicyVersions {
		return nil
	}

	var oldest *types.PolicyVersion
	for i := range out.Versions {
		v := &out.Versions[i]
		if v.IsDefaultVersion {
			continue
		}
		if oldest == nil || beforePtr(v.CreateDate, oldest.CreateDate) {
			oldest = v
		}
	}
	if oldest == nil {
		return fmt.Errorf("policy '%s' is at the version limit with no deletable version", d.arn)
	}

	_, err = d.client.DeletePolicyVersion(ctx, &iam.DeletePolicyVersionInput{
		PolicyArn: aws.String(d.arn),
		VersionId: oldest.VersionId,
	})
	if err != nil {
		return fmt.Errorf("deleting version '%s' of '%s': %w", aws.ToString(oldest.VersionId), d.arn, err)
	}
	return nil
}

// wait blocks for the settle duration. A cancelled context surfaces as
// an error: the target policy is left holding an arbitrary candidate,
// so the search must abort rather than continue.
func (d *IAMDeployer) wait(ctx context.Context) error {
	if d.settle <= 0 {
		return nil
	}
	timer := time.NewTimer(d.settle)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func beforePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a != nil
	}
	return a.Before(*b)
}
