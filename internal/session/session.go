package session

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// API is the slice of the STS client the session helper needs.
type API interface {
	GetSessionToken(ctx context.Context, params *sts.GetSessionTokenInput, optFns ...func(*sts.Options)) (*sts.GetSessionTokenOutput, error)
}

// Credentials is a temporary MFA-backed credential set.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expires         time.Time
}

// Acquire exchanges an MFA code for temporary session credentials.
func Acquire(ctx context.Context, client API, serial, code string, duration time.Duration) (*Credentials, error) {
	if serial == "" {
		return nil, fmt.Errorf("MFA device serial is required")
	}
	if code == "" {
		return nil, fmt.Errorf("MFA code is required")
	}

	out, err := client.GetSessionToken(ctx, &sts.GetSessionTokenInput{
		SerialNumber:    aws.String(serial),
		TokenCode:       aws.String(code),
		DurationSeconds: aws.Int32(int32(duration.Seconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("getting session token: %w", err)
	}
	if out.Credentials == nil {
		return nil, fmt.Errorf("STS returned no credentials")
	}

	creds := &Credentials{
		AccessKeyID:     aws.ToString(out.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(out.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(out.Credentials.SessionToken),
	}
	if out.Credentials.Expiration != nil {
		creds.Expires = *out.Credentials.Expiration
	}
	return creds, nil
}

// ExportLines renders the credentials as shell export statements,
// suitable for eval'ing in the calling shell.
func (c *Credentials) ExportLines() []string {
	return []string{
		fmt.Sprintf("export AWS_ACCESS_KEY_ID=%s", c.AccessKeyID),
		fmt.Sprintf("export AWS_SECRET_ACCESS_KEY=%s", c.SecretAccessKey),
		fmt.Sprintf("export AWS_SESSION_TOKEN=%s", c.SessionToken),
	}
}
