package db

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/mediadesk/mediadesk-backend/pkg/errors"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/mediadesk/mediadesk-backend/pkg/config"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBaseWait = 50 * time.Millisecond
)

// RetryPolicy bounds how transient database failures are retried.
type RetryPolicy struct {
	Attempts uint64
	BaseWait time.Duration
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts == 0 {
		p.Attempts = defaultRetryAttempts
	}
	if p.BaseWait <= 0 {
		p.BaseWait = defaultRetryBaseWait
	}
	return p
}

// WithTxRetry runs fn in a transaction, retrying with capped exponential
// backoff when the failure is transient. Coded business errors (conflict,
// validation, not-found) are surfaced immediately; retrying cannot fix them.
func (c *Client) WithTxRetry(ctx context.Context, policy RetryPolicy, fn func(tx *gorm.DB) error) error {
	policy = policy.normalized()
	backoff := retry.WithMaxRetries(policy.Attempts, retry.NewExponential(policy.BaseWait))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.WithTx(ctx, fn); err != nil {
			if pkgerrors.As(err) != nil && !pkgerrors.IsRetryable(err) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable")
}

// RetryPolicyFromConfig maps the configured attempt/backoff bounds onto a
// policy. Out-of-range values fall back to the defaults.
func RetryPolicyFromConfig(cfg config.DBConfig) RetryPolicy {
	policy := RetryPolicy{BaseWait: cfg.RetryBaseWait}
	if cfg.RetryAttempts > 0 {
		policy.Attempts = uint64(cfg.RetryAttempts)
	}
	return policy.normalized()
}

// TxRetrier is the transaction runner the binaries hand to services: every
// transaction goes through WithTxRetry under one shared policy.
type TxRetrier struct {
	client *Client
	policy RetryPolicy
}

// NewTxRetrier builds a retrying transaction runner over the client.
func NewTxRetrier(client *Client, policy RetryPolicy) (*TxRetrier, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &TxRetrier{client: client, policy: policy.normalized()}, nil
}

func (r *TxRetrier) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.client.WithTxRetry(ctx, r.policy, fn)
}
