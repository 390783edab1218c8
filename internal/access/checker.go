package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lockmaster/lockmaster-server/internal/models"
	"github.com/lockmaster/lockmaster-server/internal/storage"
)

// Checker runs the full access decision for a user and lock
type Checker struct {
	store storage.Store
}

// NewChecker creates an access checker backed by the store
func NewChecker(store storage.Store) *Checker {
	return &Checker{store: store}
}

// Request describes an access decision to evaluate
type Request struct {
	UserID       uuid.UUID
	LockID       uuid.UUID
	CredentialID *uuid.UUID
	At           time.Time
}

// Result is the outcome of a full access check
type Result struct {
	Decision

	// MatchedScheduleID identifies the schedule that granted access
	MatchedScheduleID *uuid.UUID `json:"matchedScheduleId,omitempty"`

	// CredentialStatus is the effective credential status at the instant,
	// when a credential was part of the request
	CredentialStatus models.CredentialStatus `json:"credentialStatus,omitempty"`
}

// Check evaluates whether the user has access to the lock at the given
// instant, optionally through a specific credential. Multiple schedules
// are combined with OR semantics: any granting schedule grants access.
func (c *Checker) Check(ctx context.Context, req Request) (*Result, error) {
	if req.At.IsZero() {
		req.At = time.Now()
	}

	user, err := c.store.GetUser(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &Result{Decision: denied("unknown user")}, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if user.Status != models.UserStatusActive {
		return &Result{Decision: denied(fmt.Sprintf("user is %s", user.Status))}, nil
	}

	if _, err := c.store.GetLock(ctx, req.LockID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &Result{Decision: denied("unknown lock")}, nil
		}
		return nil, fmt.Errorf("get lock: %w", err)
	}

	result := &Result{}

	if req.CredentialID != nil {
		credential, err := c.store.GetCredential(ctx, *req.CredentialID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return &Result{Decision: denied("unknown credential")}, nil
			}
			return nil, fmt.Errorf("get credential: %w", err)
		}

		if credential.UserID != req.UserID || credential.LockID != req.LockID {
			return &Result{Decision: denied("credential is not bound to this user and lock")}, nil
		}

		result.CredentialStatus = EffectiveStatus(credential, req.At)
		if result.CredentialStatus != models.CredentialStatusActive {
			result.Decision = denied(fmt.Sprintf("credential is %s", result.CredentialStatus))
			return result, nil
		}

		if req.At.Before(credential.ValidFrom) {
			result.Decision = denied("credential is not yet valid")
			return result, nil
		}
	}

	schedules, err := c.store.ListSchedulesForUserLock(ctx, req.UserID, req.LockID)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}

	if len(schedules) == 0 {
		result.Decision = denied("no access schedule configured")
		return result, nil
	}

	var lastReason string
	for _, schedule := range schedules {
		// Schedules pinned to a specific credential only apply to it
		if schedule.CredentialID != nil &&
			(req.CredentialID == nil || *schedule.CredentialID != *req.CredentialID) {
			continue
		}

		decision := EvaluateSchedule(schedule, req.At)
		if decision.Granted {
			id := schedule.ID
			result.Decision = decision
			result.MatchedScheduleID = &id
			return result, nil
		}
		lastReason = decision.Reason
	}

	if lastReason == "" {
		lastReason = "no applicable schedule"
	}
	result.Decision = denied(lastReason)
	return result, nil
}

// RecordUse bumps the usage counters after a granted unlock
func (c *Checker) RecordUse(ctx context.Context, result *Result, credentialID *uuid.UUID, at time.Time) error {
	if result.MatchedScheduleID != nil {
		if err := c.store.IncrementScheduleUse(ctx, *result.MatchedScheduleID); err != nil {
			return fmt.Errorf("increment schedule use: %w", err)
		}
	}

	if credentialID != nil {
		if err := c.store.IncrementCredentialUsage(ctx, *credentialID, at); err != nil {
			return fmt.Errorf("increment credential usage: %w", err)
		}
	}

	return nil
}
