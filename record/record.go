// Package record defines the common types for vendor identity resolution.
package record

import (
	"context"
	"errors"
	"time"
)

// Common errors returned by resolution packages.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrRateLimited     = errors.New("rate limited")
	ErrNoCredentials   = errors.New("no credentials configured")
)

// Status is the terminal outcome of resolving one vendor.
type Status string

// Terminal status values written to the result store.
const (
	StatusFound       Status = "found"
	StatusNeedsReview Status = "needs_review"
	StatusNotFound    Status = "not_found"
)

// Terminal reports whether s marks a vendor as already processed.
func Terminal(s Status) bool {
	switch s {
	case StatusFound, StatusNeedsReview, StatusNotFound:
		return true
	default:
		return false
	}
}

// Verified is a three-valued flag: a profile can be confirmed, rejected,
// or left undecided when verification was inconclusive or skipped.
type Verified string

// Verified values written to the result store.
const (
	VerifiedTrue    Verified = "true"
	VerifiedFalse   Verified = "false"
	VerifiedUnknown Verified = "unknown"
)

// VendorRecord is one business row from the record store. It is read-only
// for the duration of a resolution attempt.
//
//nolint:govet // fieldalignment: intentional layout for readability
type VendorRecord struct {
	RowID      int    // stable row identifier in the store
	Name       string // raw business name as entered
	City       string
	Category   string
	Website    string // vendor's own declared website, optional
	ListingURL string // business-listing page URL, optional

	NormalizedName string // derived at load time
}

// ResolutionResult is the persisted outcome for one vendor. Created once
// per vendor per run and written exactly once.
//
//nolint:govet // fieldalignment: intentional layout for readability
type ResolutionResult struct {
	ProfileURL string // resolved profile URL, empty when not found
	Confidence int    // 0-100
	Status     Status
	Followers  *int // nil when no follower count was extracted
	Verified   Verified
	CheckedAt  time.Time
}

// NotFound returns the result written for vendors with no credible profile.
func NotFound() ResolutionResult {
	return ResolutionResult{
		Status:    StatusNotFound,
		Verified:  VerifiedUnknown,
		CheckedAt: time.Now().UTC(),
	}
}

// Store is the tabular record store the pipeline reads pending vendors
// from and writes results to.
type Store interface {
	// Pending returns vendors whose result status column is still empty.
	Pending(ctx context.Context) ([]VendorRecord, error)

	// WriteResult persists one vendor's result immediately, touching only
	// the result columns of the addressed row.
	WriteResult(ctx context.Context, rowID int, res ResolutionResult) error
}
