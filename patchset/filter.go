package patchset

import (
	"fmt"
	"time"

	"github.com/kteam-analyzer/backend/models"
)

// FilterMode selects which patch sets a Filter keeps.
type FilterMode string

const (
	// ModeAll keeps every patch set with an epoch inside the window.
	ModeAll FilterMode = "all"
	// ModeNeedsAcks keeps unrejected patch sets still short on acks.
	ModeNeedsAcks FilterMode = "needs-acks"
	// ModeReadyToApply keeps unrejected patch sets with enough acks.
	ModeReadyToApply FilterMode = "ready"
	// ModeApplied keeps patch sets that have been applied.
	ModeApplied FilterMode = "applied"
	// ModeRejected keeps unapplied patch sets with at least one nak.
	ModeRejected FilterMode = "rejected"
)

// ParseFilterMode converts a user-supplied mode string.
func ParseFilterMode(s string) (FilterMode, error) {
	switch FilterMode(s) {
	case ModeAll, ModeNeedsAcks, ModeReadyToApply, ModeApplied, ModeRejected:
		return FilterMode(s), nil
	}
	return "", fmt.Errorf("unknown filter mode %q", s)
}

// Filter is a predicate over fully classified patch sets.
type Filter struct {
	Mode         FilterMode
	RequiredAcks int
	// After is the cutoff: patch sets whose epoch predates it are rejected.
	After time.Time
}

// Matches reports whether the patch set passes the filter. Every mode first
// requires a resolvable epoch submitted at or after the cutoff.
func (f Filter) Matches(ps *PatchSet) bool {
	epoch := ps.EpochPatch()
	if epoch == nil || epoch.Timestamp.Before(f.After) {
		return false
	}

	switch f.Mode {
	case ModeAll:
		return true
	case ModeNeedsAcks:
		return ps.CountOf(models.PatchNak) == 0 && ps.CountOf(models.PatchAck) < f.RequiredAcks
	case ModeReadyToApply:
		return ps.CountOf(models.PatchNak) == 0 && ps.CountOf(models.PatchAck) >= f.RequiredAcks
	case ModeApplied:
		return ps.CountOf(models.PatchApplied) > 0
	case ModeRejected:
		return ps.CountOf(models.PatchApplied) == 0 && ps.CountOf(models.PatchNak) > 0
	}
	return false
}
