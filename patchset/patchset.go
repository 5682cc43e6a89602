// Package patchset encapsulates a complete patch set: one email thread plus
// the context-aware reclassification that single-message heuristics cannot
// provide.
package patchset

import (
	"github.com/kteam-analyzer/backend/models"
)

// Classifier is the single-message categorization capability consumed here.
type Classifier interface {
	Categorize(m *models.Message) models.Category
}

// PatchSet owns one thread of messages and their categories. It is the only
// component that mutates a message's category after construction, and each
// message belongs to exactly one PatchSet, so no locking is needed.
type PatchSet struct {
	classifier Classifier
	thread     []*models.Message // chronological

	// views are derived from current categories and recomputed after every
	// reclassification, never carried across one.
	views *categoryViews
}

type categoryViews struct {
	epoch      *models.Message
	byCategory map[models.Category][]*models.Message
}

// New builds a PatchSet from a chronologically ordered thread and runs one
// reclassification pass.
func New(classifier Classifier, thread []*models.Message) *PatchSet {
	ps := &PatchSet{classifier: classifier, thread: thread}
	ps.Reclassify()
	return ps
}

// Reclassify assigns every message its local category, then corrects
// categories that are structurally impossible given the thread shape.
//
// The structural rules pivot on the epoch patch. A "patch" that replies to
// anything other than the epoch is really a reply that kept a patch-shaped
// subject, and an ack/nak/applied whose parent is not a patch is not a
// review signal. Both are demoted to NotPatch. The pass runs once, in
// chronological order, with the epoch held fixed; parent lookups are one hop
// only.
func (ps *PatchSet) Reclassify() {
	for _, m := range ps.thread {
		m.Category = ps.classifier.Categorize(m)
	}
	ps.invalidate()

	epoch := ps.EpochPatch()
	if epoch == nil {
		// A thread that does not start with a patch or cover letter
		// cannot be structurally validated.
		return
	}

	byID := make(map[string]*models.Message, len(ps.thread))
	for _, m := range ps.thread {
		byID[m.MessageID] = m
	}

	for _, m := range ps.thread {
		if m == epoch {
			continue
		}
		switch m.Category {
		case models.NotPatch:
			// Re-derive in case anything changed; idempotent in practice.
			m.Category = ps.classifier.Categorize(m)
		case models.PatchCoverLetter:
			// The epoch already claimed the cover letter role. A second
			// cover-letter-shaped message is assumed legitimate, e.g. a
			// cross-posted duplicate, and is left alone.
		case models.PatchN:
			if m.InReplyTo != "" && m.InReplyTo != epoch.MessageID {
				m.Category = models.NotPatch
			}
		case models.PatchAck, models.PatchNak, models.PatchApplied:
			if m.InReplyTo == "" {
				continue
			}
			parent, ok := byID[m.InReplyTo]
			if !ok {
				// Parent is outside the window; nothing to validate against.
				continue
			}
			if !parent.Category.IsAnyOf(models.PatchCoverLetter, models.PatchN) {
				m.Category = models.NotPatch
			}
		}
	}
	ps.invalidate()
}

func (ps *PatchSet) invalidate() {
	ps.views = nil
}

func (ps *PatchSet) compute() *categoryViews {
	if ps.views != nil {
		return ps.views
	}
	v := &categoryViews{byCategory: make(map[models.Category][]*models.Message)}
	for _, m := range ps.thread {
		v.byCategory[m.Category] = append(v.byCategory[m.Category], m)
	}
	// The epoch is the earliest cover letter or, lacking one, the earliest
	// patch. The thread is already chronological.
	if letters := v.byCategory[models.PatchCoverLetter]; len(letters) > 0 {
		v.epoch = letters[0]
	} else if patches := v.byCategory[models.PatchN]; len(patches) > 0 {
		v.epoch = patches[0]
	}
	ps.views = v
	return v
}

// Messages returns the full thread in chronological order.
func (ps *PatchSet) Messages() []*models.Message {
	return ps.thread
}

// Len returns the number of messages in the thread.
func (ps *PatchSet) Len() int {
	return len(ps.thread)
}

// EpochPatch returns the thread's root patch: its cover letter, or if it has
// none, its earliest patch. Nil when the thread holds no patch at all.
func (ps *PatchSet) EpochPatch() *models.Message {
	return ps.compute().epoch
}

// Patches returns the thread's patch submissions, chronological, cover
// letter excluded.
func (ps *PatchSet) Patches() []*models.Message {
	return ps.compute().byCategory[models.PatchN]
}

// CoverLetters returns the thread's cover-letter-shaped messages.
func (ps *PatchSet) CoverLetters() []*models.Message {
	return ps.compute().byCategory[models.PatchCoverLetter]
}

// Acks returns the thread's acks, chronological.
func (ps *PatchSet) Acks() []*models.Message {
	return ps.compute().byCategory[models.PatchAck]
}

// Naks returns the thread's naks, chronological.
func (ps *PatchSet) Naks() []*models.Message {
	return ps.compute().byCategory[models.PatchNak]
}

// Applieds returns the thread's applied notices, chronological.
func (ps *PatchSet) Applieds() []*models.Message {
	return ps.compute().byCategory[models.PatchApplied]
}

// NotPatches returns the thread's noise, chronological.
func (ps *PatchSet) NotPatches() []*models.Message {
	return ps.compute().byCategory[models.NotPatch]
}

// CountOf returns how many messages currently hold the given category.
func (ps *PatchSet) CountOf(category models.Category) int {
	return len(ps.compute().byCategory[category])
}

// ReviewStatus summarizes where the patch set sits in the review pipeline.
// Returns "" when there is no epoch patch to review.
func (ps *PatchSet) ReviewStatus(requiredAcks int) string {
	if ps.EpochPatch() == nil {
		return ""
	}
	switch {
	case ps.CountOf(models.PatchApplied) > 0:
		return StatusApplied
	case ps.CountOf(models.PatchNak) > 0:
		return StatusRejected
	case ps.CountOf(models.PatchAck) >= requiredAcks:
		return StatusReady
	default:
		return StatusNeedsAcks
	}
}

// Review pipeline statuses as stored and served.
const (
	StatusNeedsAcks = "needs-acks"
	StatusReady     = "ready"
	StatusApplied   = "applied"
	StatusRejected  = "rejected"
)
