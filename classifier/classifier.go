// Package classifier assigns a category to individual mailing list messages.
//
// Emails are difficult to characterize. There are rules but not everyone
// follows them, so a best-effort heuristic pass is all we can do here. A
// single message's classification is also inherently ambiguous: a reply that
// drops the "Re:" prefix looks exactly like a fresh patch. The patchset
// package corrects those cases with full thread context.
package classifier

import (
	"regexp"
	"strings"

	"github.com/kteam-analyzer/backend/models"
)

// rePatch matches subjects that open (after an optional bracket) with one of
// the patch submission tokens used on the list.
var rePatch = regexp.MustCompile(`(?i)^\[?(patch|sru|ubuntu|pull)`)

// gitSendEmailMarker appears in Message-IDs generated by git send-email.
const gitSendEmailMarker = "git-send-email"

// templateMarkers are the SRU template section headers. Cover letters carry
// these even when they have no inline diff.
var templateMarkers = []string{
	"[Impact]",
	"[Fix]",
	"[Test]",
	"[Test Plan]",
	"[Where problems could occur]",
}

// MessageClassifier is the capability used to categorize messages.
type MessageClassifier interface {
	// Categorize returns the category for a single message. It must be a
	// pure function of the message's subject, message id, and body.
	Categorize(m *models.Message) models.Category

	// AffectedKernels returns the kernel handles a patch touches.
	// No implementation exists yet; callers must tolerate nil.
	AffectedKernels(m *models.Message) []string
}

// SimpleClassifier is a regex/keyword based MessageClassifier.
type SimpleClassifier struct{}

// NewSimpleClassifier returns a SimpleClassifier.
func NewSimpleClassifier() *SimpleClassifier {
	return &SimpleClassifier{}
}

// Categorize applies an ordered decision list over the subject, message id,
// and body. Subject prefixes win first, then the patch signals.
func (c *SimpleClassifier) Categorize(m *models.Message) models.Category {
	if m == nil || m.Subject == "" {
		return models.NotPatch
	}

	subject := strings.ToLower(m.Subject)
	switch {
	case strings.HasPrefix(subject, "applied"):
		return models.PatchApplied
	// NAC/NAK/NACK come in many flavors
	case strings.HasPrefix(subject, "nak"), strings.HasPrefix(subject, "nac"):
		return models.PatchNak
	case strings.HasPrefix(subject, "ack"):
		return models.PatchAck
	}

	// Any one of these signals marks the message as a patch: a subject
	// carrying a submission token, a git-send-email generated message id,
	// an inline unified diff, or enough SRU template markers.
	isPatch := rePatch.MatchString(m.Subject) ||
		strings.Contains(m.MessageID, gitSendEmailMarker) ||
		countDiffHunks(m.Body) > 0 ||
		hasTemplateMarkers(m.Body)
	if !isPatch {
		return models.NotPatch
	}

	// The marker test decides cover letter status no matter which patch
	// signal fired; a cover letter may well quote a diff too.
	if hasTemplateMarkers(m.Body) {
		return models.PatchCoverLetter
	}
	return models.PatchN
}

// AffectedKernels is not implemented yet.
func (c *SimpleClassifier) AffectedKernels(m *models.Message) []string {
	return nil
}

// hasTemplateMarkers reports whether the body contains at least two SRU
// template section headers.
func hasTemplateMarkers(body string) bool {
	found := 0
	for _, marker := range templateMarkers {
		if strings.Contains(body, marker) {
			found++
			if found >= 2 {
				return true
			}
		}
	}
	return false
}
