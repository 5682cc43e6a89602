package models

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// ThreadURLTemplate links to the archive's monthly thread view. Individual
// messages have no stable anchor on the archive pages, so the thread view is
// the closest we can link to.
const ThreadURLTemplate = "https://lists.ubuntu.com/archives/kernel-team/%d-%s/thread.html"

// Category classifies a mailing list message.
type Category string

const (
	// NotPatch is noise on the mailing list, or a reply demoted during
	// patch set reclassification.
	NotPatch Category = "not-patch"
	// PatchCoverLetter is the introductory message of a patch series,
	// recognized by SRU template markers rather than an inline diff.
	PatchCoverLetter Category = "cover-letter"
	// PatchN is an actual patch submission.
	PatchN Category = "patch"
	// PatchAck is an ack reply to a contextual patch.
	PatchAck Category = "ack"
	// PatchNak is a nak reply to a contextual patch.
	PatchNak Category = "nak"
	// PatchApplied is a followup stating the patch was applied.
	PatchApplied Category = "applied"
)

// IsAnyOf reports whether the category is one of the given set.
func (c Category) IsAnyOf(set ...Category) bool {
	for _, other := range set {
		if c == other {
			return true
		}
	}
	return false
}

// Message is a simplified email representation. Identity is determined by
// MessageID alone; ordering is by Timestamp. Category is the only field that
// changes after construction, and only during patch set reclassification.
type Message struct {
	ID         string    `json:"id,omitempty"`
	PatchSetID string    `json:"patch_set_id,omitempty"`
	MessageID  string    `json:"message_id"`
	InReplyTo  string    `json:"in_reply_to,omitempty"`
	References []string  `json:"references,omitempty"`
	Subject    string    `json:"subject"`
	Sender     string    `json:"sender"`
	Body       string    `json:"body,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Category   Category  `json:"category"`
}

// Valid reports whether the message can participate in threading.
func (m *Message) Valid() bool {
	return m.MessageID != "" && !m.Timestamp.IsZero()
}

// ThreadURL returns the archive thread view covering this message's month.
func (m *Message) ThreadURL() string {
	return fmt.Sprintf(ThreadURLTemplate, m.Timestamp.Year(), m.Timestamp.Month().String())
}

// PatchName generates a filename-safe name for this patch as if it were
// produced by git format-patch. The message id is appended to protect
// against duplicate subjects. Returns "" when the subject is absent.
func (m *Message) PatchName() string {
	if m.Subject == "" {
		return ""
	}
	unsafe := m.Subject + "__" + m.MessageID
	var b strings.Builder
	b.Grow(len(unsafe))
	for _, r := range unsafe {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

// RenderPatch generates something resembling a .patch file.
func (m *Message) RenderPatch() string {
	return fmt.Sprintf("Date: %s\nFrom: %s\nSubject: %s\nMessage-Id: %s\n\n%s",
		m.Timestamp.Format(time.RFC1123Z), m.Sender, m.Subject, m.MessageID, m.Body)
}

// ShortSummary returns a machine readable one-liner in
// "[YYYY.MM] url subject" form.
func (m *Message) ShortSummary() string {
	return fmt.Sprintf("[%d.%02d] %s %s",
		m.Timestamp.Year(), int(m.Timestamp.Month()), m.ThreadURL(), m.Subject)
}

// PatchSetSummary is the stored view of one classified thread.
type PatchSetSummary struct {
	ID             string    `json:"id"`
	Subject        string    `json:"subject"`
	EpochMessageID string    `json:"epoch_message_id"`
	Owner          string    `json:"owner"`
	ThreadURL      string    `json:"thread_url"`
	SubmittedAt    time.Time `json:"submitted_at"`
	PatchCount     int       `json:"patch_count"`
	AckCount       int       `json:"ack_count"`
	NakCount       int       `json:"nak_count"`
	AppliedCount   int       `json:"applied_count"`
	Status         string    `json:"status"` // needs-acks, ready, applied, rejected
	UpdatedAt      time.Time `json:"updated_at"`
}

// SyncProgress tracks the progress of mailing list synchronization.
type SyncProgress struct {
	MonthsSynced      int        `json:"months_synced"`
	TotalMonths       int        `json:"total_months"`
	LatestMessageDate *time.Time `json:"latest_message_date,omitempty"`
	CurrentMonth      string     `json:"current_month"`
	IsSyncing         bool       `json:"is_syncing"`
	LastSyncedAt      *time.Time `json:"last_synced_at,omitempty"`
}
