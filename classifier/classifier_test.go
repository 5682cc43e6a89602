package classifier

import (
	"testing"
	"time"

	"github.com/kteam-analyzer/backend/models"
)

func msg(subject, messageID, body string) *models.Message {
	return &models.Message{
		MessageID: messageID,
		Subject:   subject,
		Body:      body,
		Timestamp: time.Date(2022, 11, 1, 9, 30, 27, 0, time.UTC),
	}
}

const coverLetterBody = `[Impact]
Products must undergo and pass SAR testing.

[Fix]
Add ACPI SAR table control to pass the testing.

[Test]
The unit is 0.5dBm.
`

const diffBody = `Signed-off-by: A Dev <a.dev@example.com>
---
 drivers/net/thing.c | 4 ++--
 1 file changed, 2 insertions(+), 2 deletions(-)

diff --git a/drivers/net/thing.c b/drivers/net/thing.c
--- a/drivers/net/thing.c
+++ b/drivers/net/thing.c
@@ -10,7 +10,7 @@ static int thing_init(void)
-	old line
+	new line
`

func TestCategorize(t *testing.T) {
	c := NewSimpleClassifier()

	tests := []struct {
		name string
		in   *models.Message
		want models.Category
	}{
		{"empty subject", msg("", "<1@x>", ""), models.NotPatch},
		{"plain chatter", msg("Meeting minutes", "<2@x>", "see you there"), models.NotPatch},
		{"applied prefix", msg("APPLIED: [PATCH] fix thing", "<3@x>", ""), models.PatchApplied},
		{"applied lowercase", msg("applied", "<4@x>", ""), models.PatchApplied},
		{"nak prefix", msg("NAK: wrong tree", "<5@x>", ""), models.PatchNak},
		{"nack variant", msg("nack: wrong approach", "<6@x>", ""), models.PatchNak},
		{"nac variant", msg("NAC k", "<7@x>", ""), models.PatchNak},
		{"ack prefix", msg("ACK: [PATCH 1/1] good", "<8@x>", ""), models.PatchAck},
		{"subject token alone", msg("[PATCH] Fix bug", "<p1>", ""), models.PatchN},
		{"sru token", msg("[SRU][PATCH v2] enable mtune", "<9@x>", ""), models.PatchN},
		{"pull request", msg("pull request for focal", "<10@x>", ""), models.PatchN},
		{"unbracketed token", msg("UBUNTU: config change", "<11@x>", ""), models.PatchN},
		{"re prefix misses gate", msg("Re: [PATCH] Fix bug", "<12@x>", "thanks, applied cleanly"), models.NotPatch},
		{"git-send-email id rescues", msg("Fix bug", "<166-1-git-send-email-a@x>", ""), models.PatchN},
		{"diff rescues", msg("fix for the thing", "<13@x>", diffBody), models.PatchN},
		{"markers rescue and promote", msg("enable SAR tables", "<14@x>", coverLetterBody), models.PatchCoverLetter},
		{"cover letter with gate", msg("[SRU][PATCH 0/3] enable thing", "<15@x>", coverLetterBody), models.PatchCoverLetter},
		{"single marker stays patch", msg("[PATCH] one marker", "<16@x>", "[Impact]\nsomething"), models.PatchN},
		{"diff plus markers is cover letter", msg("[PATCH 0/2] intro", "<17@x>", coverLetterBody + diffBody), models.PatchCoverLetter},
	}

	for _, tc := range tests {
		if got := c.Categorize(tc.in); got != tc.want {
			t.Errorf("%s: Categorize() = %q; want %q", tc.name, got, tc.want)
		}
	}
}

func TestCategorizeIsIdempotent(t *testing.T) {
	c := NewSimpleClassifier()
	m := msg("[PATCH 1/2] do the thing", "<p1@x>", diffBody)

	first := c.Categorize(m)
	m.Category = first
	second := c.Categorize(m)

	if first != second {
		t.Errorf("Categorize() not idempotent: %q then %q", first, second)
	}
}

func TestCategorizeNilMessage(t *testing.T) {
	c := NewSimpleClassifier()
	if got := c.Categorize(nil); got != models.NotPatch {
		t.Errorf("Categorize(nil) = %q; want %q", got, models.NotPatch)
	}
}

func TestAffectedKernelsUnimplemented(t *testing.T) {
	c := NewSimpleClassifier()
	if got := c.AffectedKernels(msg("[PATCH] x", "<1@x>", "")); got != nil {
		t.Errorf("AffectedKernels() = %v; want nil", got)
	}
}

func TestCountDiffHunks(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty", "", 0},
		{"prose only", "no diff here, just words", 0},
		{"single hunk", diffBody, 1},
		{"hunk without file header", "@@ -1,2 +1,2 @@\n-a\n+b", 0},
		{"two hunks", diffBody + "@@ -20,3 +20,4 @@ other\n+added\n", 2},
		{"malformed header", "+++ b/x\n@@ -x,y +1,2 @@\n", 0},
	}

	for _, tc := range tests {
		if got := countDiffHunks(tc.body); got != tc.want {
			t.Errorf("%s: countDiffHunks() = %d; want %d", tc.name, got, tc.want)
		}
	}
}

func TestHasTemplateMarkers(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"empty", "", false},
		{"one marker", "[Impact]\nbad things", false},
		{"two markers", "[Impact]\nbad\n[Fix]\ngood", true},
		{"test plan pair", "[Test Plan]\nsteps\n[Where problems could occur]\nnowhere", true},
		{"all five", coverLetterBody + "[Test Plan]\n[Where problems could occur]\n", true},
	}

	for _, tc := range tests {
		if got := hasTemplateMarkers(tc.body); got != tc.want {
			t.Errorf("%s: hasTemplateMarkers() = %t; want %t", tc.name, got, tc.want)
		}
	}
}
