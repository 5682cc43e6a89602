package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kteam-analyzer/backend/classifier"
	"github.com/kteam-analyzer/backend/models"
	"github.com/kteam-analyzer/backend/patchset"
)

func mkMsg(day, minute int, subject, messageID, inReplyTo, sender string) *models.Message {
	return &models.Message{
		MessageID: messageID,
		InReplyTo: inReplyTo,
		Subject:   subject,
		Sender:    sender,
		Body:      "body of " + messageID,
		Timestamp: time.Date(2022, 11, day, 9, minute, 0, 0, time.UTC),
	}
}

func mkSet(t *testing.T, messages ...*models.Message) *patchset.PatchSet {
	t.Helper()
	return patchset.New(classifier.NewSimpleClassifier(), messages)
}

func TestSavePatchSet(t *testing.T) {
	ps := mkSet(t,
		mkMsg(1, 0, "[SRU][PATCH 1/1] fix the widget", "<p1@x>", "", "Dev One <dev.one@example.com>"),
		mkMsg(1, 5, "ACK: [SRU][PATCH 1/1] fix the widget", "<a1@x>", "<p1@x>", "Dev Two <dev.two@example.com>"),
	)

	outDir := t.TempDir()
	now := time.Date(2022, 11, 8, 9, 0, 0, 0, time.UTC)
	patchDir, err := SavePatchSet(outDir, ps, now)
	if err != nil {
		t.Fatalf("SavePatchSet() error: %v", err)
	}
	if filepath.Base(patchDir) != ps.EpochPatch().PatchName() {
		t.Errorf("patch dir = %q; want named after the epoch patch", patchDir)
	}

	cover, err := os.ReadFile(filepath.Join(patchDir, "cover_letter"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(cover), "Subject: [SRU][PATCH 1/1] fix the widget") {
		t.Errorf("cover letter = %q; missing rendered headers", cover)
	}

	series, err := os.ReadFile(filepath.Join(patchDir, "series"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(series), "\n"), "\n")
	if len(lines) != 1 || !strings.HasSuffix(lines[0], ".patch") {
		t.Errorf("series = %q; want one .patch path", series)
	}
	if _, err := os.Stat(lines[0]); err != nil {
		t.Errorf("series entry %q does not exist: %v", lines[0], err)
	}

	summary, err := os.ReadFile(filepath.Join(patchDir, "summary.txt"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"rfc822msgid: <p1@x>",
		"owner: Dev One <dev.one@example.com>",
		"age: 7 days",
		"size: 1 patches",
		"acks: 1",
		"naks: 0",
		"applied: false",
	} {
		if !strings.Contains(string(summary), want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestSavePatchSetWithoutEpochFails(t *testing.T) {
	ps := mkSet(t, mkMsg(1, 0, "weekly meeting", "<m1@x>", "", "Someone"))
	if _, err := SavePatchSet(t.TempDir(), ps, time.Now()); err == nil {
		t.Error("SavePatchSet() without an epoch patch should fail")
	}
}

func TestAnalyzePatchesStripsColors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "fix.patch"), []byte("diff"), 0644); err != nil {
		t.Fatal(err)
	}

	// A stand-in checker that exits non-zero and colors its output, like the
	// real one does when it flags problems.
	checker := filepath.Join(dir, "checker.sh")
	script := "#!/bin/sh\nprintf '\\033[31mERROR: trailing whitespace\\033[0m\\n'\nexit 1\n"
	if err := os.WriteFile(checker, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}

	if err := AnalyzePatches(dir, checker); err != nil {
		t.Fatalf("AnalyzePatches() error: %v", err)
	}

	results, err := os.ReadFile(filepath.Join(dir, "check-patch.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(results), "ERROR: trailing whitespace") {
		t.Errorf("results = %q; missing checker output", results)
	}
	if strings.Contains(string(results), "\x1b[") {
		t.Errorf("results = %q; ANSI escapes not stripped", results)
	}
}

func TestGenerateStats(t *testing.T) {
	now := time.Date(2022, 11, 10, 9, 0, 0, 0, time.UTC)

	applied := mkSet(t,
		mkMsg(1, 0, "[PATCH] one", "<p1@x>", "", "Dev One"),
		mkMsg(2, 0, "ACK: [PATCH] one", "<a1@x>", "<p1@x>", "Dev Two"),
		mkMsg(3, 0, "APPLIED: [PATCH] one", "<ap1@x>", "<p1@x>", "Dev Three"),
	)
	pending := mkSet(t,
		mkMsg(5, 0, "[PATCH] two", "<p2@x>", "", "Dev One"),
		mkMsg(6, 0, "ACK: [PATCH] two", "<a2@x>", "<p2@x>", "Dev Two"),
	)
	noise := mkSet(t, mkMsg(7, 0, "weekly meeting", "<m1@x>", "", "Dev Four"))

	stats := Generate([]*patchset.PatchSet{applied, pending, noise}, now)
	if stats == nil {
		t.Fatal("Generate() = nil; want stats")
	}
	if stats.TotalPatchSets != 2 {
		t.Errorf("TotalPatchSets = %d; want 2 (epochless set skipped)", stats.TotalPatchSets)
	}
	if stats.TotalApplied != 1 {
		t.Errorf("TotalApplied = %d; want 1", stats.TotalApplied)
	}
	// Ages are 9 and 5 days; even count takes the mean of the middle pair.
	if stats.MedianAgeDays != 7 {
		t.Errorf("MedianAgeDays = %v; want 7", stats.MedianAgeDays)
	}
	if stats.MedianSeriesSize != 2.5 {
		t.Errorf("MedianSeriesSize = %v; want 2.5", stats.MedianSeriesSize)
	}
	if stats.TopSubmitter != (NameCount{Name: "Dev One", Count: 2}) {
		t.Errorf("TopSubmitter = %+v; want Dev One x2", stats.TopSubmitter)
	}
	if stats.TopAcker != (NameCount{Name: "Dev Two", Count: 2}) {
		t.Errorf("TopAcker = %+v; want Dev Two x2", stats.TopAcker)
	}
	if stats.TopApplier != (NameCount{Name: "Dev Three", Count: 1}) {
		t.Errorf("TopApplier = %+v; want Dev Three x1", stats.TopApplier)
	}
	if stats.TopNaker != (NameCount{}) {
		t.Errorf("TopNaker = %+v; want zero value", stats.TopNaker)
	}
	if stats.MedianDaysToFirstAck != 1 {
		t.Errorf("MedianDaysToFirstAck = %v; want 1", stats.MedianDaysToFirstAck)
	}
	if stats.MedianDaysToApplied != 2 {
		t.Errorf("MedianDaysToApplied = %v; want 2", stats.MedianDaysToApplied)
	}
}

func TestGenerateStatsNoEpochs(t *testing.T) {
	noise := mkSet(t, mkMsg(7, 0, "weekly meeting", "<m1@x>", "", "Dev Four"))
	if stats := Generate([]*patchset.PatchSet{noise}, time.Now()); stats != nil {
		t.Errorf("Generate() = %+v; want nil", stats)
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{3}, 3},
		{"odd count", []float64{5, 1, 3}, 3},
		{"even count", []float64{4, 1, 3, 2}, 2.5},
	}
	for _, tc := range tests {
		if got := median(tc.in); got != tc.want {
			t.Errorf("%s: median(%v) = %v; want %v", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestTopSenderTieBreaksAlphabetically(t *testing.T) {
	got := topSender(map[string]int{"zed": 2, "amy": 2, "bob": 1})
	if got != (NameCount{Name: "amy", Count: 2}) {
		t.Errorf("topSender() = %+v; want amy x2", got)
	}
}
