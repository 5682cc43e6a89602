// Package report serializes filtered patch sets to disk and aggregates
// review statistics.
package report

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kteam-analyzer/backend/models"
	"github.com/kteam-analyzer/backend/patchset"
)

var ansiColor = regexp.MustCompile(`\x1b\[\d+m`)

// SavePatchSet writes a patch set to outDir as if produced by git
// format-patch: a directory named after the epoch patch containing the
// cover letter, one .patch file per patch, a series file listing them, and
// a summary.txt with reply stats. Returns the directory written.
func SavePatchSet(outDir string, ps *patchset.PatchSet, now time.Time) (string, error) {
	epoch := ps.EpochPatch()
	if epoch == nil {
		return "", fmt.Errorf("patch set has no epoch patch")
	}

	patchDir := filepath.Join(outDir, epoch.PatchName())
	if err := os.MkdirAll(patchDir, 0755); err != nil {
		return "", fmt.Errorf("create patch dir: %w", err)
	}

	coverPath := filepath.Join(patchDir, "cover_letter")
	if err := os.WriteFile(coverPath, []byte(epoch.RenderPatch()), 0644); err != nil {
		return "", fmt.Errorf("write cover letter: %w", err)
	}

	// The series file lists patch files in apply order, one per line.
	var series strings.Builder
	for _, patch := range ps.Patches() {
		patchPath := filepath.Join(patchDir, patch.PatchName()+".patch")
		if err := os.WriteFile(patchPath, []byte(patch.RenderPatch()), 0644); err != nil {
			return "", fmt.Errorf("write patch: %w", err)
		}
		if patch.Category == models.PatchN {
			series.WriteString(patchPath)
			series.WriteString("\n")
		}
	}
	seriesPath := filepath.Join(patchDir, "series")
	if err := os.WriteFile(seriesPath, []byte(series.String()), 0644); err != nil {
		return "", fmt.Errorf("write series: %w", err)
	}

	ageDays := int(now.Sub(epoch.Timestamp).Hours() / 24)
	summary := fmt.Sprintf("%s\nrfc822msgid: %s\nowner: %s\nlink: %s\nage: %d days\nsize: %d patches\nacks: %d\nnaks: %d\napplied: %t\n",
		epoch.Subject, epoch.MessageID, epoch.Sender, epoch.ThreadURL(),
		ageDays, len(ps.Patches()), len(ps.Acks()), len(ps.Naks()), len(ps.Applieds()) > 0)
	summaryPath := filepath.Join(patchDir, "summary.txt")
	if err := os.WriteFile(summaryPath, []byte(summary), 0644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}

	return patchDir, nil
}

// AnalyzePatches runs the external patch-style checker over every .patch
// file in patchDir, collecting its output (ANSI colors stripped) into
// check-patch.txt. The checker exits non-zero when it finds problems, which
// is output, not failure.
func AnalyzePatches(patchDir, checkpatchPath string) error {
	pattern := filepath.Join(patchDir, "*.patch")
	patches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	resultsPath := filepath.Join(patchDir, "check-patch.txt")
	results, err := os.Create(resultsPath)
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}
	defer results.Close()

	for _, patchPath := range patches {
		out, _ := exec.Command(checkpatchPath, patchPath).CombinedOutput()
		if _, err := results.Write(ansiColor.ReplaceAll(out, nil)); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
	}
	return nil
}
