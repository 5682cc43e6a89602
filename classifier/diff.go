package classifier

import (
	"bufio"
	"regexp"
	"strings"
)

// reHunkHeader matches a unified diff hunk header such as "@@ -12,4 +12,6 @@".
var reHunkHeader = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+\d+(?:,\d+)? @@`)

// countDiffHunks scans a message body for embedded unified diff hunks.
// Bodies are prose with diffs pasted in, so this detects rather than parses:
// a hunk counts when its header follows a "+++" file line. Anything that
// fails to scan is simply not a diff.
func countDiffHunks(body string) int {
	if body == "" {
		return 0
	}

	var hunks int
	sawFileHeader := false

	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "+++ "):
			sawFileHeader = true
		case sawFileHeader && reHunkHeader.MatchString(line):
			hunks++
		}
	}
	// Scanner errors (e.g. pathological line lengths) just end the scan;
	// whatever hunks were seen before that still count.
	return hunks
}
