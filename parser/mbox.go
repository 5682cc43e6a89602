package parser

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kteam-analyzer/backend/models"
)

// MboxParser handles parsing mbox format files. The archive's monthly text
// files can be parsed as mbox, so this covers both.
type MboxParser struct {
	dataDir string
}

// NewMboxParser creates a new mbox parser rooted at dataDir.
func NewMboxParser(dataDir string) *MboxParser {
	os.MkdirAll(dataDir, 0755)
	return &MboxParser{
		dataDir: dataDir,
	}
}

// ParseMboxFile parses a single mbox file into messages. Mail missing a
// Message-Id, Subject, or parseable Date is dropped, never reported as an
// error; degraded input degrades the output, not the process.
func (mp *MboxParser) ParseMboxFile(filePath string) ([]*models.Message, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open mbox file: %w", err)
	}
	defer file.Close()

	var messages []*models.Message
	var raw *rawMail

	flush := func() {
		if raw == nil {
			return
		}
		if msg := raw.toMessage(); msg != nil {
			messages = append(messages, msg)
		}
		raw = nil
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		// mbox format: "From " at line start opens a new message
		if strings.HasPrefix(line, "From ") {
			flush()
			raw = newRawMail()
			continue
		}
		if raw == nil {
			continue
		}
		raw.addLine(line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading mbox file: %w", err)
	}

	return messages, nil
}

// ListCacheFiles returns all monthly cache files in the data directory,
// sorted so months are processed in order.
func (mp *MboxParser) ListCacheFiles() ([]string, error) {
	entries, err := os.ReadDir(mp.dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".mail_cache") {
			files = append(files, filepath.Join(mp.dataDir, entry.Name()))
		}
	}
	sort.Strings(files)

	return files, nil
}

// ParseFiles parses the given mbox files, skipping any that fail to read.
func (mp *MboxParser) ParseFiles(paths []string) []*models.Message {
	var allMessages []*models.Message
	for _, filePath := range paths {
		messages, err := mp.ParseMboxFile(filePath)
		if err != nil {
			log.Printf("Error parsing %s: %v", filePath, err)
			continue
		}
		allMessages = append(allMessages, messages...)
	}
	return allMessages
}

// rawMail accumulates one message's headers and body during the scan.
type rawMail struct {
	headers    map[string]string
	lastHeader string
	inBody     bool
	body       strings.Builder
}

func newRawMail() *rawMail {
	return &rawMail{headers: make(map[string]string)}
}

func (r *rawMail) addLine(line string) {
	if r.inBody {
		r.body.WriteString(line)
		r.body.WriteString("\n")
		return
	}

	// Blank line separates headers from body
	if strings.TrimSpace(line) == "" {
		r.inBody = true
		return
	}

	// Folded header continuation (References folds almost always)
	if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && r.lastHeader != "" {
		r.headers[r.lastHeader] += " " + strings.TrimSpace(line)
		return
	}

	if name, value, ok := strings.Cut(line, ":"); ok {
		key := strings.ToLower(strings.TrimSpace(name))
		r.headers[key] = strings.TrimSpace(value)
		r.lastHeader = key
	}
}

// toMessage converts the raw mail to a Message, or nil when a required
// header is missing or unparseable.
func (r *rawMail) toMessage() *models.Message {
	messageID := r.headers["message-id"]
	subject := r.headers["subject"]
	timestamp, ok := ParseMailDate(r.headers["date"])
	if messageID == "" || subject == "" || !ok {
		log.Printf("Dropping malformed message: message_id=%q date=%q", messageID, r.headers["date"])
		return nil
	}

	return &models.Message{
		MessageID:  messageID,
		InReplyTo:  r.headers["in-reply-to"],
		References: ParseReferences(r.headers["references"]),
		Subject:    NormalizeSubject(subject),
		Sender:     DemangleEmail(r.headers["from"], false),
		Body:       DemangleEmail(strings.TrimRight(r.body.String(), "\n"), true),
		Timestamp:  timestamp,
		Category:   models.NotPatch,
	}
}

// mailDateFormats are the two date shapes seen in the archive: fully RFC
// 2822 compliant, and the same minus the optional weekday.
var mailDateFormats = []string{
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
}

// ParseMailDate parses a Date header. The archive doesn't stick to one
// standard so a couple of formats are tried; a trailing parenthetical
// timezone comment is stripped first.
func ParseMailDate(date string) (time.Time, bool) {
	if date == "" {
		return time.Time{}, false
	}
	if strings.Contains(date, "(") {
		if i := strings.LastIndex(date, " "); i >= 0 {
			date = date[:i]
		}
	}
	// Collapse padding like "Tue,  1 Nov" before parsing
	date = strings.Join(strings.Fields(date), " ")
	for _, format := range mailDateFormats {
		if t, err := time.Parse(format, date); err == nil {
			return t, true
		}
	}
	log.Printf("failed to find a suitable parser for date: %q", date)
	return time.Time{}, false
}

// ParseReferences splits a References header into its message ids. The
// header is space delimited and order is irrelevant, so duplicates collapse.
func ParseReferences(raw string) []string {
	if raw == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var refs []string
	for _, id := range strings.Fields(raw) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		refs = append(refs, id)
	}
	return refs
}

// NormalizeSubject collapses embedded newlines, tabs, and doubled spaces.
func NormalizeSubject(subject string) string {
	subject = strings.ReplaceAll(subject, "\n", " ")
	subject = strings.ReplaceAll(subject, "\t", " ")
	subject = strings.ReplaceAll(subject, "  ", " ")
	return subject
}
