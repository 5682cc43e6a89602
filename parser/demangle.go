package parser

import (
	"regexp"
	"strings"
)

// Mailman replaces user@example.com with "user at example.com" in every
// message field. These patterns reverse that.
var (
	// Strict form: angle brackets as seen in Acked-by and SOB lines. Use
	// this on content that may not contain any addresses at all.
	reEmailStrict = regexp.MustCompile(`<([^\s\\]+)\sat\s([^\s\\]+)>`)
	// Loose form: a bare From header, "user at domain (Display Name)".
	reEmailLoose = regexp.MustCompile(`(?i)^([^\s\\]+)\sat\s([^\s\\]+)\s\(([^)]+)\)`)
	// A display name that is itself a mangled address.
	reMangledName = regexp.MustCompile(`^[^\s\\]+\sat\s[^\s\\]+$`)
)

// DemangleEmail reverses the list software's address mangling. In strict
// mode the input is arbitrary content (a message body) and only bracketed
// forms are rewritten in place. In loose mode the input must be a mangled
// From header and is rebuilt as "Display Name <user@domain>"; a display name
// that looks like a mangled address is discarded in favor of the bare
// address, and input that doesn't match at all yields "".
func DemangleEmail(raw string, strict bool) string {
	if raw == "" {
		return raw
	}
	if strict {
		return reEmailStrict.ReplaceAllString(raw, "<$1@$2>")
	}
	m := reEmailLoose.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	addr := m[1] + "@" + m[2]
	name := strings.TrimSpace(m[3])
	if name == "" || reMangledName.MatchString(name) {
		return addr
	}
	return name + " <" + addr + ">"
}
