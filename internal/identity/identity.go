// Package identity canonicalizes person identifiers (emails, user names and
// display names) and decides when two of them refer to the same person.
// Every comparison of approver or actor identities goes through Matches.
package identity

import (
	"regexp"
	"strings"
	"unicode"
)

// Key is the canonical form of an identifier.
//
// Full is the trimmed lowercase value. Local is the part before "@" (the
// whole value when there is no "@"). Simple is Local with whitespace, ".",
// "_" and "-" removed, so "john.doe", "John Doe" and "john_doe" collapse to
// "johndoe".
type Key struct {
	Full      string
	Local     string
	Simple    string
	HasDomain bool
}

// Normalize trims and lowercases s.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsEmail reports whether s looks like an address with a local part and a
// domain.
func IsEmail(s string) bool {
	s = strings.TrimSpace(s)
	at := strings.LastIndex(s, "@")
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t\r\n")
}

// Canonicalize computes the Key for s.
func Canonicalize(s string) Key {
	full := Normalize(s)
	local := full
	hasDomain := false
	if at := strings.Index(full, "@"); at >= 0 {
		local = full[:at]
		hasDomain = at < len(full)-1
	}
	return Key{Full: full, Local: local, Simple: simplify(local), HasDomain: hasDomain}
}

func simplify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) || r == '.' || r == '_' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Matches reports whether a and b identify the same person.
//
// Equal full forms always match. Two addresses on different domains never
// match. When at least one side carries no domain, the local parts are
// compared, first verbatim and then in simplified form. Matching is
// symmetric and empty identifiers match nothing.
func Matches(a, b string) bool {
	ka, kb := Canonicalize(a), Canonicalize(b)
	if ka.Full == "" || kb.Full == "" {
		return false
	}
	if ka.Full == kb.Full {
		return true
	}
	if ka.HasDomain && kb.HasDomain {
		return false
	}
	if ka.Local != "" && ka.Local == kb.Local {
		return true
	}
	return ka.Simple != "" && ka.Simple == kb.Simple
}

// Candidates returns the identifiers under which a signed-in user may appear
// in stored chains: the email itself, its local part, and the display name
// from the directory when known. Duplicates and empties are dropped.
func Candidates(email, displayName string) []string {
	out := make([]string, 0, 3)
	seen := map[string]struct{}{}
	add := func(s string) {
		s = Normalize(s)
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	k := Canonicalize(email)
	add(k.Full)
	add(k.Local)
	add(displayName)
	return out
}

var mentionRe = regexp.MustCompile(`@(\S+)`)

// ParseMentions extracts @mentions from chat text. Trailing punctuation
// ")" "," "." ";" ":" "!" "?" is stripped, results are lowercased and
// deduplicated in order of first appearance.
func ParseMentions(text string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, m := range mentionRe.FindAllStringSubmatch(text, -1) {
		id := strings.ToLower(strings.TrimRight(m[1], "),.;:!?"))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
