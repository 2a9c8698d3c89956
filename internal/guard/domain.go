package guard

import (
	"net/url"
	"strings"
)

// NormalizeDomain reduces a website value to a bare lowercase host:
// scheme, "www.", port, path and trailing dot are dropped. Empty when the
// value has no usable host.
func NormalizeDomain(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimSuffix(host, ".")
	host = strings.TrimPrefix(host, "www.")
	if host == "" || !strings.Contains(host, ".") {
		return ""
	}
	return host
}

// Label is the most specific registrable label of host: "acme" for
// "blog.acme.io" and "acme" for "acme.co.uk".
func Label(host string) string {
	parts := strings.Split(strings.TrimPrefix(host, "www."), ".")
	switch {
	case len(parts) >= 3 && secondLevel[parts[len(parts)-2]] && len(parts[len(parts)-1]) == 2:
		// Second-level country domains: co.uk, com.au.
		return parts[len(parts)-3]
	case len(parts) >= 2:
		return parts[len(parts)-2]
	default:
		return host
	}
}

var secondLevel = map[string]bool{"co": true, "com": true, "org": true, "net": true, "ac": true, "gov": true, "edu": true}

// hostBlocked reports whether host is a blocked host or one of its subdomains.
func hostBlocked(host string, blocked []string) bool {
	for _, b := range blocked {
		if host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	return false
}

// MentionsDomain reports whether text contains host. The bare label is not
// enough: for an ambiguous name it is the very word in question.
func MentionsDomain(text, host string) bool {
	return host != "" && strings.Contains(strings.ToLower(text), host)
}

// ContainsWord reports whether word occurs in s bounded by non-alphanumerics.
// Matching is case-insensitive.
func ContainsWord(s, word string) bool {
	return len(WordIndexes(s, word)) > 0
}

// WordIndexes returns the byte offsets of each whole-word, case-insensitive
// occurrence of word in the lowercased s.
func WordIndexes(s, word string) []int {
	s, word = strings.ToLower(s), strings.ToLower(word)
	if word == "" {
		return nil
	}
	var out []int
	for i := 0; i < len(s); {
		j := strings.Index(s[i:], word)
		if j < 0 {
			break
		}
		start := i + j
		end := start + len(word)
		if (start == 0 || !isWordByte(s[start-1])) && (end == len(s) || !isWordByte(s[end])) {
			out = append(out, start)
		}
		i = start + 1
	}
	return out
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
