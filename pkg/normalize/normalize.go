// Package normalize converts raw field values into canonical comparison keys
// for the matcher. Every function is total: malformed input yields ok=false
// and never an error or a partial key.
package normalize

import (
	"net/url"
	"sort"
	"strings"
)

// DefaultStopwords are generic corporate/organizational tokens that carry no
// discriminating signal in entity names or street addresses. They are a
// precision/recall knob, not protocol; callers can supply their own set.
var DefaultStopwords = []string{
	"a", "an", "and", "co", "company", "corp", "corporation", "group",
	"holdings", "inc", "incorporated", "intl", "international", "limited",
	"llc", "llp", "lp", "ltd", "of", "plc", "pllc", "the",
}

// DefaultIgnoredDomains are shared mail/hosting domains too common to
// identify an organization. The matcher suppresses keys on this list during
// candidate generation.
var DefaultIgnoredDomains = []string{
	"aol.com", "att.net", "comcast.net", "gmail.com", "gmx.com",
	"googlemail.com", "hotmail.com", "icloud.com", "live.com", "mail.com",
	"me.com", "msn.com", "outlook.com", "protonmail.com", "sbcglobal.net",
	"verizon.net", "yahoo.com", "ymail.com",
}

// punctuation removed from text-bag input before tokenization.
var punctuation = []string{",", ".", `"`, "'", "!", "?", "/"}

// StopwordSet builds a lookup set from a word list.
func StopwordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

var defaultStopwordSet = StopwordSet(DefaultStopwords)

// Domain extracts a hostname comparison key. Email-shaped values yield the
// part after '@'; anything else is treated as a URL with a leading "www."
// stripped. ok is false when no plausible hostname remains.
func Domain(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", false
	}

	// Email-shaped: no path separators, exactly one '@'.
	if !strings.ContainsAny(s, "/ ") && strings.Count(s, "@") == 1 {
		s = s[strings.Index(s, "@")+1:]
		return hostKey(s)
	}

	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "http://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}

	return hostKey(u.Hostname())
}

// Identity canonicalizes a value that is already a comparison key, such as a
// full email address compared verbatim. Only case and surrounding whitespace
// are folded.
func Identity(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", false
	}
	return s, true
}

func hostKey(host string) (string, bool) {
	host = strings.TrimSuffix(strings.TrimPrefix(host, "www."), ".")
	if host == "" || !strings.Contains(host, ".") {
		return "", false
	}
	return host, true
}

// TextBag normalizes an entity name or street address into an
// order-invariant token key using the default stopword set.
func TextBag(raw string) (string, bool) {
	return TextBagWith(raw, defaultStopwordSet)
}

// TextBagWith lowercases, strips punctuation, tokenizes, removes stopwords,
// singularizes naively, and returns the sorted tokens joined by single
// spaces. ok is false when no token survives. The result is a fixed point:
// TextBagWith(key) == key.
func TextBagWith(raw string, stopwords map[string]struct{}) (string, bool) {
	s := strings.ToLower(raw)
	for _, p := range punctuation {
		s = strings.ReplaceAll(s, p, "")
	}

	tokens := make([]string, 0, 8)
	for _, tok := range strings.Fields(s) {
		if _, skip := stopwords[tok]; skip {
			continue
		}
		// Naive singularization. Tokens ending in "ss" are left alone so
		// the function stays idempotent, and a token whose singular form
		// is a stopword is dropped for the same reason ("corps" -> "corp").
		if len(tok) > 2 && strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss") {
			tok = tok[:len(tok)-1]
			if _, skip := stopwords[tok]; skip {
				continue
			}
		}
		if tok == "" {
			continue
		}
		tokens = append(tokens, tok)
	}

	if len(tokens) == 0 {
		return "", false
	}

	sort.Strings(tokens)
	return strings.Join(tokens, " "), true
}
