// Package pattern matches URLs against hostname wildcard templates.
//
// A template such as "*.example.com" is compiled by escaping every literal
// character and turning each "*" into ".*", anchored at both ends. Only the
// hostname of the URL takes part in matching; path, query and port are ignored.
// The bare template "*" matches every input without parsing it.
//
// Matching fails closed: a URL that cannot be parsed, or that has no hostname,
// never matches.
package pattern

import (
	"net/url"
	"regexp"
	"strings"
)

// Wildcard is the template that matches everything.
const Wildcard = "*"

// Set is a compiled, ordered list of hostname templates.
// A Set is immutable and safe for concurrent use.
type Set struct {
	patterns []string
	compiled []*regexp.Regexp
	all      bool
}

// Compile builds a Set from templates. Blank entries are ignored.
func Compile(patterns []string) *Set {
	s := &Set{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		s.patterns = append(s.patterns, p)
		if p == Wildcard {
			s.all = true
			continue
		}
		s.compiled = append(s.compiled, compileTemplate(p))
	}
	return s
}

// compileTemplate escapes everything but "*" and anchors the result.
// Hostnames compare case-insensitively, so templates are lower-cased too.
func compileTemplate(p string) *regexp.Regexp {
	parts := strings.Split(strings.ToLower(p), Wildcard)
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
}

// Match reports whether rawURL's hostname matches any template in the set.
func (s *Set) Match(rawURL string) bool {
	if s == nil || len(s.patterns) == 0 {
		return false
	}
	if s.all {
		return true
	}

	host, ok := Hostname(rawURL)
	if !ok {
		return false
	}
	for _, re := range s.compiled {
		if re.MatchString(host) {
			return true
		}
	}
	return false
}

// Patterns returns a copy of the templates in declaration order.
func (s *Set) Patterns() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.patterns...)
}

// Len returns the number of templates in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}

// Matches is the one-shot form of Compile(patterns).Match(rawURL).
func Matches(rawURL string, patterns []string) bool {
	return Compile(patterns).Match(rawURL)
}

// Hostname extracts the lower-cased hostname of an absolute URL.
func Hostname(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" {
		return "", false
	}
	host := u.Hostname()
	if host == "" {
		return "", false
	}
	return strings.ToLower(host), true
}
