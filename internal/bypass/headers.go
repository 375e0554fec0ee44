package bypass

import (
	"net/http"
	"strings"
)

// HeaderEntry is one response header in wire order
type HeaderEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

var cspHeaders = []string{
	"content-security-policy",
	"content-security-policy-report-only",
	"x-webkit-csp",
	"x-content-security-policy",
}

var frameHeaders = []string{
	"x-frame-options",
	"x-content-type-options",
}

const corsPrefix = "access-control-allow-"

var corsHeaders = []HeaderEntry{
	{Name: "Access-Control-Allow-Origin", Value: "*"},
	{Name: "Access-Control-Allow-Methods", Value: "GET, POST, OPTIONS, PUT, PATCH, DELETE"},
	{Name: "Access-Control-Allow-Headers", Value: "*"},
}

// headerSet abstracts the two header shapes the engine rewrites.
// Names are always compared case-insensitively.
type headerSet interface {
	remove(names ...string) int
	removePrefix(prefix string) int
	set(name, value string)
}

// headerMap adapts http.Header; keys may be non-canonical when built by hand.
type headerMap http.Header

func (h headerMap) remove(names ...string) int {
	n := 0
	for key := range h {
		for _, name := range names {
			if strings.EqualFold(key, name) {
				delete(h, key)
				n++
				break
			}
		}
	}
	return n
}

func (h headerMap) removePrefix(prefix string) int {
	n := 0
	for key := range h {
		if hasPrefixFold(key, prefix) {
			delete(h, key)
			n++
		}
	}
	return n
}

func (h headerMap) set(name, value string) {
	h.remove(name)
	http.Header(h).Set(name, value)
}

// entryList adapts an ordered entry slice.
type entryList []HeaderEntry

func (l *entryList) filter(drop func(name string) bool) int {
	kept := (*l)[:0]
	n := 0
	for _, e := range *l {
		if drop(e.Name) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	*l = kept
	return n
}

func (l *entryList) remove(names ...string) int {
	return l.filter(func(name string) bool {
		for _, target := range names {
			if strings.EqualFold(name, target) {
				return true
			}
		}
		return false
	})
}

func (l *entryList) removePrefix(prefix string) int {
	return l.filter(func(name string) bool { return hasPrefixFold(name, prefix) })
}

func (l *entryList) set(name, value string) {
	l.remove(name)
	*l = append(*l, HeaderEntry{Name: name, Value: value})
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
