package pattern

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesSubdomainWildcard(t *testing.T) {
	patterns := []string{"*.example.com"}

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"single label", "https://a.example.com/path", true},
		{"nested labels", "https://a.b.example.com/", true},
		{"apex is excluded", "https://example.com/", false},
		{"suffix attack", "https://example.com.evil.com/", false},
		{"lookalike", "https://aexample.com/", false},
		{"port ignored", "http://a.example.com:8080/x?y=1", true},
		{"case insensitive host", "https://WWW.Example.COM/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.url, patterns))
		})
	}
}

func TestMatchesBareWildcard(t *testing.T) {
	for _, u := range []string{
		"http://127.0.0.1/",
		"https://[::1]:8443/",
		"https://xn--80ak6aa92e.com/",
		"http://localhost",
	} {
		assert.True(t, Matches(u, []string{"*"}), u)
	}
}

func TestMatchesLiteralCharactersAreEscaped(t *testing.T) {
	// "." must not act as a regex wildcard
	assert.False(t, Matches("https://wwwxyoutube.com/", []string{"www.youtube.com"}))
	assert.True(t, Matches("https://www.youtube.com/watch", []string{"www.youtube.com"}))
	assert.True(t, Matches("https://m.youtube.com/", []string{"*youtube.com"}))
	assert.False(t, Matches("https://a+b.com/", []string{"a+b.com?"}))
}

func TestMatchesFailsClosed(t *testing.T) {
	patterns := []string{"*.example.com", "example.org"}

	assert.False(t, Matches("not a url", patterns))
	assert.False(t, Matches("://missing-scheme", patterns))
	assert.False(t, Matches("http://%zz/", patterns))
	assert.False(t, Matches("file:///etc/hosts", patterns))
	assert.False(t, Matches("", patterns))
}

func TestMatchesEmptySet(t *testing.T) {
	assert.False(t, Matches("https://example.com/", nil))
	assert.False(t, Matches("https://example.com/", []string{}))
	assert.False(t, Matches("https://example.com/", []string{"  ", ""}))
}

func TestSetAccessors(t *testing.T) {
	s := Compile([]string{" a.com ", "", "*.b.com"})
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"a.com", "*.b.com"}, s.Patterns())

	var nilSet *Set
	assert.False(t, nilSet.Match("https://a.com"))
	assert.Equal(t, 0, nilSet.Len())
}

func TestSetConcurrentUse(t *testing.T) {
	s := Compile([]string{"*.example.com"})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.True(t, s.Match("https://x.example.com/"))
			}
		}()
	}
	wg.Wait()
}
