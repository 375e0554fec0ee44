package injection

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBatch(entries ...Entry) Batch {
	return Batch{Context: tab, Host: "127.0.0.1", Port: 5000, Entries: entries}
}

func TestBatchCode(t *testing.T) {
	b := testBatch(
		Entry{Src: "http://127.0.0.1:5000/a.js", Phase: PhaseStart},
		Entry{Src: "https://cdn.test/b.js", Phase: PhaseEnd},
	)

	code := b.Code()
	require.NoError(t, b.Validate())

	assert.Contains(t, code, `window.AIPLUGS_API_HOST = "127.0.0.1";`)
	assert.Contains(t, code, `window.AIPLUGS_API_PORT = 5000;`)
	assert.Contains(t, code, `s.async = false;`)
	assert.NotContains(t, code, "__AIPLUGS_CONFIG__")

	a := strings.Index(code, `load("http://127.0.0.1:5000/a.js")`)
	bIdx := strings.Index(code, `load("https://cdn.test/b.js")`)
	require.NotEqual(t, -1, a)
	require.NotEqual(t, -1, bIdx)
	assert.Less(t, a, bIdx)
}

func TestBatchCodeConfig(t *testing.T) {
	b := testBatch(
		Entry{Src: "https://cdn.test/a.js", Phase: PhaseEnd, Config: json.RawMessage(`{"model":"tiny","threshold":0.5}`)},
		Entry{Src: "https://cdn.test/b.js", Phase: PhaseEnd, Config: json.RawMessage(`{broken`)},
	)

	code := b.Code()
	require.NoError(t, b.Validate())
	assert.Contains(t, code, `config["https://cdn.test/a.js"] = {"model":"tiny","threshold":0.5};`)
	assert.NotContains(t, code, "broken")
}

func TestBatchCodeEscapesSources(t *testing.T) {
	b := testBatch(Entry{Src: `https://evil.test/x.js");alert(1);("`, Phase: PhaseStart})

	require.NoError(t, b.Validate())
	assert.NotContains(t, b.Code(), `x.js");alert(1)`)
}

func TestBatchValidateEmpty(t *testing.T) {
	assert.ErrorIs(t, testBatch().Validate(), ErrInvalidBatch)
}

func TestBatchURLs(t *testing.T) {
	b := testBatch(Entry{Src: "a"}, Entry{Src: "b"})
	assert.Equal(t, []string{"a", "b"}, b.URLs())
	assert.False(t, b.SubFrame())
}
