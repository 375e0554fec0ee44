package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/browser/sandbox"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/navigation"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/types"
)

func TestReadEvents(t *testing.T) {
	log := `
# recorded session
{"event":"navigate","context":"tab-1","url":"https://www.example.com/"}

{"event":"readiness","context":"tab-1","readiness":"interactive"}
{"event":"destroyed","context":"tab-1"}
`
	events, err := readEvents(strings.NewReader(log))
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, navigation.EventNavigate, events[0].Kind)
	assert.Equal(t, types.ContextID("tab-1"), events[0].Context)
	assert.Equal(t, types.ReadinessInteractive, events[1].Readiness)
	assert.Equal(t, navigation.EventDestroyed, events[2].Kind)
}

func TestReadEventsReportsLine(t *testing.T) {
	_, err := readEvents(strings.NewReader("{\"event\":\"destroyed\",\"context\":\"t\"}\n{\"event\":\"navigate\",\"context\":\"t\"}\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, navigation.ErrInvalidEvent)
	assert.Contains(t, err.Error(), "line 2")

	_, err = readEvents(strings.NewReader("not json\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestLoadPolicyFallsBackToEmpty(t *testing.T) {
	store := loadPolicy(filepath.Join(t.TempDir(), "missing.yaml"), zap.NewNop())
	assert.False(t, store.Resolve().RewritesHeaders())

	store = loadPolicy("", zap.NewNop())
	assert.Empty(t, store.Resolve().ApplyTo)
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	doc := "security_policy:\n  bypass_csp: true\n  apply_to:\n    - \"*.example.com\"\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	p := loadPolicy(path, zap.NewNop()).Resolve()
	assert.True(t, p.BypassCSP)
	assert.Equal(t, []string{"*.example.com"}, p.ApplyTo)
}

func TestPrintReport(t *testing.T) {
	report := replayReport{
		Events: 2,
		Pages: []sandbox.PageSummary{{
			ID:        "tab-1",
			URL:       "https://www.example.com/",
			Readiness: types.ReadinessComplete,
			Scripts:   []string{"http://127.0.0.1:5000/a.js"},
		}},
		Outcomes: map[navigation.Outcome]int{navigation.OutcomeDelivered: 1},
	}

	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, report, false))
	out := buf.String()
	assert.Contains(t, out, "2 events replayed")
	assert.Contains(t, out, "tab-1  https://www.example.com/  [complete]")
	assert.Contains(t, out, "http://127.0.0.1:5000/a.js")
	assert.Contains(t, out, "delivered: 1")

	buf.Reset()
	require.NoError(t, printReport(&buf, report, true))
	assert.Contains(t, buf.String(), `"events": 2`)
}

func TestRootHasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"run", "replay", "policy"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}
