package chrome

import (
	"testing"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/bypass"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/policy"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/types"
)

func paused(url string, status int64, headers ...*fetch.HeaderEntry) *fetch.EventRequestPaused {
	return &fetch.EventRequestPaused{
		RequestID:          "req-1",
		Request:            &network.Request{URL: url},
		ResponseStatusCode: status,
		ResponseHeaders:    headers,
	}
}

func TestContinueActionRewritesMatchedResponse(t *testing.T) {
	engine := bypass.New(policy.NewStore(policy.SecurityPolicy{
		BypassCSP: true,
		ApplyTo:   []string{"*.example.com"},
	}))

	action := continueAction(engine, paused("https://www.example.com/", 200,
		&fetch.HeaderEntry{Name: "Content-Type", Value: "text/html"},
		&fetch.HeaderEntry{Name: "Content-Security-Policy", Value: "default-src 'self'"},
	))

	resp, ok := action.(*fetch.ContinueResponseParams)
	require.True(t, ok, "expected ContinueResponse, got %T", action)
	assert.Equal(t, fetch.RequestID("req-1"), resp.RequestID)
	assert.Equal(t, int64(200), resp.ResponseCode)
	require.Len(t, resp.ResponseHeaders, 1)
	assert.Equal(t, "Content-Type", resp.ResponseHeaders[0].Name)
}

func TestContinueActionPassesThrough(t *testing.T) {
	engine := bypass.New(policy.NewStore(policy.SecurityPolicy{
		BypassCSP: true,
		ApplyTo:   []string{"example.com"},
	}))

	tests := []struct {
		name  string
		event *fetch.EventRequestPaused
	}{
		{"unmatched host", paused("https://other.org/", 200,
			&fetch.HeaderEntry{Name: "Content-Security-Policy", Value: "default-src 'self'"})},
		{"nothing to rewrite", paused("https://example.com/", 200,
			&fetch.HeaderEntry{Name: "Content-Type", Value: "text/html"})},
		{"network error", &fetch.EventRequestPaused{
			RequestID:           "req-1",
			Request:             &network.Request{URL: "https://example.com/"},
			ResponseErrorReason: network.ErrorReasonFailed,
		}},
		{"no response yet", paused("https://example.com/", 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action := continueAction(engine, tt.event)
			_, ok := action.(*fetch.ContinueRequestParams)
			assert.True(t, ok, "expected ContinueRequest, got %T", action)
		})
	}
}

func TestHeaderConversionSkipsNil(t *testing.T) {
	in := []*fetch.HeaderEntry{{Name: "A", Value: "1"}, nil, {Name: "B", Value: "2"}}

	entries := fromFetch(in)
	assert.Equal(t, []bypass.HeaderEntry{{Name: "A", Value: "1"}, {Name: "B", Value: "2"}}, entries)

	back := toFetch(entries)
	require.Len(t, back, 2)
	assert.Equal(t, "B", back[1].Name)
	assert.Equal(t, "2", back[1].Value)
}

func TestFlagValue(t *testing.T) {
	assert.Equal(t, true, flagValue(bypass.Switch{Name: "disable-site-isolation-trials"}))
	assert.Equal(t, "no-user-gesture-required",
		flagValue(bypass.Switch{Name: "autoplay-policy", Value: "no-user-gesture-required"}))
}

func TestAllocatorOptionsIncludeSwitches(t *testing.T) {
	switches := []bypass.Switch{{Name: "a"}, {Name: "b", Value: "1"}}

	headless := allocatorOptions(Options{Headless: true}, switches)
	withPath := allocatorOptions(Options{Headless: true, ExecPath: "/usr/bin/chromium"}, switches)
	bare := allocatorOptions(Options{}, nil)

	assert.Len(t, withPath, len(headless)+1)
	assert.Len(t, headless, len(bare)+len(switches))
	assert.Equal(t, []string{"--a", "--b=1"}, switchStrings(switches))
}

func TestAutoGrantCoversEveryPermission(t *testing.T) {
	granting := bypass.New(policy.NewStore(policy.SecurityPolicy{
		AutoGrantPermissions: true,
		ApplyTo:              []string{"only.example.com"},
	}))

	granted := grantedTypes(granting)
	assert.Len(t, granted, 30)
	for _, p := range []browser.PermissionType{
		browser.PermissionTypeBackgroundSync,
		browser.PermissionTypeIdleDetection,
		browser.PermissionTypeLocalFonts,
		browser.PermissionTypeStorageAccess,
		browser.PermissionTypeWindowManagement,
		browser.PermissionTypeWakeLockScreen,
		browser.PermissionTypeNfc,
		browser.PermissionTypeMidiSysex,
		browser.PermissionTypeVideoCapturePanTiltZoom,
	} {
		assert.Contains(t, granted, p)
	}

	caps := grantedCapabilities(granting)
	assert.Len(t, caps, len(capabilities))
	names := make([]string, 0, len(caps))
	for _, d := range caps {
		names = append(names, d.Name)
	}
	assert.Contains(t, names, "camera")
	assert.Contains(t, names, "microphone")
	assert.Contains(t, names, "clipboard-read")
}

func TestAutoGrantOff(t *testing.T) {
	declining := bypass.New(policy.NewStore(policy.SecurityPolicy{ApplyTo: []string{"*"}}))
	assert.Empty(t, grantedTypes(declining))
	assert.Empty(t, grantedCapabilities(declining))
}

func TestSnapshotRecordsOpener(t *testing.T) {
	top := &tab{id: "tab-1", url: "https://example.com/", readiness: types.ReadinessComplete}
	assert.Nil(t, top.snapshot().ParentID)

	popup := &tab{id: "tab-2", opener: "tab-1", readiness: types.ReadinessLoading}
	snap := popup.snapshot()
	require.NotNil(t, snap.ParentID)
	assert.Equal(t, types.ContextID("tab-1"), *snap.ParentID)
	assert.Equal(t, types.ContextID("tab-2"), snap.ID)
}
