package chrome

import (
	"context"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/security"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/bypass"
)

// permissionTypes is every prompt-backed permission the protocol can grant
var permissionTypes = []browser.PermissionType{
	browser.PermissionTypeAccessibilityEvents,
	browser.PermissionTypeAudioCapture,
	browser.PermissionTypeBackgroundSync,
	browser.PermissionTypeBackgroundFetch,
	browser.PermissionTypeCapturedSurfaceControl,
	browser.PermissionTypeClipboardReadWrite,
	browser.PermissionTypeClipboardSanitizedWrite,
	browser.PermissionTypeDisplayCapture,
	browser.PermissionTypeDurableStorage,
	browser.PermissionTypeFlash,
	browser.PermissionTypeGeolocation,
	browser.PermissionTypeIdleDetection,
	browser.PermissionTypeLocalFonts,
	browser.PermissionTypeMidi,
	browser.PermissionTypeMidiSysex,
	browser.PermissionTypeNfc,
	browser.PermissionTypeNotifications,
	browser.PermissionTypePaymentHandler,
	browser.PermissionTypePeriodicBackgroundSync,
	browser.PermissionTypeProtectedMediaIdentifier,
	browser.PermissionTypeSensors,
	browser.PermissionTypeStorageAccess,
	browser.PermissionTypeSpeakerSelection,
	browser.PermissionTypeTopLevelStorageAccess,
	browser.PermissionTypeVideoCapture,
	browser.PermissionTypeVideoCapturePanTiltZoom,
	browser.PermissionTypeWakeLockScreen,
	browser.PermissionTypeWakeLockSystem,
	browser.PermissionTypeWebAppInstallation,
	browser.PermissionTypeWindowManagement,
}

// capabilities are the Permissions API descriptors pages query with
// navigator.permissions.query. Their state is set one at a time.
var capabilities = []*browser.PermissionDescriptor{
	{Name: "accelerometer"},
	{Name: "ambient-light-sensor"},
	{Name: "background-fetch"},
	{Name: "background-sync"},
	{Name: "camera", PanTiltZoom: true},
	{Name: "captured-surface-control"},
	{Name: "clipboard-read"},
	{Name: "clipboard-write", AllowWithoutSanitization: true},
	{Name: "display-capture"},
	{Name: "fullscreen", AllowWithoutGesture: true},
	{Name: "geolocation"},
	{Name: "gyroscope"},
	{Name: "idle-detection"},
	{Name: "keyboard-lock"},
	{Name: "local-fonts"},
	{Name: "magnetometer"},
	{Name: "microphone"},
	{Name: "midi", Sysex: true},
	{Name: "nfc"},
	{Name: "notifications"},
	{Name: "payment-handler"},
	{Name: "periodic-background-sync"},
	{Name: "persistent-storage"},
	{Name: "pointer-lock"},
	{Name: "push", UserVisibleOnly: true},
	{Name: "screen-wake-lock"},
	{Name: "speaker-selection"},
	{Name: "storage-access"},
	{Name: "system-wake-lock"},
	{Name: "top-level-storage-access"},
	{Name: "window-management"},
}

// grantedTypes returns the prompt types the engine accepts
func grantedTypes(engine *bypass.Engine) []browser.PermissionType {
	var out []browser.PermissionType
	for _, p := range permissionTypes {
		if engine.GrantPermission(string(p)) {
			out = append(out, p)
		}
	}
	return out
}

// grantedCapabilities returns the descriptors the engine reports as granted
func grantedCapabilities(engine *bypass.Engine) []*browser.PermissionDescriptor {
	var out []*browser.PermissionDescriptor
	for _, d := range capabilities {
		if engine.CheckPermission(d.Name) {
			out = append(out, d)
		}
	}
	return out
}

// grantPermissions applies the session-wide grant for all origins. Prompt
// types go in one call because grantPermissions resets anything it does not
// list; capability states are set individually so a name this Chrome build
// does not know only loses itself.
func (h *Host) grantPermissions(browserExec context.Context) {
	if granted := grantedTypes(h.engine); len(granted) > 0 {
		if err := browser.GrantPermissions(granted).Do(browserExec); err != nil {
			h.logger.Warn("Permission types rejected, relying on capability grants", zap.Error(err))
		}
	}

	rejected := 0
	for _, d := range grantedCapabilities(h.engine) {
		if err := browser.SetPermission(d, browser.PermissionSettingGranted).Do(browserExec); err != nil {
			rejected++
			h.logger.Debug("Permission not supported",
				zap.String("permission", d.Name), zap.Error(err))
		}
	}
	if rejected > 0 {
		h.logger.Info("Some permissions unsupported by this browser", zap.Int("rejected", rejected))
	}
}

// enableBypass turns on the per-tab protocol features the policy needs
func (h *Host) enableBypass(ctx context.Context) error {
	p := h.engine.Policy()
	if p.AllowInsecureCert {
		if err := security.SetIgnoreCertificateErrors(true).Do(ctx); err != nil {
			return err
		}
	}
	if !h.engine.RewritesHeaders() {
		return nil
	}
	return fetch.Enable().WithPatterns([]*fetch.RequestPattern{
		{URLPattern: "*", RequestStage: fetch.RequestStageResponse},
	}).Do(ctx)
}

func (h *Host) intercept(t *tab, ev interface{}) {
	e, ok := ev.(*fetch.EventRequestPaused)
	if !ok {
		return
	}
	go func() {
		action := continueAction(h.engine, e)
		if err := chromedp.Run(t.ctx, action); err != nil && t.ctx.Err() == nil {
			h.logger.Debug("Continue paused request failed",
				zap.String("context_id", string(t.id)),
				zap.Error(err))
		}
	}()
}

// continueAction decides how a paused response resumes. Failed requests and
// responses the policy leaves alone continue untouched.
func continueAction(engine *bypass.Engine, e *fetch.EventRequestPaused) chromedp.Action {
	if e.ResponseErrorReason != "" || e.ResponseStatusCode == 0 || e.Request == nil {
		return fetch.ContinueRequest(e.RequestID)
	}
	out, changed := engine.RewriteEntries(e.Request.URL, fromFetch(e.ResponseHeaders))
	if !changed {
		return fetch.ContinueRequest(e.RequestID)
	}
	return fetch.ContinueResponse(e.RequestID).
		WithResponseCode(e.ResponseStatusCode).
		WithResponseHeaders(toFetch(out))
}

func fromFetch(in []*fetch.HeaderEntry) []bypass.HeaderEntry {
	out := make([]bypass.HeaderEntry, 0, len(in))
	for _, h := range in {
		if h != nil {
			out = append(out, bypass.HeaderEntry{Name: h.Name, Value: h.Value})
		}
	}
	return out
}

func toFetch(in []bypass.HeaderEntry) []*fetch.HeaderEntry {
	out := make([]*fetch.HeaderEntry, len(in))
	for i, h := range in {
		out[i] = &fetch.HeaderEntry{Name: h.Name, Value: h.Value}
	}
	return out
}
