package injection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/types"
)

var ErrInvalidBatch = errors.New("invalid injection batch")

// Batch is one executable unit for one context. Entries run in order.
type Batch struct {
	Context    types.ContextID `json:"context_id"`
	Frame      types.FrameID   `json:"frame_id,omitempty"`
	NavID      string          `json:"nav_id,omitempty"`
	Generation uint64          `json:"generation"`
	Host       string          `json:"host"`
	Port       int             `json:"port"`
	Entries    []Entry         `json:"entries"`
}

// URLs returns the resolved sources in execution order
func (b Batch) URLs() []string {
	out := make([]string, len(b.Entries))
	for i, e := range b.Entries {
		out[i] = e.Src
	}
	return out
}

// SubFrame reports whether the batch was produced by a sub-frame navigation
func (b Batch) SubFrame() bool {
	return b.Frame != ""
}

// Code renders the batch as a single self-contained script. It publishes the
// matcher origin, exposes per-script config, then appends one non-async
// script element per entry so the browser executes them in list order.
func (b Batch) Code() string {
	var sb strings.Builder

	sb.WriteString("(function() {\n")
	sb.WriteString("  window.AIPLUGS_API_HOST = " + literal(b.Host) + ";\n")
	sb.WriteString("  window.AIPLUGS_API_PORT = " + strconv.Itoa(b.Port) + ";\n")

	configured := false
	for _, e := range b.Entries {
		if len(e.Config) == 0 || !sonic.ConfigStd.Valid(e.Config) {
			continue
		}
		if !configured {
			sb.WriteString("  var config = window.__AIPLUGS_CONFIG__ = window.__AIPLUGS_CONFIG__ || {};\n")
			configured = true
		}
		sb.WriteString("  config[" + literal(e.Src) + "] = " + string(e.Config) + ";\n")
	}

	sb.WriteString("  var parent = document.head || document.documentElement;\n")
	sb.WriteString("  var load = function(src) {\n")
	sb.WriteString("    var s = document.createElement(\"script\");\n")
	sb.WriteString("    s.src = src;\n")
	sb.WriteString("    s.async = false;\n")
	sb.WriteString("    parent.appendChild(s);\n")
	sb.WriteString("  };\n")
	for _, e := range b.Entries {
		sb.WriteString("  load(" + literal(e.Src) + ");\n")
	}
	sb.WriteString("})();\n")

	return sb.String()
}

// Validate checks that Code parses as JavaScript
func (b Batch) Validate() error {
	if len(b.Entries) == 0 {
		return fmt.Errorf("%w: no entries", ErrInvalidBatch)
	}
	if _, err := goja.Compile("injection.js", b.Code(), false); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBatch, err)
	}
	return nil
}

// literal renders s as a JavaScript string literal
func literal(s string) string {
	out, err := sonic.ConfigStd.MarshalToString(s)
	if err != nil {
		return strconv.Quote(s)
	}
	return out
}
