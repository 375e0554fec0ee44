package policy

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// Issue describes one configuration field that could not be used as given.
// Issues are informational: the field falls back to its safe value.
type Issue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (i Issue) String() string {
	return i.Field + ": " + i.Reason
}

var boolFields = []string{
	"allow_autoplay",
	"allow_insecure_cert",
	"bypass_csp",
	"bypass_frame_options",
	"bypass_cors",
	"auto_grant_permissions",
}

// Load resolves a SecurityPolicy from a decoded configuration object.
//
// The policy is read from "security_policy" at the top level, or from
// "system_settings.security_policy". When apply_to is absent the legacy
// "system_settings.trusted_types_bypass" list is used. Missing or malformed
// fields fall back to false / empty and are reported as issues.
func Load(raw map[string]any) (SecurityPolicy, []Issue) {
	var (
		p      SecurityPolicy
		issues []Issue
	)

	settings, _ := asMap(raw["system_settings"])
	section, prefix, found := lookupSection(raw, settings)
	if !found {
		return p, issues
	}

	for _, field := range boolFields {
		v, present := section[field]
		if !present {
			continue
		}
		b, ok := v.(bool)
		if !ok {
			issues = append(issues, Issue{
				Field:  prefix + field,
				Reason: fmt.Sprintf("expected boolean, got %T; using false", v),
			})
			continue
		}
		setBool(&p, field, b)
	}

	if v, present := section["apply_to"]; present {
		list, bad := stringList(v)
		if bad != "" {
			issues = append(issues, Issue{Field: prefix + "apply_to", Reason: bad})
		}
		p.ApplyTo = list
	} else if v, present := settings["trusted_types_bypass"]; present {
		list, bad := stringList(v)
		if bad != "" {
			issues = append(issues, Issue{Field: "system_settings.trusted_types_bypass", Reason: bad})
		}
		p.ApplyTo = list
	}

	return p, issues
}

// LoadFile reads a JSON or YAML configuration document and resolves its policy.
// An unreadable or undecodable file yields the empty policy plus an issue.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewStore(SecurityPolicy{}), fmt.Errorf("failed to read policy file: %w", err)
	}
	return Parse(data), nil
}

// Parse decodes a JSON or YAML document and resolves its policy.
func Parse(data []byte) *Store {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return NewStore(SecurityPolicy{}, Issue{Field: "<document>", Reason: "undecodable: " + err.Error()})
	}
	p, issues := Load(raw)
	return NewStore(p, issues...)
}

func lookupSection(raw, settings map[string]any) (map[string]any, string, bool) {
	if m, ok := asMap(raw["security_policy"]); ok {
		return m, "security_policy.", true
	}
	if m, ok := asMap(settings["security_policy"]); ok {
		return m, "system_settings.security_policy.", true
	}
	if _, ok := settings["trusted_types_bypass"]; ok {
		return map[string]any{}, "", true
	}
	return nil, "", false
}

func setBool(p *SecurityPolicy, field string, v bool) {
	switch field {
	case "allow_autoplay":
		p.AllowAutoplay = v
	case "allow_insecure_cert":
		p.AllowInsecureCert = v
	case "bypass_csp":
		p.BypassCSP = v
	case "bypass_frame_options":
		p.BypassFrameOptions = v
	case "bypass_cors":
		p.BypassCORS = v
	case "auto_grant_permissions":
		p.AutoGrantPermissions = v
	}
}

// stringList keeps the string entries of a list and explains what it dropped.
func stringList(v any) ([]string, string) {
	items, ok := v.([]any)
	if !ok {
		if v == nil {
			return nil, ""
		}
		return nil, fmt.Sprintf("expected list of strings, got %T; using empty list", v)
	}

	out := make([]string, 0, len(items))
	dropped := 0
	for _, item := range items {
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" {
			dropped++
			continue
		}
		out = append(out, strings.TrimSpace(s))
	}
	if dropped > 0 {
		return out, fmt.Sprintf("ignored %d non-string or blank entries", dropped)
	}
	return out, ""
}

// asMap accepts both decoder map shapes.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}
