package matcher

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// Response limits. A matcher answer is a short script list; anything near
// these bounds is a misbehaving backend.
const (
	MaxResponseSize = 1 * 1024 * 1024
	MaxScripts      = 256
	MaxConfigSize   = 64 * 1024
	MaxConfigDepth  = 32
)

// validateSize rejects oversized bodies before decoding
func validateSize(data []byte, max int) error {
	if len(data) > max {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrDecode, len(data), max)
	}
	return nil
}

// validateConfig checks a per-script config object. Empty is allowed.
func validateConfig(raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	if err := validateSize(raw, MaxConfigSize); err != nil {
		return err
	}
	var v interface{}
	if err := sonic.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%w: config: %v", ErrDecode, err)
	}
	return checkDepth(v, 0, MaxConfigDepth)
}

func checkDepth(data interface{}, depth, max int) error {
	if depth > max {
		return fmt.Errorf("%w: config nesting exceeds %d", ErrDecode, max)
	}
	switch v := data.(type) {
	case map[string]interface{}:
		for _, value := range v {
			if err := checkDepth(value, depth+1, max); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, value := range v {
			if err := checkDepth(value, depth+1, max); err != nil {
				return err
			}
		}
	}
	return nil
}
