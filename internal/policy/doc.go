// Package policy resolves the process-wide security bypass policy.
//
// The policy is read once at startup from the configuration object and frozen
// into a Store. Every field defaults to its safe value: an absent or malformed
// flag means "do not bypass", an absent pattern list means "apply nowhere".
// Problems are collected as Issues for the caller to log; loading never fails
// the process.
//
// Recognized options:
//   - security_policy.allow_autoplay
//   - security_policy.allow_insecure_cert
//   - security_policy.bypass_csp
//   - security_policy.bypass_frame_options
//   - security_policy.bypass_cors
//   - security_policy.auto_grant_permissions
//   - security_policy.apply_to (list of hostname wildcard patterns)
//
// Example Usage:
//
//	store, err := policy.LoadFile("config/config.json")
//	if err != nil {
//	    logger.Warn("Policy file unavailable, bypass disabled", zap.Error(err))
//	}
//	engine := bypass.New(store)
package policy
