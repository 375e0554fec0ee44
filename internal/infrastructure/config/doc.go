// Package config provides 12-factor configuration for the shellcore daemon.
//
// Configuration is loaded from environment variables with sensible defaults.
// Command-line flags override environment values.
//
// Configuration Sections:
//   - Policy: path of the security policy document (JSON or YAML)
//   - Matcher: location and timeout of the script matcher backend
//   - Control: control API listen address and rate limit
//   - Chrome: browser binary, headless mode and first tab URL
//   - Logging: log level and output format
//
// Environment Variables:
//   - SHELL_POLICY_FILE
//   - MATCHER_HOST, MATCHER_PORT, MATCHER_TIMEOUT, MATCHER_BREAKER
//   - CONTROL_HOST, CONTROL_PORT, CONTROL_RATE_RPS, CONTROL_RATE_BURST
//   - CHROME_PATH, CHROME_HEADLESS, CHROME_START_URL
//   - LOG_LEVEL, LOG_DEV
package config
