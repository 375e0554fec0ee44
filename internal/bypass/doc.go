/*
Package bypass rewrites response headers and permission prompts according to
the process security policy.

# Header Rewrite

For every response in the shared browsing session the host calls
RewriteHeaders (or RewriteEntries for ordered DevTools header lists). When the
response URL's hostname does not match the policy's apply_to patterns the
headers come back untouched. Otherwise, per enabled flag:

  - bypass_csp: drop Content-Security-Policy and its report-only and legacy
    variants
  - bypass_frame_options: drop X-Frame-Options and X-Content-Type-Options
  - bypass_cors: drop every Access-Control-Allow-* header, then allow any
    origin, the common methods and any header

The rewrite is an in-memory computation only. A failure while evaluating it
degrades to pass-through rather than blocking the response.

# Permissions

With auto_grant_permissions every permission request and capability check is
granted. This applies to the whole session and ignores apply_to.

# Engine Switches

Switches returns the command-line switches the browser engine must be started
with: autoplay without a user gesture, certificate errors ignored, and site
isolation disabled (always).
*/
package bypass
