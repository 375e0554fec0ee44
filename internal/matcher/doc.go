// Package matcher queries the local matcher backend for the scripts that apply
// to a page URL.
//
// The backend is a separate process that may not be listening yet when the
// first pages load. Every failure (refused connection, timeout, non-2xx status,
// undecodable body) is reported as an empty Result and logged at debug level.
// Each call sends exactly one query and never retries. The optional breaker
// only tracks backend health for Health.
//
// Wire format:
//
//	POST /v1/match {"url": "https://example.com/"}
//	200 {"scripts": [{"url": "plugins/a/content.js", "run_at": "document_idle"}]}
//
// A missing or unknown run_at becomes document_end.
package matcher
