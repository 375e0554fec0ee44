// Command shellcore runs the AiPlugs injection pipeline.
//
//	shellcore run [--headless] [--chrome PATH] [--start-url URL] [--no-api]
//	shellcore replay events.jsonl [--interval D] [--settle D] [--json]
//	shellcore policy [--json]
//
// run launches Chrome, rewrites response headers per the security policy and
// injects the scripts the matcher service selects on every navigation. It
// also serves the local control API.
//
// replay feeds a recorded event log through the same pipeline against
// simulated pages, which makes matcher and policy changes testable without a
// browser.
//
// Configuration comes from environment variables (see the config package);
// the persistent flags --policy, --log-level and --dev override them.
package main
