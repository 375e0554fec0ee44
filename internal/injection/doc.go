/*
Package injection decides when matcher-provided scripts run in a page and
renders them as executable batches.

# Timing

Each script declares a lifecycle phase. The scheduler compares it with the
readiness of the target context:

	document_start   runs as soon as it is scheduled
	document_end     runs once readiness is interactive or complete
	document_idle    runs once readiness is complete (also used for unknown phases)

Scripts whose phase is not yet satisfied are queued per context and released
by Advance when the host reports a readiness change.

# Delivery records

Every resolved script URL gets one record per top-level document:

	pending -> scheduled -> delivered
	pending -> scheduled -> abandoned
	(already recorded)   -> skipped

A new top-level navigation calls Reset, which drops the records and the queue
and bumps the document generation. Outcomes reported for a batch from an older
generation are ignored.

# Batches

A Batch renders to one script that publishes window.AIPLUGS_API_HOST and
window.AIPLUGS_API_PORT, stores optional per-script config under
window.__AIPLUGS_CONFIG__, then appends a non-async script element per entry.
Entries are ordered by phase and keep matcher order within a phase.
*/
package injection
