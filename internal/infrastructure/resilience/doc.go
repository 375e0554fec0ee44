/*
Package resilience tracks the health of the matcher backend.

# Overview

The matcher runs as a separate local process that is often not up yet when the
browser starts navigating. Every navigation still sends its query; the breaker
only watches the outcomes so the control API and the logs can tell whether
the backend is reachable.

# Usage

	breaker := resilience.New("matcher", resilience.Settings{
		Threshold: 3,
		Cooldown:  5 * time.Second,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Info("Circuit breaker state change",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})

	res, err := query(ctx)
	breaker.Record(err)

# States

	Closed --[threshold failures]-> Open --[cooldown]-> Half-Open --[success]-> Closed
	                                  ^                      |
	                                  +------[failure]-------+
*/
package resilience
