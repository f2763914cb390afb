/*
Package log provides structured logging for Hutch built on zerolog.

A single global logger is initialized once via Init and consumed through
child-logger helpers that attach standard fields:

	log.Init(log.Config{Level: log.DebugLevel})
	logger := log.WithSubsystem("camera", tag)
	logger.Debug().Str("state", "running").Msg("transition committed")

Console output (the default) is human-readable; JSONOutput switches to
machine-parseable JSON for log shippers. Workers log dispatch faults at
error level and transitions at debug level, so a quiet production setup
runs at info.
*/
package log
