/*
Package log provides structured logging for drbdmanaged using zerolog.

A single global Logger is configured once via Init and read from
everywhere else in the daemon. Component loggers (WithComponent) and
domain context loggers (WithNodeID, WithResource, WithAssignment)
attach fields without threading a logger through every call.

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	reconcilerLog := log.WithComponent("reconciler")
	reconcilerLog.Info().Msg("starting reconcile pass")

	assignLog := log.WithAssignment("data", "alpha")
	assignLog.Warn().Msg("peer unreachable, retrying connect")

JSONOutput selects structured JSON (production) vs. a
zerolog.ConsoleWriter (interactive use); both carry a timestamp on
every entry. Fatal logs then calls os.Exit(1), so it's reserved for
startup failures the daemon cannot recover from.
*/
package log
