// Package log builds the slog loggers used by lure.
//
// Every logger wraps its output handler in a RedactHandler. Sessions
// capture attacker-supplied credentials and request bodies; those belong
// in the event store only, so attributes such as "password", "payload" or
// "authorization" and values that look like bearer tokens or keys are
// replaced with MaskValue before they reach the log output.
//
// Output goes to an io.Writer (usually os.Stderr) or, when Options.File is
// set, to a size-rotated file managed by lumberjack.
//
//	logger := log.New(log.Options{Verbose: true})
//	logger.Info("login attempt", "service", "ssh", "password", pw) // password=***REDACTED***
package log
