// Package log provides the logging abstraction used by fimsync components.
//
// Components depend on the Logger interface only. The zerolog adapter is
// what the agent binary wires in; NoopLogger discards everything and the
// logtest subpackage records messages for assertions.
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//	logger.With(log.String("module", "sync")).Info("cycle done", log.Int("entries", n))
//
// Fields are plain key/value pairs built with the helpers in this package
// (String, Int64, Err, ...).
package log
