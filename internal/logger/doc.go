// Package logger wraps zap to give the publisher:
//   - a global sugared logger with a console encoder writing to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and a per-logger level override option,
//   - leveled convenience functions (Infof, InfoKV, ErrorKV, etc.).
//
// Every operation takes a context and extracts its logger from it, so the
// run id and component names attached upstream appear on every line.
package logger
