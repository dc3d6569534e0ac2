// Package version exposes build metadata for the publisher.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. Short and Full render the version for CLI output, and
// ApplicationID renders it for the storage client's User-Agent.
package version
