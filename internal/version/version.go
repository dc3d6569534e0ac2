package version

import "fmt"

// applicationName is reported to Azure as the telemetry application id.
const applicationName = "azure-publisher"

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s", Version, Commit, BuildTime)
}

// ApplicationID returns the identifier sent in the User-Agent of storage requests.
// Azure limits it to 24 characters, so only the name and short version are used.
func ApplicationID() string {
	id := applicationName + "/" + Version
	if len(id) > 24 {
		return applicationName
	}

	return id
}
