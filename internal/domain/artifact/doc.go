// Package artifact contains the core domain types for publishing build artifacts.
//
// It defines Kind (what an uploaded or rendered artifact is), Set (the
// optional inputs of one publishing run) and PublishedURL (the public address
// produced for an artifact), plus the error kinds shared by every layer.
package artifact
