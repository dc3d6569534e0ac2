// Package output hands the URLs produced by a run to later release steps.
//
// Outputs is the typed record of every published URL. Publishers write it to
// the surfaces downstream tooling reads: a KEY=value environment file (for
// example $GITHUB_OUTPUT), a YAML document, or the log.
package output
