// Package publisher runs a publishing pipeline: it validates a run, uploads
// the build artifacts, renders and uploads the install manifest and landing
// page, and hands every public URL to the output publishers.
//
// The pipeline is sequential. Each state runs to completion before the next
// one starts, and the first failure moves the run to StateAborted without
// touching anything downstream. Blobs committed before the failure stay in
// storage; rerunning the pipeline overwrites them.
package publisher
