// Package block uploads a local file as an Azure-style block blob.
//
// The file is read in fixed-size chunks; every chunk is staged as an
// uncommitted block under a zero-padded decimal identifier, and the ordered
// identifier list is committed in one call at the end. A blob only becomes
// visible after the commit, so a failed staging never leaves a partial blob.
package block
