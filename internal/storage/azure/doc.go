// Package azure implements the storage primitives of the publisher on top of
// the Azure Blob Storage SDK: staging a block, committing a block list and
// writing a small blob in one request.
//
// The service is constructed explicitly from an account name and shared key
// and passed down to the uploaders. It keeps one HTTP client for the whole
// run and disables the SDK retry policy, so every call is attempted once.
package azure
