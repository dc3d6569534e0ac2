// Package common holds helpers shared by several services.
//
// It detects the current system actor (hostname/username) so every run can be
// traced back to the machine and account that published it.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
