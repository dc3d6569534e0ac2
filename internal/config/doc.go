// Package config defines the settings of a publishing run and provides
// helpers to load them from YAML, fill gaps from the environment, validate
// them and write a starter file.
//
// Validation happens before any network activity: a Config that passes
// Validate is complete enough for every upload the run will attempt.
package config
