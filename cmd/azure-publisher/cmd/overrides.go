package cmd

import "github.com/oshokin/azure-publisher/internal/config"

// overrides copies a flag value from src into dst, keyed by flag name.
var overrides = map[string]func(dst, src *config.Config){
	"account-name":      func(dst, src *config.Config) { dst.AccountName = src.AccountName },
	"access-key":        func(dst, src *config.Config) { dst.AccessKey = src.AccessKey },
	"container":         func(dst, src *config.Config) { dst.Container = src.Container },
	"path":              func(dst, src *config.Config) { dst.Path = src.Path },
	"endpoint":          func(dst, src *config.Config) { dst.Endpoint = src.Endpoint },
	"chunk-size":        func(dst, src *config.Config) { dst.ChunkSize = src.ChunkSize },
	"timeout":           func(dst, src *config.Config) { dst.Timeout = src.Timeout },
	"reset-connections": func(dst, src *config.Config) { dst.ResetConnections = src.ResetConnections },
	"log-level":         func(dst, src *config.Config) { dst.LogLevel = src.LogLevel },
	"package":           func(dst, src *config.Config) { dst.Artifacts.Package = src.Artifacts.Package },
	"mapping":           func(dst, src *config.Config) { dst.Artifacts.Mapping = src.Artifacts.Mapping },
	"ipa":               func(dst, src *config.Config) { dst.Artifacts.IPA = src.Artifacts.IPA },
	"dsym":              func(dst, src *config.Config) { dst.Artifacts.DSYM = src.Artifacts.DSYM },
	"plist-template":    func(dst, src *config.Config) { dst.Artifacts.PlistTemplate = src.Artifacts.PlistTemplate },
	"html-template":     func(dst, src *config.Config) { dst.Artifacts.HTMLTemplate = src.Artifacts.HTMLTemplate },
	"bundle-id":         func(dst, src *config.Config) { dst.Artifacts.BundleID = src.Artifacts.BundleID },
	"bundle-version":    func(dst, src *config.Config) { dst.Artifacts.BundleVersion = src.Artifacts.BundleVersion },
	"title":             func(dst, src *config.Config) { dst.Artifacts.Title = src.Artifacts.Title },
	"env-file":          func(dst, src *config.Config) { dst.Outputs.EnvFile = src.Outputs.EnvFile },
	"outputs-file":      func(dst, src *config.Config) { dst.Outputs.YAMLFile = src.Outputs.YAMLFile },
}
