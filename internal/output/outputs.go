package output

import (
	"github.com/oshokin/azure-publisher/internal/domain/artifact"
)

// Keys under which URLs are exported.
const (
	KeyPackage     = "AZURE_PACKAGE_OUTPUT_PATH"
	KeyBundle      = "AZURE_IPA_OUTPUT_PATH"
	KeySymbols     = "AZURE_DSYM_OUTPUT_PATH"
	KeyMapping     = "AZURE_MAPPING_OUTPUT_PATH"
	KeyManifest    = "AZURE_PLIST_OUTPUT_PATH"
	KeyLandingPage = "AZURE_HTML_OUTPUT_PATH"
)

// Outputs holds one optional URL per artifact kind.
type Outputs struct {
	Package     string `yaml:"package,omitempty"`
	Bundle      string `yaml:"ipa,omitempty"`
	Symbols     string `yaml:"dsym,omitempty"`
	Mapping     string `yaml:"mapping,omitempty"`
	Manifest    string `yaml:"plist,omitempty"`
	LandingPage string `yaml:"html,omitempty"`
}

// Entry is one exported key and value.
type Entry struct {
	Key   string
	Value string
}

// FromPublished collects published URLs into Outputs.
func FromPublished(urls []artifact.PublishedURL) *Outputs {
	out := new(Outputs)

	for _, u := range urls {
		if field := out.field(u.Kind); field != nil {
			*field = u.URL
		}
	}

	return out
}

// Entries returns the present values in a stable order.
func (o *Outputs) Entries() []Entry {
	all := []Entry{
		{Key: KeyPackage, Value: o.Package},
		{Key: KeyBundle, Value: o.Bundle},
		{Key: KeySymbols, Value: o.Symbols},
		{Key: KeyMapping, Value: o.Mapping},
		{Key: KeyManifest, Value: o.Manifest},
		{Key: KeyLandingPage, Value: o.LandingPage},
	}

	entries := all[:0]

	for _, e := range all {
		if e.Value != "" {
			entries = append(entries, e)
		}
	}

	return entries
}

// Len returns the number of present values.
func (o *Outputs) Len() int {
	return len(o.Entries())
}

func (o *Outputs) field(kind artifact.Kind) *string {
	switch kind {
	case artifact.KindPackage:
		return &o.Package
	case artifact.KindBundle:
		return &o.Bundle
	case artifact.KindSymbols:
		return &o.Symbols
	case artifact.KindMapping:
		return &o.Mapping
	case artifact.KindManifest:
		return &o.Manifest
	case artifact.KindLandingPage:
		return &o.LandingPage
	default:
		return nil
	}
}
