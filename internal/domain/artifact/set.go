package artifact

// Set holds the inputs of one publishing run. Empty paths mean "not present".
type Set struct {
	// Package is the local path of the Android package.
	Package string
	// Mapping is the local path of the mapping file attached to Package.
	Mapping string
	// Bundle is the local path of the iOS application bundle.
	Bundle string
	// Symbols is the local path of the symbol archive attached to Bundle.
	Symbols string
	// ManifestTemplate is the install manifest template rendered for Bundle.
	ManifestTemplate string
	// LandingPageTemplate is the HTML template rendered next to the manifest.
	LandingPageTemplate string

	// BundleID is the application identifier written into the manifest.
	BundleID string
	// BundleVersion is the application version written into the manifest.
	BundleVersion string
	// Title is the display title written into the manifest.
	Title string
}

// HasPackage reports whether an Android package was supplied.
func (s *Set) HasPackage() bool { return s.Package != "" }

// HasBundle reports whether an iOS application bundle was supplied.
func (s *Set) HasBundle() bool { return s.Bundle != "" }

// HasManifestTemplate reports whether an install manifest should be rendered.
func (s *Set) HasManifestTemplate() bool { return s.ManifestTemplate != "" }

// HasLandingPageTemplate reports whether a landing page should be rendered.
func (s *Set) HasLandingPageTemplate() bool { return s.LandingPageTemplate != "" }
