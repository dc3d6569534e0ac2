package artifact

// Kind identifies the role an artifact plays in a release.
type Kind int

const (
	// KindPackage is the Android application package (.apk/.aab).
	KindPackage Kind = iota + 1
	// KindBundle is the iOS application bundle (.ipa).
	KindBundle
	// KindSymbols is the zipped dSYM archive attached to the bundle.
	KindSymbols
	// KindMapping is the ProGuard/R8 mapping file attached to the package.
	KindMapping
	// KindManifest is the rendered over-the-air install manifest (.plist).
	KindManifest
	// KindLandingPage is the rendered HTML page linking to the manifest.
	KindLandingPage
)

// String returns a short lower-case name used in logs.
func (k Kind) String() string {
	switch k {
	case KindPackage:
		return "package"
	case KindBundle:
		return "bundle"
	case KindSymbols:
		return "symbols"
	case KindMapping:
		return "mapping"
	case KindManifest:
		return "manifest"
	case KindLandingPage:
		return "landing_page"
	default:
		return "unknown"
	}
}

// PublishedURL is the public address of an artifact that reached storage.
type PublishedURL struct {
	// Kind is the role of the published artifact.
	Kind Kind
	// URL is the fully qualified HTTPS address of the blob.
	URL string
}
