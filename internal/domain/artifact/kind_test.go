package artifact

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestKindString verifies every kind has a distinct printable name.
func TestKindString(t *testing.T) {
	t.Parallel()

	kinds := []Kind{KindPackage, KindBundle, KindSymbols, KindMapping, KindManifest, KindLandingPage}
	seen := make(map[string]struct{}, len(kinds))

	for _, k := range kinds {
		name := k.String()
		require.NotEqual(t, "unknown", name)

		_, dup := seen[name]
		require.False(t, dup, name)

		seen[name] = struct{}{}
	}

	require.Equal(t, "unknown", Kind(0).String())
}

// TestSetPresence checks the presence helpers follow empty-path semantics.
func TestSetPresence(t *testing.T) {
	t.Parallel()

	var s Set
	require.False(t, s.HasPackage())
	require.False(t, s.HasBundle())
	require.False(t, s.HasManifestTemplate())
	require.False(t, s.HasLandingPageTemplate())

	s = Set{Package: "app.apk", Bundle: "app.ipa", ManifestTemplate: "m.plist.tmpl", LandingPageTemplate: "i.html.tmpl"}
	require.True(t, s.HasPackage())
	require.True(t, s.HasBundle())
	require.True(t, s.HasManifestTemplate())
	require.True(t, s.HasLandingPageTemplate())
}

// TestErrorKindsAreDistinct ensures wrapped errors keep exactly their own kind.
func TestErrorKindsAreDistinct(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("%w: stage block 00001: %w", ErrTransport, errors.New("boom"))
	require.ErrorIs(t, err, ErrTransport)
	require.NotErrorIs(t, err, ErrIO)
	require.NotErrorIs(t, err, ErrConfiguration)
}
