package publisher

import (
	"fmt"

	"github.com/oshokin/azure-publisher/internal/domain/artifact"
	"github.com/oshokin/azure-publisher/internal/render"
)

// sampleURL stands in for public URLs while templates are checked.
const sampleURL = "https://account.blob.core.windows.net/container/app"

// templates holds the parsed documents of a run. A nil document is not configured.
type templates struct {
	manifest    *render.Document
	landingPage *render.Document
}

// loadTemplates parses the configured templates and renders each once with
// sample values, so an unreadable file or an unknown placeholder fails before
// any upload starts.
func loadTemplates(set *artifact.Set) (templates, error) {
	var (
		t   templates
		err error
	)

	if set.HasManifestTemplate() {
		values := render.ManifestValues{
			BundleURL:     sampleURL,
			BundleID:      set.BundleID,
			BundleVersion: set.BundleVersion,
			Title:         set.Title,
		}

		if t.manifest, err = check(set.ManifestTemplate, values.Map()); err != nil {
			return templates{}, err
		}
	}

	if set.HasLandingPageTemplate() {
		if t.landingPage, err = check(set.LandingPageTemplate, render.LandingPageValues(sampleURL)); err != nil {
			return templates{}, err
		}
	}

	return t, nil
}

func check(path string, values map[string]string) (*render.Document, error) {
	doc, err := render.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", artifact.ErrConfiguration, err)
	}

	if _, err = doc.Render(values); err != nil {
		return nil, fmt.Errorf("%w: %w", artifact.ErrConfiguration, err)
	}

	return doc, nil
}
