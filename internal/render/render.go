// Package render turns install manifest and landing page templates into
// documents ready for upload.
//
// Templates use text/template syntax and reference values by name, for
// example {{ .url }} or {{ .bundle_id }}. A template that references a value
// not supplied for its document fails to render instead of producing a
// document with an unresolved placeholder.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"text/template"
)

// Placeholder names available to install manifest templates.
const (
	KeyURL           = "url"
	KeyBundleID      = "bundle_id"
	KeyBundleVersion = "bundle_version"
	KeyTitle         = "title"
	// KeyLink is available to landing page templates next to KeyURL.
	KeyLink = "link"
)

// installURLFormat is the iOS over-the-air install trigger for a manifest URL.
const installURLFormat = "itms-services://?action=download-manifest&url=%s"

// errEmptyTemplate is returned for a template file without content.
var errEmptyTemplate = errors.New("template is empty")

// Document is a parsed template.
type Document struct {
	// name identifies the template in errors, usually its file path.
	name string
	// tmpl is the parsed template.
	tmpl *template.Template
}

// Load reads and parses the template at path.
func Load(path string) (*Document, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}

	return Parse(path, string(contents))
}

// Parse parses text as a template named name.
func Parse(name, text string) (*Document, error) {
	if text == "" {
		return nil, fmt.Errorf("%s: %w", name, errEmptyTemplate)
	}

	tmpl, err := template.New(filepath.Base(name)).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}

	return &Document{name: name, tmpl: tmpl}, nil
}

// Name returns the template name.
func (d *Document) Name() string {
	return d.name
}

// Render substitutes values into the template.
func (d *Document) Render(values map[string]string) (string, error) {
	var out bytes.Buffer
	if err := d.tmpl.Execute(&out, values); err != nil {
		return "", fmt.Errorf("render template %s: %w", d.name, err)
	}

	return out.String(), nil
}

// ManifestValues are the values of an install manifest.
type ManifestValues struct {
	// BundleURL is the public URL of the application bundle.
	BundleURL string
	// BundleID is the application identifier.
	BundleID string
	// BundleVersion is the application version.
	BundleVersion string
	// Title is the display title.
	Title string
}

// Map returns the placeholder mapping of the manifest.
func (v ManifestValues) Map() map[string]string {
	return map[string]string{
		KeyURL:           v.BundleURL,
		KeyBundleID:      v.BundleID,
		KeyBundleVersion: v.BundleVersion,
		KeyTitle:         v.Title,
	}
}

// LandingPageValues returns the placeholder mapping of a landing page for a manifest URL.
func LandingPageValues(manifestURL string) map[string]string {
	return map[string]string{
		KeyURL:  InstallURL(manifestURL),
		KeyLink: manifestURL,
	}
}

// InstallURL builds the itms-services link that installs the app described by manifestURL.
func InstallURL(manifestURL string) string {
	return fmt.Sprintf(installURLFormat, url.QueryEscape(manifestURL))
}
