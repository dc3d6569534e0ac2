package publisher

import (
	"mime"
	"path/filepath"
	"strings"
)

// Content types of the documents written by the pipeline.
const (
	ManifestContentType    = "application/xml"
	LandingPageContentType = "text/html; charset=utf-8"

	defaultContentType = "application/octet-stream"
)

// knownContentTypes covers build artifacts missing from common mime tables.
var knownContentTypes = map[string]string{
	".apk":  "application/vnd.android.package-archive",
	".aab":  "application/octet-stream",
	".ipa":  "application/octet-stream",
	".txt":  "text/plain; charset=utf-8",
	".zip":  "application/zip",
	".dsym": "application/octet-stream",
}

// contentType guesses the content type of a local artifact from its extension.
func contentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return defaultContentType
	}

	if known, ok := knownContentTypes[ext]; ok {
		return known
	}

	if guessed := mime.TypeByExtension(ext); guessed != "" {
		return guessed
	}

	return defaultContentType
}

// documentName derives a sibling file name for the bundle, e.g. app.ipa -> app.plist.
func documentName(bundlePath, ext string) string {
	base := filepath.Base(bundlePath)

	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}
