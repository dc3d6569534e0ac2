// Package location derives remote blob paths and public URLs for artifacts.
package location

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// DefaultEndpointFormat is the public blob endpoint of an Azure storage account.
const DefaultEndpointFormat = "https://%s.blob.core.windows.net"

var (
	// ErrEmptyFileName is returned when no file name is given.
	ErrEmptyFileName = errors.New("file name must be provided")
	// ErrEmptyAccount is returned when no account name is given.
	ErrEmptyAccount = errors.New("account name must be provided")
	// ErrEmptyContainer is returned when no container is given.
	ErrEmptyContainer = errors.New("container must be provided")
	// errBadEndpoint is returned for endpoints that are not absolute URLs.
	errBadEndpoint = errors.New("endpoint must be an absolute http(s) URL")
)

// Resolve joins basePath and fileName into the remote path and builds the
// canonical public URL https://{account}.blob.core.windows.net/{container}/{path}.
func Resolve(account, container, basePath, fileName string) (string, string, error) {
	r, err := NewResolver(account, container, "")
	if err != nil {
		return "", "", err
	}

	return r.Resolve(basePath, fileName)
}

// Resolver resolves paths for one account and container.
type Resolver struct {
	// container is the blob container name.
	container string
	// endpoint is the service URL without a trailing slash.
	endpoint string
}

// NewResolver creates a resolver. An empty endpoint selects the public Azure
// endpoint of the account; a custom one (Azurite, sovereign clouds) is used as is.
func NewResolver(account, container, endpoint string) (*Resolver, error) {
	if container == "" {
		return nil, ErrEmptyContainer
	}

	if endpoint == "" {
		if account == "" {
			return nil, ErrEmptyAccount
		}

		endpoint = fmt.Sprintf(DefaultEndpointFormat, account)
	}

	parsed, err := url.Parse(endpoint)
	if err != nil || (parsed.Scheme != "https" && parsed.Scheme != "http") || parsed.Host == "" {
		return nil, fmt.Errorf("%q: %w", endpoint, errBadEndpoint)
	}

	return &Resolver{
		container: container,
		endpoint:  strings.TrimRight(endpoint, "/"),
	}, nil
}

// Container returns the container the resolver targets.
func (r *Resolver) Container() string {
	return r.container
}

// Endpoint returns the service URL, without a trailing slash.
func (r *Resolver) Endpoint() string {
	return r.endpoint
}

// Resolve returns the remote path of fileName under basePath and its public URL.
// Leading and trailing separators of basePath do not change the separator count.
func (r *Resolver) Resolve(basePath, fileName string) (string, string, error) {
	if fileName == "" {
		return "", "", ErrEmptyFileName
	}

	remotePath := path.Join(basePath, fileName)

	return remotePath, r.URL(remotePath), nil
}

// URL returns the public URL of a remote path.
func (r *Resolver) URL(remotePath string) string {
	return r.endpoint + "/" + r.container + "/" + escapePath(BlobName(remotePath))
}

// BlobName turns a remote path into the blob name used by the storage API.
func BlobName(remotePath string) string {
	return strings.TrimLeft(remotePath, "/")
}

// escapePath percent-encodes every segment while keeping separators.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	return strings.Join(segments, "/")
}
