package azure

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // Transactional MD5 is the integrity check Azure supports for blocks.
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"

	"github.com/oshokin/azure-publisher/internal/storage/block"
	"github.com/oshokin/azure-publisher/internal/storage/location"
	"github.com/oshokin/azure-publisher/internal/version"
)

// DefaultTimeout bounds a single storage request, i.e. one block or one small blob.
const DefaultTimeout = 5 * time.Minute

var (
	// errAccountRequired is returned when the account name is missing.
	errAccountRequired = errors.New("account name must be provided")
	// errKeyRequired is returned when the access key is missing.
	errKeyRequired = errors.New("access key must be provided")
)

// Service talks to one Azure storage account.
type Service struct {
	// client is the SDK client bound to the service endpoint.
	client *azblob.Client
	// httpClient is the transport shared by every request of the run.
	httpClient *http.Client
	// endpoint is the service URL without a trailing slash.
	endpoint string
}

// options collects the optional settings of New.
type options struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
}

// Option configures the service.
type Option func(*options)

// WithEndpoint overrides the public endpoint, e.g. for Azurite.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		if endpoint != "" {
			o.endpoint = endpoint
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client. It
// covers the request body, so it must allow for uploading a whole block.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithHTTPClient replaces the HTTP client; WithTimeout is then ignored.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// New creates a service authenticated with the account's shared key.
func New(account, key string, opts ...Option) (*Service, error) {
	if account == "" {
		return nil, errAccountRequired
	}

	if key == "" {
		return nil, errKeyRequired
	}

	o := &options{
		endpoint: fmt.Sprintf(location.DefaultEndpointFormat, account),
		timeout:  DefaultTimeout,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.httpClient == nil {
		o.httpClient = &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(), //nolint:forcetypeassert // Standard library guarantee.
			Timeout:   o.timeout,
		}
	}

	credential, err := azblob.NewSharedKeyCredential(account, key)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}

	endpoint := strings.TrimRight(o.endpoint, "/")

	client, err := azblob.NewClientWithSharedKeyCredential(endpoint+"/", credential, &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Transport: o.httpClient,
			// A negative value means one try and no retries.
			Retry:     policy.RetryOptions{MaxRetries: -1},
			Telemetry: policy.TelemetryOptions{ApplicationID: version.ApplicationID()},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}

	return &Service{
		client:     client,
		httpClient: o.httpClient,
		endpoint:   endpoint,
	}, nil
}

// Endpoint returns the service URL the client talks to.
func (s *Service) Endpoint() string {
	return s.endpoint
}

// StageBlock uploads data as an uncommitted block with a transactional MD5.
func (s *Service) StageBlock(ctx context.Context, container, blobName, id string, data []byte) error {
	sum := md5.Sum(data) //nolint:gosec // See import comment.

	_, err := s.blockBlob(container, blobName).StageBlock(ctx, EncodeBlockID(id),
		streaming.NopCloser(bytes.NewReader(data)),
		&blockblob.StageBlockOptions{
			TransactionalValidation: blob.TransferValidationTypeMD5(sum[:]),
		})
	if err != nil {
		return fmt.Errorf("stage block: %w", describe(err))
	}

	return nil
}

// CommitBlocks commits the staged blocks, in order, as the blob content.
func (s *Service) CommitBlocks(ctx context.Context, container, blobName string, ids []string, headers block.Headers) error {
	encoded := make([]string, len(ids))
	for i, id := range ids {
		encoded[i] = EncodeBlockID(id)
	}

	_, err := s.blockBlob(container, blobName).CommitBlockList(ctx, encoded, &blockblob.CommitBlockListOptions{
		HTTPHeaders: httpHeaders(headers.ContentType, headers.ContentMD5),
	})
	if err != nil {
		return fmt.Errorf("commit block list: %w", describe(err))
	}

	return nil
}

// WriteBlob uploads data as a complete blob in a single request.
func (s *Service) WriteBlob(ctx context.Context, container, blobName string, data []byte, contentType string) error {
	sum := md5.Sum(data) //nolint:gosec // See import comment.

	_, err := s.blockBlob(container, blobName).Upload(ctx, streaming.NopCloser(bytes.NewReader(data)),
		&blockblob.UploadOptions{
			HTTPHeaders: httpHeaders(contentType, sum[:]),
		})
	if err != nil {
		return fmt.Errorf("write blob: %w", describe(err))
	}

	return nil
}

// CloseIdleConnections drops pooled connections so the next request dials afresh.
func (s *Service) CloseIdleConnections() {
	s.httpClient.CloseIdleConnections()
}

func (s *Service) blockBlob(container, blobName string) *blockblob.Client {
	return s.client.ServiceClient().NewContainerClient(container).NewBlockBlobClient(blobName)
}

// EncodeBlockID converts a block identifier to the base64 form the REST API expects.
// Identifiers of equal length encode to strings of equal length.
func EncodeBlockID(id string) string {
	return base64.StdEncoding.EncodeToString([]byte(id))
}

// httpHeaders builds the blob properties, leaving unset values to the service.
func httpHeaders(contentType string, contentMD5 []byte) *blob.HTTPHeaders {
	headers := &blob.HTTPHeaders{
		BlobContentMD5: contentMD5,
	}

	if contentType != "" {
		headers.BlobContentType = to.Ptr(contentType)
	}

	return headers
}

// describe shortens SDK response errors to status and error code.
func describe(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return fmt.Errorf("status %d, code %s: %w", respErr.StatusCode, respErr.ErrorCode, err)
	}

	return err
}
