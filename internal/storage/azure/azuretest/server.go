// Package azuretest provides a minimal Blob Storage endpoint for tests.
//
// It understands the three requests the publisher sends (Put Block, Put Block
// List and Put Blob), keeps uncommitted blocks apart from committed blobs and
// records every request, so tests can run the real SDK client end to end.
package azuretest

import (
	"encoding/base64"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Account and Key are valid shared-key credentials for the fake endpoint.
const (
	Account = "devstoreaccount1"
	Key     = "ZmFrZS1rZXktZm9yLXRlc3RzLW9ubHk="
)

// Request is one recorded storage request.
type Request struct {
	// Op is "block", "blocklist" or "blob".
	Op string
	// Path is container/blob.
	Path string
	// BlockID is the decoded block id for "block".
	BlockID string
	// BlockIDs are the decoded ids of a "blocklist".
	BlockIDs []string
	// Size is the request body size for "block" and "blob".
	Size int
}

// Blob is a committed blob.
type Blob struct {
	// Data is the blob content.
	Data []byte
	// ContentType is the x-ms-blob-content-type sent by the client.
	ContentType string
	// ContentMD5 is the base64 x-ms-blob-content-md5 sent by the client.
	ContentMD5 string
}

// Server is a fake Blob Storage account served over HTTP.
type Server struct {
	*httptest.Server

	// FailOp makes every request of that op fail with 500 when set.
	FailOp string

	mu       sync.Mutex
	staged   map[string]map[string][]byte
	blobs    map[string]*Blob
	requests []Request
}

// blockList is the body of Put Block List.
type blockList struct {
	Latest      []string `xml:"Latest"`
	Committed   []string `xml:"Committed"`
	Uncommitted []string `xml:"Uncommitted"`
}

// NewServer starts a fake endpoint. Its Endpoint method returns the
// path-style service URL to configure the client with.
func NewServer() *Server {
	s := &Server{
		staged: make(map[string]map[string][]byte),
		blobs:  make(map[string]*Blob),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))

	return s
}

// Endpoint returns the service URL of the fake account.
func (s *Server) Endpoint() string {
	return s.URL + "/" + Account
}

// Blob returns a committed blob by container/blob path, or nil.
func (s *Server) Blob(path string) *Blob {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.blobs[path]
}

// Requests returns the recorded requests in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Request(nil), s.requests...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "unsupported method", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/"+Account+"/")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	op := r.URL.Query().Get("comp")
	if op == "" {
		op = "blob"
	}

	if op == s.FailOp {
		w.Header().Set("x-ms-error-code", "InternalError")
		http.Error(w, "injected failure", http.StatusInternalServerError)

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch op {
	case "block":
		id, decodeErr := base64.StdEncoding.DecodeString(r.URL.Query().Get("blockid"))
		if decodeErr != nil {
			http.Error(w, "bad block id", http.StatusBadRequest)
			return
		}

		if s.staged[path] == nil {
			s.staged[path] = make(map[string][]byte)
		}

		s.staged[path][string(id)] = body
		s.requests = append(s.requests, Request{Op: op, Path: path, BlockID: string(id), Size: len(body)})
	case "blocklist":
		var list blockList
		if err = xml.Unmarshal(body, &list); err != nil {
			http.Error(w, "bad block list", http.StatusBadRequest)
			return
		}

		var (
			data []byte
			ids  = make([]string, 0, len(list.Latest))
		)

		for _, encoded := range list.Latest {
			id, decodeErr := base64.StdEncoding.DecodeString(encoded)
			if decodeErr != nil {
				http.Error(w, "bad block id", http.StatusBadRequest)
				return
			}

			chunk, ok := s.staged[path][string(id)]
			if !ok {
				w.Header().Set("x-ms-error-code", "InvalidBlockList")
				http.Error(w, "block not staged", http.StatusBadRequest)

				return
			}

			ids = append(ids, string(id))
			data = append(data, chunk...)
		}

		delete(s.staged, path)
		s.blobs[path] = &Blob{
			Data:        data,
			ContentType: r.Header.Get("x-ms-blob-content-type"),
			ContentMD5:  r.Header.Get("x-ms-blob-content-md5"),
		}
		s.requests = append(s.requests, Request{Op: op, Path: path, BlockIDs: ids})
	case "blob":
		s.blobs[path] = &Blob{
			Data:        body,
			ContentType: r.Header.Get("x-ms-blob-content-type"),
			ContentMD5:  r.Header.Get("x-ms-blob-content-md5"),
		}
		s.requests = append(s.requests, Request{Op: op, Path: path, Size: len(body)})
	default:
		http.Error(w, "unsupported comp", http.StatusBadRequest)
		return
	}

	w.Header().Set("ETag", `"0x8D000000000000"`)
	w.WriteHeader(http.StatusCreated)
}
