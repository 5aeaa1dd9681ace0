package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/klauspost/compress/zip"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotFound is wrapped by every source when the requested resource does not
// exist, as opposed to being unreachable.
var ErrNotFound = errors.New("resource not found")

// Source fetches the full contents of a resource by URI.
type Source interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// FileSource reads plain paths from a billy filesystem.
type FileSource struct {
	fs billy.Filesystem
}

func NewFileSource(fs billy.Filesystem) *FileSource {
	return &FileSource{fs: fs}
}

func (s *FileSource) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := strings.TrimPrefix(uri, "file://")
	data, err := util.ReadFile(s.fs, name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("read %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("read %q: %w", name, err)
	}
	return data, nil
}

// HTTPDoer describes the HTTP client used for remote content.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type HTTPSource struct {
	client HTTPDoer
}

func NewHTTPSource(client HTTPDoer) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{client: client}
}

func (s *HTTPSource) Fetch(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %q: %w", uri, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("get %q returned %d: %w", uri, resp.StatusCode, ErrNotFound)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("get %q returned %d", uri, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body of %q: %w", uri, err)
	}
	return data, nil
}

// S3Source reads s3://bucket/key objects through a minio client.
type S3Source struct {
	client *minio.Client
}

func NewS3Source(client *minio.Client) *S3Source {
	return &S3Source{client: client}
}

// NewS3Client connects to an S3 compatible object store with static
// credentials. Buckets are addressed by path so local stores work too.
func NewS3Client(endpoint, accessKey, secretKey, region string, useSSL bool) (*minio.Client, error) {
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       useSSL,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client for %q: %w", endpoint, err)
	}
	return client, nil
}

func (s *S3Source) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := splitS3URI(uri)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateS3Error(uri, err)
	}
	defer func() {
		_ = obj.Close()
	}()

	// GetObject is lazy, errors surface on the first read
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translateS3Error(uri, err)
	}
	return data, nil
}

func splitS3URI(uri string) (string, string, error) {
	rest := strings.TrimPrefix(uri, "s3://")
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 uri %q", uri)
	}
	return bucket, key, nil
}

func translateS3Error(uri string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("get %q: %w", uri, ErrNotFound)
	default:
		return fmt.Errorf("get %q: %w", uri, err)
	}
}

// ArchiveSource resolves jar:file://<archive>!/<entry> references. The
// archive itself is read through the outer source and kept open for reuse.
type ArchiveSource struct {
	outer Source

	mu       sync.Mutex
	archives map[string]*zip.Reader
}

func NewArchiveSource(outer Source) *ArchiveSource {
	return &ArchiveSource{outer: outer, archives: make(map[string]*zip.Reader)}
}

// SplitArchiveURI breaks a jar:file:// reference into the archive path and the
// entry path inside it.
func SplitArchiveURI(uri string) (string, string, error) {
	rest, ok := strings.CutPrefix(uri, "jar:")
	if !ok {
		return "", "", fmt.Errorf("invalid archive uri %q", uri)
	}
	archive, entry, ok := strings.Cut(rest, "!/")
	if !ok || entry == "" {
		return "", "", fmt.Errorf("invalid archive uri %q", uri)
	}
	return strings.TrimPrefix(archive, "file://"), entry, nil
}

func (s *ArchiveSource) Fetch(ctx context.Context, uri string) ([]byte, error) {
	archive, entry, err := SplitArchiveURI(uri)
	if err != nil {
		return nil, err
	}
	zr, err := s.open(ctx, archive)
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if f.Name != entry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %q in %q: %w", entry, archive, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %q in %q: %w", entry, archive, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("entry %q in %q: %w", entry, archive, ErrNotFound)
}

func (s *ArchiveSource) open(ctx context.Context, archive string) (*zip.Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if zr, ok := s.archives[archive]; ok {
		return zr, nil
	}
	data, err := s.outer.Fetch(ctx, archive)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive %q: %w", archive, err)
	}
	s.archives[archive] = zr
	return zr, nil
}

// Router dispatches a URI to the source that handles its scheme. Plain paths
// and file:// URIs go to the filesystem.
type Router struct {
	File    Source
	HTTP    Source
	S3      Source
	Archive Source

	// Timeout bounds each fetch. Zero means no timeout.
	Timeout time.Duration
}

// NewRouter wires the default sources. s3 may be nil when no object store is
// configured.
func NewRouter(fs billy.Filesystem, client HTTPDoer, s3 *minio.Client) *Router {
	r := &Router{
		File: NewFileSource(fs),
		HTTP: NewHTTPSource(client),
	}
	if s3 != nil {
		r.S3 = NewS3Source(s3)
	}
	r.Archive = NewArchiveSource(r)
	return r
}

func (r *Router) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var src Source
	switch {
	case strings.HasPrefix(uri, "jar:"):
		src = r.Archive
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		src = r.HTTP
	case strings.HasPrefix(uri, "s3://"):
		src = r.S3
	default:
		src = r.File
	}
	if src == nil {
		return nil, fmt.Errorf("no source configured for %q", uri)
	}
	return src.Fetch(ctx, uri)
}
