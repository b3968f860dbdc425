// Package s3 serves a medium.Medium from an S3 bucket.
//
// Objects map to files by key: "/docs/a.html" is "<prefix>docs/a.html".
// Directories are implicit key prefixes, enumerated with ListObjectsV2 and a
// "/" delimiter. File reads are ranged GetObject requests, one per Read call,
// so a large file is never held in memory.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/marmos91/wwwserver/pkg/store/medium"
)

// API is the subset of the S3 client the medium uses.
type API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Config configures the S3 medium.
type Config struct {
	// Client is the configured S3 client
	Client API

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is prepended to every object key, e.g. "site/".
	KeyPrefix string

	// PageSize bounds the keys fetched per directory listing request.
	PageSize int32

	// Metrics receives per-request statistics. Nil disables them.
	Metrics S3Metrics
}

// Medium reads objects from one bucket.
type Medium struct {
	client   API
	bucket   string
	prefix   string
	pageSize int32
	metrics  S3Metrics
}

// New creates an S3 medium. The bucket is not contacted.
func New(cfg Config) (*Medium, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	prefix := strings.TrimPrefix(cfg.KeyPrefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	var metrics S3Metrics = noopMetrics{}
	if cfg.Metrics != nil {
		metrics = cfg.Metrics
	}

	return &Medium{client: cfg.Client, bucket: cfg.Bucket, prefix: prefix, pageSize: pageSize, metrics: metrics}, nil
}

func (m *Medium) objectKey(name string) string {
	return m.prefix + strings.TrimPrefix(medium.Clean(name), "/")
}

// dirPrefix returns the listing prefix of a directory, "" for an unprefixed root.
func (m *Medium) dirPrefix(name string) string {
	key := m.objectKey(name)
	if key == "" || strings.HasSuffix(key, "/") {
		return key
	}
	return key + "/"
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

func (m *Medium) Open(ctx context.Context, name string) (medium.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean := medium.Clean(name)
	if clean != "/" {
		start := time.Now()
		head, err := m.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(m.bucket),
			Key:    aws.String(m.objectKey(clean)),
		})
		m.observe("HeadObject", start, err)
		if err == nil {
			return &object{
				m:    m,
				name: medium.Base(clean),
				key:  m.objectKey(clean),
				size: aws.ToInt64(head.ContentLength),
			}, nil
		}
		if !isNotFound(err) {
			return nil, fmt.Errorf("failed to head object %s: %w", clean, err)
		}

		exists, err := m.dirExists(ctx, clean)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%s: %w", clean, medium.ErrNotFound)
		}
	}

	return &directory{m: m, name: medium.Base(clean), prefix: m.dirPrefix(clean)}, nil
}

func (m *Medium) dirExists(ctx context.Context, name string) (bool, error) {
	start := time.Now()
	out, err := m.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(m.bucket),
		Prefix:  aws.String(m.dirPrefix(name)),
		MaxKeys: aws.Int32(1),
	})
	m.observe("ListObjectsV2", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to list %s: %w", name, err)
	}
	return len(out.Contents) > 0 || len(out.CommonPrefixes) > 0, nil
}

func (m *Medium) Exists(ctx context.Context, name string) (bool, error) {
	f, err := m.Open(ctx, name)
	if errors.Is(err, medium.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_ = f.Close()
	return true, nil
}

func (m *Medium) Close() error {
	return nil
}

// object is a regular file backed by one S3 object.
type object struct {
	m      *Medium
	name   string
	key    string
	size   int64
	pos    int64
	closed bool
}

func (o *object) Name() string { return o.name }
func (o *object) IsDir() bool  { return false }
func (o *object) Size() int64  { return o.size }

func (o *object) Seek(offset int64) error {
	if o.closed {
		return medium.ErrClosed
	}
	if offset < 0 || offset > o.size {
		return fmt.Errorf("seek %s to %d: %w", o.name, offset, medium.ErrInvalidOffset)
	}
	o.pos = offset
	return nil
}

func (o *object) Read(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if o.closed {
		return 0, medium.ErrClosed
	}
	if len(p) == 0 || o.pos >= o.size {
		return 0, nil
	}

	end := min(o.pos+int64(len(p)), o.size) - 1
	start := time.Now()
	out, err := o.m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.m.bucket),
		Key:    aws.String(o.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", o.pos, end)),
	})
	o.m.observe("GetObject", start, err)
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("%s: %w", o.name, medium.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to read range from S3: %w", err)
	}
	defer out.Body.Close()

	n, err := io.ReadFull(out.Body, p[:end-o.pos+1])
	o.pos += int64(n)
	o.m.metrics.RecordBytes("GetObject", int64(n))
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return n, fmt.Errorf("failed to read object body: %w", err)
	}
	return n, nil
}

func (o *object) Available() bool {
	return !o.closed && o.pos < o.size
}

func (o *object) Rewind(context.Context) error {
	return medium.ErrNotDirectory
}

func (o *object) NextEntry(context.Context) (medium.DirEntry, error) {
	return medium.DirEntry{}, medium.ErrNotDirectory
}

func (o *object) Close() error {
	o.closed = true
	return nil
}

// directory enumerates one listing page at a time.
type directory struct {
	m      *Medium
	name   string
	prefix string

	page    []medium.DirEntry
	token   *string
	started bool
	closed  bool
}

func (d *directory) Name() string                              { return d.name }
func (d *directory) IsDir() bool                               { return true }
func (d *directory) Size() int64                               { return 0 }
func (d *directory) Seek(int64) error                          { return medium.ErrIsDirectory }
func (d *directory) Available() bool                           { return false }
func (d *directory) Read(context.Context, []byte) (int, error) { return 0, medium.ErrIsDirectory }

func (d *directory) Rewind(ctx context.Context) error {
	d.page, d.token, d.started = nil, nil, false
	return ctx.Err()
}

func (d *directory) NextEntry(ctx context.Context) (medium.DirEntry, error) {
	if d.closed {
		return medium.DirEntry{}, medium.ErrClosed
	}
	for len(d.page) == 0 {
		if d.started && d.token == nil {
			return medium.DirEntry{}, io.EOF
		}
		if err := d.fetch(ctx); err != nil {
			return medium.DirEntry{}, err
		}
	}
	e := d.page[0]
	d.page = d.page[1:]
	return e, nil
}

func (d *directory) fetch(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	out, err := d.m.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:            aws.String(d.m.bucket),
		Prefix:            aws.String(d.prefix),
		Delimiter:         aws.String("/"),
		MaxKeys:           aws.Int32(d.m.pageSize),
		ContinuationToken: d.token,
	})
	d.m.observe("ListObjectsV2", start, err)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", d.prefix, err)
	}

	d.started = true
	d.token = nil
	if aws.ToBool(out.IsTruncated) {
		d.token = out.NextContinuationToken
	}

	for _, cp := range out.CommonPrefixes {
		name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), d.prefix), "/")
		if name != "" {
			d.page = append(d.page, medium.DirEntry{Name: name, IsDir: true})
		}
	}
	for _, obj := range out.Contents {
		name := strings.TrimPrefix(aws.ToString(obj.Key), d.prefix)
		if name == "" {
			// Directory marker object.
			continue
		}
		d.page = append(d.page, medium.DirEntry{Name: name, Size: aws.ToInt64(obj.Size)})
	}
	return nil
}

func (d *directory) Close() error {
	d.closed = true
	return nil
}
