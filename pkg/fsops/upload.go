// Package fsops performs folder-aware mutations against a flat object store.
//
// Uploads create marker objects so every folder stays visible to tree
// inference, and deletions expand a folder into every key under its prefix.
// Batch operations never let one failed unit stop its siblings; they report
// per-unit outcomes instead. Nothing here caches folder state: callers reload
// a snapshot after every mutation.
package fsops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andreybo/r2-file-manager/pkg/fsview"
	"github.com/andreybo/r2-file-manager/pkg/keypath"
	"github.com/andreybo/r2-file-manager/pkg/provider"
)

// DefaultMaxFileSize is the upload ceiling for regular files (10 MiB).
const DefaultMaxFileSize int64 = 10 << 20

// DefaultPresignTTL is the lifetime of presigned URLs returned by uploads.
const DefaultPresignTTL = time.Hour

const defaultContentType = "application/octet-stream"

// UploaderConfig configures an Uploader.
type UploaderConfig struct {
	// MaxFileSize is the largest regular file accepted. Markers are exempt.
	// Zero uses DefaultMaxFileSize; negative disables the check.
	MaxFileSize int64

	// PublicHost is the host of the public URL scheme https://<host>/<key>.
	// Empty disables public URLs.
	PublicHost string

	// PresignTTL is the lifetime of presigned URLs. Zero uses DefaultPresignTTL.
	PresignTTL time.Duration

	// Concurrency bounds in-flight puts within one batch or directory level.
	Concurrency int
}

// DefaultUploaderConfig returns the default upload settings.
func DefaultUploaderConfig() UploaderConfig {
	return UploaderConfig{
		MaxFileSize: DefaultMaxFileSize,
		PresignTTL:  DefaultPresignTTL,
		Concurrency: DefaultConcurrency,
	}
}

// Uploader creates files and folders in the store.
type Uploader struct {
	putter    provider.ObjectPutter
	presigner provider.Presigner
	cfg       UploaderConfig
}

// NewUploader creates an Uploader. When putter also implements
// provider.Presigner, upload results carry a presigned URL.
func NewUploader(putter provider.ObjectPutter, cfg UploaderConfig) *Uploader {
	def := DefaultUploaderConfig()
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = def.MaxFileSize
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = def.PresignTTL
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	u := &Uploader{putter: putter, cfg: cfg}
	if p, ok := putter.(provider.Presigner); ok {
		u.presigner = p
	}
	return u
}

// Config returns the effective configuration.
func (u *Uploader) Config() UploaderConfig { return u.cfg }

// FileResult describes one uploaded file.
type FileResult struct {
	fsview.FileRecord
	ContentType  string `json:"content_type"`
	PresignedURL string `json:"presigned_url,omitempty"`
	PublicURL    string `json:"public_url,omitempty"`
}

// FolderResult describes a created folder.
type FolderResult struct {
	Path      string `json:"path"`
	MarkerKey string `json:"marker_key"`
}

// PublicURL returns https://<public-host>/<key>, or "" without a public host.
func PublicURL(host, key string) string {
	if host == "" {
		return ""
	}
	host = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://"), "/")
	return "https://" + host + "/" + key
}

// PutOneFile uploads f into the folder at folderPath.
//
// A regular file larger than MaxFileSize fails with ErrFileTooLarge before
// any store call; a file named like a marker is exempt. Store failures are
// returned as *StoreError.
func (u *Uploader) PutOneFile(ctx context.Context, f File, folderPath string) (*FileResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	folderKey, err := keypath.ToKey(folderPath)
	if err != nil {
		return nil, err
	}
	name := f.Name()
	if err := validateFileName(name); err != nil {
		return nil, err
	}
	key := keypath.JoinKey(folderKey, name)

	size := f.Size()
	if !keypath.IsMarker(key) && u.cfg.MaxFileSize > 0 && size > u.cfg.MaxFileSize {
		return nil, &SizeError{Name: name, Size: size, Limit: u.cfg.MaxFileSize}
	}

	contentType := f.ContentType()
	if contentType == "" {
		contentType = defaultContentType
	}

	body, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer func() { _ = body.Close() }()

	if err := u.putter.PutObject(ctx, key, body, size, contentType); err != nil {
		return nil, storeErr("put", key, err)
	}

	res := &FileResult{
		FileRecord: fsview.FileRecord{
			Name:       name,
			Key:        key,
			Size:       size,
			ModifiedAt: time.Now().UTC(),
			ParentPath: keypath.ToPath(folderKey),
		},
		ContentType: contentType,
		PublicURL:   PublicURL(u.cfg.PublicHost, key),
	}
	if u.presigner != nil {
		// The object is stored; a URL failure leaves the field empty.
		if url, err := u.presigner.PresignGet(ctx, key, u.cfg.PresignTTL); err == nil {
			res.PresignedURL = url
		}
	}
	return res, nil
}

func validateFileName(name string) error {
	if name == "" || name == "." || name == ".." || strings.Contains(name, keypath.Separator) {
		return fmt.Errorf("file name %q: %w", name, keypath.ErrInvalidPath)
	}
	return nil
}

// putMarker writes the zero-byte marker of a folder key. Re-writing an
// existing marker is harmless.
func (u *Uploader) putMarker(ctx context.Context, folderKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := keypath.JoinKey(folderKey, keypath.MarkerName)
	if err := u.putter.PutObject(ctx, key, strings.NewReader(""), 0, keypath.MarkerContentType); err != nil {
		return key, storeErr("put", key, err)
	}
	return key, nil
}

// CreateFolder creates folder name under parentPath by writing its marker.
// The name is sanitized first; an empty result fails with
// keypath.ErrInvalidFolderName.
func (u *Uploader) CreateFolder(ctx context.Context, parentPath, name string) (*FolderResult, error) {
	parentKey, err := keypath.ToKey(parentPath)
	if err != nil {
		return nil, err
	}
	clean, err := keypath.SanitizeFolderName(name)
	if err != nil {
		return nil, err
	}
	folderKey := keypath.JoinKey(parentKey, clean)
	marker, err := u.putMarker(ctx, folderKey)
	if err != nil {
		return nil, err
	}
	return &FolderResult{Path: keypath.ToPath(folderKey), MarkerKey: marker}, nil
}

// EnsureFolder writes a marker at every level from the root's first child
// down to folderPath, in that order. It stops at the first failure.
func (u *Uploader) EnsureFolder(ctx context.Context, folderPath string) ([]string, error) {
	key, err := keypath.ToKey(folderPath)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, nil
	}

	chain := append(keypath.ParentChain(key)[1:], keypath.ToPath(key))
	markers := make([]string, 0, len(chain))
	for _, p := range chain {
		folderKey, _ := keypath.ToKey(p)
		marker, err := u.putMarker(ctx, folderKey)
		if err != nil {
			return markers, err
		}
		markers = append(markers, marker)
	}
	return markers, nil
}

// PutFiles uploads files into folderPath with bounded concurrency.
//
// Every file is attempted regardless of sibling failures. The result always
// lists per-file outcomes; the error is BatchResult.Err, or the path error
// when folderPath is invalid.
func (u *Uploader) PutFiles(ctx context.Context, files []File, folderPath string) (*BatchResult, error) {
	if _, err := keypath.ToKey(folderPath); err != nil {
		return nil, err
	}
	res := &BatchResult{Op: OpUpload}
	u.putLevel(ctx, files, folderPath, res)
	return res, res.Err()
}

// putLevel uploads files concurrently and appends outcomes to res in input
// order.
func (u *Uploader) putLevel(ctx context.Context, files []File, folderPath string, res *BatchResult) {
	if len(files) == 0 {
		return
	}
	results := make([]*FileResult, len(files))
	errs := make([]error, len(files))

	skipped := runBounded(ctx, len(files), u.cfg.Concurrency, func(i int) {
		results[i], errs[i] = u.PutOneFile(ctx, files[i], folderPath)
	})
	for _, i := range skipped {
		errs[i] = ctx.Err()
	}

	folderKey, _ := keypath.ToKey(folderPath)
	for i := range files {
		if errs[i] != nil {
			res.Fail(keypath.JoinKey(folderKey, files[i].Name()), errs[i])
			continue
		}
		res.Files = append(res.Files, *results[i])
		res.Succeeded++
	}
}
