package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/andreybo/r2-file-manager/internal/errors"
	"github.com/andreybo/r2-file-manager/internal/metrics"
	"github.com/andreybo/r2-file-manager/internal/observability"
	"github.com/andreybo/r2-file-manager/pkg/fsops"
	"github.com/andreybo/r2-file-manager/pkg/fsview"
	"github.com/andreybo/r2-file-manager/pkg/keypath"
	"github.com/andreybo/r2-file-manager/pkg/provider"
	"github.com/andreybo/r2-file-manager/pkg/tree"
)

// DefaultMaxUploadMemory is the multipart form memory budget; larger parts
// spill to temporary files.
const DefaultMaxUploadMemory = 32 << 20

// maxPresignTTL is the longest lifetime a client may request.
const maxPresignTTL = 7 * 24 * time.Hour

// API serves the file manager endpoints. It holds no folder state: every
// read lists the store again, and every mutation tells the client to reload.
type API struct {
	store    provider.Store
	uploader *fsops.Uploader
	deleter  *fsops.Deleter
}

// NewAPI creates the API over store.
func NewAPI(store provider.Store, upload fsops.UploaderConfig, deleteConcurrency int) *API {
	return &API{
		store:    store,
		uploader: fsops.NewUploader(store, upload),
		deleter:  fsops.NewDeleter(store, deleteConcurrency),
	}
}

// TreeResponse is the body of GET /api/v1/tree.
type TreeResponse struct {
	Root    *tree.Node    `json:"root"`
	Folders int           `json:"folders"`
	Files   int           `json:"files"`
	Bytes   int64         `json:"bytes"`
	Orphans []tree.Orphan `json:"orphans,omitempty"`
}

// FolderResponse is the body of GET /api/v1/folders.
type FolderResponse struct {
	Path        string              `json:"path"`
	Breadcrumbs []fsview.Breadcrumb `json:"breadcrumbs"`
	Folders     []string            `json:"folders"`
	Files       []fsview.FileRecord `json:"files"`
	Bytes       int64               `json:"bytes"`
}

// MutationResponse wraps every successful mutation.
type MutationResponse struct {
	Refresh bool `json:"refresh"`
	Result  any  `json:"result"`
}

// URLResponse is the body of GET /api/v1/files/url.
type URLResponse struct {
	Key          string    `json:"key"`
	PresignedURL string    `json:"presigned_url"`
	PublicURL    string    `json:"public_url,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (a *API) loadSnapshot(r *http.Request) (*fsview.Snapshot, error) {
	snap, err := fsview.LoadSnapshot(r.Context(), a.store)
	if err != nil {
		return nil, err
	}
	metrics.SetTreeSize(snap.Tree.Len(), len(snap.Tree.Orphans))
	for _, o := range snap.Tree.Orphans {
		observability.ServerLogger.Warn("Key left out of folder tree",
			zap.String("key", o.Key), zap.String("reason", o.Reason))
	}
	return snap, nil
}

// Tree returns the whole folder tree.
func (a *API) Tree(w http.ResponseWriter, r *http.Request) {
	snap, err := a.loadSnapshot(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TreeResponse{
		Root:    snap.Tree.Root,
		Folders: snap.Tree.Len(),
		Files:   snap.FileCount(),
		Bytes:   snap.TotalBytes(),
		Orphans: snap.Tree.Orphans,
	})
}

// Folder returns the view of one folder (?path=, default root). With
// ?shallow=true it uses one delimiter-scoped listing instead of a snapshot.
func (a *API) Folder(w http.ResponseWriter, r *http.Request) {
	path := queryPath(r)
	crumbs, err := fsview.Breadcrumbs(path)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	if r.URL.Query().Get("shallow") == "true" {
		listing, err := fsview.ListDirect(r.Context(), a.store, path)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		var bytes int64
		for _, f := range listing.Files {
			bytes += f.Size
		}
		writeJSON(w, http.StatusOK, FolderResponse{
			Path:        listing.Path,
			Breadcrumbs: crumbs,
			Folders:     nonNil(listing.Folders),
			Files:       nonNil(listing.Files),
			Bytes:       bytes,
		})
		return
	}

	snap, err := a.loadSnapshot(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	view, err := fsview.Project(snap, path)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FolderResponse{
		Path:        view.Path,
		Breadcrumbs: crumbs,
		Folders:     nonNil(view.FolderNames()),
		Files:       nonNil(view.DirectFiles),
		Bytes:       view.Bytes,
	})
}

type createFolderRequest struct {
	Parent string `json:"parent"`
	Name   string `json:"name"`
}

// CreateFolder creates one folder from {"parent","name"}.
func (a *API) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		apperrors.WriteError(w, r, http.StatusBadRequest, apperrors.CodeBadRequest, "invalid JSON body: "+err.Error(), nil)
		return
	}
	if req.Parent == "" {
		req.Parent = keypath.Root
	}

	res, err := a.uploader.CreateFolder(r.Context(), req.Parent, req.Name)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, MutationResponse{Refresh: true, Result: res})
}

// DeleteFolder deletes a folder and everything under it (?path=).
func (a *API) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	res, err := a.deleter.DeleteFolder(r.Context(), queryPath(r))
	a.respondBatch(w, r, res, err)
}

// DeleteFile deletes one object (?key=).
func (a *API) DeleteFile(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if err := a.deleter.DeleteFile(r.Context(), key); err != nil {
		respondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MutationResponse{Refresh: true, Result: map[string]string{"key": key}})
}

// UploadFiles stores multipart "files" parts under ?path=.
//
// Part filenames lose their directories in transit, so a folder drop sends
// one "paths" value per file with its relative path ("photos/2024/a.png").
// Files without a directory go into the target folder directly; the others
// are grouped by their top-level directory and uploaded as trees. A bad
// relative path fails only its own file.
func (a *API) UploadFiles(w http.ResponseWriter, r *http.Request) {
	folder := queryPath(r)
	folderKey, err := keypath.ToKey(folder)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := r.ParseMultipartForm(DefaultMaxUploadMemory); err != nil {
		apperrors.WriteError(w, r, http.StatusBadRequest, apperrors.CodeBadRequest, "invalid multipart form: "+err.Error(), nil)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		apperrors.WriteError(w, r, http.StatusBadRequest, apperrors.CodeBadRequest, `no "files" parts in form`, nil)
		return
	}
	paths := r.MultipartForm.Value["paths"]
	if len(paths) != 0 && len(paths) != len(headers) {
		apperrors.WriteError(w, r, http.StatusBadRequest, apperrors.CodeBadRequest,
			fmt.Sprintf("got %d paths for %d files", len(paths), len(headers)), nil)
		return
	}

	total := &fsops.BatchResult{Op: fsops.OpUpload}
	var flat []fsops.File
	trees := map[string]map[string]fsops.File{}
	var order []string
	for i, h := range headers {
		f := &multipartFile{header: h}
		rel := ""
		if len(paths) > 0 {
			rel = strings.Trim(paths[i], "/")
		}
		if rel != "" {
			if err := keypath.ValidateKey(rel); err != nil {
				total.Fail(keypath.JoinKey(folderKey, rel), fmt.Errorf("%q: %w", paths[i], err))
				continue
			}
		}
		top, rest, nested := strings.Cut(rel, "/")
		if !nested {
			flat = append(flat, f)
			continue
		}
		if _, ok := trees[top]; !ok {
			trees[top] = map[string]fsops.File{}
			order = append(order, top)
		}
		trees[top][rest] = f
	}

	if len(flat) > 0 {
		res, _ := a.uploader.PutFiles(r.Context(), flat, folder)
		merge(total, res)
	}
	for _, top := range order {
		dir, err := fsops.NewDirFromPaths(top, trees[top])
		if err != nil {
			failTree(total, folderKey, top, trees[top], err)
			continue
		}
		res, err := a.uploader.UploadTree(r.Context(), dir, folder, fsops.TreeOptions{})
		if res == nil {
			failTree(total, folderKey, top, trees[top], err)
			continue
		}
		merge(total, res)
	}

	a.respondBatch(w, r, total, total.Err())
}

// FileURL issues a presigned GET URL (?key=, optional ?ttl=15m).
func (a *API) FileURL(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if err := keypath.ValidateKey(key); err != nil {
		respondWithError(w, r, fmt.Errorf("key %q: %w", key, err))
		return
	}

	ttl := a.uploader.Config().PresignTTL
	if raw := r.URL.Query().Get("ttl"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 || d > maxPresignTTL {
			apperrors.WriteError(w, r, http.StatusBadRequest, apperrors.CodeBadRequest, "ttl must be a duration between 1s and 168h", nil)
			return
		}
		ttl = d
	}

	if _, err := a.store.Head(r.Context(), key); err != nil {
		respondWithError(w, r, err)
		return
	}
	url, err := a.store.PresignGet(r.Context(), key, ttl)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, URLResponse{
		Key:          key,
		PresignedURL: url,
		PublicURL:    fsops.PublicURL(a.uploader.Config().PublicHost, key),
		ExpiresAt:    time.Now().Add(ttl).UTC(),
	})
}

// respondBatch writes 200 for a clean batch and 207 with per-unit outcomes
// when some units failed. Any other error is written as an error envelope.
func (a *API) respondBatch(w http.ResponseWriter, r *http.Request, res *fsops.BatchResult, err error) {
	if res != nil {
		metrics.RecordBatch(res.Op, res.Succeeded, res.Failed())
	}

	var partial *fsops.PartialBatchFailure
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, MutationResponse{Refresh: true, Result: res})
	case errors.As(err, &partial) && res != nil:
		for _, f := range res.Failures {
			observability.ServerLogger.Warn("Batch unit failed",
				zap.String("op", res.Op), zap.String("key", f.Key),
				zap.String("code", f.Code), zap.String("reason", f.Reason()))
		}
		writeJSON(w, http.StatusMultiStatus, MutationResponse{Refresh: true, Result: res})
	default:
		respondWithError(w, r, err)
	}
}

// failTree records every file of a tree that could not be started.
func failTree(total *fsops.BatchResult, folderKey, top string, files map[string]fsops.File, err error) {
	rels := make([]string, 0, len(files))
	for rel := range files {
		rels = append(rels, rel)
	}
	sort.Strings(rels)
	for _, rel := range rels {
		total.Fail(keypath.JoinKey(folderKey, top+"/"+rel), err)
	}
}

func merge(total, res *fsops.BatchResult) {
	if res == nil {
		return
	}
	total.Succeeded += res.Succeeded
	total.Files = append(total.Files, res.Files...)
	total.Markers = append(total.Markers, res.Markers...)
	total.Failures = append(total.Failures, res.Failures...)
}

func queryPath(r *http.Request) string {
	if p := r.URL.Query().Get("path"); p != "" {
		return p
	}
	return keypath.Root
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// multipartFile adapts an uploaded form part to fsops.File.
type multipartFile struct {
	header *multipart.FileHeader
}

func (f *multipartFile) Name() string        { return f.header.Filename }
func (f *multipartFile) Size() int64         { return f.header.Size }
func (f *multipartFile) ContentType() string { return f.header.Header.Get("Content-Type") }

func (f *multipartFile) Open() (io.ReadCloser, error) {
	return f.header.Open()
}
