package fsops

import (
	"context"
	"fmt"

	"github.com/andreybo/r2-file-manager/pkg/keypath"
	"github.com/andreybo/r2-file-manager/pkg/provider"
)

// DeleteStore is what the Deleter needs from a provider.
type DeleteStore interface {
	provider.Provider
	provider.ObjectDeleter
}

// Deleter removes files and folders.
type Deleter struct {
	store       DeleteStore
	concurrency int
}

// NewDeleter creates a Deleter issuing at most concurrency deletes at once.
func NewDeleter(store DeleteStore, concurrency int) *Deleter {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Deleter{store: store, concurrency: concurrency}
}

// DeleteFile deletes one key. A key that does not exist counts as deleted;
// any other store failure is returned as *StoreError.
func (d *Deleter) DeleteFile(ctx context.Context, key string) error {
	if err := keypath.ValidateKey(key); err != nil {
		return fmt.Errorf("key %q: %w", key, err)
	}
	return d.deleteKey(ctx, key)
}

// deleteKey deletes a listed key as-is, without key validation.
func (d *Deleter) deleteKey(ctx context.Context, key string) error {
	if err := d.store.DeleteObject(ctx, key); err != nil && !provider.IsNotFound(err) {
		return storeErr("delete", key, err)
	}
	return nil
}

// DeleteFolder deletes every object under folderPath, markers included.
//
// The root can never be deleted: it fails with ErrForbiddenOperation before
// any store call. The full listing under the folder prefix is collected
// first (paging until exhausted), then keys are deleted concurrently. An
// empty folder is a no-op success. A failed listing is returned as
// *StoreError; failed deletes are reported through BatchResult.Err.
func (d *Deleter) DeleteFolder(ctx context.Context, folderPath string) (*BatchResult, error) {
	if keypath.IsRoot(folderPath) {
		return nil, fmt.Errorf("delete %s: %w", folderPath, ErrForbiddenOperation)
	}
	prefix, err := keypath.FolderPrefix(folderPath)
	if err != nil {
		return nil, err
	}

	var keys []string
	err = provider.ListAll(ctx, d.store, prefix, func(page []provider.ObjectSummary) error {
		for _, o := range page {
			keys = append(keys, o.Key)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("list", prefix, err)
	}

	res := &BatchResult{Op: OpDelete}
	if len(keys) == 0 {
		return res, nil
	}

	errs := make([]error, len(keys))
	skipped := runBounded(ctx, len(keys), d.concurrency, func(i int) {
		errs[i] = d.deleteKey(ctx, keys[i])
	})
	for _, i := range skipped {
		errs[i] = ctx.Err()
	}

	for i, key := range keys {
		if errs[i] != nil {
			res.Fail(key, errs[i])
			continue
		}
		res.Deleted = append(res.Deleted, key)
		res.Succeeded++
	}
	return res, res.Err()
}
