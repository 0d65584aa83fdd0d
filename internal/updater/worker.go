package updater

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Yepoleb/gogdb/internal/changelog"
	"github.com/Yepoleb/gogdb/internal/model"
	"github.com/Yepoleb/gogdb/internal/normalize"
	"github.com/Yepoleb/gogdb/internal/queue"
)

// hasKey reports whether a JSON object payload contains the given top
// level key, used as a cheap sanity check on upstream responses.
func hasKey(raw json.RawMessage, key string) bool {
	if raw == nil {
		return false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	_, ok := obj[key]
	return ok
}

func cloneProduct(prod *model.Product) (*model.Product, error) {
	data, err := json.Marshal(prod)
	if err != nil {
		return nil, fmt.Errorf("copying product %d: %w", prod.ID, err)
	}
	clone := &model.Product{}
	if err := json.Unmarshal(data, clone); err != nil {
		return nil, fmt.Errorf("copying product %d: %w", prod.ID, err)
	}
	return clone, nil
}

func (u *Updater) productWorker(ctx context.Context) error {
	for {
		productID, err := u.queues.Products.Take()
		if errors.Is(err, queue.ErrExhausted) {
			u.logger.Debug("products queue exhausted")
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := u.updateProduct(ctx, productID); err != nil {
			return err
		}
	}
}

// updateProduct runs the fetch, normalize, diff, persist pipeline for
// one product. The snapshot is mutated in place and the previous state
// kept aside for diffing.
func (u *Updater) updateProduct(ctx context.Context, productID int64) error {
	u.logger.Info("downloading", "id", productID)
	timestamp := u.clock.Now()

	prod, err := u.store.LoadProduct(productID)
	if err != nil {
		return err
	}
	var oldProd *model.Product
	if prod == nil {
		prod = &model.Product{AddedOn: &timestamp}
	} else {
		oldProd, err = cloneProduct(prod)
		if err != nil {
			return err
		}
	}

	changes, err := u.store.LoadChangelog(productID)
	if err != nil {
		return err
	}
	oldChangesLen := len(changes)
	clg := changelog.New(prod, oldProd, timestamp)

	prod.Access = 0

	v0, err := u.session.FetchProductV0(ctx, productID)
	if err != nil {
		return err
	}
	if hasKey(v0, "id") {
		if err := normalize.ExtractV0(prod, v0); err != nil {
			return fmt.Errorf("extracting v0 data for %d: %w", productID, err)
		}
		prod.Access = 1
		u.queues.ScheduleProducts(prod.DLCs, false)

		v2, err := u.session.FetchProductV2(ctx, productID)
		if err != nil {
			return err
		}
		if hasKey(v2, "_embedded") {
			if err := normalize.ExtractV2(prod, v2); err != nil {
				return fmt.Errorf("extracting v2 data for %d: %w", productID, err)
			}
			prod.Access = 2
			u.queues.ScheduleProducts(prod.IncludesGames, false)
			u.queues.ScheduleProducts(prod.IsIncludedIn, false)
			u.queues.ScheduleProducts(prod.RequiredBy, false)
			u.queues.ScheduleProducts(prod.Requires, false)
		}

		for _, system := range prod.CSSystems {
			builds, err := u.session.FetchBuilds(ctx, productID, system)
			if err != nil {
				return err
			}
			if builds == nil {
				continue
			}
			if err := normalize.ExtractBuilds(prod, builds, system); err != nil {
				return fmt.Errorf("extracting builds for %d: %w", productID, err)
			}
		}

		for _, build := range prod.Builds {
			if err := u.syncRepository(ctx, prod, build); err != nil {
				return err
			}
		}

		prod.LastUpdated = &timestamp

		if oldProd != nil {
			clg.Property("title")
			clg.Property("comp_systems")
			clg.Property("is_pre_order")
			clg.Property("changelog")
			clg.Downloads("bonus")
			clg.Downloads("installer")
			clg.Downloads("langpack")
			clg.Downloads("patch")
			clg.Builds()
		}
	}

	if prod.HasContent() {
		if oldProd != nil {
			clg.Property("access")
		} else {
			clg.ProductAdded()
		}
	}
	changes = append(changes, clg.Entries()...)

	if prod.HasContent() {
		if err := u.store.SaveProduct(prod); err != nil {
			return err
		}
	}
	if len(changes) != oldChangesLen {
		if err := u.store.SaveChangelog(changes, productID); err != nil {
			return err
		}
	}
	return nil
}

// syncRepository makes sure the repository and all manifests referenced
// by one build are stored. Repositories and manifests are immutable, a
// stored copy is never fetched again.
func (u *Updater) syncRepository(ctx context.Context, prod *model.Product, build *model.Build) error {
	raw, err := u.store.LoadRepository(prod.ID, build.ID)
	if err != nil {
		return err
	}
	if raw == nil {
		if build.Generation == 1 {
			raw, err = u.session.FetchRepoV1(ctx, build.Link, prod.ID, build.ID)
		} else {
			raw, err = u.session.FetchRepoV2(ctx, build.Link, prod.ID, build.ID)
		}
		if err != nil {
			return err
		}
		if raw == nil {
			return nil
		}
		if err := u.store.SaveRepository(raw, prod.ID, build.ID); err != nil {
			return err
		}
	}

	manifestIDs, err := normalize.RepositoryManifestIDs(build.Generation, raw)
	if err != nil {
		u.logger.Error("malformed repository", "product", prod.ID, "build", build.ID, "error", err)
		return nil
	}
	for _, manifestID := range manifestIDs {
		if u.store.HasManifest(build.Generation, manifestID) {
			u.logger.Debug("manifest already stored", "id", manifestID)
			continue
		}
		var manifest json.RawMessage
		if build.Generation == 1 {
			manifest, err = u.session.FetchManifestV1(ctx, manifestID, build.Link)
		} else {
			manifest, err = u.session.FetchManifestV2(ctx, manifestID)
		}
		if err != nil {
			return err
		}
		if manifest == nil {
			continue
		}
		if err := u.store.SaveManifest(manifest, build.Generation, manifestID); err != nil {
			return err
		}
	}
	return nil
}
