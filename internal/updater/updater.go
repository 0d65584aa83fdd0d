// Package updater implements the sync run: catalog discovery, the
// per-product fetch/normalize/diff/persist pipeline, batch price
// fetching and the final popularity stamp, plus the derived documents
// generated after a run.
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Yepoleb/gogdb/internal/gog"
	"github.com/Yepoleb/gogdb/internal/queue"
	"github.com/Yepoleb/gogdb/internal/storage"
)

// Options configures an update run. Zero values fall back to the
// defaults below.
type Options struct {
	Workers     int
	Country     string
	Currency    string
	PriceWindow time.Duration
	Logger      gog.Logger
	Clock       gog.Clock
}

type Updater struct {
	store   *storage.Store
	session *gog.Session
	queues  *queue.Manager
	logger  gog.Logger
	clock   gog.Clock

	workers     int
	country     string
	currency    string
	priceWindow time.Duration
}

func New(store *storage.Store, session *gog.Session, opts Options) *Updater {
	if opts.Workers == 0 {
		opts.Workers = 1
	}
	if opts.Country == "" {
		opts.Country = "US"
	}
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	if opts.PriceWindow == 0 {
		opts.PriceWindow = 48 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = gog.NewNopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = gog.RealClock{}
	}
	return &Updater{
		store:       store,
		session:     session,
		queues:      queue.NewManager(),
		logger:      opts.Logger,
		clock:       opts.Clock,
		workers:     opts.Workers,
		country:     opts.Country,
		currency:    opts.Currency,
		priceWindow: opts.PriceWindow,
	}
}

// Run executes a full sync. Any worker error aborts the whole run;
// per-item fetch failures are absorbed by the session's retry and
// absent-result semantics instead.
func (u *Updater) Run(ctx context.Context) error {
	ids, err := u.store.LoadIDs()
	if err != nil {
		return fmt.Errorf("loading ids: %w", err)
	}
	// Spread the crawl over the id space so neighboring products do not
	// hit the same upstream shard back to back.
	sort.Slice(ids, func(i, j int) bool {
		return gog.ScrambleID(ids[i]) < gog.ScrambleID(ids[j])
	})
	u.logger.Info("starting downloader", "ids", len(ids))
	u.queues.ScheduleProducts(ids, false)

	var popularityOrder []int64
	g, gctx := errgroup.WithContext(ctx)

	// The catalog listing is the primary producer: once it completes no
	// new top level ids appear, so it closes the products queue.
	g.Go(func() error {
		defer u.queues.Products.Close()
		order, err := u.catalogWorker(gctx)
		if err != nil {
			return err
		}
		popularityOrder = order
		return nil
	})

	// Product workers produce price work, so the prices queue closes
	// once every product worker has exited.
	var productWG sync.WaitGroup
	productWG.Add(u.workers)
	for i := 0; i < u.workers; i++ {
		g.Go(func() error {
			defer productWG.Done()
			return u.productWorker(gctx)
		})
	}
	g.Go(func() error {
		productWG.Wait()
		u.queues.Prices.Close()
		return nil
	})

	g.Go(func() error {
		return u.pricesWorker(gctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	allIDs := u.queues.Products.Scheduled()
	if err := u.store.SaveIDs(allIDs); err != nil {
		return fmt.Errorf("saving ids: %w", err)
	}

	u.logger.Info("setting popularities")
	if err := u.setStoreData(popularityOrder, allIDs); err != nil {
		return err
	}
	u.logger.Info("requested products", "count", len(allIDs))
	return nil
}

// catalogWorker pages through the store search endpoint and returns
// the product ids in popularity order, best selling first.
func (u *Updater) catalogWorker(ctx context.Context) ([]int64, error) {
	currentPage := 1
	totalPages := 1
	var orderedIDs []int64
	for currentPage <= totalPages {
		content, err := u.session.FetchStorePage(ctx, currentPage)
		if err != nil {
			return nil, err
		}
		if content == nil {
			break
		}
		var page struct {
			TotalPages int `json:"totalPages"`
			Products   []struct {
				ID int64 `json:"id"`
			} `json:"products"`
		}
		if err := json.Unmarshal(content, &page); err != nil {
			u.logger.Error("malformed store page", "page", currentPage, "error", err)
			break
		}
		u.logger.Info("downloaded store page", "page", currentPage)
		totalPages = page.TotalPages
		pageIDs := make([]int64, len(page.Products))
		for i, prod := range page.Products {
			pageIDs[i] = prod.ID
		}
		u.queues.ScheduleProducts(pageIDs, true)
		orderedIDs = append(orderedIDs, pageIDs...)
		currentPage++
	}
	return orderedIDs, nil
}

// setStoreData stamps the popularity rank onto every known product.
// Rank 1 is the current bestseller. Products missing from the catalog
// listing lose their rank and get a not-for-sale price observation,
// since the price task never saw them either.
func (u *Updater) setStoreData(popularityOrder, allIDs []int64) error {
	rankByID := make(map[int64]int, len(popularityOrder))
	for i, id := range popularityOrder {
		rankByID[id] = i + 1
	}
	date := u.clock.Now()
	for _, productID := range allIDs {
		prod, err := u.store.LoadProduct(productID)
		if err != nil {
			return fmt.Errorf("loading product %d: %w", productID, err)
		}
		if prod == nil {
			continue
		}
		rank, listed := rankByID[productID]
		if listed {
			prod.RankBestselling = &rank
		} else {
			prod.RankBestselling = nil
		}
		if err := u.store.SaveProduct(prod); err != nil {
			return fmt.Errorf("saving product %d: %w", productID, err)
		}
		if !listed {
			if err := u.updatePrices(productID, nil, date); err != nil {
				return err
			}
		}
	}
	return nil
}
