package updater

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Yepoleb/gogdb/internal/gog"
	"github.com/Yepoleb/gogdb/internal/model"
	"github.com/Yepoleb/gogdb/internal/normalize"
	"github.com/Yepoleb/gogdb/internal/storage"
)

// ProductData bundles one product's stored artifacts for processors.
type ProductData struct {
	ID        int64
	Product   *model.Product
	Changelog []model.ChangeRecord
	Prices    model.PriceLog
}

// Processor derives a summary document from all stored products.
// Process is called once per known id, Finish once afterwards.
type Processor interface {
	Name() string
	Process(data *ProductData) error
	Finish() error
}

// RunProcessors feeds every known product through the given processors
// in one pass over the store.
func RunProcessors(store *storage.Store, logger gog.Logger, procs []Processor) error {
	ids, err := store.LoadIDs()
	if err != nil {
		return fmt.Errorf("loading ids: %w", err)
	}
	logger.Info("running processors", "ids", len(ids), "processors", len(procs))

	for _, productID := range ids {
		prod, err := store.LoadProduct(productID)
		if err != nil {
			return fmt.Errorf("loading product %d: %w", productID, err)
		}
		changes, err := store.LoadChangelog(productID)
		if err != nil {
			return fmt.Errorf("loading changelog %d: %w", productID, err)
		}
		priceLog, err := store.LoadPrices(productID)
		if err != nil {
			return fmt.Errorf("loading prices %d: %w", productID, err)
		}
		data := &ProductData{
			ID:        productID,
			Product:   prod,
			Changelog: changes,
			Prices:    priceLog,
		}
		for _, proc := range procs {
			if err := proc.Process(data); err != nil {
				return fmt.Errorf("processor %s on %d: %w", proc.Name(), productID, err)
			}
		}
	}

	for _, proc := range procs {
		if err := proc.Finish(); err != nil {
			return fmt.Errorf("processor %s: %w", proc.Name(), err)
		}
	}
	return nil
}

// windowsGen2Builds returns a product's windows generation 2 builds in
// stored order, oldest first.
func windowsGen2Builds(prod *model.Product) []*model.Build {
	var builds []*model.Build
	for _, build := range prod.Builds {
		if build.OS == "windows" && build.Generation == 2 {
			builds = append(builds, build)
		}
	}
	return builds
}

// DependenciesProcessor maps each redistributable name to the products
// whose latest windows build depends on it.
type DependenciesProcessor struct {
	store         *storage.Store
	dependencyMap map[string][]model.DependencyRef
}

func NewDependenciesProcessor(store *storage.Store) *DependenciesProcessor {
	return &DependenciesProcessor{
		store:         store,
		dependencyMap: map[string][]model.DependencyRef{},
	}
}

func (p *DependenciesProcessor) Name() string { return "dependencies" }

func (p *DependenciesProcessor) Process(data *ProductData) error {
	if data.Product == nil {
		return nil
	}
	builds := windowsGen2Builds(data.Product)
	if len(builds) == 0 {
		return nil
	}
	latest := builds[len(builds)-1]
	raw, err := p.store.LoadRepository(data.Product.ID, latest.ID)
	if err != nil || raw == nil {
		return err
	}
	repo, err := normalize.RepositoryV2(raw)
	if err != nil {
		return nil
	}
	for _, dependency := range repo.Dependencies {
		p.dependencyMap[dependency] = append(p.dependencyMap[dependency], model.DependencyRef{
			ID:    data.Product.ID,
			Title: data.Product.Title,
		})
	}
	return nil
}

func (p *DependenciesProcessor) Finish() error {
	for _, refs := range p.dependencyMap {
		sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	}
	return p.store.SaveUser(p.dependencyMap, "dependencies.json")
}

// BackrefProcessor maps each manifest id back to the build referencing
// it, so a manifest lookup can name its product.
type BackrefProcessor struct {
	store       *storage.Store
	manifestMap map[string]model.ManifestRef
}

func NewBackrefProcessor(store *storage.Store) *BackrefProcessor {
	return &BackrefProcessor{
		store:       store,
		manifestMap: map[string]model.ManifestRef{},
	}
}

func (p *BackrefProcessor) Name() string { return "manifest_backref" }

func (p *BackrefProcessor) Process(data *ProductData) error {
	if data.Product == nil {
		return nil
	}
	for _, build := range windowsGen2Builds(data.Product) {
		raw, err := p.store.LoadRepository(data.Product.ID, build.ID)
		if err != nil {
			return err
		}
		if raw == nil {
			return nil
		}
		repo, err := normalize.RepositoryV2(raw)
		if err != nil {
			continue
		}
		for _, depot := range repo.Depots {
			p.manifestMap[depot.ManifestID] = model.ManifestRef{
				Title:   data.Product.Title,
				ProdID:  data.Product.ID,
				BuildID: build.ID,
			}
		}
	}
	return nil
}

func (p *BackrefProcessor) Finish() error {
	return p.store.SaveUser(p.manifestMap, "manifest_backref.json")
}

// IDMappingProcessor writes the slug to id lookup tables used to
// resolve store urls.
type IDMappingProcessor struct {
	store     *storage.Store
	logger    gog.Logger
	storeToID map[string]int64
	idToStore map[int64]string
}

func NewIDMappingProcessor(store *storage.Store, logger gog.Logger) *IDMappingProcessor {
	return &IDMappingProcessor{
		store:     store,
		logger:    logger,
		storeToID: map[string]int64{},
		idToStore: map[int64]string{},
	}
}

func (p *IDMappingProcessor) Name() string { return "idmapping" }

func (p *IDMappingProcessor) Process(data *ProductData) error {
	prod := data.Product
	if prod == nil || prod.Slug == "" || prod.LinkStore == "" {
		return nil
	}
	linkSlug := prod.LinkStore[strings.LastIndex(prod.LinkStore, "/")+1:]
	if linkSlug != prod.Slug {
		p.logger.Error("mismatched slug and store link", "slug", prod.Slug, "link", prod.LinkStore)
	}
	p.storeToID[prod.Slug] = prod.ID
	p.idToStore[prod.ID] = prod.Slug
	return nil
}

func (p *IDMappingProcessor) Finish() error {
	if err := p.store.SaveUser(p.storeToID, "store_to_id.json"); err != nil {
		return err
	}
	return p.store.SaveUser(p.idToStore, "id_to_store.json")
}

const numSummary = 10

// StartpageProcessor assembles the four top ten lists for the start
// page: recently added, trending, fresh builds and current sales.
type StartpageProcessor struct {
	store     *storage.Store
	summaries []productSummary
}

type productSummary struct {
	card            model.StartpageProduct
	productType     string
	addedOn         time.Time
	rankTrending    int
	rankBestselling int
	lastBuild       time.Time
	onSale          bool
}

func NewStartpageProcessor(store *storage.Store) *StartpageProcessor {
	return &StartpageProcessor{store: store}
}

func (p *StartpageProcessor) Name() string { return "startpage" }

func (p *StartpageProcessor) Process(data *ProductData) error {
	prod := data.Product
	if prod == nil {
		return nil
	}

	summary := productSummary{
		card: model.StartpageProduct{
			ID:        prod.ID,
			Title:     prod.Title,
			ImageLogo: prod.ImageLogo,
		},
		productType: prod.Type,
		// Unranked products sort last.
		rankTrending:    100000,
		rankBestselling: 1000000,
	}
	if prod.AddedOn != nil {
		summary.addedOn = *prod.AddedOn
	}
	if prod.RankTrending != nil {
		summary.rankTrending = *prod.RankTrending
	}
	if prod.RankBestselling != nil {
		summary.rankBestselling = *prod.RankBestselling
	}

	for i := len(data.Changelog) - 1; i >= 0; i-- {
		entry := &data.Changelog[i]
		if entry.Category == model.CategoryBuild && entry.Action == model.ActionAdd {
			summary.lastBuild = entry.Timestamp
			break
		}
	}

	if records := data.Prices.Log("US", "USD"); len(records) > 0 {
		current := records[len(records)-1]
		if current.PriceBase != nil {
			if discount := current.Discount(); discount > 0 {
				summary.card.Discount = discount
				summary.onSale = true
			}
		}
	}

	p.summaries = append(p.summaries, summary)
	return nil
}

func (p *StartpageProcessor) Finish() error {
	var games []productSummary
	for _, summary := range p.summaries {
		if summary.productType == "game" {
			games = append(games, summary)
		}
	}

	topCards := func(summaries []productSummary, less func(a, b *productSummary) bool) []model.StartpageProduct {
		sorted := make([]productSummary, len(summaries))
		copy(sorted, summaries)
		sort.SliceStable(sorted, func(i, j int) bool { return less(&sorted[i], &sorted[j]) })
		if len(sorted) > numSummary {
			sorted = sorted[:numSummary]
		}
		cards := make([]model.StartpageProduct, len(sorted))
		for i, summary := range sorted {
			cards[i] = summary.card
		}
		return cards
	}

	lists := model.StartpageLists{
		Added: topCards(games, func(a, b *productSummary) bool {
			return a.addedOn.After(b.addedOn)
		}),
		Trending: topCards(p.summaries, func(a, b *productSummary) bool {
			return a.rankTrending < b.rankTrending
		}),
		Builds: topCards(games, func(a, b *productSummary) bool {
			return a.lastBuild.After(b.lastBuild)
		}),
		Sale: topCards(games, func(a, b *productSummary) bool {
			if a.onSale != b.onSale {
				return a.onSale
			}
			return a.rankBestselling < b.rankBestselling
		}),
	}
	return p.store.SaveUser(lists, "startpage.json")
}
