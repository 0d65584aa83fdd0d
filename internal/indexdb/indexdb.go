// Package indexdb rebuilds the sqlite search index from the stored
// snapshots. The index is derived data: every run wipes the tables and
// reinserts everything inside a single transaction, so readers always
// see either the previous or the new state.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Yepoleb/gogdb/internal/gog"
	"github.com/Yepoleb/gogdb/internal/model"
	"github.com/Yepoleb/gogdb/internal/normalize"
	"github.com/Yepoleb/gogdb/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
    product_id INTEGER,
    title TEXT,
    image_logo TEXT,
    product_type TEXT,
    comp_systems TEXT,
    sale_rank INTEGER,
    search_title TEXT
);
CREATE TABLE IF NOT EXISTS changelog (
    product_id INTEGER,
    product_title TEXT,
    timestamp REAL,
    action TEXT,
    category TEXT,
    dl_type TEXT,
    bonus_type TEXT,
    property_name TEXT,
    serialized_record TEXT
);
CREATE TABLE IF NOT EXISTS changelog_summary (
    product_id INTEGER,
    product_title TEXT,
    timestamp REAL,
    categories TEXT
);
CREATE INDEX IF NOT EXISTS idx_products_sale_rank ON products (sale_rank);
CREATE INDEX IF NOT EXISTS idx_changelog_timestamp ON changelog (timestamp);
CREATE INDEX IF NOT EXISTS idx_summary_timestamp ON changelog_summary (timestamp);
`

// Counts reports how many rows the rebuild inserted.
type Counts struct {
	Products  int
	Changelog int
	Summaries int
}

type Builder struct {
	store  *storage.Store
	logger gog.Logger
}

func NewBuilder(store *storage.Store, logger gog.Logger) *Builder {
	return &Builder{store: store, logger: logger}
}

// Build recreates the index from all known products.
func (b *Builder) Build(ctx context.Context) (Counts, error) {
	ids, err := b.store.LoadIDs()
	if err != nil {
		return Counts{}, fmt.Errorf("loading ids: %w", err)
	}

	db, err := sql.Open("sqlite3", b.store.IndexDBPath())
	if err != nil {
		return Counts{}, fmt.Errorf("opening index db: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return Counts{}, fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Counts{}, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"products", "changelog", "changelog_summary"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return Counts{}, fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	var counts Counts
	numIDs := len(ids)
	for _, productID := range ids {
		prod, err := b.store.LoadProduct(productID)
		if err != nil {
			return Counts{}, fmt.Errorf("loading product %d: %w", productID, err)
		}
		if prod == nil {
			b.logger.Debug("skipped missing product", "id", productID)
			continue
		}
		if err := indexProduct(ctx, tx, prod, numIDs); err != nil {
			return Counts{}, err
		}
		counts.Products++

		changelog, err := b.store.LoadChangelog(productID)
		if err != nil {
			return Counts{}, fmt.Errorf("loading changelog %d: %w", productID, err)
		}
		if changelog == nil {
			continue
		}
		entries, summaries, err := indexChangelog(ctx, tx, prod, changelog)
		if err != nil {
			return Counts{}, err
		}
		counts.Changelog += entries
		counts.Summaries += summaries
	}

	if err := tx.Commit(); err != nil {
		return Counts{}, fmt.Errorf("committing index: %w", err)
	}
	return counts, nil
}

// indexProduct inserts one product row. The sale rank column is
// inverted so sorting descending puts the bestsellers first; products
// without a rank sort to the bottom with rank 0.
func indexProduct(ctx context.Context, tx *sql.Tx, prod *model.Product, numIDs int) error {
	saleRank := 0
	if prod.RankBestselling != nil {
		saleRank = numIDs - *prod.RankBestselling + 1
	}
	_, err := tx.ExecContext(ctx,
		"INSERT INTO products VALUES (?, ?, ?, ?, ?, ?, ?)",
		prod.ID,
		prod.Title,
		stringOrNull(prod.ImageLogo),
		prod.Type,
		normalize.CompressSystems(prod.CompSystems),
		saleRank,
		normalize.Search(prod.Title),
	)
	if err != nil {
		return fmt.Errorf("inserting product %d: %w", prod.ID, err)
	}
	return nil
}

func indexChangelog(ctx context.Context, tx *sql.Tx, prod *model.Product, changelog []model.ChangeRecord) (entries, summaries int, err error) {
	summaryOrder := []time.Time{}
	summaryCategories := map[time.Time]map[string]bool{}

	for i := range changelog {
		rec := &changelog[i]

		var dlType, bonusType, propertyName sql.NullString
		switch rec.Category {
		case model.CategoryDownload:
			dlType = sql.NullString{String: rec.DownloadRecord.DlType, Valid: true}
			if dl := rec.DownloadRecord.DlNewBonus; dl != nil {
				bonusType = sql.NullString{String: dl.BonusType, Valid: true}
			}
			if dl := rec.DownloadRecord.DlOldBonus; dl != nil {
				bonusType = sql.NullString{String: dl.BonusType, Valid: true}
			}
		case model.CategoryProperty:
			propertyName = sql.NullString{String: rec.PropertyRecord.PropertyName, Valid: true}
		}

		serialized, err := json.Marshal(rec)
		if err != nil {
			return 0, 0, fmt.Errorf("serializing change record for %d: %w", prod.ID, err)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO changelog VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			prod.ID,
			prod.Title,
			unixSeconds(rec.Timestamp),
			rec.Action,
			rec.Category,
			dlType,
			bonusType,
			propertyName,
			string(serialized),
		)
		if err != nil {
			return 0, 0, fmt.Errorf("inserting change record for %d: %w", prod.ID, err)
		}
		entries++

		if summaryCategories[rec.Timestamp] == nil {
			summaryOrder = append(summaryOrder, rec.Timestamp)
			summaryCategories[rec.Timestamp] = map[string]bool{}
		}
		summaryCategories[rec.Timestamp][rec.Category] = true
	}

	for _, timestamp := range summaryOrder {
		categories := make([]string, 0, len(summaryCategories[timestamp]))
		for category := range summaryCategories[timestamp] {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		_, err := tx.ExecContext(ctx,
			"INSERT INTO changelog_summary VALUES (?, ?, ?, ?)",
			prod.ID,
			prod.Title,
			unixSeconds(timestamp),
			strings.Join(categories, ","),
		)
		if err != nil {
			return 0, 0, fmt.Errorf("inserting changelog summary for %d: %w", prod.ID, err)
		}
		summaries++
	}
	return entries, summaries, nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func stringOrNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
