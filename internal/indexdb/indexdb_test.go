package indexdb_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Yepoleb/gogdb/internal/gog"
	"github.com/Yepoleb/gogdb/internal/indexdb"
	"github.com/Yepoleb/gogdb/internal/model"
	"github.com/Yepoleb/gogdb/internal/storage"
)

func intPtr(v int) *int { return &v }

func setup(t *testing.T) *storage.Store {
	t.Helper()
	store := storage.New(t.TempDir())

	game := &model.Product{
		ID:              10,
		Title:           "S.T.A.L.K.E.R.: Clear Sky",
		Type:            "game",
		CompSystems:     []string{"windows", "linux"},
		RankBestselling: intPtr(1),
	}
	dlc := &model.Product{
		ID:    11,
		Title: "Soundtrack",
		Type:  "dlc",
	}
	for _, prod := range []*model.Product{game, dlc} {
		if err := store.SaveProduct(prod); err != nil {
			t.Fatalf("SaveProduct() error = %v", err)
		}
	}

	timestamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	changes := []model.ChangeRecord{
		{
			ProductID: 10,
			Timestamp: timestamp,
			Action:    model.ActionChange,
			Category:  model.CategoryProperty,
			PropertyRecord: &model.PropertyRecord{
				PropertyName: "title",
				ValueNew:     "S.T.A.L.K.E.R.: Clear Sky",
				ValueOld:     "STALKER: Clear Sky",
			},
		},
		{
			ProductID: 10,
			Timestamp: timestamp,
			Action:    model.ActionAdd,
			Category:  model.CategoryBuild,
			BuildID:   int64Ptr(100),
		},
		{
			ProductID: 10,
			Timestamp: timestamp.Add(time.Hour),
			Action:    model.ActionAdd,
			Category:  model.CategoryDownload,
			DownloadRecord: &model.DownloadRecord{
				DlType:     "bonus",
				DlNewBonus: &model.BonusDownload{Name: "manual", BonusType: "manuals"},
			},
		},
	}
	if err := store.SaveChangelog(changes, 10); err != nil {
		t.Fatalf("SaveChangelog() error = %v", err)
	}

	// 12 is known but was never fetched successfully.
	if err := store.SaveIDs([]int64{10, 11, 12}); err != nil {
		t.Fatalf("SaveIDs() error = %v", err)
	}
	return store
}

func int64Ptr(v int64) *int64 { return &v }

func TestBuilder_Build(t *testing.T) {
	t.Parallel()
	store := setup(t)
	builder := indexdb.NewBuilder(store, gog.NewNopLogger())

	counts, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if counts.Products != 2 {
		t.Errorf("Products = %d, want 2", counts.Products)
	}
	if counts.Changelog != 3 {
		t.Errorf("Changelog = %d, want 3", counts.Changelog)
	}
	if counts.Summaries != 2 {
		t.Errorf("Summaries = %d, want 2", counts.Summaries)
	}

	db, err := sql.Open("sqlite3", store.IndexDBPath())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	t.Run("product row", func(t *testing.T) {
		var compSystems, searchTitle string
		var saleRank int
		err := db.QueryRow(
			"SELECT comp_systems, sale_rank, search_title FROM products WHERE product_id = 10").
			Scan(&compSystems, &saleRank, &searchTitle)
		if err != nil {
			t.Fatalf("QueryRow() error = %v", err)
		}
		if compSystems != "wl" {
			t.Errorf("comp_systems = %q, want wl", compSystems)
		}
		// Bestseller rank 1 of 3 known ids inverts to 3.
		if saleRank != 3 {
			t.Errorf("sale_rank = %d, want 3", saleRank)
		}
		if searchTitle != "stalkerclearsky" {
			t.Errorf("search_title = %q, want stalkerclearsky", searchTitle)
		}
	})

	t.Run("unranked product sorts last", func(t *testing.T) {
		var saleRank int
		err := db.QueryRow("SELECT sale_rank FROM products WHERE product_id = 11").Scan(&saleRank)
		if err != nil {
			t.Fatalf("QueryRow() error = %v", err)
		}
		if saleRank != 0 {
			t.Errorf("sale_rank = %d, want 0", saleRank)
		}
	})

	t.Run("changelog rows carry type columns", func(t *testing.T) {
		var bonusType sql.NullString
		err := db.QueryRow(
			"SELECT bonus_type FROM changelog WHERE category = 'download'").Scan(&bonusType)
		if err != nil {
			t.Fatalf("QueryRow() error = %v", err)
		}
		if !bonusType.Valid || bonusType.String != "manuals" {
			t.Errorf("bonus_type = %v, want manuals", bonusType)
		}

		var propertyName sql.NullString
		err = db.QueryRow(
			"SELECT property_name FROM changelog WHERE category = 'property'").Scan(&propertyName)
		if err != nil {
			t.Fatalf("QueryRow() error = %v", err)
		}
		if !propertyName.Valid || propertyName.String != "title" {
			t.Errorf("property_name = %v, want title", propertyName)
		}
	})

	t.Run("summary groups by timestamp", func(t *testing.T) {
		var categories string
		err := db.QueryRow(
			"SELECT categories FROM changelog_summary ORDER BY timestamp LIMIT 1").Scan(&categories)
		if err != nil {
			t.Fatalf("QueryRow() error = %v", err)
		}
		if categories != "build,property" {
			t.Errorf("categories = %q, want build,property", categories)
		}
	})

	t.Run("rebuild does not duplicate rows", func(t *testing.T) {
		if _, err := builder.Build(context.Background()); err != nil {
			t.Fatalf("second Build() error = %v", err)
		}
		var rows int
		if err := db.QueryRow("SELECT COUNT(*) FROM products").Scan(&rows); err != nil {
			t.Fatalf("QueryRow() error = %v", err)
		}
		if rows != 2 {
			t.Errorf("products rows after rebuild = %d, want 2", rows)
		}
	})
}
