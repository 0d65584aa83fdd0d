package changelog_test

import (
	"testing"
	"time"

	"github.com/Yepoleb/gogdb/internal/changelog"
	"github.com/Yepoleb/gogdb/internal/model"
)

var timestamp = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func diffAll(c *changelog.Changelogger) {
	c.Property("title")
	c.Property("comp_systems")
	c.Property("is_pre_order")
	c.Property("changelog")
	c.Downloads("bonus")
	c.Downloads("installer")
	c.Downloads("langpack")
	c.Downloads("patch")
	c.Builds()
}

func sampleProduct() *model.Product {
	return &model.Product{
		ID:          1207658924,
		Title:       "Beneath A Steel Sky",
		CompSystems: []string{"windows", "osx"},
		DlInstaller: []model.SoftwareDownload{{
			ID:        "installer_en",
			Name:      "Beneath A Steel Sky",
			TotalSize: 120_000_000,
			OS:        "windows",
			Language:  model.Language{Code: "en", Name: "English"},
			Version:   "gog-3",
			Files:     []model.File{{ID: "en1installer0", Size: 120_000_000, Downlink: "https://example.com/downlink"}},
		}},
		Builds: []*model.Build{{ID: 1001, Generation: 2}},
	}
}

func TestChangelogger_Idempotent(t *testing.T) {
	t.Parallel()
	prod := sampleProduct()
	other := sampleProduct()

	c := changelog.New(prod, other, timestamp)
	diffAll(c)

	if got := c.Entries(); len(got) != 0 {
		t.Errorf("identical snapshots produced %d records, want 0: %+v", len(got), got)
	}
}

func TestChangelogger_Property(t *testing.T) {
	t.Run("changed title", func(t *testing.T) {
		t.Parallel()
		prodOld := sampleProduct()
		prodNew := sampleProduct()
		prodNew.Title = "Beneath a Steel Sky"

		c := changelog.New(prodNew, prodOld, timestamp)
		c.Property("title")

		entries := c.Entries()
		if len(entries) != 1 {
			t.Fatalf("len(entries) = %d, want 1", len(entries))
		}
		rec := entries[0]
		if rec.Action != model.ActionChange || rec.Category != model.CategoryProperty {
			t.Errorf("record = %s/%s, want change/property", rec.Action, rec.Category)
		}
		if rec.PropertyRecord == nil {
			t.Fatal("PropertyRecord is nil")
		}
		if rec.PropertyRecord.PropertyName != "title" {
			t.Errorf("PropertyName = %q, want %q", rec.PropertyRecord.PropertyName, "title")
		}
		if rec.PropertyRecord.ValueOld != "Beneath A Steel Sky" {
			t.Errorf("ValueOld = %v, want the old title", rec.PropertyRecord.ValueOld)
		}
		if rec.ProductID != prodNew.ID {
			t.Errorf("ProductID = %d, want %d", rec.ProductID, prodNew.ID)
		}
		if !rec.Timestamp.Equal(timestamp) {
			t.Errorf("Timestamp = %v, want %v", rec.Timestamp, timestamp)
		}
	})

	t.Run("added changelog text", func(t *testing.T) {
		t.Parallel()
		prodOld := sampleProduct()
		prodNew := sampleProduct()
		text := "<p>Patch 1.1</p>"
		prodNew.Changelog = &text

		c := changelog.New(prodNew, prodOld, timestamp)
		c.Property("changelog")

		entries := c.Entries()
		if len(entries) != 1 {
			t.Fatalf("len(entries) = %d, want 1", len(entries))
		}
		if entries[0].Action != model.ActionAdd {
			t.Errorf("Action = %q, want add", entries[0].Action)
		}
		if entries[0].PropertyRecord.ValueNew != text {
			t.Errorf("ValueNew = %v, want the changelog text", entries[0].PropertyRecord.ValueNew)
		}
	})

	t.Run("unknown property is ignored", func(t *testing.T) {
		t.Parallel()
		c := changelog.New(sampleProduct(), sampleProduct(), timestamp)
		c.Property("slug")
		if got := c.Entries(); len(got) != 0 {
			t.Errorf("len(entries) = %d, want 0", len(got))
		}
	})
}

func TestChangelogger_Downloads(t *testing.T) {
	t.Run("language display name does not matter", func(t *testing.T) {
		t.Parallel()
		prodOld := sampleProduct()
		prodNew := sampleProduct()
		prodNew.DlInstaller[0].Language.Name = "Englisch"

		c := changelog.New(prodNew, prodOld, timestamp)
		c.Downloads("installer")

		if got := c.Entries(); len(got) != 0 {
			t.Errorf("len(entries) = %d, want 0", len(got))
		}
	})

	t.Run("size change emits a stripped pair", func(t *testing.T) {
		t.Parallel()
		prodOld := sampleProduct()
		prodNew := sampleProduct()
		prodNew.DlInstaller[0].TotalSize = 130_000_000
		prodNew.DlInstaller[0].Files[0].Size = 130_000_000

		c := changelog.New(prodNew, prodOld, timestamp)
		c.Downloads("installer")

		entries := c.Entries()
		if len(entries) != 1 {
			t.Fatalf("len(entries) = %d, want 1", len(entries))
		}
		rec := entries[0].DownloadRecord
		if rec == nil {
			t.Fatal("DownloadRecord is nil")
		}
		if rec.DlType != "installer" {
			t.Errorf("DlType = %q, want installer", rec.DlType)
		}
		if rec.DlNewSoftware.Files != nil || rec.DlOldSoftware.Files != nil {
			t.Error("file lists were not stripped from the record")
		}
		if rec.DlNewSoftware.TotalSize != 130_000_000 {
			t.Errorf("DlNewSoftware.TotalSize = %d, want 130000000", rec.DlNewSoftware.TotalSize)
		}
		if prodNew.DlInstaller[0].Files == nil {
			t.Error("stripping modified the snapshot itself")
		}
	})

	t.Run("removed bonus emits a delete", func(t *testing.T) {
		t.Parallel()
		prodOld := sampleProduct()
		prodOld.DlBonus = []model.BonusDownload{{
			Name:      "manual",
			BonusType: "manuals",
			TotalSize: 5_000_000,
			Count:     1,
		}}
		prodNew := sampleProduct()

		c := changelog.New(prodNew, prodOld, timestamp)
		c.Downloads("bonus")

		entries := c.Entries()
		if len(entries) != 1 {
			t.Fatalf("len(entries) = %d, want 1", len(entries))
		}
		if entries[0].Action != model.ActionDelete {
			t.Errorf("Action = %q, want del", entries[0].Action)
		}
		if entries[0].DownloadRecord.DlNewBonus != nil {
			t.Error("DlNewBonus is set on a delete record")
		}
		if entries[0].DownloadRecord.DlOldBonus.Name != "manual" {
			t.Errorf("DlOldBonus.Name = %q, want manual", entries[0].DownloadRecord.DlOldBonus.Name)
		}
	})
}

func TestChangelogger_Builds(t *testing.T) {
	t.Run("additions only", func(t *testing.T) {
		t.Parallel()
		prodOld := sampleProduct()
		prodNew := sampleProduct()
		prodNew.Builds = append(prodNew.Builds, &model.Build{ID: 1002, Generation: 2})

		c := changelog.New(prodNew, prodOld, timestamp)
		c.Builds()

		entries := c.Entries()
		if len(entries) != 1 {
			t.Fatalf("len(entries) = %d, want 1", len(entries))
		}
		rec := entries[0]
		if rec.Action != model.ActionAdd || rec.Category != model.CategoryBuild {
			t.Errorf("record = %s/%s, want add/build", rec.Action, rec.Category)
		}
		if rec.BuildID == nil || *rec.BuildID != 1002 {
			t.Errorf("BuildID = %v, want 1002", rec.BuildID)
		}
	})

	t.Run("removed builds are not reported", func(t *testing.T) {
		t.Parallel()
		prodOld := sampleProduct()
		prodNew := sampleProduct()
		prodNew.Builds = nil

		c := changelog.New(prodNew, prodOld, timestamp)
		c.Builds()

		if got := c.Entries(); len(got) != 0 {
			t.Errorf("len(entries) = %d, want 0", len(got))
		}
	})
}

func TestChangelogger_ProductAdded(t *testing.T) {
	t.Parallel()
	prod := sampleProduct()
	c := changelog.New(prod, &model.Product{ID: prod.ID}, timestamp)
	c.ProductAdded()

	entries := c.Entries()
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].Action != model.ActionAdd || entries[0].Category != model.CategoryProduct {
		t.Errorf("record = %s/%s, want add/product", entries[0].Action, entries[0].Category)
	}
}
