package storage_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Yepoleb/gogdb/internal/model"
	"github.com/Yepoleb/gogdb/internal/storage"
)

func setup(t *testing.T) *storage.Store {
	t.Helper()
	return storage.New(t.TempDir())
}

func TestStore_Product(t *testing.T) {
	t.Parallel()
	store := setup(t)

	if store.HasProduct(10) {
		t.Error("HasProduct(10) = true on empty store")
	}
	got, err := store.LoadProduct(10)
	if err != nil {
		t.Fatalf("LoadProduct() error = %v", err)
	}
	if got != nil {
		t.Errorf("LoadProduct() = %+v on empty store, want nil", got)
	}

	added := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	prod := &model.Product{
		ID:          10,
		Title:       "Sample Game",
		Type:        "game",
		Slug:        "sample_game",
		Access:      2,
		CompSystems: []string{"windows"},
		AddedOn:     &added,
	}
	if err := store.SaveProduct(prod); err != nil {
		t.Fatalf("SaveProduct() error = %v", err)
	}

	if !store.HasProduct(10) {
		t.Error("HasProduct(10) = false after save")
	}
	got, err = store.LoadProduct(10)
	if err != nil {
		t.Fatalf("LoadProduct() error = %v", err)
	}
	if got == nil {
		t.Fatal("LoadProduct() = nil after save")
	}
	if got.Title != prod.Title || got.Access != prod.Access {
		t.Errorf("loaded product = %+v, want %+v", got, prod)
	}
	if got.AddedOn == nil || !got.AddedOn.Equal(added) {
		t.Errorf("AddedOn = %v, want %v", got.AddedOn, added)
	}
}

func TestStore_IDs(t *testing.T) {
	t.Parallel()
	store := setup(t)

	got, err := store.LoadIDs()
	if err != nil {
		t.Fatalf("LoadIDs() error = %v", err)
	}
	if got != nil {
		t.Errorf("LoadIDs() = %v on empty store, want nil", got)
	}

	want := []int64{3, 1, 2}
	if err := store.SaveIDs(want); err != nil {
		t.Fatalf("SaveIDs() error = %v", err)
	}
	got, err = store.LoadIDs()
	if err != nil {
		t.Fatalf("LoadIDs() error = %v", err)
	}
	if len(got) != 3 || got[0] != 3 || got[1] != 1 || got[2] != 2 {
		t.Errorf("LoadIDs() = %v, want %v", got, want)
	}
}

func TestStore_Manifest(t *testing.T) {
	t.Run("gzip round trip", func(t *testing.T) {
		t.Parallel()
		store := setup(t)
		raw := json.RawMessage(`{"depot": {"items": []}}`)

		if err := store.SaveManifest(raw, 2, "0123456789abcdef"); err != nil {
			t.Fatalf("SaveManifest() error = %v", err)
		}
		if !store.HasManifest(2, "0123456789abcdef") {
			t.Error("HasManifest() = false after save")
		}
		got, err := store.LoadManifest(2, "0123456789abcdef")
		if err != nil {
			t.Fatalf("LoadManifest() error = %v", err)
		}
		if string(got) != string(raw) {
			t.Errorf("LoadManifest() = %s, want %s", got, raw)
		}
	})

	t.Run("sharded by id prefix", func(t *testing.T) {
		t.Parallel()
		store := setup(t)
		raw := json.RawMessage(`{}`)

		if err := store.SaveManifest(raw, 2, "abcdef123456"); err != nil {
			t.Fatalf("SaveManifest() error = %v", err)
		}
		path := filepath.Join(store.Root(), "manifests_v2", "ab", "cd", "abcdef123456.json.gz")
		if _, err := os.Stat(path); err != nil {
			t.Errorf("manifest not at sharded path: %v", err)
		}
	})

	t.Run("short id is not sharded", func(t *testing.T) {
		t.Parallel()
		store := setup(t)

		if err := store.SaveManifest(json.RawMessage(`{}`), 1, "abc"); err != nil {
			t.Fatalf("SaveManifest() error = %v", err)
		}
		path := filepath.Join(store.Root(), "manifests_v1", "abc.json.gz")
		if _, err := os.Stat(path); err != nil {
			t.Errorf("manifest not at flat path: %v", err)
		}
	})

	t.Run("illegal id is silently dropped", func(t *testing.T) {
		t.Parallel()
		store := setup(t)

		if err := store.SaveManifest(json.RawMessage(`{}`), 2, "../../etc/passwd"); err != nil {
			t.Fatalf("SaveManifest() error = %v", err)
		}
		if store.HasManifest(2, "../../etc/passwd") {
			t.Error("HasManifest() = true for illegal id")
		}
		got, err := store.LoadManifest(2, "../../etc/passwd")
		if err != nil {
			t.Fatalf("LoadManifest() error = %v", err)
		}
		if got != nil {
			t.Errorf("LoadManifest() = %s for illegal id, want nil", got)
		}
		entries, err := os.ReadDir(store.Root())
		if err != nil {
			t.Fatalf("ReadDir() error = %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("store root has %d entries after illegal save, want 0", len(entries))
		}
	})
}

func TestStore_AtomicWrite(t *testing.T) {
	t.Run("no partial file remains", func(t *testing.T) {
		t.Parallel()
		store := setup(t)

		if err := store.SaveIDs([]int64{1}); err != nil {
			t.Fatalf("SaveIDs() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(store.Root(), "ids.json.part")); !os.IsNotExist(err) {
			t.Error("temporary .part file left behind")
		}
	})

	t.Run("stale temp file does not shadow the value", func(t *testing.T) {
		t.Parallel()
		store := setup(t)

		// Simulate a crash between temp write and rename.
		part := filepath.Join(store.Root(), "ids.json.part")
		if err := os.WriteFile(part, []byte("garbage"), 0644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if err := store.SaveIDs([]int64{5}); err != nil {
			t.Fatalf("SaveIDs() error = %v", err)
		}
		got, err := store.LoadIDs()
		if err != nil {
			t.Fatalf("LoadIDs() error = %v", err)
		}
		if len(got) != 1 || got[0] != 5 {
			t.Errorf("LoadIDs() = %v, want [5]", got)
		}
	})
}

func TestStore_User(t *testing.T) {
	t.Parallel()
	store := setup(t)

	saved := map[string][]int64{"1207658924": {1, 2}}
	if err := store.SaveUser(saved, "dependencies.json"); err != nil {
		t.Fatalf("SaveUser() error = %v", err)
	}

	var loaded map[string][]int64
	ok, err := store.LoadUser("dependencies.json", &loaded)
	if err != nil {
		t.Fatalf("LoadUser() error = %v", err)
	}
	if !ok {
		t.Fatal("LoadUser() ok = false after save")
	}
	if len(loaded["1207658924"]) != 2 {
		t.Errorf("loaded value = %v, want %v", loaded, saved)
	}

	ok, err = store.LoadUser("missing.json", &loaded)
	if err != nil {
		t.Fatalf("LoadUser() error = %v", err)
	}
	if ok {
		t.Error("LoadUser() ok = true for missing file")
	}
}

func TestStore_Raw(t *testing.T) {
	t.Parallel()
	store := setup(t)

	raw := json.RawMessage(`{"id": 10}`)
	if err := store.SaveRaw(raw, "prod_v0", "10_v0.json"); err != nil {
		t.Fatalf("SaveRaw() error = %v", err)
	}
	got, err := store.LoadRaw("prod_v0", "10_v0.json")
	if err != nil {
		t.Fatalf("LoadRaw() error = %v", err)
	}
	if string(got) != string(raw) {
		t.Errorf("LoadRaw() = %s, want %s", got, raw)
	}

	got, err = store.LoadRaw("prod_v0", "nope.json")
	if err != nil {
		t.Fatalf("LoadRaw() error = %v", err)
	}
	if got != nil {
		t.Errorf("LoadRaw() = %s for missing key, want nil", got)
	}
}

func TestStore_Changelog(t *testing.T) {
	t.Parallel()
	store := setup(t)

	records := []model.ChangeRecord{{
		ProductID: 10,
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Action:    model.ActionAdd,
		Category:  model.CategoryProduct,
	}}
	if err := store.SaveChangelog(records, 10); err != nil {
		t.Fatalf("SaveChangelog() error = %v", err)
	}
	got, err := store.LoadChangelog(10)
	if err != nil {
		t.Fatalf("LoadChangelog() error = %v", err)
	}
	if len(got) != 1 || got[0].Category != model.CategoryProduct {
		t.Errorf("LoadChangelog() = %+v, want the saved record", got)
	}
}
