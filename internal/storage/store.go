// Package storage persists every artifact of a sync run as JSON files
// under a single root directory. All writes go through a temporary
// sibling path followed by an atomic rename, so readers never observe a
// partially written value.
package storage

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Yepoleb/gogdb/internal/model"
)

// Store is the durable file store. It is safe for concurrent use as
// long as no two writers target the same key, which the work queue's
// dedup guarantees.
type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the store's base directory.
func (s *Store) Root() string {
	return s.root
}

// keyLegal reports whether a key part is safe to embed in a filesystem
// path. Anything outside [A-Za-z0-9._-] is rejected to prevent
// directory traversal.
func keyLegal(parts ...string) bool {
	for _, part := range parts {
		for _, c := range part {
			switch {
			case c >= 'a' && c <= 'z':
			case c >= 'A' && c <= 'Z':
			case c >= '0' && c <= '9':
			case c == '-' || c == '_' || c == '.':
			default:
				return false
			}
		}
	}
	return true
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Path functions. These define the on-disk layout and are the only
// place it is encoded.

func (s *Store) pathIDs() string {
	return filepath.Join(s.root, "ids.json")
}

func (s *Store) pathToken() string {
	return filepath.Join(s.root, "secret", "token.json")
}

func (s *Store) pathProduct(productID int64) string {
	return filepath.Join(s.root, "products", formatID(productID), "product.json")
}

func (s *Store) pathRepository(productID, buildID int64) string {
	return filepath.Join(s.root, "products", formatID(productID), "builds", formatID(buildID)+".json")
}

func (s *Store) pathPrices(productID int64) string {
	return filepath.Join(s.root, "products", formatID(productID), "prices.json")
}

func (s *Store) pathPricesOld(productID int64) string {
	return filepath.Join(s.root, "products", formatID(productID), "prices_pre2019.json")
}

func (s *Store) pathChangelog(productID int64) string {
	return filepath.Join(s.root, "products", formatID(productID), "changes.json")
}

// Manifests are sharded by the first four hex characters of their id to
// bound directory size.
func (s *Store) pathManifest(generation int, manifestID string) string {
	dir := fmt.Sprintf("manifests_v%d", generation)
	if len(manifestID) < 4 {
		return filepath.Join(s.root, dir, manifestID+".json.gz")
	}
	return filepath.Join(s.root, dir, manifestID[0:2], manifestID[2:4], manifestID+".json.gz")
}

func (s *Store) pathUser(name string) string {
	return filepath.Join(s.root, "user", name)
}

func (s *Store) pathRaw(parts ...string) string {
	return filepath.Join(append([]string{s.root, "raw"}, parts...)...)
}

// IndexDBPath returns the location of the derived sqlite index.
func (s *Store) IndexDBPath() string {
	return filepath.Join(s.root, "index.sqlite3")
}

// load reads and decodes a JSON value. The boolean result is false when
// the value is absent (missing file or illegal key).
func load(path string, compressed bool, v any) (bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return false, fmt.Errorf("reading %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	if err := json.NewDecoder(r).Decode(v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", path, err)
	}
	return true, nil
}

// save encodes a JSON value to a temporary sibling path and renames it
// into place. A missing parent directory is created and the write
// retried once; any other filesystem error is returned.
func save(path string, compressed bool, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if compressed {
		data, err = gzipBytes(data)
		if err != nil {
			return fmt.Errorf("compressing %s: %w", path, err)
		}
	}

	tempPath := path + ".part"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("writing %s: %w", tempPath, err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("creating parent of %s: %w", path, err)
		}
		if err := os.WriteFile(tempPath, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", tempPath, err)
		}
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("committing %s: %w", path, err)
	}
	return nil
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Known ids

func (s *Store) LoadIDs() ([]int64, error) {
	var ids []int64
	ok, err := load(s.pathIDs(), false, &ids)
	if !ok || err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) SaveIDs(ids []int64) error {
	return save(s.pathIDs(), false, ids)
}

// Token

func (s *Store) LoadToken() (*model.Token, error) {
	var token model.Token
	ok, err := load(s.pathToken(), false, &token)
	if !ok || err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *Store) SaveToken(token *model.Token) error {
	return save(s.pathToken(), false, token)
}

// Product snapshots

func (s *Store) LoadProduct(productID int64) (*model.Product, error) {
	var prod model.Product
	ok, err := load(s.pathProduct(productID), false, &prod)
	if !ok || err != nil {
		return nil, err
	}
	return &prod, nil
}

func (s *Store) SaveProduct(prod *model.Product) error {
	return save(s.pathProduct(prod.ID), false, prod)
}

func (s *Store) HasProduct(productID int64) bool {
	return exists(s.pathProduct(productID))
}

// Repositories, stored as the raw upstream payload

func (s *Store) LoadRepository(productID, buildID int64) (json.RawMessage, error) {
	var raw json.RawMessage
	ok, err := load(s.pathRepository(productID, buildID), false, &raw)
	if !ok || err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *Store) SaveRepository(raw json.RawMessage, productID, buildID int64) error {
	return save(s.pathRepository(productID, buildID), false, raw)
}

// Prices

func (s *Store) LoadPrices(productID int64) (model.PriceLog, error) {
	var log model.PriceLog
	ok, err := load(s.pathPrices(productID), false, &log)
	if !ok || err != nil {
		return nil, err
	}
	return log, nil
}

func (s *Store) SavePrices(log model.PriceLog, productID int64) error {
	return save(s.pathPrices(productID), false, log)
}

func (s *Store) LoadPricesOld(productID int64) (model.PriceLog, error) {
	var log model.PriceLog
	ok, err := load(s.pathPricesOld(productID), false, &log)
	if !ok || err != nil {
		return nil, err
	}
	return log, nil
}

// Change logs

func (s *Store) LoadChangelog(productID int64) ([]model.ChangeRecord, error) {
	var changelog []model.ChangeRecord
	ok, err := load(s.pathChangelog(productID), false, &changelog)
	if !ok || err != nil {
		return nil, err
	}
	return changelog, nil
}

func (s *Store) SaveChangelog(changelog []model.ChangeRecord, productID int64) error {
	return save(s.pathChangelog(productID), false, changelog)
}

// Manifests, cached permanently by content id and never re-fetched

func (s *Store) LoadManifest(generation int, manifestID string) (json.RawMessage, error) {
	if !keyLegal(manifestID) {
		return nil, nil
	}
	var raw json.RawMessage
	ok, err := load(s.pathManifest(generation, manifestID), true, &raw)
	if !ok || err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *Store) SaveManifest(raw json.RawMessage, generation int, manifestID string) error {
	if !keyLegal(manifestID) {
		return nil
	}
	return save(s.pathManifest(generation, manifestID), true, raw)
}

func (s *Store) HasManifest(generation int, manifestID string) bool {
	if !keyLegal(manifestID) {
		return false
	}
	return exists(s.pathManifest(generation, manifestID))
}

// Derived user documents

func (s *Store) SaveUser(v any, name string) error {
	if !keyLegal(name) {
		return nil
	}
	return save(s.pathUser(name), false, v)
}

func (s *Store) LoadUser(name string, v any) (bool, error) {
	if !keyLegal(name) {
		return false, nil
	}
	return load(s.pathUser(name), false, v)
}

// Raw fetch cache, used by the session's cache policy

func (s *Store) LoadRaw(parts ...string) (json.RawMessage, error) {
	if !keyLegal(parts...) {
		return nil, nil
	}
	var raw json.RawMessage
	ok, err := load(s.pathRaw(parts...), false, &raw)
	if !ok || err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *Store) SaveRaw(raw json.RawMessage, parts ...string) error {
	if !keyLegal(parts...) {
		return nil
	}
	return save(s.pathRaw(parts...), false, raw)
}
