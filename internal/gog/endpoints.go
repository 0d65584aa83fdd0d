package gog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ScrambleID maps a product id onto a pseudo random 32 bit value, used
// to spread out the crawl order and to key price cache files.
func ScrambleID(id int64) uint32 {
	return uint32(uint64(id) * 16205650284070698839)
}

func (s *Session) FetchProductV0(ctx context.Context, productID int64) (json.RawMessage, error) {
	idStr := strconv.FormatInt(productID, 10)
	return s.GetJSON(ctx, Request{
		Name:        fmt.Sprintf("api v0 %d", productID),
		URL:         fmt.Sprintf("https://api.gog.com/products/%d?locale=en_US&expand=downloads,screenshots,videos,changelog", productID),
		Caching:     CacheFallback,
		CacheKey:    []string{"prod_v0", idStr + "_v0.json"},
		Expected404: true,
	})
}

func (s *Session) FetchProductV2(ctx context.Context, productID int64) (json.RawMessage, error) {
	idStr := strconv.FormatInt(productID, 10)
	return s.GetJSON(ctx, Request{
		Name:        fmt.Sprintf("api v2 %d", productID),
		URL:         fmt.Sprintf("https://api.gog.com/v2/games/%d?locale=en-US", productID),
		Caching:     CacheFallback,
		CacheKey:    []string{"prod_v2", idStr + "_v2.json"},
		Expected404: true,
	})
}

func (s *Session) FetchBuilds(ctx context.Context, productID int64, system string) (json.RawMessage, error) {
	idStr := strconv.FormatInt(productID, 10)
	return s.GetJSON(ctx, Request{
		Name:     fmt.Sprintf("builds %d %s", productID, system),
		URL:      fmt.Sprintf("https://content-system.gog.com/products/%d/os/%s/builds?generation=2", productID, system),
		Caching:  CacheFallback,
		CacheKey: []string{"builds", fmt.Sprintf("%s_builds_%s.json", idStr, system)},
	})
}

func (s *Session) FetchRepoV1(ctx context.Context, repoURL string, productID, buildID int64) (json.RawMessage, error) {
	return s.GetJSON(ctx, Request{
		Name:     fmt.Sprintf("repo v1 %s", repoURL),
		URL:      repoURL,
		Caching:  CacheFallback,
		CacheKey: []string{"repo_v1", fmt.Sprintf("%d_%d.json", productID, buildID)},
	})
}

// FetchManifestV1 loads a generation 1 manifest. The manifest url is
// derived from the repository url by swapping the last path element.
func (s *Session) FetchManifestV1(ctx context.Context, manifestName, repoURL string) (json.RawMessage, error) {
	base := repoURL
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[:idx]
	}
	return s.GetJSON(ctx, Request{
		Name:    fmt.Sprintf("manifest v1 %s", manifestName),
		URL:     base + "/" + manifestName,
		Caching: CacheNone,
	})
}

func (s *Session) FetchRepoV2(ctx context.Context, repoURL string, productID, buildID int64) (json.RawMessage, error) {
	return s.GetJSON(ctx, Request{
		Name:       fmt.Sprintf("repo v2 %s", repoURL),
		URL:        repoURL,
		Caching:    CacheFallback,
		CacheKey:   []string{"repo_v2", fmt.Sprintf("%d_%d.json", productID, buildID)},
		Decompress: true,
	})
}

func (s *Session) FetchManifestV2(ctx context.Context, manifestID string) (json.RawMessage, error) {
	if len(manifestID) < 4 {
		return nil, nil
	}
	manifestURL := fmt.Sprintf("https://cdn.gog.com/content-system/v2/meta/%s/%s/%s",
		manifestID[0:2], manifestID[2:4], manifestID)
	return s.GetJSON(ctx, Request{
		Name:       fmt.Sprintf("manifest v2 %s", manifestID),
		URL:        manifestURL,
		Caching:    CacheNone,
		Decompress: true,
	})
}

func (s *Session) FetchStorePage(ctx context.Context, pageNum int) (json.RawMessage, error) {
	return s.GetJSON(ctx, Request{
		Name:     fmt.Sprintf("store page %d", pageNum),
		URL:      fmt.Sprintf("https://www.gog.com/games/ajax/filtered?mediaType=game&page=%d&sort=popularity", pageNum),
		Caching:  CacheFallback,
		CacheKey: []string{"store", fmt.Sprintf("page_%d.json", pageNum)},
	})
}

func (s *Session) FetchPrices(ctx context.Context, chunk []int64, countryCode string) (json.RawMessage, error) {
	idStrs := make([]string, len(chunk))
	var cacheID uint64
	for i, id := range chunk {
		idStrs[i] = strconv.FormatInt(id, 10)
		cacheID += uint64(ScrambleID(id))
	}
	return s.GetJSON(ctx, Request{
		Name:     fmt.Sprintf("prices for %v", chunk),
		URL:      fmt.Sprintf("https://api.gog.com/products/prices?ids=%s&countryCode=%s", strings.Join(idStrs, ","), countryCode),
		Caching:  CacheFallback,
		CacheKey: []string{"prices", fmt.Sprintf("prices_%d_%d_%s.json", chunk[0], cacheID, countryCode)},
	})
}
