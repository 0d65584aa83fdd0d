package normalize

import (
	"encoding/json"
	"fmt"
)

// Repository dispatches a raw repository payload to the loader for the
// given generation.
func Repository(generation int, raw json.RawMessage) (any, error) {
	switch generation {
	case 1:
		return RepositoryV1(raw)
	case 2:
		return RepositoryV2(raw)
	default:
		return nil, fmt.Errorf("unknown repository generation %d", generation)
	}
}

// Manifest dispatches a raw manifest payload to the loader for the
// given generation.
func Manifest(generation int, raw json.RawMessage) (any, error) {
	switch generation {
	case 1:
		return ManifestV1(raw)
	case 2:
		return ManifestV2(raw)
	default:
		return nil, fmt.Errorf("unknown manifest generation %d", generation)
	}
}

// RepositoryManifestIDs returns the manifest content ids referenced by
// a raw repository payload of the given generation. Generation 1 depots
// reference manifests by file name next to the build link; generation 2
// depots (including the offline depot) reference them by content id.
func RepositoryManifestIDs(generation int, raw json.RawMessage) ([]string, error) {
	switch generation {
	case 1:
		repo, err := RepositoryV1(raw)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(repo.Depots))
		for _, depot := range repo.Depots {
			if depot.Manifest != "" {
				ids = append(ids, depot.Manifest)
			}
		}
		return ids, nil
	case 2:
		repo, err := RepositoryV2(raw)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(repo.Depots)+1)
		for _, depot := range repo.Depots {
			if depot.ManifestID != "" {
				ids = append(ids, depot.ManifestID)
			}
		}
		if repo.OfflineDepot.ManifestID != "" {
			ids = append(ids, repo.OfflineDepot.ManifestID)
		}
		return ids, nil
	default:
		return nil, fmt.Errorf("unknown repository generation %d", generation)
	}
}
