package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Yepoleb/gogdb/internal/model"
)

// flexInt decodes a JSON number or a numeric string. Generation 1
// payloads are inconsistent about which one they use.
type flexInt int64

func (n *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing integer %q: %w", s, err)
	}
	*n = flexInt(v)
	return nil
}

func flexIntValue(n *flexInt, fallback int64) int64 {
	if n == nil {
		return fallback
	}
	return int64(*n)
}

func flexIntPtr(n *flexInt) *int64 {
	if n == nil {
		return nil
	}
	v := int64(*n)
	return &v
}

// Depot items inside a generation 1 repository describe either a depot
// (has a manifest) or a redistributable (does not). The raw struct
// carries both field sets; the manifest key decides which loader runs.
type rawDepotItemV1 struct {
	Languages []string  `json:"languages"`
	Size      *flexInt  `json:"size"`
	GameIDs   []flexInt `json:"gameIDs"`
	Systems   []string  `json:"systems"`
	Manifest  *string   `json:"manifest"`

	Redist     *string `json:"redist"`
	Executable *string `json:"executable"`
	Argument   *string `json:"argument"`
	TargetDir  *string `json:"targetDir"`
}

func loadDepotV1(raw rawDepotItemV1) model.DepotV1 {
	systems := defaultStrings(raw.Systems, "Windows")
	gameIDs := make([]int64, len(raw.GameIDs))
	for i, id := range raw.GameIDs {
		gameIDs[i] = int64(id)
	}
	return model.DepotV1{
		Languages: defaultStrings(raw.Languages, "Neutral"),
		Size:      flexIntValue(raw.Size, 0),
		GameIDs:   gameIDs,
		System:    System(systems[0]),
		Manifest:  stringValue(raw.Manifest),
	}
}

func loadRedistV1(raw rawDepotItemV1) model.RedistV1 {
	return model.RedistV1{
		Redist:     stringValue(raw.Redist),
		Executable: raw.Executable,
		Argument:   raw.Argument,
		TargetDir:  raw.TargetDir,
	}
}

type rawSupportCommandV1 struct {
	Languages  []string `json:"languages"`
	Executable *string  `json:"executable"`
	GameID     *flexInt `json:"gameID"`
	Systems    []string `json:"systems"`
}

func loadSupportCommandV1(raw rawSupportCommandV1) model.SupportCommandV1 {
	languages := defaultStrings(raw.Languages, "Neutral")
	systems := defaultStrings(raw.Systems, "Windows")
	return model.SupportCommandV1{
		Language:   languages[0],
		Executable: stringValue(raw.Executable),
		ProductID:  flexIntPtr(raw.GameID),
		System:     System(systems[0]),
	}
}

type rawRepositoryProductV1 struct {
	Dependencies []flexInt         `json:"dependencies"`
	GameID       *flexInt          `json:"gameID"`
	Name         map[string]string `json:"name"`
	Standalone   bool              `json:"standalone"`
}

func loadRepositoryProductV1(raw rawRepositoryProductV1) model.RepositoryProductV1 {
	var dependency *int64
	if len(raw.Dependencies) > 0 {
		dependency = flexIntPtr(&raw.Dependencies[0])
	}
	return model.RepositoryProductV1{
		Dependency: dependency,
		ProductID:  flexIntValue(raw.GameID, 0),
		Name:       raw.Name["en"],
		Standalone: raw.Standalone,
	}
}

type rawRepositoryV1 struct {
	Product struct {
		Timestamp       *int64                   `json:"timestamp"`
		Depots          []rawDepotItemV1         `json:"depots"`
		SupportCommands []rawSupportCommandV1    `json:"support_commands"`
		InstallDirectory *string                  `json:"installDirectory"`
		RootGameID      *flexInt                 `json:"rootGameID"`
		GameIDs         []rawRepositoryProductV1 `json:"gameIDs"`
		ProjectName     *string                  `json:"projectName"`
	} `json:"product"`
}

// RepositoryV1 normalizes a generation 1 repository payload.
func RepositoryV1(raw json.RawMessage) (*model.RepositoryV1, error) {
	var data rawRepositoryV1
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decoding repository v1: %w", err)
	}
	src := data.Product

	repo := &model.RepositoryV1{
		Timestamp:        src.Timestamp,
		Depots:           []model.DepotV1{},
		Redists:          []model.RedistV1{},
		SupportCommands:  []model.SupportCommandV1{},
		InstallDirectory: stringValue(src.InstallDirectory),
		RootGameID:       flexIntPtr(src.RootGameID),
		Products:         []model.RepositoryProductV1{},
		Name:             stringValue(src.ProjectName),
	}
	for _, item := range src.Depots {
		if item.Manifest != nil {
			repo.Depots = append(repo.Depots, loadDepotV1(item))
		} else {
			repo.Redists = append(repo.Redists, loadRedistV1(item))
		}
	}
	for _, cmd := range src.SupportCommands {
		repo.SupportCommands = append(repo.SupportCommands, loadSupportCommandV1(cmd))
	}
	for _, prod := range src.GameIDs {
		repo.Products = append(repo.Products, loadRepositoryProductV1(prod))
	}
	return repo, nil
}

type rawManifestItemV1 struct {
	Hash        *string `json:"hash"`
	Offset      *int64  `json:"offset"`
	Path        string  `json:"path"`
	Size        *int64  `json:"size"`
	URL         *string `json:"url"`
	SymlinkType *string `json:"symlinkType"`
	Target      *string `json:"target"`
	Executable  bool    `json:"executable"`
	Hidden      bool    `json:"hidden"`
	Support     bool    `json:"support"`
	Directory   bool    `json:"directory"`
}

func manifestFlagsV1(item rawManifestItemV1) []string {
	flags := []string{}
	if item.Executable {
		flags = append(flags, "executable")
	}
	if item.Hidden {
		flags = append(flags, "hidden")
	}
	if item.Support {
		flags = append(flags, "support")
	}
	return flags
}

type rawManifestV1 struct {
	Depot struct {
		Name  string              `json:"name"`
		Files []rawManifestItemV1 `json:"files"`
	} `json:"depot"`
}

// ManifestV1 normalizes a generation 1 manifest payload into ordered
// file, directory and link collections.
func ManifestV1(raw json.RawMessage) (*model.DepotManifestV1, error) {
	var data rawManifestV1
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decoding manifest v1: %w", err)
	}

	manifest := &model.DepotManifestV1{
		Name:        data.Depot.Name,
		Files:       []model.DepotFileV1{},
		Directories: []model.DepotDirectoryV1{},
		Links:       []model.DepotLinkV1{},
	}
	for _, item := range data.Depot.Files {
		switch {
		case item.SymlinkType != nil:
			manifest.Links = append(manifest.Links, model.DepotLinkV1{
				Path:     item.Path,
				Target:   item.Target,
				LinkType: item.SymlinkType,
			})
		case item.Directory:
			manifest.Directories = append(manifest.Directories, model.DepotDirectoryV1{
				Path:  item.Path,
				Flags: manifestFlagsV1(item),
			})
		default:
			manifest.Files = append(manifest.Files, model.DepotFileV1{
				Path:     item.Path,
				Size:     int64Value(item.Size, 0),
				Checksum: item.Hash,
				URL:      item.URL,
				Offset:   int64Value(item.Offset, 0),
				Flags:    manifestFlagsV1(item),
			})
		}
	}
	return manifest, nil
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func int64Value(n *int64, fallback int64) int64 {
	if n == nil {
		return fallback
	}
	return *n
}
