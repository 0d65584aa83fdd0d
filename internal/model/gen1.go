package model

// Generation 1 repositories and manifests. The first content system
// generation describes installs as depots plus redistributables, with
// manifests referenced by file name.

type DepotV1 struct {
	Languages []string `json:"languages"`
	Size      int64    `json:"size"`
	GameIDs   []int64  `json:"game_ids"`
	System    string   `json:"system"`
	Manifest  string   `json:"manifest"`
}

// ManifestID strips the ".json" suffix from the manifest file name.
func (d *DepotV1) ManifestID() string {
	const suffix = ".json"
	if len(d.Manifest) > len(suffix) {
		return d.Manifest[:len(d.Manifest)-len(suffix)]
	}
	return d.Manifest
}

// RedistV1 describes a redistributable install step. Either TargetDir
// or Executable and Argument are set.
type RedistV1 struct {
	Redist     string  `json:"redist"`
	Executable *string `json:"executable"`
	Argument   *string `json:"argument"`
	TargetDir  *string `json:"target_dir"`
}

type SupportCommandV1 struct {
	Language  string `json:"language"`
	Executable string `json:"executable"`
	ProductID *int64 `json:"product_id"`
	System    string `json:"system"`
}

type RepositoryProductV1 struct {
	Dependency *int64 `json:"dependency"`
	ProductID  int64  `json:"product_id"`
	Name       string `json:"name"`
	Standalone bool   `json:"standalone"`
}

// RepositoryV1 is the normalized install description of a gen 1 build.
// Timestamp counts seconds since 2014-02-28 23:00:00.
type RepositoryV1 struct {
	Timestamp       *int64                `json:"timestamp"`
	Depots          []DepotV1             `json:"depots"`
	Redists         []RedistV1            `json:"redists"`
	SupportCommands []SupportCommandV1    `json:"support_commands"`
	InstallDirectory string               `json:"install_directory"`
	RootGameID      *int64                `json:"root_game_id"`
	Products        []RepositoryProductV1 `json:"products"`
	Name            string                `json:"name"`
}

type DepotFileV1 struct {
	Path     string   `json:"path"`
	Size     int64    `json:"size"`
	Checksum *string  `json:"checksum"`
	URL      *string  `json:"url"`
	Offset   int64    `json:"offset"`
	Flags    []string `json:"flags"`
}

type DepotDirectoryV1 struct {
	Path  string   `json:"path"`
	Flags []string `json:"flags"`
}

type DepotLinkV1 struct {
	Path     string  `json:"path"`
	Target   *string `json:"target"`
	LinkType *string `json:"link_type"`
}

// DepotManifestV1 is the normalized file listing of a gen 1 depot.
// Manifests are immutable once fetched.
type DepotManifestV1 struct {
	Name        string             `json:"name"`
	Files       []DepotFileV1      `json:"files"`
	Directories []DepotDirectoryV1 `json:"directories"`
	Links       []DepotLinkV1      `json:"links"`
}
