package model

// Generation 2 repositories and manifests. The second content system
// generation adds cloud saves, named redistributable dependencies and
// chunked files addressed by content id.

type CloudSaveV2 struct {
	Location string `json:"location"`
	Name     string `json:"name"`
}

type DepotV2 struct {
	CompressedSize int64    `json:"compressed_size"`
	Size           int64    `json:"size"`
	Languages      []string `json:"languages"`
	ManifestID     string   `json:"manifest_id"`
	ProductID      *int64   `json:"product_id"`
	IsGogDepot     bool     `json:"is_gog_depot"`
	OSBitness      string   `json:"os_bitness"`
}

type RepositoryProductV2 struct {
	Name           string  `json:"name"`
	ProductID      int64   `json:"product_id"`
	Script         *string `json:"script"`
	TempArguments  string  `json:"temp_arguments"`
	TempExecutable string  `json:"temp_executable"`
}

// RepositoryV2 is the normalized install description of a gen 2 build.
// Dependencies are names of redistributables.
type RepositoryV2 struct {
	BaseProductID     *int64                `json:"base_product_id"`
	ClientID          *string               `json:"client_id"`
	ClientSecret      *string               `json:"client_secret"`
	CloudSaves        []CloudSaveV2         `json:"cloudsaves"`
	Dependencies      []string              `json:"dependencies"`
	Depots            []DepotV2             `json:"depots"`
	InstallDirectory  string                `json:"install_directory"`
	OfflineDepot      DepotV2               `json:"offline_depot"`
	Platform          string                `json:"platform"`
	Products          []RepositoryProductV2 `json:"products"`
	ScriptInterpreter bool                  `json:"script_interpreter"`
	Tags              []string              `json:"tags"`
}

type DepotChunkV2 struct {
	CompressedMD5  string `json:"compressed_md5"`
	CompressedSize int64  `json:"compressed_size"`
	MD5            string `json:"md5"`
	Size           int64  `json:"size"`
}

type DepotFileV2 struct {
	Chunks    []DepotChunkV2 `json:"chunks"`
	SfcOffset *int64         `json:"sfc_offset"`
	SfcSize   *int64         `json:"sfc_size"`
	Flags     []string       `json:"flags"`
	Path      string         `json:"path"`
	MD5       *string        `json:"md5"`
	SHA256    *string        `json:"sha256"`
}

// Size of a chunked file is the sum of its chunk sizes.
func (f *DepotFileV2) Size() int64 {
	var total int64
	for _, chunk := range f.Chunks {
		total += chunk.Size
	}
	return total
}

type DepotDirectoryV2 struct {
	Path string `json:"path"`
}

type DepotLinkV2 struct {
	Path   string `json:"path"`
	Target string `json:"target"`
}

// DepotManifestV2 is the normalized file listing of a gen 2 depot.
// Manifests are immutable once fetched.
type DepotManifestV2 struct {
	Files               []DepotFileV2      `json:"files"`
	Directories         []DepotDirectoryV2 `json:"directories"`
	Links               []DepotLinkV2      `json:"links"`
	SmallFilesContainer *DepotFileV2       `json:"small_files_container"`
}
