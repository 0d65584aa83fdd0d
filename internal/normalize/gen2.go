package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/Yepoleb/gogdb/internal/model"
)

type rawDepotV2 struct {
	CompressedSize *int64   `json:"compressedSize"`
	Size           *int64   `json:"size"`
	Languages      []string `json:"languages"`
	Manifest       string   `json:"manifest"`
	ProductID      *flexInt `json:"productId"`
	IsGogDepot     bool     `json:"isGogDepot"`
	OSBitness      []string `json:"osBitness"`
}

func loadDepotV2(raw rawDepotV2) model.DepotV2 {
	return model.DepotV2{
		CompressedSize: int64Value(raw.CompressedSize, 0),
		Size:           int64Value(raw.Size, 0),
		Languages:      defaultStrings(raw.Languages, "en"),
		ManifestID:     raw.Manifest,
		ProductID:      flexIntPtr(raw.ProductID),
		IsGogDepot:     raw.IsGogDepot,
		OSBitness:      Bitness(raw.OSBitness),
	}
}

type rawCloudSaveV2 struct {
	Location string `json:"location"`
	Name     string `json:"name"`
}

type rawRepositoryProductV2 struct {
	Name           string   `json:"name"`
	ProductID      *flexInt `json:"productId"`
	Script         *string  `json:"script"`
	TempArguments  string   `json:"temp_arguments"`
	TempExecutable string   `json:"temp_executable"`
}

type rawRepositoryV2 struct {
	BaseProductID     *flexInt                 `json:"baseProductId"`
	ClientID          *string                  `json:"clientId"`
	ClientSecret      *string                  `json:"clientSecret"`
	CloudSaves        []rawCloudSaveV2         `json:"cloudSaves"`
	Dependencies      []string                 `json:"dependencies"`
	Depots            []rawDepotV2             `json:"depots"`
	InstallDirectory  *string                  `json:"installDirectory"`
	OfflineDepot      *rawDepotV2              `json:"offlineDepot"`
	Platform          *string                  `json:"platform"`
	Products          []rawRepositoryProductV2 `json:"products"`
	ScriptInterpreter bool                     `json:"scriptInterpreter"`
	Tags              []string                 `json:"tags"`
}

// RepositoryV2 normalizes a generation 2 repository payload.
func RepositoryV2(raw json.RawMessage) (*model.RepositoryV2, error) {
	var data rawRepositoryV2
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decoding repository v2: %w", err)
	}

	repo := &model.RepositoryV2{
		BaseProductID:     flexIntPtr(data.BaseProductID),
		ClientID:          data.ClientID,
		ClientSecret:      data.ClientSecret,
		CloudSaves:        []model.CloudSaveV2{},
		Dependencies:      defaultStrings(data.Dependencies),
		Depots:            []model.DepotV2{},
		InstallDirectory:  stringValue(data.InstallDirectory),
		Platform:          System(stringValue(data.Platform)),
		Products:          []model.RepositoryProductV2{},
		ScriptInterpreter: data.ScriptInterpreter,
		Tags:              defaultStrings(data.Tags),
	}
	for _, save := range data.CloudSaves {
		repo.CloudSaves = append(repo.CloudSaves, model.CloudSaveV2{
			Location: save.Location,
			Name:     save.Name,
		})
	}
	for _, depot := range data.Depots {
		repo.Depots = append(repo.Depots, loadDepotV2(depot))
	}
	if data.OfflineDepot != nil {
		repo.OfflineDepot = loadDepotV2(*data.OfflineDepot)
	}
	for _, prod := range data.Products {
		repo.Products = append(repo.Products, model.RepositoryProductV2{
			Name:           prod.Name,
			ProductID:      flexIntValue(prod.ProductID, 0),
			Script:         prod.Script,
			TempArguments:  prod.TempArguments,
			TempExecutable: prod.TempExecutable,
		})
	}
	return repo, nil
}

type rawChunkV2 struct {
	CompressedMD5  string `json:"compressedMd5"`
	CompressedSize int64  `json:"compressedSize"`
	MD5            string `json:"md5"`
	Size           int64  `json:"size"`
}

type rawManifestItemV2 struct {
	Type   string       `json:"type"`
	Chunks []rawChunkV2 `json:"chunks"`
	SfcRef *struct {
		Offset *int64 `json:"offset"`
		Size   *int64 `json:"size"`
	} `json:"sfcRef"`
	Flags  []string `json:"flags"`
	Path   string   `json:"path"`
	MD5    *string  `json:"md5"`
	SHA256 *string  `json:"sha256"`
	Target string   `json:"target"`
}

func loadDepotFileV2(item rawManifestItemV2) model.DepotFileV2 {
	file := model.DepotFileV2{
		Chunks: []model.DepotChunkV2{},
		Flags:  defaultStrings(item.Flags),
		Path:   item.Path,
		MD5:    item.MD5,
		SHA256: item.SHA256,
	}
	for _, chunk := range item.Chunks {
		file.Chunks = append(file.Chunks, model.DepotChunkV2{
			CompressedMD5:  chunk.CompressedMD5,
			CompressedSize: chunk.CompressedSize,
			MD5:            chunk.MD5,
			Size:           chunk.Size,
		})
	}
	if item.SfcRef != nil {
		file.SfcOffset = item.SfcRef.Offset
		file.SfcSize = item.SfcRef.Size
	}
	return file
}

type rawManifestV2 struct {
	Depot struct {
		Items               []rawManifestItemV2 `json:"items"`
		SmallFilesContainer *rawManifestItemV2  `json:"smallFilesContainer"`
	} `json:"depot"`
}

// ManifestV2 normalizes a generation 2 manifest payload. Items carry an
// explicit type tag; everything that is not a directory or link is a file.
func ManifestV2(raw json.RawMessage) (*model.DepotManifestV2, error) {
	var data rawManifestV2
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decoding manifest v2: %w", err)
	}

	manifest := &model.DepotManifestV2{
		Files:       []model.DepotFileV2{},
		Directories: []model.DepotDirectoryV2{},
		Links:       []model.DepotLinkV2{},
	}
	for _, item := range data.Depot.Items {
		switch item.Type {
		case "DepotDirectory":
			manifest.Directories = append(manifest.Directories, model.DepotDirectoryV2{
				Path: item.Path,
			})
		case "DepotLink":
			manifest.Links = append(manifest.Links, model.DepotLinkV2{
				Path:   item.Path,
				Target: item.Target,
			})
		default:
			manifest.Files = append(manifest.Files, loadDepotFileV2(item))
		}
	}
	if data.Depot.SmallFilesContainer != nil {
		sfc := loadDepotFileV2(*data.Depot.SmallFilesContainer)
		manifest.SmallFilesContainer = &sfc
	}
	return manifest, nil
}
