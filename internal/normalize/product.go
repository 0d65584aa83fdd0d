package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/Yepoleb/gogdb/internal/model"
)

var (
	imageRe  = regexp.MustCompile(`\w{64}`)
	prodIDRe = regexp.MustCompile(`games/(\d+)`)
	metaIDRe = regexp.MustCompile(`v2/meta/.{2}/.{2}/(\w+)`)
)

// parseTime parses an upstream ISO timestamp, tolerating both offset
// and Z forms. Nil and empty inputs stay nil.
func parseTime(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-0700", "2006-01-02"} {
		if t, err := time.Parse(layout, *s); err == nil {
			return &t
		}
	}
	return nil
}

// extractImageID pulls the 64 character content hash out of an image URL.
func extractImageID(url *string) *string {
	if url == nil {
		return nil
	}
	m := imageRe.FindString(*url)
	if m == "" {
		return nil
	}
	return &m
}

func extractProdID(href string) int64 {
	m := prodIDRe.FindStringSubmatch(href)
	if m == nil {
		return 0
	}
	var id int64
	fmt.Sscanf(m[1], "%d", &id)
	return id
}

func extractMetaID(link string) *string {
	m := metaIDRe.FindStringSubmatch(link)
	if m == nil {
		return nil
	}
	return &m[1]
}

type rawFileV0 struct {
	ID       flexInt `json:"id"`
	Size     int64   `json:"size"`
	Downlink string  `json:"downlink"`
}

type rawBonusDownloadV0 struct {
	ID        flexInt     `json:"id"`
	Name      string      `json:"name"`
	TotalSize int64       `json:"total_size"`
	Type      string      `json:"type"`
	Count     int         `json:"count"`
	Files     []rawFileV0 `json:"files"`
}

type rawSoftwareDownloadV0 struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	TotalSize    int64       `json:"total_size"`
	OS           string      `json:"os"`
	Language     string      `json:"language"`
	LanguageFull string      `json:"language_full"`
	Version      string      `json:"version"`
	Files        []rawFileV0 `json:"files"`
}

type rawProductV0 struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	GameType string `json:"game_type"`
	Slug     string `json:"slug"`

	ContentSystemCompatibility map[string]bool `json:"content_system_compatibility"`

	ReleaseDate   *string `json:"release_date"`
	InDevelopment struct {
		Active bool `json:"active"`
	} `json:"in_development"`
	IsPreOrder bool `json:"is_pre_order"`

	Images map[string]*string `json:"images"`
	Links  map[string]string  `json:"links"`

	Screenshots []struct {
		ImageID string `json:"image_id"`
	} `json:"screenshots"`
	Videos []struct {
		VideoURL     string `json:"video_url"`
		ThumbnailURL string `json:"thumbnail_url"`
		Provider     string `json:"provider"`
	} `json:"videos"`

	// Omitted DLC sections arrive as an empty array instead of an
	// object, so this stays raw until the shape is known.
	DLCs      json.RawMessage `json:"dlcs"`
	Changelog string          `json:"changelog"`

	Downloads struct {
		BonusContent  []rawBonusDownloadV0    `json:"bonus_content"`
		Installers    []rawSoftwareDownloadV0 `json:"installers"`
		LanguagePacks []rawSoftwareDownloadV0 `json:"language_packs"`
		Patches       []rawSoftwareDownloadV0 `json:"patches"`
	} `json:"downloads"`
}

func loadFilesV0(raw []rawFileV0) []model.File {
	files := make([]model.File, len(raw))
	for i, f := range raw {
		files[i] = model.File{
			ID:       fmt.Sprintf("%d", int64(f.ID)),
			Size:     f.Size,
			Downlink: f.Downlink,
		}
	}
	return files
}

func loadSoftwareDownloadsV0(raw []rawSoftwareDownloadV0) []model.SoftwareDownload {
	downloads := make([]model.SoftwareDownload, len(raw))
	for i, dl := range raw {
		downloads[i] = model.SoftwareDownload{
			ID:        dl.ID,
			Name:      dl.Name,
			TotalSize: dl.TotalSize,
			OS:        System(dl.OS),
			Language:  model.Language{Code: dl.Language, Name: dl.LanguageFull},
			Version:   dl.Version,
			Files:     loadFilesV0(dl.Files),
		}
	}
	return downloads
}

// ExtractV0 applies a product v0 payload to the snapshot, overwriting
// the basic properties and the download lists.
func ExtractV0(prod *model.Product, raw json.RawMessage) error {
	var data rawProductV0
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("decoding product v0: %w", err)
	}

	prod.ID = data.ID
	prod.Access = 1
	prod.Title = data.Title
	prod.Type = data.GameType
	prod.Slug = data.Slug

	prod.CSSystems = []string{}
	for _, name := range []string{"windows", "osx", "linux"} {
		if data.ContentSystemCompatibility[name] {
			prod.CSSystems = append(prod.CSSystems, System(name))
		}
	}

	prod.StoreDate = parseTime(data.ReleaseDate)
	prod.IsInDevelopment = data.InDevelopment.Active
	prod.IsPreOrder = data.IsPreOrder

	prod.ImageLogo = extractImageID(data.Images["logo"])
	prod.ImageBackground = extractImageID(data.Images["background"])
	prod.ImageIcon = extractImageID(data.Images["sidebarIcon"])

	prod.LinkForum = data.Links["forum"]
	prod.LinkStore = data.Links["product_card"]
	prod.LinkSupport = data.Links["support"]

	prod.Screenshots = []string{}
	for _, shot := range data.Screenshots {
		prod.Screenshots = append(prod.Screenshots, shot.ImageID)
	}
	prod.Videos = []model.Video{}
	for _, video := range data.Videos {
		prod.Videos = append(prod.Videos, model.Video(video))
	}

	prod.DLCs = []int64{}
	var dlcs struct {
		Products []struct {
			ID int64 `json:"id"`
		} `json:"products"`
	}
	if json.Unmarshal(data.DLCs, &dlcs) == nil {
		for _, dlc := range dlcs.Products {
			prod.DLCs = append(prod.DLCs, dlc.ID)
		}
	}

	if data.Changelog != "" {
		changelog := data.Changelog
		prod.Changelog = &changelog
	} else {
		prod.Changelog = nil
	}

	prod.DlBonus = []model.BonusDownload{}
	for _, dl := range data.Downloads.BonusContent {
		prod.DlBonus = append(prod.DlBonus, model.BonusDownload{
			ID:        fmt.Sprintf("%d", int64(dl.ID)),
			Name:      dl.Name,
			TotalSize: dl.TotalSize,
			BonusType: dl.Type,
			Count:     dl.Count,
			Files:     loadFilesV0(dl.Files),
		})
	}
	prod.DlInstaller = loadSoftwareDownloadsV0(data.Downloads.Installers)
	prod.DlLangpack = loadSoftwareDownloadsV0(data.Downloads.LanguagePacks)
	prod.DlPatch = loadSoftwareDownloadsV0(data.Downloads.Patches)

	return nil
}

type rawProductV2 struct {
	Embedded struct {
		Features []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"features"`
		Localizations []struct {
			Embedded struct {
				Language struct {
					Code string `json:"code"`
					Name string `json:"name"`
				} `json:"language"`
				LocalizationScope struct {
					Type string `json:"type"`
				} `json:"localizationScope"`
			} `json:"_embedded"`
		} `json:"localizations"`
		Tags []struct {
			ID    int64  `json:"id"`
			Level int    `json:"level"`
			Name  string `json:"name"`
			Slug  string `json:"slug"`
		} `json:"tags"`
		SupportedOperatingSystems []struct {
			OperatingSystem struct {
				Name string `json:"name"`
			} `json:"operatingSystem"`
		} `json:"supportedOperatingSystems"`
		Developers []struct {
			Name string `json:"name"`
		} `json:"developers"`
		Publisher struct {
			Name string `json:"name"`
		} `json:"publisher"`
		Product struct {
			GlobalReleaseDate *string `json:"globalReleaseDate"`
		} `json:"product"`
		Editions []struct {
			ID             int64  `json:"id"`
			Name           string `json:"name"`
			HasProductCard bool   `json:"hasProductCard"`
		} `json:"editions"`
		Series *struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"series"`
	} `json:"_embedded"`
	Links         map[string]json.RawMessage `json:"_links"`
	IsUsingDosBox bool                       `json:"isUsingDosBox"`
	Copyrights    string                     `json:"copyrights"`
	Description   string                     `json:"description"`
}

func linkHref(links map[string]json.RawMessage, name string) *string {
	var link struct {
		Href string `json:"href"`
	}
	raw, ok := links[name]
	if !ok || json.Unmarshal(raw, &link) != nil {
		return nil
	}
	return &link.Href
}

func linkProdIDs(links map[string]json.RawMessage, name string) []int64 {
	ids := []int64{}
	var entries []struct {
		Href string `json:"href"`
	}
	if raw, ok := links[name]; ok && json.Unmarshal(raw, &entries) == nil {
		for _, entry := range entries {
			ids = append(ids, extractProdID(entry.Href))
		}
	}
	return ids
}

// ExtractV2 applies a product v2 payload on top of the v0 properties.
func ExtractV2(prod *model.Product, raw json.RawMessage) error {
	var data rawProductV2
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("decoding product v2: %w", err)
	}
	embed := data.Embedded

	prod.Features = []model.Feature{}
	for _, feature := range embed.Features {
		prod.Features = append(prod.Features, model.Feature(feature))
	}

	// Localizations arrive as one entry per (language, scope) pair and
	// get merged into a single record per language code.
	locByCode := map[string]*model.Localization{}
	locOrder := []string{}
	for _, loc := range embed.Localizations {
		code := loc.Embedded.Language.Code
		merged, ok := locByCode[code]
		if !ok {
			merged = &model.Localization{Code: code, Name: loc.Embedded.Language.Name}
			locByCode[code] = merged
			locOrder = append(locOrder, code)
		}
		switch loc.Embedded.LocalizationScope.Type {
		case "text":
			merged.Text = true
		case "audio":
			merged.Audio = true
		}
	}
	prod.Localizations = []model.Localization{}
	for _, code := range locOrder {
		prod.Localizations = append(prod.Localizations, *locByCode[code])
	}

	prod.Tags = []model.Tag{}
	for _, tag := range embed.Tags {
		prod.Tags = append(prod.Tags, model.Tag(tag))
	}
	prod.CompSystems = []string{}
	for _, support := range embed.SupportedOperatingSystems {
		prod.CompSystems = append(prod.CompSystems, System(support.OperatingSystem.Name))
	}
	prod.IsUsingDosBox = data.IsUsingDosBox

	prod.Developers = []string{}
	for _, dev := range embed.Developers {
		prod.Developers = append(prod.Developers, dev.Name)
	}
	prod.Publisher = embed.Publisher.Name
	if data.Copyrights != "" {
		copyright := data.Copyrights
		prod.Copyright = &copyright
	} else {
		prod.Copyright = nil
	}

	prod.GlobalDate = parseTime(embed.Product.GlobalReleaseDate)
	prod.ImageGalaxyBackground = extractImageID(linkHref(data.Links, "galaxyBackgroundImage"))
	prod.ImageBoxart = extractImageID(linkHref(data.Links, "boxArtImage"))
	prod.ImageIconSquare = extractImageID(linkHref(data.Links, "iconSquare"))

	prod.Editions = []model.Edition{}
	for _, edition := range embed.Editions {
		prod.Editions = append(prod.Editions, model.Edition(edition))
	}
	prod.IncludesGames = linkProdIDs(data.Links, "includesGames")
	prod.IsIncludedIn = linkProdIDs(data.Links, "isIncludedInGames")
	prod.RequiredBy = linkProdIDs(data.Links, "isRequiredByGames")
	prod.Requires = linkProdIDs(data.Links, "requiresGames")

	if embed.Series != nil {
		prod.Series = &model.Series{ID: embed.Series.ID, Name: embed.Series.Name}
	}

	description := data.Description
	prod.Description = &description

	return nil
}

type rawBuildList struct {
	Items []struct {
		BuildID       flexInt  `json:"build_id"`
		ProductID     flexInt  `json:"product_id"`
		OS            string   `json:"os"`
		Branch        *string  `json:"branch"`
		VersionName   string   `json:"version_name"`
		Tags          []string `json:"tags"`
		Public        bool     `json:"public"`
		DatePublished *string  `json:"date_published"`
		Generation    int      `json:"generation"`
		LegacyBuildID *flexInt `json:"legacy_build_id"`
		Link          string   `json:"link"`
	} `json:"items"`
}

// ExtractBuilds merges a per-OS build list into the snapshot. Existing
// builds of the same OS are marked unlisted first and relisted when the
// upstream still reports them, preserving history for stale entries.
// The build list stays sorted by publish date ascending.
func ExtractBuilds(prod *model.Product, raw json.RawMessage, system string) error {
	var data rawBuildList
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("decoding builds: %w", err)
	}

	for _, build := range prod.Builds {
		if build.OS == system {
			build.Listed = false
		}
	}

	for _, item := range data.Items {
		buildID := int64(item.BuildID)
		var build *model.Build
		for _, existing := range prod.Builds {
			if existing.ID == buildID {
				build = existing
				break
			}
		}
		if build == nil {
			build = &model.Build{}
			prod.Builds = append(prod.Builds, build)
		}
		build.ID = buildID
		build.ProductID = int64(item.ProductID)
		build.OS = item.OS
		build.Branch = item.Branch
		if item.VersionName != "" {
			version := item.VersionName
			build.Version = &version
		} else {
			build.Version = nil
		}
		build.Tags = item.Tags
		build.Public = item.Public
		build.DatePublished = parseTime(item.DatePublished)
		build.Generation = item.Generation
		build.LegacyBuildID = flexIntPtr(item.LegacyBuildID)
		build.MetaID = extractMetaID(item.Link)
		build.Link = item.Link
		build.Listed = true
	}

	sort.SliceStable(prod.Builds, func(i, j int) bool {
		a, b := prod.Builds[i].DatePublished, prod.Builds[j].DatePublished
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		return a.Before(*b)
	})
	return nil
}
