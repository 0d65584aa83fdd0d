package model

import "time"

// Feature is a store feature flag such as "achievements" or "cloud_saves".
type Feature struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Localization describes text/audio support for one language.
type Localization struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Text  bool   `json:"text"`
	Audio bool   `json:"audio"`
}

type Video struct {
	VideoURL     string `json:"video_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Provider     string `json:"provider"`
}

type Tag struct {
	ID    int64  `json:"id"`
	Level int    `json:"level"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
}

type Series struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Edition struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	HasProductCard bool   `json:"has_product_card"`
}

type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// File is a single downloadable file belonging to a download.
type File struct {
	ID       string `json:"id"`
	Size     int64  `json:"size"`
	Downlink string `json:"downlink"`
}

// BonusDownload is extra content such as manuals, wallpapers or soundtracks.
// Its identity within a product is (name, bonus type).
type BonusDownload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TotalSize int64  `json:"total_size"`
	Files     []File `json:"files"`
	BonusType string `json:"bonus_type"`
	Count     int    `json:"count"`
}

// UniqueID identifies a bonus download within one product.
func (d *BonusDownload) UniqueID() [2]string {
	return [2]string{d.Name, d.BonusType}
}

// IsSame reports whether two bonus downloads have equal content.
func (d *BonusDownload) IsSame(other *BonusDownload) bool {
	if d.Name != other.Name || d.TotalSize != other.TotalSize ||
		d.BonusType != other.BonusType || d.Count != other.Count {
		return false
	}
	return filesEqual(d.Files, other.Files)
}

// SoftwareDownload is an installer, patch or language pack.
// Its identity within a product is (name, os, language code).
type SoftwareDownload struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	TotalSize int64    `json:"total_size"`
	Files     []File   `json:"files"`
	OS        string   `json:"os"`
	Language  Language `json:"language"`
	Version   string   `json:"version"`
}

// UniqueID identifies a software download within one product.
func (d *SoftwareDownload) UniqueID() [3]string {
	return [3]string{d.Name, d.OS, d.Language.Code}
}

// IsSame reports whether two software downloads have equal content.
// Languages are compared on their codes only, the display name does not matter.
func (d *SoftwareDownload) IsSame(other *SoftwareDownload) bool {
	if d.Name != other.Name || d.TotalSize != other.TotalSize ||
		d.OS != other.OS || d.Version != other.Version {
		return false
	}
	if d.Language.Code != other.Language.Code {
		return false
	}
	return filesEqual(d.Files, other.Files)
}

func filesEqual(a, b []File) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Build is one versioned build of a product for a single OS.
// Unlisted builds stay in the snapshot to preserve history.
type Build struct {
	ID            int64      `json:"id"`
	ProductID     int64      `json:"product_id"`
	OS            string     `json:"os"`
	Branch        *string    `json:"branch"`
	Version       *string    `json:"version"`
	Tags          []string   `json:"tags"`
	Public        bool       `json:"public"`
	DatePublished *time.Time `json:"date_published"`
	Generation    int        `json:"generation"`
	LegacyBuildID *int64     `json:"legacy_build_id"`
	MetaID        *string    `json:"meta_id"`
	Link          string     `json:"link"`
	Listed        bool       `json:"listed"`
}

// Product is the full normalized snapshot of one catalog entry.
// It is created on the first successful fetch and mutated in place by
// every following run, never deleted.
type Product struct {
	ID          int64      `json:"id"`
	AddedOn     *time.Time `json:"added_on"`
	LastUpdated *time.Time `json:"last_updated"`

	Title  string `json:"title"`
	Type   string `json:"type"`
	Slug   string `json:"slug"`
	Access int    `json:"access"`

	Features      []Feature      `json:"features"`
	Localizations []Localization `json:"localizations"`
	Tags          []Tag          `json:"tags"`
	CSSystems     []string       `json:"cs_systems"`
	CompSystems   []string       `json:"comp_systems"`
	IsUsingDosBox bool           `json:"is_using_dosbox"`

	Developers []string `json:"developers"`
	Publisher  string   `json:"publisher"`
	Copyright  *string  `json:"copyright"`

	GlobalDate      *time.Time `json:"global_date"`
	StoreDate       *time.Time `json:"store_date"`
	IsInDevelopment bool       `json:"is_in_development"`
	IsPreOrder      bool       `json:"is_pre_order"`
	AgeRating       int        `json:"age_rating"`

	UserRating      int    `json:"user_rating"`
	StoreState      string `json:"store_state"`
	RankBestselling *int   `json:"rank_bestselling"`
	RankTrending    *int   `json:"rank_trending"`

	ImageLogo             *string `json:"image_logo"`
	ImageBackground       *string `json:"image_background"`
	ImageIcon             *string `json:"image_icon"`
	ImageGalaxyBackground *string `json:"image_galaxy_background"`
	ImageBoxart           *string `json:"image_boxart"`
	ImageIconSquare       *string `json:"image_icon_square"`

	LinkForum   string `json:"link_forum"`
	LinkStore   string `json:"link_store"`
	LinkSupport string `json:"link_support"`

	Screenshots []string `json:"screenshots"`
	Videos      []Video  `json:"videos"`

	Editions     []Edition `json:"editions"`
	IncludesGames []int64  `json:"includes_games"`
	IsIncludedIn  []int64  `json:"is_included_in"`
	RequiredBy    []int64  `json:"required_by"`
	Requires      []int64  `json:"requires"`
	Series        *Series  `json:"series"`
	DLCs          []int64  `json:"dlcs"`

	Description *string `json:"description"`
	Changelog   *string `json:"changelog"`

	DlBonus     []BonusDownload    `json:"dl_bonus"`
	DlInstaller []SoftwareDownload `json:"dl_installer"`
	DlLangpack  []SoftwareDownload `json:"dl_langpack"`
	DlPatch     []SoftwareDownload `json:"dl_patch"`
	Builds      []*Build           `json:"builds"`
}

// HasContent reports whether at least basic content has been fetched.
func (p *Product) HasContent() bool {
	return p.ID != 0
}
