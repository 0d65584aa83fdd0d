package model

import "time"

// Derived documents produced after a sync run for the presentation
// layer. These are read-only, eventually-consistent snapshots.

// StartpageProduct is the minimal product card used on summary lists.
type StartpageProduct struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	ImageLogo *string `json:"image_logo"`
	Discount  int     `json:"discount"`
}

// StartpageLists bundles the four top-ten lists shown on the start page.
type StartpageLists struct {
	Added    []StartpageProduct `json:"added"`
	Trending []StartpageProduct `json:"trending"`
	Builds   []StartpageProduct `json:"builds"`
	Sale     []StartpageProduct `json:"sale"`
}

// Mismatch is one entry of the build-vs-installer version report.
type Mismatch struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	OS             string     `json:"os"`
	VersionBuild   *string    `json:"version_build"`
	VersionDl      string     `json:"version_dl"`
	BuildPublished *time.Time `json:"build_published"`
}

// DependencyRef points a redistributable name back at a product using it.
type DependencyRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// ManifestRef points a manifest id back at the build that references it.
type ManifestRef struct {
	Title   string `json:"title"`
	ProdID  int64  `json:"prod_id"`
	BuildID int64  `json:"build_id"`
}
