package model

import "time"

// Change actions.
const (
	ActionAdd    = "add"
	ActionDelete = "del"
	ActionChange = "change"
)

// Change categories.
const (
	CategoryProperty = "property"
	CategoryDownload = "download"
	CategoryBuild    = "build"
	CategoryProduct  = "product"
)

// PropertyRecord captures an old/new pair for a scalar snapshot property.
type PropertyRecord struct {
	PropertyName string `json:"property_name"`
	ValueNew     any    `json:"value_new"`
	ValueOld     any    `json:"value_old"`
}

// DownloadRecord captures an old/new pair for a download. Exactly one of
// the bonus or software pairs is populated, matching DlType. File lists
// are stripped before recording to keep the change log small.
type DownloadRecord struct {
	DlType        string            `json:"dl_type"`
	DlNewBonus    *BonusDownload    `json:"dl_new_bonus"`
	DlOldBonus    *BonusDownload    `json:"dl_old_bonus"`
	DlNewSoftware *SoftwareDownload `json:"dl_new_software"`
	DlOldSoftware *SoftwareDownload `json:"dl_old_software"`
}

// ChangeRecord is one entry in a product's change log. Category decides
// which payload field is set: property records carry PropertyRecord,
// download records carry DownloadRecord, build additions carry BuildID
// and product additions carry no payload at all.
type ChangeRecord struct {
	ProductID      int64           `json:"product_id"`
	Timestamp      time.Time       `json:"timestamp"`
	Action         string          `json:"action"`
	Category       string          `json:"category"`
	DownloadRecord *DownloadRecord `json:"download_record"`
	PropertyRecord *PropertyRecord `json:"property_record"`
	BuildID        *int64          `json:"build_id"`
}
