// Package changelog diffs two product snapshots into typed change
// records. The orchestrator invokes the hooks in a fixed order after a
// successful fetch; entries are emitted in hook invocation order and
// never re-sorted.
package changelog

import (
	"reflect"
	"time"

	"github.com/Yepoleb/gogdb/internal/model"
)

// propertyGetters maps a diffable property name to its accessor. Nil
// pointer values surface as untyped nil so the add/del transitions work
// uniformly.
var propertyGetters = map[string]func(*model.Product) any{
	"title":        func(p *model.Product) any { return p.Title },
	"comp_systems": func(p *model.Product) any { return p.CompSystems },
	"is_pre_order": func(p *model.Product) any { return p.IsPreOrder },
	"changelog":    func(p *model.Product) any { return stringPtrValue(p.Changelog) },
	"access":       func(p *model.Product) any { return p.Access },
}

func stringPtrValue(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// Changelogger accumulates change records for one product between the
// previous and the freshly fetched snapshot.
type Changelogger struct {
	prodNew   *model.Product
	prodOld   *model.Product
	timestamp time.Time
	entries   []model.ChangeRecord
}

func New(prodNew, prodOld *model.Product, timestamp time.Time) *Changelogger {
	return &Changelogger{
		prodNew:   prodNew,
		prodOld:   prodOld,
		timestamp: timestamp,
	}
}

// Entries returns the accumulated records in emission order.
func (c *Changelogger) Entries() []model.ChangeRecord {
	return c.entries
}

func (c *Changelogger) record(action, category string) *model.ChangeRecord {
	c.entries = append(c.entries, model.ChangeRecord{
		ProductID: c.prodNew.ID,
		Timestamp: c.timestamp,
		Action:    action,
		Category:  category,
	})
	return &c.entries[len(c.entries)-1]
}

// Property compares one named property by value equality. None-to-value
// transitions are adds, value-to-none are deletes, everything else a
// change with old and new recorded verbatim.
func (c *Changelogger) Property(name string) {
	getter, ok := propertyGetters[name]
	if !ok {
		return
	}
	valueNew := getter(c.prodNew)
	valueOld := getter(c.prodOld)
	if reflect.DeepEqual(valueNew, valueOld) {
		return
	}

	var action string
	switch {
	case valueOld == nil:
		action = model.ActionAdd
	case valueNew == nil:
		action = model.ActionDelete
	default:
		action = model.ActionChange
	}
	rec := c.record(action, model.CategoryProperty)
	rec.PropertyRecord = &model.PropertyRecord{
		PropertyName: name,
		ValueNew:     valueNew,
		ValueOld:     valueOld,
	}
}

// stripBonus removes the file list so the change log stays small.
func stripBonus(dl *model.BonusDownload) *model.BonusDownload {
	if dl == nil {
		return nil
	}
	stripped := *dl
	stripped.Files = nil
	return &stripped
}

func stripSoftware(dl *model.SoftwareDownload) *model.SoftwareDownload {
	if dl == nil {
		return nil
	}
	stripped := *dl
	stripped.Files = nil
	return &stripped
}

// Downloads diffs one download category ("bonus", "installer",
// "langpack" or "patch"). Each side is keyed by the type-specific
// unique identity; ids on both sides are suppressed entirely when the
// equality predicate reports no difference.
func (c *Changelogger) Downloads(kind string) {
	if kind == "bonus" {
		c.diffBonus(kind, c.prodNew.DlBonus, c.prodOld.DlBonus)
		return
	}
	c.diffSoftware(kind, softwareByKind(c.prodNew, kind), softwareByKind(c.prodOld, kind))
}

func softwareByKind(prod *model.Product, kind string) []model.SoftwareDownload {
	switch kind {
	case "installer":
		return prod.DlInstaller
	case "langpack":
		return prod.DlLangpack
	case "patch":
		return prod.DlPatch
	default:
		return nil
	}
}

func (c *Changelogger) diffBonus(kind string, dlsNew, dlsOld []model.BonusDownload) {
	mapNew := make(map[[2]string]*model.BonusDownload, len(dlsNew))
	for i := range dlsNew {
		mapNew[dlsNew[i].UniqueID()] = &dlsNew[i]
	}
	mapOld := make(map[[2]string]*model.BonusDownload, len(dlsOld))
	for i := range dlsOld {
		mapOld[dlsOld[i].UniqueID()] = &dlsOld[i]
	}

	emit := func(action string, dlNew, dlOld *model.BonusDownload) {
		rec := c.record(action, model.CategoryDownload)
		rec.DownloadRecord = &model.DownloadRecord{
			DlType:     kind,
			DlNewBonus: stripBonus(dlNew),
			DlOldBonus: stripBonus(dlOld),
		}
	}

	for i := range dlsNew {
		id := dlsNew[i].UniqueID()
		dlOld, inOld := mapOld[id]
		if inOld {
			if !dlsNew[i].IsSame(dlOld) {
				emit(model.ActionChange, &dlsNew[i], dlOld)
			}
		} else {
			emit(model.ActionAdd, &dlsNew[i], nil)
		}
	}
	for i := range dlsOld {
		if _, inNew := mapNew[dlsOld[i].UniqueID()]; !inNew {
			emit(model.ActionDelete, nil, &dlsOld[i])
		}
	}
}

func (c *Changelogger) diffSoftware(kind string, dlsNew, dlsOld []model.SoftwareDownload) {
	mapNew := make(map[[3]string]*model.SoftwareDownload, len(dlsNew))
	for i := range dlsNew {
		mapNew[dlsNew[i].UniqueID()] = &dlsNew[i]
	}
	mapOld := make(map[[3]string]*model.SoftwareDownload, len(dlsOld))
	for i := range dlsOld {
		mapOld[dlsOld[i].UniqueID()] = &dlsOld[i]
	}

	emit := func(action string, dlNew, dlOld *model.SoftwareDownload) {
		rec := c.record(action, model.CategoryDownload)
		rec.DownloadRecord = &model.DownloadRecord{
			DlType:        kind,
			DlNewSoftware: stripSoftware(dlNew),
			DlOldSoftware: stripSoftware(dlOld),
		}
	}

	for i := range dlsNew {
		id := dlsNew[i].UniqueID()
		dlOld, inOld := mapOld[id]
		if inOld {
			if !dlsNew[i].IsSame(dlOld) {
				emit(model.ActionChange, &dlsNew[i], dlOld)
			}
		} else {
			emit(model.ActionAdd, &dlsNew[i], nil)
		}
	}
	for i := range dlsOld {
		if _, inNew := mapNew[dlsOld[i].UniqueID()]; !inNew {
			emit(model.ActionDelete, nil, &dlsOld[i])
		}
	}
}

// Builds only ever reports additions, never removal or modification.
func (c *Changelogger) Builds() {
	oldIDs := make(map[int64]struct{}, len(c.prodOld.Builds))
	for _, build := range c.prodOld.Builds {
		oldIDs[build.ID] = struct{}{}
	}
	for _, build := range c.prodNew.Builds {
		if _, ok := oldIDs[build.ID]; ok {
			continue
		}
		buildID := build.ID
		rec := c.record(model.ActionAdd, model.CategoryBuild)
		rec.BuildID = &buildID
	}
}

// ProductAdded records the product's first appearance.
func (c *Changelogger) ProductAdded() {
	c.record(model.ActionAdd, model.CategoryProduct)
}
