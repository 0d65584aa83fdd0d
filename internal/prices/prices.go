// Package prices maintains the append-only price history. Observations
// are deduplicated against the log tail and short "not for sale" blips
// between two identical real prices are dropped as noise.
package prices

import (
	"time"

	"github.com/Yepoleb/gogdb/internal/model"
)

// Reconcile appends the observation to the record slice and returns the
// updated slice. An empty log only starts with a for-sale observation.
// An observation equal to the last entry is discarded. A rollback, an
// observation matching the entry two positions back with a not-for-sale
// entry in between that is younger than window, removes the in-between
// entry before the observation is appended.
func Reconcile(records []model.PriceRecord, obs model.PriceRecord, window time.Duration) []model.PriceRecord {
	if len(records) == 0 {
		if !obs.ForSale() {
			return records
		}
		return append(records, obs)
	}

	last := &records[len(records)-1]
	if obs.SamePrice(last) {
		return records
	}

	if len(records) >= 2 {
		previous := &records[len(records)-2]
		if obs.SamePrice(previous) && !last.ForSale() &&
			obs.Date.Sub(last.Date) < window {
			records = records[:len(records)-1]
		}
	}
	return append(records, obs)
}

// Update reconciles one observation into the log for its country and
// currency pair.
func Update(log model.PriceLog, country string, obs model.PriceRecord, window time.Duration) {
	records := Reconcile(log.Log(country, obs.Currency), obs, window)
	log.SetLog(country, obs.Currency, records)
}
