package updater

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Yepoleb/gogdb/internal/model"
	"github.com/Yepoleb/gogdb/internal/prices"
	"github.com/Yepoleb/gogdb/internal/queue"
)

const priceChunkSize = 100

// pricesWorker drains the prices queue in chunks and records one
// observation per product. Products scheduled but missing from the
// response are observed as not for sale.
func (u *Updater) pricesWorker(ctx context.Context) error {
	for {
		chunk := make([]int64, 0, priceChunkSize)
		exhausted := false
		for len(chunk) < priceChunkSize {
			productID, err := u.queues.Prices.Take()
			if errors.Is(err, queue.ErrExhausted) {
				u.logger.Debug("prices queue exhausted")
				exhausted = true
				break
			}
			chunk = append(chunk, productID)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(chunk) > 0 {
			if err := u.updatePriceChunk(ctx, chunk); err != nil {
				return err
			}
		}
		if exhausted {
			return nil
		}
	}
}

type rawPriceItem struct {
	Embedded struct {
		Product struct {
			ID int64 `json:"id"`
		} `json:"product"`
		Prices []struct {
			Currency struct {
				Code string `json:"code"`
			} `json:"currency"`
			BasePrice  string `json:"basePrice"`
			FinalPrice string `json:"finalPrice"`
		} `json:"prices"`
	} `json:"_embedded"`
}

type rawPricePage struct {
	Embedded struct {
		Items []rawPriceItem `json:"items"`
	} `json:"_embedded"`
}

// parseAmount extracts the integer cent amount from strings like
// "1999 USD".
func parseAmount(s string) (int, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty price %q", s)
	}
	return strconv.Atoi(fields[0])
}

func (u *Updater) updatePriceChunk(ctx context.Context, chunk []int64) error {
	u.logger.Info("fetching prices", "products", len(chunk))
	chunkDate := u.clock.Now()

	content, err := u.session.FetchPrices(ctx, chunk, u.country)
	if err != nil {
		return err
	}
	if content == nil {
		u.logger.Error("failed to fetch prices", "chunk", fmt.Sprint(chunk))
		return nil
	}

	var page rawPricePage
	if err := json.Unmarshal(content, &page); err != nil {
		u.logger.Error("malformed price response", "error", err)
		return nil
	}

	itemsByID := make(map[int64]*rawPriceItem, len(page.Embedded.Items))
	for i := range page.Embedded.Items {
		item := &page.Embedded.Items[i]
		itemsByID[item.Embedded.Product.ID] = item
	}

	for _, productID := range chunk {
		byCurrency := map[string]model.PriceRecord{}
		if item := itemsByID[productID]; item != nil {
			for _, currencyItem := range item.Embedded.Prices {
				base, errBase := parseAmount(currencyItem.BasePrice)
				final, errFinal := parseAmount(currencyItem.FinalPrice)
				if errBase != nil || errFinal != nil {
					u.logger.Error("malformed price", "product", productID,
						"base", currencyItem.BasePrice, "final", currencyItem.FinalPrice)
					continue
				}
				byCurrency[currencyItem.Currency.Code] = model.PriceRecord{
					PriceBase:  &base,
					PriceFinal: &final,
					Currency:   currencyItem.Currency.Code,
				}
			}
		}
		if err := u.updatePrices(productID, byCurrency, chunkDate); err != nil {
			return err
		}
	}
	return nil
}

// updatePrices reconciles one observation per tracked currency into the
// product's price log. A missing record means the product is currently
// not for sale. The log is only persisted once it holds at least one
// entry.
func (u *Updater) updatePrices(productID int64, byCurrency map[string]model.PriceRecord, date time.Time) error {
	log, err := u.store.LoadPrices(productID)
	if err != nil {
		return err
	}
	if log == nil {
		log = model.PriceLog{}
	}

	record, ok := byCurrency[u.currency]
	if !ok {
		record = model.PriceRecord{Currency: u.currency}
	}
	record.Date = date
	prices.Update(log, u.country, record, u.priceWindow)

	if log.Empty() {
		return nil
	}
	return u.store.SavePrices(log, productID)
}
