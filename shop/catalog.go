/*
catalog.go - Customer-facing catalog

PURPOSE:
  Lists the active SKUs that actually have stock, derived from the potion
  ledger in the same consistent read as the definitions. The exchange
  allows at most 6 SKUs on offer at one time.
*/
package shop

import (
	"context"
	"sort"

	"github.com/warp/shop-engine/engine"
)

// CatalogItem is one sellable offer: an active SKU with positive stock.
type CatalogItem struct {
	SKU      string
	Name     string
	Quantity int
	Price    int
	Recipe   engine.Recipe
}

// Catalog returns the active, in-stock SKUs, capped at MaxCatalogSize,
// ordered by SKU for reproducible listings.
func (s *Service) Catalog(ctx context.Context) ([]CatalogItem, error) {
	var items []CatalogItem
	err := s.Store.WithTx(ctx, func(st engine.Store) error {
		potions, err := st.ListPotions(ctx, true)
		if err != nil {
			return err
		}
		stocks, err := st.PotionStocks(ctx)
		if err != nil {
			return err
		}
		for _, p := range potions {
			if stocks[p.SKU] <= 0 {
				continue
			}
			items = append(items, CatalogItem{
				SKU:      p.SKU,
				Name:     p.Name,
				Quantity: stocks[p.SKU],
				Price:    p.Price,
				Recipe:   p.Recipe,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool { return items[i].SKU < items[j].SKU })
	if len(items) > engine.MaxCatalogSize {
		items = items[:engine.MaxCatalogSize]
	}
	return items, nil
}

// DefaultPotions is the shop's standard mix sheet: the four pure colors
// plus two blends.
func DefaultPotions() []engine.Potion {
	return []engine.Potion{
		{SKU: "RED_POTION", Name: "Red Potion", Price: 50, Recipe: engine.Recipe{100, 0, 0, 0}, IsActive: true},
		{SKU: "GREEN_POTION", Name: "Green Potion", Price: 50, Recipe: engine.Recipe{0, 100, 0, 0}, IsActive: true},
		{SKU: "BLUE_POTION", Name: "Blue Potion", Price: 50, Recipe: engine.Recipe{0, 0, 100, 0}, IsActive: true},
		{SKU: "DARK_POTION", Name: "Dark Potion", Price: 75, Recipe: engine.Recipe{0, 0, 0, 100}, IsActive: true},
		{SKU: "PURPLE_POTION", Name: "Purple Potion", Price: 60, Recipe: engine.Recipe{70, 0, 30, 0}, IsActive: true},
		{SKU: "TURQUOISE_POTION", Name: "Turquoise Potion", Price: 60, Recipe: engine.Recipe{0, 70, 30, 0}, IsActive: true},
	}
}
