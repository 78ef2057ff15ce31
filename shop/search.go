/*
search.go - Sold line item search

PURPOSE:
  Lets the shopkeeper search past sales by customer and/or SKU, sorted and
  paginated. Sorting uses a closed enum of sort keys mapped to explicit Go
  comparators - caller input is never interpolated into a query.
*/
package shop

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/warp/shop-engine/engine"
)

// SoldLineItem is one potion-sale line joined with its cart and potion.
type SoldLineItem struct {
	CartID       engine.CartID
	SKU          string
	PotionName   string
	CustomerName string
	Quantity     int
	LineTotal    int
	SoldAt       time.Time
}

// SaleReader supplies sold line items, pre-filtered by equality on
// customer name and/or SKU (empty string matches all).
type SaleReader interface {
	SoldLineItems(ctx context.Context, customerName, sku string) ([]SoldLineItem, error)
}

// =============================================================================
// SORT KEYS - closed enum, explicit comparators
// =============================================================================

type SortKey string

const (
	SortByCustomerName SortKey = "customer_name"
	SortByItemSKU      SortKey = "item_sku"
	SortByLineTotal    SortKey = "line_item_total"
	SortByTimestamp    SortKey = "timestamp"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// comparators maps each sort key to its less-than function. Adding a sort
// key means adding a comparator here; there is no dynamic path.
var comparators = map[SortKey]func(a, b SoldLineItem) bool{
	SortByCustomerName: func(a, b SoldLineItem) bool { return a.CustomerName < b.CustomerName },
	SortByItemSKU:      func(a, b SoldLineItem) bool { return a.SKU < b.SKU },
	SortByLineTotal:    func(a, b SoldLineItem) bool { return a.LineTotal < b.LineTotal },
	SortByTimestamp:    func(a, b SoldLineItem) bool { return a.SoldAt.Before(b.SoldAt) },
}

// =============================================================================
// SEARCH
// =============================================================================

const defaultSearchLimit = 10

type SearchQuery struct {
	CustomerName string
	SKU          string
	SortKey      SortKey   // default: timestamp
	SortOrder    SortOrder // default: desc
	Page         string    // "offset_limit" token from a previous page
}

type SearchResult struct {
	LineItemID   int
	ItemSKU      string
	CustomerName string
	LineTotal    int
	Timestamp    time.Time
}

type SearchPage struct {
	Previous string
	Next     string
	Results  []SearchResult
}

// SearchOrders returns a page of sold line items matching the query.
func (s *Service) SearchOrders(ctx context.Context, q SearchQuery) (SearchPage, error) {
	if s.Sales == nil {
		return SearchPage{}, fmt.Errorf("order search is not configured")
	}

	key := q.SortKey
	if key == "" {
		key = SortByTimestamp
	}
	less, ok := comparators[key]
	if !ok {
		return SearchPage{}, fmt.Errorf("unknown sort key %q", q.SortKey)
	}
	order := q.SortOrder
	if order == "" {
		order = SortDesc
	}
	if order != SortAsc && order != SortDesc {
		return SearchPage{}, fmt.Errorf("unknown sort order %q", q.SortOrder)
	}

	items, err := s.Sales.SoldLineItems(ctx, q.CustomerName, q.SKU)
	if err != nil {
		return SearchPage{}, err
	}

	// Stable sort keeps ties in store order, so paging is reproducible.
	sort.SliceStable(items, func(i, j int) bool {
		if order == SortDesc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})

	offset, limit := parsePage(q.Page)
	page := SearchPage{}
	if offset > 0 {
		prev := offset - limit
		if prev < 0 {
			prev = 0
		}
		page.Previous = fmt.Sprintf("%d_%d", prev, limit)
	}
	if offset+limit < len(items) {
		page.Next = fmt.Sprintf("%d_%d", offset+limit, limit)
	}

	end := offset + limit
	if offset > len(items) {
		offset = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	for i, item := range items[offset:end] {
		label := item.SKU
		if item.PotionName != "" {
			label = item.PotionName
			if item.Quantity > 1 {
				label += "s"
			}
		}
		page.Results = append(page.Results, SearchResult{
			LineItemID:   offset + i + 1,
			ItemSKU:      fmt.Sprintf("%d %s", item.Quantity, label),
			CustomerName: item.CustomerName,
			LineTotal:    item.LineTotal,
			Timestamp:    item.SoldAt,
		})
	}
	return page, nil
}

func parsePage(token string) (offset, limit int) {
	offset, limit = 0, defaultSearchLimit
	if token == "" {
		return
	}
	parts := strings.SplitN(token, "_", 2)
	if len(parts) != 2 {
		return
	}
	var o, l int
	if _, err := fmt.Sscanf(parts[0], "%d", &o); err != nil {
		return
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &l); err != nil {
		return
	}
	if o >= 0 && l > 0 {
		offset, limit = o, l
	}
	return
}
