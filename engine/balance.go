/*
balance.go - Derived balances

PURPOSE:
  Balances is the read-side snapshot every other component consumes: gold,
  per-color liquid, per-SKU potion stock, and the capacity ceilings, all
  folded from the ledgers in one consistent read.

CAPACITY FLOOR:
  An empty capacity ledger reads as the free base unit of each kind
  (50 potions / 10,000 ml). A seeded shop carries an explicit base entry,
  so the floor only matters on a fresh database.
*/
package engine

// Balances is the current derived state of the shop.
type Balances struct {
	Gold    int
	Liquid  ColorVolumes
	Potions map[string]int

	MaxPotionCapacity int
	MaxLiquidCapacity int
}

// TotalLiquidMl is the sum of all four color balances.
func (b Balances) TotalLiquidMl() int {
	return b.Liquid.Total()
}

// TotalPotions is the potion count summed across all SKUs.
func (b Balances) TotalPotions() int {
	total := 0
	for _, qty := range b.Potions {
		total += qty
	}
	return total
}

// LiquidUtilization is total liquid over the liquid ceiling, in [0, 1+].
func (b Balances) LiquidUtilization() float64 {
	if b.MaxLiquidCapacity <= 0 {
		return 0
	}
	return float64(b.TotalLiquidMl()) / float64(b.MaxLiquidCapacity)
}

// PotionUtilization is total potions over the potion ceiling.
func (b Balances) PotionUtilization() float64 {
	if b.MaxPotionCapacity <= 0 {
		return 0
	}
	return float64(b.TotalPotions()) / float64(b.MaxPotionCapacity)
}

// RemainingPotionCapacity is how many more potions fit on the shelves.
func (b Balances) RemainingPotionCapacity() int {
	return b.MaxPotionCapacity - b.TotalPotions()
}

// RemainingLiquidCapacity is how many more ml fit in the barrels.
func (b Balances) RemainingLiquidCapacity() int {
	return b.MaxLiquidCapacity - b.TotalLiquidMl()
}
