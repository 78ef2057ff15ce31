/*
bottler.go - Bottling planner

PURPOSE:
  Decides how many potions of each active recipe to bottle from the
  current liquid pool without exceeding potion capacity or overdrawing any
  color. Remaining capacity is split evenly across recipes; recipes draw
  from one shared pool in order, so later recipes see what is left.
*/
package planner

import "github.com/warp/shop-engine/engine"

// BottleOrder is one bottling instruction.
type BottleOrder struct {
	Recipe   engine.Recipe
	Quantity int
}

// BottlingInput is everything the bottling planner looks at.
type BottlingInput struct {
	Liquid            engine.ColorVolumes
	Recipes           []engine.Recipe // active recipes, in catalog order
	TotalPotions      int
	MaxPotionCapacity int
}

// PlanBottling allocates the remaining shelf capacity across recipes.
//
// Policy: even split (floor) of remaining capacity per recipe, capped by
// what the shared liquid pool can produce at 100 ml per full-strength
// potion. A final guard returns an empty plan rather than over-committing
// the shelf.
func PlanBottling(in BottlingInput) []BottleOrder {
	remaining := in.MaxPotionCapacity - in.TotalPotions
	if remaining <= 0 || len(in.Recipes) == 0 {
		return nil
	}

	share := remaining / len(in.Recipes)
	available := in.Liquid

	var plan []BottleOrder
	planned := 0
	for _, recipe := range in.Recipes {
		per := recipe.MlPerPotion()

		producible := -1
		for i, ml := range per {
			if ml == 0 {
				continue
			}
			n := available[i] / ml
			if producible == -1 || n < producible {
				producible = n
			}
		}
		if producible <= 0 {
			continue
		}

		qty := share
		if producible < qty {
			qty = producible
		}
		if qty <= 0 {
			continue
		}

		for i, ml := range per {
			available[i] -= ml * qty
		}
		plan = append(plan, BottleOrder{Recipe: recipe, Quantity: qty})
		planned += qty
	}

	// Guards against rounding drift; with the floor split above this
	// should be unreachable.
	if in.TotalPotions+planned > in.MaxPotionCapacity {
		return nil
	}
	return plan
}
