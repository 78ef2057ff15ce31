/*
capacity.go - Capacity purchase planner

PURPOSE:
  Decides whether to buy more shelf (potion) or barrel (ml) capacity,
  driven by utilization thresholds and a gold floor. Capacity units cost
  1,000 gold each, so the planner only spends when storage is actually
  tight.
*/
package planner

// CapacityInput is everything the capacity planner looks at.
type CapacityInput struct {
	Gold              int
	LiquidUtilization float64 // current ml / max ml
	PotionUtilization float64 // current potions / max potions
}

// CapacityPlan is the recommended purchase, in whole capacity units.
type CapacityPlan struct {
	PotionUnits int
	MlUnits     int
}

// Utilization thresholds. Both resources pinched and a healthy reserve:
// expand both. Otherwise expand whichever is tighter, with a lower bar
// for shelf space since unsold potions block bottling entirely.
const (
	bothExpandGoldFloor = 3000
	singleGoldFloor     = 1000
	liquidThreshold     = 0.8
	potionThreshold     = 0.7
)

// PlanCapacity applies the threshold rules to the current balances.
func PlanCapacity(in CapacityInput) CapacityPlan {
	if in.Gold >= bothExpandGoldFloor && in.LiquidUtilization >= liquidThreshold && in.PotionUtilization >= liquidThreshold {
		return CapacityPlan{PotionUnits: 1, MlUnits: 1}
	}
	if in.Gold >= singleGoldFloor {
		if in.LiquidUtilization > in.PotionUtilization && in.LiquidUtilization >= liquidThreshold {
			return CapacityPlan{MlUnits: 1}
		}
		if in.PotionUtilization >= potionThreshold {
			return CapacityPlan{PotionUnits: 1}
		}
	}
	return CapacityPlan{}
}
