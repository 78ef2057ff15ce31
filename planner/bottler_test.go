package planner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/shop-engine/engine"
	"github.com/warp/shop-engine/planner"
)

var (
	pureRed   = engine.Recipe{100, 0, 0, 0}
	pureGreen = engine.Recipe{0, 100, 0, 0}
	purple    = engine.Recipe{70, 0, 30, 0}
)

func TestPlanBottling_EvenSplitAcrossRecipes(t *testing.T) {
	// GIVEN: 40 free shelf slots, two recipes, ample liquid
	// WHEN: Planning
	// THEN: 20 potions of each

	plan := planner.PlanBottling(planner.BottlingInput{
		Liquid:            engine.ColorVolumes{10000, 10000, 0, 0},
		Recipes:           []engine.Recipe{pureRed, pureGreen},
		TotalPotions:      10,
		MaxPotionCapacity: 50,
	})

	require.Len(t, plan, 2)
	assert.Equal(t, planner.BottleOrder{Recipe: pureRed, Quantity: 20}, plan[0])
	assert.Equal(t, planner.BottleOrder{Recipe: pureGreen, Quantity: 20}, plan[1])
}

func TestPlanBottling_ShelfFull_EmptyPlan(t *testing.T) {
	plan := planner.PlanBottling(planner.BottlingInput{
		Liquid:            engine.ColorVolumes{10000, 0, 0, 0},
		Recipes:           []engine.Recipe{pureRed},
		TotalPotions:      50,
		MaxPotionCapacity: 50,
	})
	assert.Empty(t, plan)
}

func TestPlanBottling_CappedByLiquid(t *testing.T) {
	// 300ml red makes at most 3 pure red potions regardless of shelf room.

	plan := planner.PlanBottling(planner.BottlingInput{
		Liquid:            engine.ColorVolumes{300, 0, 0, 0},
		Recipes:           []engine.Recipe{pureRed},
		TotalPotions:      0,
		MaxPotionCapacity: 50,
	})

	require.Len(t, plan, 1)
	assert.Equal(t, 3, plan[0].Quantity)
}

func TestPlanBottling_SharedPoolDeduction(t *testing.T) {
	// GIVEN: 1000ml red, recipes pure-red then purple (70ml red each)
	// WHEN: Planning with 10 free slots
	// THEN: Pure red takes its share first; purple gets what red left

	plan := planner.PlanBottling(planner.BottlingInput{
		Liquid:            engine.ColorVolumes{1000, 0, 10000, 0},
		Recipes:           []engine.Recipe{pureRed, purple},
		TotalPotions:      40,
		MaxPotionCapacity: 50,
	})

	require.Len(t, plan, 2)
	assert.Equal(t, 5, plan[0].Quantity)
	// 500ml red remain; purple needs 70ml each, share is 5: all 5 fit.
	assert.Equal(t, 5, plan[1].Quantity)
}

func TestPlanBottling_DryColorSkipped(t *testing.T) {
	// No green liquid: the green recipe contributes nothing, and its
	// absence does not inflate the other recipe's share.

	plan := planner.PlanBottling(planner.BottlingInput{
		Liquid:            engine.ColorVolumes{10000, 0, 0, 0},
		Recipes:           []engine.Recipe{pureRed, pureGreen},
		TotalPotions:      0,
		MaxPotionCapacity: 50,
	})

	require.Len(t, plan, 1)
	assert.Equal(t, pureRed, plan[0].Recipe)
	assert.Equal(t, 25, plan[0].Quantity)
}

func TestPlanBottling_NeverExceedsShelf(t *testing.T) {
	plan := planner.PlanBottling(planner.BottlingInput{
		Liquid:            engine.ColorVolumes{100000, 100000, 100000, 100000},
		Recipes:           []engine.Recipe{pureRed, pureGreen, purple},
		TotalPotions:      5,
		MaxPotionCapacity: 50,
	})

	total := 0
	for _, o := range plan {
		total += o.Quantity
	}
	assert.LessOrEqual(t, 5+total, 50)
}
