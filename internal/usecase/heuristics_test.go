package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopchat/internal/domain/entity"
)

func TestHeuristicProductQuery(t *testing.T) {
	intent := ClassifyHeuristically("show me vegan lipsticks under $25", nil)

	assert.True(t, intent.IsProductQuery)
	assert.Contains(t, intent.ProductTypes, "lipstick")
	assert.Contains(t, intent.Attributes, "vegan")
	assert.Equal(t, 10, intent.RequestedProductCount)
	require.NotNil(t, intent.PriceFilter)
	assert.InDelta(t, 25, intent.PriceFilter.MaxPrice, 0.001)
}

func TestHeuristicCheapSortsByPrice(t *testing.T) {
	intent := ClassifyHeuristically("cheapest sunscreen", nil)
	assert.True(t, intent.SortByPrice)
	assert.True(t, intent.IsProductQuery)
}

func TestHeuristicFictionalProduct(t *testing.T) {
	intent := ClassifyHeuristically("do you sell unicorn tears serum?", nil)

	assert.False(t, intent.IsProductQuery)
	assert.True(t, intent.IsFictionalProductQuery)
	assert.NotEmpty(t, intent.Advice)
}

func TestHeuristicFollowUpNeedsPriorProductTalk(t *testing.T) {
	history := entity.ChatHistory{
		{Role: entity.RoleUser, Text: "recommend a serum"},
		{Role: entity.RoleBot, Text: "Here is a serum."},
	}
	intent := ClassifyHeuristically("is that part of a kit?", history)
	assert.True(t, intent.IsClarificationNeeded)
	assert.False(t, intent.IsProductQuery)

	// Without product talk in history, the same phrasing is not a follow-up.
	intent = ClassifyHeuristically("is that part of a kit?", nil)
	assert.False(t, intent.IsClarificationNeeded)
}

func TestHeuristicGeneralQuestion(t *testing.T) {
	intent := ClassifyHeuristically("what is your shipping policy?", nil)

	assert.False(t, intent.IsProductQuery)
	assert.Equal(t, "general question", intent.AIUnderstanding)
	assert.NotEmpty(t, intent.Advice)
}

func TestHeuristicComboCount(t *testing.T) {
	intent := ClassifyHeuristically("I want a cleanser and toner combo", nil)
	assert.True(t, intent.IsComboSetQuery)
	assert.Equal(t, 2, intent.RequestedProductCount)
}
