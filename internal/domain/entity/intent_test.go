package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFillDefaultsCompletesZeroValueIntent(t *testing.T) {
	var i Intent
	i.FillDefaults()

	assert.NotNil(t, i.ProductTypes)
	assert.NotNil(t, i.Attributes)
	assert.NotNil(t, i.SuggestedFollowUps)
	assert.Equal(t, "general question", i.AIUnderstanding)
	assert.Equal(t, "en", i.QueryLanguage)
	assert.Zero(t, i.RequestedProductCount)
}

func TestFillDefaultsKeepsPopulatedFields(t *testing.T) {
	i := Intent{
		ProductTypes:          []string{"serum"},
		AIUnderstanding:       "product query",
		QueryLanguage:         "es",
		RequestedProductCount: 3,
	}
	i.FillDefaults()

	assert.Equal(t, []string{"serum"}, i.ProductTypes)
	assert.Equal(t, "product query", i.AIUnderstanding)
	assert.Equal(t, "es", i.QueryLanguage)
	assert.Equal(t, 3, i.RequestedProductCount)
}

func TestFillDefaultsClampsNegativeCount(t *testing.T) {
	i := Intent{RequestedProductCount: -2}
	i.FillDefaults()
	assert.Zero(t, i.RequestedProductCount)
}

func TestClearSearchFields(t *testing.T) {
	i := Intent{
		IsProductQuery:        true,
		SearchKeywords:        "vegan serum",
		ProductTypes:          []string{"serum"},
		RequestedProductCount: 2,
	}
	i.ClearSearchFields()

	assert.False(t, i.IsProductQuery)
	assert.Empty(t, i.SearchKeywords)
	assert.Empty(t, i.ProductTypes)
	assert.Zero(t, i.RequestedProductCount)
	assert.False(t, i.HasSearchSubject())
}
