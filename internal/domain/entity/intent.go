package entity

// PriceFilter is a price ceiling in the store's base currency.
type PriceFilter struct {
	MaxPrice float64 `json:"max_price"`
	Currency string  `json:"currency"`
}

// Intent is the structured understanding of one user query. Every field is
// always populated: the classifier defaults anything the LLM omits or
// mistypes, so downstream code never sees a partially-built intent.
type Intent struct {
	IsProductQuery        bool         `json:"is_product_query"`
	SearchKeywords        string       `json:"search_keywords"`
	ProductTypes          []string     `json:"product_types"`
	Attributes            []string     `json:"attributes"`
	Vendor                string       `json:"vendor"`
	PriceFilter           *PriceFilter `json:"price_filter"`
	RequestedProductCount int          `json:"requested_product_count"`
	SortByPrice           bool         `json:"sort_by_price"`
	AIUnderstanding       string       `json:"ai_understanding"`
	Advice                string       `json:"advice"`
	UsageInstructions     string       `json:"usage_instructions"`

	// Auxiliary routing flags.
	IsComboSetQuery         bool     `json:"is_combo_set_query"`
	IsFictionalProductQuery bool     `json:"is_fictional_product_query"`
	IsClarificationNeeded   bool     `json:"is_clarification_needed"`
	IsIngredientQuery       bool     `json:"is_ingredient_query"`
	IsComparisonQuery       bool     `json:"is_comparison_query"`
	ResponseConfidence      float64  `json:"response_confidence"`
	SuggestedFollowUps      []string `json:"suggested_follow_ups"`
	QueryLanguage           string   `json:"query_language"`
}

// FillDefaults replaces nil slices and blank low-level fields so an Intent
// can be marshalled and compared without nil checks everywhere.
func (i *Intent) FillDefaults() {
	if i.ProductTypes == nil {
		i.ProductTypes = []string{}
	}
	if i.Attributes == nil {
		i.Attributes = []string{}
	}
	if i.SuggestedFollowUps == nil {
		i.SuggestedFollowUps = []string{}
	}
	if i.AIUnderstanding == "" {
		i.AIUnderstanding = "general question"
	}
	if i.QueryLanguage == "" {
		i.QueryLanguage = "en"
	}
	if i.RequestedProductCount < 0 {
		i.RequestedProductCount = 0
	}
}

// ClearSearchFields zeroes everything that would trigger a product search.
// The invariant is that a non-product intent carries no search payload.
func (i *Intent) ClearSearchFields() {
	i.IsProductQuery = false
	i.SearchKeywords = ""
	i.ProductTypes = []string{}
	i.RequestedProductCount = 0
}

// HasSearchSubject reports whether the intent names anything searchable.
func (i *Intent) HasSearchSubject() bool {
	return i.SearchKeywords != "" || len(i.ProductTypes) > 0
}
