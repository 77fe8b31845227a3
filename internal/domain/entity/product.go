package entity

import (
	"strconv"
	"strings"
)

// ProductRecord is a product as stored in the search index. Price stays a
// decimal string because that is how the catalog emits it; ParsePrice is
// the one place it becomes a number. TextForBM25 is the denormalized blob
// used for keyword retrieval, derived from the authoritative fields.
type ProductRecord struct {
	ID          string   `json:"id"`
	Handle      string   `json:"handle"`
	Title       string   `json:"title"`
	Price       string   `json:"price"`
	ImageURL    string   `json:"imageUrl"`
	ProductURL  string   `json:"productUrl"`
	VariantID   string   `json:"variantId"`
	Vendor      string   `json:"vendor"`
	ProductType string   `json:"productType"`
	Tags        []string `json:"tags"`
	TextForBM25 string   `json:"textForBM25"`
}

// SearchBlob rebuilds the keyword-search text from authoritative fields.
func (p ProductRecord) SearchBlob() string {
	parts := []string{p.Title, p.ProductType, p.Vendor, strings.Join(p.Tags, " ")}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// NormalizedType returns the last segment of a ">"-nested category path,
// lowercased. "Makeup > Lips > Lipstick" becomes "lipstick".
func (p ProductRecord) NormalizedType() string {
	segs := strings.Split(p.ProductType, ">")
	return strings.ToLower(strings.TrimSpace(segs[len(segs)-1]))
}

// SearchMatch is one scored hit from the search index. Score is the
// cosine similarity reported by the index.
type SearchMatch struct {
	ID     string
	Score  float32
	Record ProductRecord
}

// PageInfo is the catalog API's cursor pagination marker.
type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// ProductCard is the response-side projection of a matched product.
type ProductCard struct {
	Title             string  `json:"title"`
	Description       string  `json:"description"`
	Price             float64 `json:"price"`
	Image             string  `json:"image"`
	LandingPage       string  `json:"landing_page"`
	VariantID         string  `json:"variantId"`
	AvailableForSale  *bool   `json:"availableForSale,omitempty"`
	QuantityAvailable *int    `json:"quantityAvailable,omitempty"`
}

// ParsePrice reads a decimal out of a price string, tolerating currency
// symbols and thousands separators. Unparseable prices count as zero.
func ParsePrice(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return v
}

// NumericIDFromGID extracts the trailing numeric part of a catalog GID such
// as "gid://shop/ProductVariant/987". Plain IDs pass through unchanged.
func NumericIDFromGID(gid string) string {
	if gid == "" {
		return ""
	}
	parts := strings.Split(gid, "/")
	last := parts[len(parts)-1]
	if last == "" {
		return gid
	}
	return last
}
