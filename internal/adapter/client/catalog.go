package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shopchat/internal/domain/entity"
)

const catalogAPIVersion = "2024-01"

const productsQuery = `
query getProducts($first: Int!, $after: String, $query: String) {
  products(first: $first, after: $after, query: $query, sortKey: ID) {
    edges {
      cursor
      node {
        id
        handle
        title
        descriptionHtml
        vendor
        productType
        tags
        onlineStoreUrl
        images(first: 1) {
          edges {
            node {
              url
            }
          }
        }
        priceRange {
          minVariantPrice {
            amount
            currencyCode
          }
        }
        variants(first: 1) {
          edges {
            node {
              id
              price
            }
          }
        }
      }
    }
    pageInfo {
      hasNextPage
      endCursor
    }
  }
}
`

// CatalogClient talks to the storefront admin GraphQL API. It serves
// both the catalog sync job and the live-search fallback path.
type CatalogClient struct {
	httpClient *http.Client
	endpoint   string
	token      string
}

func NewCatalogClient(shopDomain, token string, timeout time.Duration) *CatalogClient {
	return &CatalogClient{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shopDomain, catalogAPIVersion),
		token:      token,
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type productsResponse struct {
	Data struct {
		Products struct {
			Edges []struct {
				Node productNode `json:"node"`
			} `json:"edges"`
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
		} `json:"products"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type productNode struct {
	ID              string   `json:"id"`
	Handle          string   `json:"handle"`
	Title           string   `json:"title"`
	DescriptionHTML string   `json:"descriptionHtml"`
	Vendor          string   `json:"vendor"`
	ProductType     string   `json:"productType"`
	Tags            []string `json:"tags"`
	OnlineStoreURL  string   `json:"onlineStoreUrl"`
	Images          struct {
		Edges []struct {
			Node struct {
				URL string `json:"url"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"images"`
	PriceRange struct {
		MinVariantPrice struct {
			Amount string `json:"amount"`
		} `json:"minVariantPrice"`
	} `json:"priceRange"`
	Variants struct {
		Edges []struct {
			Node struct {
				ID    string `json:"id"`
				Price string `json:"price"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
}

func (c *CatalogClient) FetchProducts(ctx context.Context, cursor string, limit int, filter string) ([]entity.ProductRecord, entity.PageInfo, error) {
	variables := map[string]any{"first": limit}
	if cursor != "" {
		variables["after"] = cursor
	}
	if filter != "" {
		variables["query"] = filter
	}

	body, err := json.Marshal(graphqlRequest{Query: productsQuery, Variables: variables})
	if err != nil {
		return nil, entity.PageInfo{}, fmt.Errorf("marshal catalog request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, entity.PageInfo{}, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, entity.PageInfo{}, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, entity.PageInfo{}, fmt.Errorf("catalog API status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed productsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, entity.PageInfo{}, fmt.Errorf("decode catalog response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return nil, entity.PageInfo{}, fmt.Errorf("catalog API: %s", parsed.Errors[0].Message)
	}

	records := make([]entity.ProductRecord, 0, len(parsed.Data.Products.Edges))
	for _, edge := range parsed.Data.Products.Edges {
		records = append(records, recordFromNode(edge.Node))
	}
	pageInfo := entity.PageInfo{
		HasNextPage: parsed.Data.Products.PageInfo.HasNextPage,
		EndCursor:   parsed.Data.Products.PageInfo.EndCursor,
	}
	return records, pageInfo, nil
}

func recordFromNode(node productNode) entity.ProductRecord {
	rec := entity.ProductRecord{
		ID:          node.ID,
		Handle:      node.Handle,
		Title:       node.Title,
		Price:       node.PriceRange.MinVariantPrice.Amount,
		Vendor:      node.Vendor,
		ProductType: node.ProductType,
		Tags:        node.Tags,
		ProductURL:  node.OnlineStoreURL,
	}
	if rec.ProductURL == "" && node.Handle != "" {
		rec.ProductURL = "/products/" + node.Handle
	}
	if len(node.Images.Edges) > 0 {
		rec.ImageURL = node.Images.Edges[0].Node.URL
	}
	if len(node.Variants.Edges) > 0 {
		v := node.Variants.Edges[0].Node
		rec.VariantID = v.ID
		if rec.Price == "" {
			rec.Price = v.Price
		}
	}
	rec.TextForBM25 = strings.Join([]string{node.Title, stripHTML(node.DescriptionHTML), node.ProductType, strings.Join(node.Tags, " ")}, " ")
	return rec
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteByte(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
