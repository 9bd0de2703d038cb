package model

// ProductListing is what the product scraper returns for a marketplace page.
// SellerIDs may contain duplicates; see DedupeSellerIDs.
type ProductListing struct {
	MarketPlaceID string   `json:"market_place_id"`
	ProductName   string   `json:"product_name"`
	SellerIDs     []string `json:"seller_ids"`
}

// ProductContext identifies one estimate run. It is created once, when the
// product page has been scraped, and never modified afterwards.
type ProductContext struct {
	URL           string `json:"url" yaml:"url"`
	CorrelationID string `json:"correlation_id" yaml:"correlation_id"`
	MarketPlaceID string `json:"market_place_id" yaml:"market_place_id"`
	ProductName   string `json:"product_name" yaml:"product_name"`
}

// NewProductContext builds the run context from a scraped listing.
func NewProductContext(url, correlationID string, listing ProductListing) ProductContext {
	return ProductContext{
		URL:           url,
		CorrelationID: correlationID,
		MarketPlaceID: listing.MarketPlaceID,
		ProductName:   listing.ProductName,
	}
}
