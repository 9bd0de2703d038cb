package oxsirene

import (
	"context"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/oxsirene/reseller-cli/internal/model"
)

// Operation names label breakers, retries and metrics.
const (
	OpScrapProduct     = "scrap_product"
	OpScrapSeller      = "scrap_seller"
	OpLookupRegistry   = "lookup_registry"
	OpGeocode          = "geocode"
	OpReverseGeocode   = "reverse_geocode"
	OpEstimateDistance = "estimate_distance"
	OpLocateIP         = "locate_ip"
	OpToken            = "token"
	OpPublicIP         = "public_ip"
)

func (c *httpClient) ScrapProduct(ctx context.Context, cid, pageURL string) (*model.ProductListing, error) {
	var out model.ProductListing
	err := c.do(ctx, request{
		operation:     OpScrapProduct,
		method:        http.MethodPost,
		url:           c.endpoint("product", "scrap"),
		cid:           cid,
		authenticated: true,
		in:            map[string]string{"page": pageURL},
		out:           &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) ScrapSeller(ctx context.Context, cid, marketPlaceID, sellerID string) (*model.SellerRecord, error) {
	var out model.SellerRecord
	err := c.do(ctx, request{
		operation:     OpScrapSeller,
		method:        http.MethodGet,
		url:           c.endpoint("seller", "scrap", marketPlaceID, sellerID),
		cid:           cid,
		authenticated: true,
		out:           &out,
	})
	if err != nil {
		return nil, err
	}
	if out.SellerID == "" {
		out.SellerID = sellerID
	}
	return &out, nil
}

func (c *httpClient) LookupRegistry(ctx context.Context, cid, legalCode string) (*model.RegistryRecord, error) {
	var out model.RegistryRecord
	err := c.do(ctx, request{
		operation:     OpLookupRegistry,
		method:        http.MethodGet,
		url:           c.endpoint("sirene", legalCode),
		cid:           cid,
		authenticated: true,
		out:           &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Geocode(ctx context.Context, cid, address string) (*model.GeocodeRecord, error) {
	var out model.GeocodeRecord
	err := c.do(ctx, request{
		operation:     OpGeocode,
		method:        http.MethodPost,
		url:           c.endpoint("ban"),
		cid:           cid,
		authenticated: true,
		in:            map[string]string{"address": address},
		out:           &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) ReverseGeocode(ctx context.Context, cid string, coords model.Coordinates) (*model.GeocodeRecord, error) {
	var out model.GeocodeRecord
	err := c.do(ctx, request{
		operation:     OpReverseGeocode,
		method:        http.MethodGet,
		url:           c.endpoint("ban", formatCoord(coords.Lon), formatCoord(coords.Lat)),
		cid:           cid,
		authenticated: true,
		out:           &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) EstimateDistance(ctx context.Context, cid string, origin, dest model.Coordinates) (*model.DistanceEstimate, error) {
	var out model.DistanceEstimate
	err := c.do(ctx, request{
		operation: OpEstimateDistance,
		method:    http.MethodGet,
		url: c.endpoint("delivery", "estimate",
			formatCoord(origin.Lon), formatCoord(origin.Lat),
			formatCoord(dest.Lon), formatCoord(dest.Lat)),
		cid:           cid,
		authenticated: true,
		out:           &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) LocateIP(ctx context.Context, cid, ip string) (*model.GeocodeRecord, error) {
	segments := []string{"location"}
	if strings.TrimSpace(ip) != "" {
		segments = append(segments, strings.TrimSpace(ip))
	}
	var out model.GeocodeRecord
	err := c.do(ctx, request{
		operation:     OpLocateIP,
		method:        http.MethodGet,
		url:           c.endpoint(segments...),
		cid:           cid,
		authenticated: true,
		out:           &out,
	})
	if err != nil {
		return nil, err
	}
	if !out.HasCoordinates() {
		return nil, eris.Errorf("oxsirene: %s: answer has no coordinates", OpLocateIP)
	}
	return &out, nil
}

func (c *httpClient) Token(ctx context.Context, cid string) (*AccessToken, error) {
	var out AccessToken
	err := c.do(ctx, request{
		operation: OpToken,
		method:    http.MethodGet,
		url:       c.endpoint("token"),
		cid:       cid,
		out:       &out,
	})
	if err != nil {
		return nil, err
	}
	if out.Key == "" {
		return nil, eris.Errorf("oxsirene: %s: empty key", OpToken)
	}
	return &out, nil
}

func (c *httpClient) PublicIP(ctx context.Context) (string, error) {
	var out struct {
		IP string `json:"ip"`
	}
	err := c.do(ctx, request{
		operation: OpPublicIP,
		method:    http.MethodGet,
		url:       withQuery(c.ipEchoURL, "format", "json"),
		out:       &out,
	})
	if err != nil {
		return "", err
	}
	if out.IP == "" {
		return "", eris.Errorf("oxsirene: %s: empty answer", OpPublicIP)
	}
	return out.IP, nil
}
