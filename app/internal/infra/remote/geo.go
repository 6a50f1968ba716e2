package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"example.com/storefront-checkout/app/internal/domain/geo"
)

// GeoClient reads the province/district/ward hierarchy from the master-data
// service. Every answer is wrapped in {code, data, message}.
type GeoClient struct {
	c *jsonClient
}

func NewGeoClient(baseURL, token string, httpClient *http.Client) *GeoClient {
	c := newJSONClient("geo", baseURL, httpClient)
	if token != "" {
		c.headers.Set("Token", token)
	}
	return &GeoClient{c: c}
}

type geoEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type provinceDTO struct {
	ProvinceID   int    `json:"ProvinceID"`
	ProvinceName string `json:"ProvinceName"`
}

type districtDTO struct {
	DistrictID   int    `json:"DistrictID"`
	ProvinceID   int    `json:"ProvinceID"`
	DistrictName string `json:"DistrictName"`
}

type wardDTO struct {
	WardCode   string `json:"WardCode"`
	DistrictID int    `json:"DistrictID"`
	WardName   string `json:"WardName"`
}

func (g *GeoClient) fetch(ctx context.Context, op, method, path string, in any, out any) error {
	var env geoEnvelope
	if err := g.c.call(ctx, op, method, []string{path}, in, &env, nil); err != nil {
		return err
	}
	if env.Code != http.StatusOK {
		return fmt.Errorf("geo: %s: code %d: %s", op, env.Code, env.Message)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("geo: %s: decode data: %w", op, err)
	}
	return nil
}

func (g *GeoClient) Provinces(ctx context.Context) ([]geo.Province, error) {
	var rows []provinceDTO
	if err := g.fetch(ctx, "provinces", http.MethodGet, "province", nil, &rows); err != nil {
		return nil, err
	}
	out := make([]geo.Province, 0, len(rows))
	for _, r := range rows {
		out = append(out, geo.Province{ID: r.ProvinceID, Name: r.ProvinceName})
	}
	return out, nil
}

// Districts also stamps the parent id onto rows that come back without it.
func (g *GeoClient) Districts(ctx context.Context, provinceID int) ([]geo.District, error) {
	var rows []districtDTO
	body := map[string]int{"province_id": provinceID}
	if err := g.fetch(ctx, "districts", http.MethodPost, "district", body, &rows); err != nil {
		return nil, err
	}
	out := make([]geo.District, 0, len(rows))
	for _, r := range rows {
		if r.ProvinceID == 0 {
			r.ProvinceID = provinceID
		}
		out = append(out, geo.District{ID: r.DistrictID, ProvinceID: r.ProvinceID, Name: r.DistrictName})
	}
	return out, nil
}

func (g *GeoClient) Wards(ctx context.Context, districtID int) ([]geo.Ward, error) {
	var rows []wardDTO
	body := map[string]int{"district_id": districtID}
	if err := g.fetch(ctx, "wards", http.MethodPost, "ward", body, &rows); err != nil {
		return nil, err
	}
	out := make([]geo.Ward, 0, len(rows))
	for _, r := range rows {
		if r.DistrictID == 0 {
			r.DistrictID = districtID
		}
		out = append(out, geo.Ward{Code: r.WardCode, DistrictID: r.DistrictID, Name: r.WardName})
	}
	return out, nil
}
