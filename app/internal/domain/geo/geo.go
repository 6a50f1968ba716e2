package geo

import "context"

// Province, District và Ward là dữ liệu tham chiếu tĩnh, không bao giờ bị sửa.
type Province struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type District struct {
	ID         int    `json:"id"`
	ProvinceID int    `json:"province_id"`
	Name       string `json:"name"`
}

type Ward struct {
	Code       string `json:"code"`
	DistrictID int    `json:"district_id"`
	Name       string `json:"name"`
}

// Directory reads the province -> district -> ward hierarchy.
type Directory interface {
	Provinces(ctx context.Context) ([]Province, error)
	Districts(ctx context.Context, provinceID int) ([]District, error)
	Wards(ctx context.Context, districtID int) ([]Ward, error)
}

func FindProvince(list []Province, id int) (Province, bool) {
	for _, p := range list {
		if p.ID == id {
			return p, true
		}
	}
	return Province{}, false
}

func FindDistrict(list []District, id int) (District, bool) {
	for _, d := range list {
		if d.ID == id {
			return d, true
		}
	}
	return District{}, false
}

func FindWard(list []Ward, code string) (Ward, bool) {
	for _, w := range list {
		if w.Code == code {
			return w, true
		}
	}
	return Ward{}, false
}
