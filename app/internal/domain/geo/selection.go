package geo

// Selection is the user's current pick at each level of the cascade.
// Zero values mean "not selected".
type Selection struct {
	ProvinceID   int    `json:"province_id,omitempty"`
	ProvinceName string `json:"province_name,omitempty"`
	DistrictID   int    `json:"district_id,omitempty"`
	DistrictName string `json:"district_name,omitempty"`
	WardCode     string `json:"ward_code,omitempty"`
	WardName     string `json:"ward_name,omitempty"`
}

func (s Selection) HasProvince() bool { return s.ProvinceID != 0 }
func (s Selection) HasDistrict() bool { return s.DistrictID != 0 }
func (s Selection) HasWard() bool     { return s.WardCode != "" }

// Complete reports whether all three levels are resolved.
func (s Selection) Complete() bool {
	return s.HasProvince() && s.HasDistrict() && s.HasWard()
}

// Level identifies one tier of the cascade.
type Level int

const (
	LevelProvince Level = iota + 1
	LevelDistrict
	LevelWard
)

func (l Level) String() string {
	switch l {
	case LevelProvince:
		return "province"
	case LevelDistrict:
		return "district"
	case LevelWard:
		return "ward"
	default:
		return "unknown"
	}
}

// cascadeResets lists, for each level that changes, the lower levels that must be cleared.
var cascadeResets = map[Level][]Level{
	LevelProvince: {LevelDistrict, LevelWard},
	LevelDistrict: {LevelWard},
	LevelWard:     nil,
}

// ResetsFor returns the levels invalidated when changed is re-selected.
func ResetsFor(changed Level) []Level {
	return cascadeResets[changed]
}

func (s Selection) clear(level Level) Selection {
	switch level {
	case LevelProvince:
		s.ProvinceID, s.ProvinceName = 0, ""
	case LevelDistrict:
		s.DistrictID, s.DistrictName = 0, ""
	case LevelWard:
		s.WardCode, s.WardName = "", ""
	}
	return s
}
