package geo

// Cascade holds one address form's selection together with the option lists
// currently shown for it and the generation token of each lazily loaded level.
//
// All methods have value receivers and return a new Cascade; the receiver is
// never modified, so a Cascade can be shared between snapshots.
type Cascade struct {
	Selection     Selection  `json:"selection"`
	Districts     []District `json:"districts"`
	Wards         []Ward     `json:"wards"`
	DistrictToken uint64     `json:"district_token"`
	WardToken     uint64     `json:"ward_token"`
	DistrictsErr  string     `json:"districts_error,omitempty"`
	WardsErr      string     `json:"wards_error,omitempty"`
}

func (c Cascade) reset(changed Level) Cascade {
	for _, level := range ResetsFor(changed) {
		c.Selection = c.Selection.clear(level)
		switch level {
		case LevelDistrict:
			c.Districts = []District{}
			c.DistrictsErr = ""
		case LevelWard:
			c.Wards = []Ward{}
			c.WardsErr = ""
		}
	}
	return c
}

// SelectProvince picks p, clears lower levels and issues a new district token.
// The caller fetches districts for p and hands them back with that token.
func (c Cascade) SelectProvince(p Province) (Cascade, uint64) {
	next := c.reset(LevelProvince)
	next.Selection.ProvinceID = p.ID
	next.Selection.ProvinceName = p.Name
	next.DistrictToken++
	// Ward token also moves so an in-flight ward fetch for the old district is dropped.
	next.WardToken++
	return next, next.DistrictToken
}

// SelectDistrict picks a district from the visible list.
func (c Cascade) SelectDistrict(districtID int) (Cascade, uint64, error) {
	if !c.Selection.HasProvince() {
		return c, 0, ErrUnknownDistrict
	}
	d, ok := FindDistrict(c.Districts, districtID)
	if !ok || d.ProvinceID != c.Selection.ProvinceID {
		return c, 0, ErrUnknownDistrict
	}
	next := c.reset(LevelDistrict)
	next.Selection.DistrictID = d.ID
	next.Selection.DistrictName = d.Name
	next.WardToken++
	return next, next.WardToken, nil
}

// SelectWard picks a ward from the visible list; nothing below it to reset.
func (c Cascade) SelectWard(code string) (Cascade, error) {
	if !c.Selection.HasDistrict() {
		return c, ErrUnknownWard
	}
	w, ok := FindWard(c.Wards, code)
	if !ok || w.DistrictID != c.Selection.DistrictID {
		return c, ErrUnknownWard
	}
	next := c.reset(LevelWard)
	next.Selection.WardCode = w.Code
	next.Selection.WardName = w.Name
	return next, nil
}

// ApplyDistricts installs a district list fetched under token. Responses for a
// superseded token are discarded and applied is false.
func (c Cascade) ApplyDistricts(token uint64, list []District, loadErr error) (next Cascade, applied bool) {
	if token != c.DistrictToken {
		return c, false
	}
	next = c
	next.Districts = filterDistricts(list, c.Selection.ProvinceID)
	next.DistrictsErr = errString(loadErr)
	return next, true
}

// ApplyWards is ApplyDistricts for the ward level.
func (c Cascade) ApplyWards(token uint64, list []Ward, loadErr error) (next Cascade, applied bool) {
	if token != c.WardToken {
		return c, false
	}
	next = c
	next.Wards = filterWards(list, c.Selection.DistrictID)
	next.WardsErr = errString(loadErr)
	return next, true
}

func filterDistricts(list []District, provinceID int) []District {
	out := make([]District, 0, len(list))
	for _, d := range list {
		if d.ProvinceID == provinceID {
			out = append(out, d)
		}
	}
	return out
}

func filterWards(list []Ward, districtID int) []Ward {
	out := make([]Ward, 0, len(list))
	for _, w := range list {
		if w.DistrictID == districtID {
			out = append(out, w)
		}
	}
	return out
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
