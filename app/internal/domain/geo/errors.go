package geo

import "errors"

var (
	ErrLookupFailed    = errors.New("address lookup failed, please retry")
	ErrUnknownProvince = errors.New("unknown province")
	ErrUnknownDistrict = errors.New("district does not belong to the selected province")
	ErrUnknownWard     = errors.New("ward does not belong to the selected district")
)
