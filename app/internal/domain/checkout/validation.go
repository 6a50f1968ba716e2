package checkout

import (
	"fmt"
	"strings"
)

// ValidationError names the first missing piece of an address form.
type ValidationError struct {
	Form  FormKind
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s address is incomplete: %s is required", e.Form, e.Field)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type requirement struct {
	field   string
	present func(AddressForm) bool
}

// Thứ tự kiểm tra giữ nguyên thứ tự các ô trên form.
var addressRequirements = []requirement{
	{"recipient name", func(f AddressForm) bool { return strings.TrimSpace(f.RecipientName) != "" }},
	{"phone", func(f AddressForm) bool { return strings.TrimSpace(f.Phone) != "" }},
	{"address line", func(f AddressForm) bool { return strings.TrimSpace(f.AddressLine1) != "" }},
	{"province", func(f AddressForm) bool { return f.Location.Selection.HasProvince() }},
	{"district", func(f AddressForm) bool { return f.Location.Selection.HasDistrict() }},
	{"ward", func(f AddressForm) bool { return f.Location.Selection.HasWard() }},
}

func validateForm(kind FormKind, f AddressForm) error {
	for _, req := range addressRequirements {
		if !req.present(f) {
			return &ValidationError{Form: kind, Field: req.field}
		}
	}
	return nil
}

// Validate checks billing and, when shipping elsewhere, the shipping form.
// Only the first problem is reported.
func Validate(s State) error {
	if err := validateForm(FormBilling, s.Billing); err != nil {
		return err
	}
	if s.ShipToDifferent {
		return validateForm(FormShipping, s.Shipping)
	}
	return nil
}

// FormatAddress joins line 1, ward, district and province with commas.
func FormatAddress(f AddressForm) string {
	sel := f.Location.Selection
	parts := make([]string, 0, 4)
	for _, p := range []string{f.AddressLine1, sel.WardName, sel.DistrictName, sel.ProvinceName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
