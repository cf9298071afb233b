package enums

import "fmt"

// PackageKind distinguishes one-off session bundles from interval-based plans.
type PackageKind string

const (
	PackageKindFixed     PackageKind = "fixed"
	PackageKindRecurring PackageKind = "recurring"
)

var validPackageKinds = []PackageKind{
	PackageKindFixed,
	PackageKindRecurring,
}

// String implements fmt.Stringer.
func (p PackageKind) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PackageKind.
func (p PackageKind) IsValid() bool {
	for _, candidate := range validPackageKinds {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePackageKind converts raw input into a PackageKind.
func ParsePackageKind(value string) (PackageKind, error) {
	for _, candidate := range validPackageKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid package kind %q", value)
}
