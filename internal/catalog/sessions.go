package catalog

import (
	"fmt"

	"github.com/swanstudios/training-storefront/pkg/db/models"
	"github.com/swanstudios/training-storefront/pkg/enums"
	pkgerrors "github.com/swanstudios/training-storefront/pkg/errors"
)

// SessionsFor resolves the training-session count of a catalog entry. It is
// the only place in the codebase allowed to derive session counts; every
// other component must call it.
//
// Fixed packages resolve to SessionsFixed. Recurring packages resolve to the
// precomputed TotalSessions. Rows whose required field is absent or
// non-positive fail with a data-integrity error rather than contributing a
// silent zero, which is exactly how the historical "cart shows 0 sessions"
// drift started.
func SessionsFor(entry *models.CatalogEntry) (int, error) {
	if entry == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDataIntegrity, "invalid catalog entry: nil")
	}

	switch entry.PackageKind {
	case enums.PackageKindFixed:
		if entry.SessionsFixed == nil || *entry.SessionsFixed <= 0 {
			return 0, invalidEntry(entry, "fixed package requires a positive sessions_fixed")
		}
		return *entry.SessionsFixed, nil

	case enums.PackageKindRecurring:
		if entry.TotalSessions <= 0 {
			return 0, invalidEntry(entry, "recurring package requires a positive total_sessions")
		}
		return entry.TotalSessions, nil

	default:
		return 0, invalidEntry(entry, fmt.Sprintf("unknown package kind %q", entry.PackageKind))
	}
}

// ValidateEntry enforces the catalog-authoring invariants before a row is
// written: the kind-specific fields must be present and positive, and
// TotalSessions must agree with them. Paired with SessionsFor this gives
// defense in depth against inconsistent rows reaching carts.
func ValidateEntry(entry *models.CatalogEntry) error {
	if entry == nil {
		return pkgerrors.New(pkgerrors.CodeDataIntegrity, "invalid catalog entry: nil")
	}
	if !entry.PackageKind.IsValid() {
		return invalidEntry(entry, fmt.Sprintf("unknown package kind %q", entry.PackageKind))
	}
	if entry.UnitPrice.IsNegative() {
		return invalidEntry(entry, "unit price cannot be negative")
	}

	switch entry.PackageKind {
	case enums.PackageKindFixed:
		if entry.SessionsFixed == nil || *entry.SessionsFixed <= 0 {
			return invalidEntry(entry, "fixed package requires a positive sessions_fixed")
		}
		if entry.TotalSessions != *entry.SessionsFixed {
			return invalidEntry(entry, "total_sessions must equal sessions_fixed for fixed packages")
		}

	case enums.PackageKindRecurring:
		if entry.SessionsPerInterval == nil || *entry.SessionsPerInterval <= 0 {
			return invalidEntry(entry, "recurring package requires a positive sessions_per_interval")
		}
		if entry.IntervalCount == nil || *entry.IntervalCount <= 0 {
			return invalidEntry(entry, "recurring package requires a positive interval_count")
		}
		if entry.TotalSessions != *entry.SessionsPerInterval**entry.IntervalCount {
			return invalidEntry(entry, "total_sessions must equal sessions_per_interval * interval_count")
		}
	}

	return nil
}

func invalidEntry(entry *models.CatalogEntry, reason string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeDataIntegrity, "invalid catalog entry: "+reason).
		WithDetails(map[string]any{"catalog_entry_id": entry.ID.String()})
}
