package enums

// TotalsSource tags where a cart's totals came from when resolved at read
// time: straight from the persisted columns, or recomputed from line items.
type TotalsSource string

const (
	TotalsSourcePersisted  TotalsSource = "persisted"
	TotalsSourceRecomputed TotalsSource = "recomputed"
)

// String implements fmt.Stringer.
func (t TotalsSource) String() string {
	return string(t)
}
