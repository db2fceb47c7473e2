package validation

import "fmt"

// WarningKind classifies a non-fatal problem found while aggregating records.
type WarningKind string

const (
	// MissingReference marks a record pointing at a property that is not in
	// the supplied property set. The record is excluded from totals.
	MissingReference WarningKind = "missing_reference"

	// OverlappingLeases marks two leases on one property whose intervals
	// intersect. Both still contribute income.
	OverlappingLeases WarningKind = "overlapping_leases"

	// UnknownFilter marks a property filter entry that matched no property.
	UnknownFilter WarningKind = "unknown_filter"

	// SkippedRecord marks a record that could not be evaluated and was left
	// out of the totals.
	SkippedRecord WarningKind = "skipped_record"
)

// Warning is a problem the caller should surface but that did not abort the
// computation.
type Warning struct {
	Kind       WarningKind `json:"kind" yaml:"kind"`
	PropertyID string      `json:"propertyId,omitempty" yaml:"propertyId,omitempty"`
	Message    string      `json:"message" yaml:"message"`
}

// String implements fmt.Stringer.
func (w Warning) String() string {
	if w.PropertyID == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", w.Kind, w.PropertyID, w.Message)
}

// MissingReferenceWarning builds the warning for a record whose property does
// not exist.
func MissingReferenceWarning(recordKind, propertyID string) Warning {
	return Warning{
		Kind:       MissingReference,
		PropertyID: propertyID,
		Message:    fmt.Sprintf("%s references unknown property %q and was excluded", recordKind, propertyID),
	}
}

// Messages flattens warnings into strings.
func Messages(warnings []Warning) []string {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, w.String())
	}
	return out
}
