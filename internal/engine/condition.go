package engine

import "strings"

// ConditionType is the clinical category that selects the feature subset and
// severity rules applied to a patient.
type ConditionType string

const (
	Diabetes     ConditionType = "diabetes"
	HeartFailure ConditionType = "heart_failure"
)

// ResolveCondition maps free-text problem type input to a ConditionType.
// Anything containing "diab" is Diabetes; everything else, including empty or
// ambiguous input, resolves to HeartFailure.
func ResolveCondition(raw string) ConditionType {
	s := strings.ToLower(strings.TrimSpace(raw))
	if strings.Contains(s, "diab") {
		return Diabetes
	}
	return HeartFailure
}

// Label returns the human-readable condition name used in responses and reports.
func (c ConditionType) Label() string {
	if c == Diabetes {
		return "Diabetes"
	}
	return "Heart Failure"
}

// String implements fmt.Stringer.
func (c ConditionType) String() string {
	return string(c)
}
