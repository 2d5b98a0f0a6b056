package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Inbound field names shared by every endpoint that accepts a patient record.
const (
	FieldPatientID      = "Patient ID"
	FieldPatientName    = "Patient Name"
	FieldProblemType    = "Problem Type"
	FieldSimulationDate = "Simulation Date"
	FieldHospitalUnit   = "Hospital Unit"
	FieldAdmissionDate  = "Admission Date"
	FieldDischargeDate  = "Discharge Date"
)

// PatientRecord is a loosely typed input record: field name to raw value
// (string, number, bool or nil). It is never mutated by the engine.
type PatientRecord map[string]any

// Raw returns the value stored under field and whether it was present.
func (r PatientRecord) Raw(field string) (any, bool) {
	v, ok := r[field]
	return v, ok
}

// Text returns the trimmed string form of field, or def when it is missing or nil.
func (r PatientRecord) Text(field, def string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return def
	}
	s := strings.TrimSpace(stringify(v))
	if s == "" {
		return def
	}
	return s
}

// Float coerces field to a float64, substituting def when the value is
// missing, empty, textually nan/none/null, or otherwise unparseable.
func (r PatientRecord) Float(field string, def float64) float64 {
	f, ok := r.Number(field)
	if !ok {
		return def
	}
	return f
}

// Number coerces field to a float64 and reports whether coercion succeeded.
func (r PatientRecord) Number(field string) (float64, bool) {
	v, ok := r[field]
	if !ok {
		return 0, false
	}
	return ParseFloat(v)
}

// ParseFloat converts an arbitrary raw value to a float64.
func ParseFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	}

	s := strings.TrimSpace(stringify(v))
	switch strings.ToLower(s) {
	case "", "nan", "none", "null":
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return finite(f)
}

// CoerceFloat is ParseFloat with a default for failed coercion.
func CoerceFloat(v any, def float64) float64 {
	if f, ok := ParseFloat(v); ok {
		return f
	}
	return def
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}
