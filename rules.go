package sensorbridge

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Field identifies one quantity of a [Reading].
type Field string

const (
	FieldAccelerometer Field = "accelerometer"
	FieldGyroscope     Field = "gyroscope"
	FieldTemperature   Field = "temperature"
	FieldPostureAngle  Field = "posture_angle"
	FieldPitchAngle    Field = "pitch_angle"
	FieldRollAngle     Field = "roll_angle"
)

// Fields lists every field in Reading order.
var Fields = []Field{
	FieldAccelerometer,
	FieldGyroscope,
	FieldTemperature,
	FieldPostureAngle,
	FieldPitchAngle,
	FieldRollAngle,
}

// Arity returns how many numbers the field carries: 3 for vectors, 1 for
// scalars, 0 for an unknown field.
func (f Field) Arity() int {
	switch f {
	case FieldAccelerometer, FieldGyroscope:
		return 3
	case FieldTemperature, FieldPostureAngle, FieldPitchAngle, FieldRollAngle:
		return 1
	default:
		return 0
	}
}

// Valid reports whether f is one of the known fields.
func (f Field) Valid() bool {
	return f.Arity() > 0
}

// DefaultLabels maps each field to the label the stock firmware prints.
var DefaultLabels = map[Field]string{
	FieldAccelerometer: "Accelerometer",
	FieldGyroscope:     "Gyroscope",
	FieldTemperature:   "Temperature",
	FieldPostureAngle:  "Posture Angle",
	FieldPitchAngle:    "Pitch Angle",
	FieldRollAngle:     "Roll Angle",
}

var (
	// ErrFieldMissing means the rule's label and numbers were not found.
	ErrFieldMissing = errors.New("field not found")

	// ErrFieldInvalid means the rule matched but a captured number did not parse.
	ErrFieldInvalid = errors.New("invalid number")

	// ErrFieldPanic means applying the rule panicked and was recovered.
	ErrFieldPanic = errors.New("rule panicked")
)

// FieldError reports why a single field fell back to its default.
type FieldError struct {
	// Field is the field that could not be extracted.
	Field Field

	// Raw is the captured text that failed to parse, if any.
	Raw string

	// CorrelationID is set when the rule panicked; the stack trace is logged
	// under the same ID.
	CorrelationID string

	// Err wraps one of ErrFieldMissing, ErrFieldInvalid or ErrFieldPanic.
	Err error
}

func (e *FieldError) Error() string {
	switch {
	case e.CorrelationID != "":
		return fmt.Sprintf("%s: %v (correlation_id: %s)", e.Field, e.Err, e.CorrelationID)
	case e.Raw != "":
		return fmt.Sprintf("%s: %v %q", e.Field, e.Err, e.Raw)
	default:
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Reason is a short label for the failure kind, suitable for metrics.
func (e *FieldError) Reason() string {
	switch {
	case errors.Is(e.Err, ErrFieldPanic):
		return "panic"
	case errors.Is(e.Err, ErrFieldInvalid):
		return "invalid"
	default:
		return "missing"
	}
}

// FieldResult is the outcome of one rule: either the parsed values or an error.
type FieldResult struct {
	Field  Field
	Values []float64
	Err    error
}

// OK reports whether the rule produced values.
func (r FieldResult) OK() bool {
	return r.Err == nil
}

// number captures a signed decimal loosely; strconv.ParseFloat decides
// whether it is actually valid.
const number = `([-+]?[0-9.]+)`

// Rule extracts one field from free-form text by locating its label and the
// numbers that follow it on the same line.
//
// Vector rules look for "<label> ... X=<n> ... Y=<n> ... Z=<n>"; scalar rules
// look for "<label> ... : <n>" or "<label> ... = <n>". A scalar needs one of
// those separators right before its value, so "Temperature 24.5" does not
// match. Any other text may sit between the label and the numbers, so unit
// suffixes such as "(m/s²)" or "[Z-axis mapping]" do not break matching. The
// first occurrence in the text wins.
//
// Inside an [Extractor] a rule never reads past another rule's label: on a
// page joined into a single line, a field missing its numbers stays missing
// instead of taking its neighbour's. A single trailing '.' after a number is
// treated as punctuation.
//
// Rule is immutable after creation via [NewRule].
type Rule struct {
	field   Field
	label   string
	pattern *regexp.Regexp

	// stops are the labels of sibling rules the match must not span.
	stops []string
}

// NewRule compiles a rule for field anchored on label.
//
// Returns an error if the field is unknown or the label is empty.
func NewRule(field Field, label string) (Rule, error) {
	if !field.Valid() {
		return Rule{}, fmt.Errorf("unknown field %q", field)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return Rule{}, fmt.Errorf("field %q: label cannot be empty", field)
	}

	quoted := regexp.QuoteMeta(label)
	var expr string
	if field.Arity() == 3 {
		expr = quoted + `[^\n]*?X=[ \t]*` + number + `[^\n]*?Y=[ \t]*` + number + `[^\n]*?Z=[ \t]*` + number
	} else {
		expr = quoted + `[^\n]*?[:=][ \t]*` + number
	}

	pattern, err := regexp.Compile(expr)
	if err != nil {
		return Rule{}, fmt.Errorf("field %q: %w", field, err)
	}

	return Rule{field: field, label: label, pattern: pattern}, nil
}

// MustRule is like [NewRule] but panics on error. Use it for constant labels.
func MustRule(field Field, label string) Rule {
	r, err := NewRule(field, label)
	if err != nil {
		panic("sensorbridge: " + err.Error())
	}
	return r
}

// Field returns the field this rule populates.
func (r Rule) Field() Field {
	return r.field
}

// Label returns the text the rule anchors on.
func (r Rule) Label() string {
	return r.label
}

// Apply searches text for the rule's first match and parses its numbers.
// Apply never panics on well-formed rules and never returns partial values:
// either all numbers of the field parse or the result carries an error.
func (r Rule) Apply(text string) FieldResult {
	result := FieldResult{Field: r.field}

	groups := r.find(text)
	if groups == nil {
		result.Err = &FieldError{Field: r.field, Err: ErrFieldMissing}
		return result
	}

	values := make([]float64, 0, len(groups))
	for _, raw := range groups {
		v, err := parseNumber(raw)
		if err != nil {
			result.Err = &FieldError{Field: r.field, Raw: raw, Err: fmt.Errorf("%w: %w", ErrFieldInvalid, err)}
			return result
		}
		values = append(values, v)
	}

	result.Values = values
	return result
}

// find returns the captured numbers of the first match that does not cross a
// sibling label, or nil.
func (r Rule) find(text string) []string {
	for offset := 0; offset < len(text); {
		loc := r.pattern.FindStringSubmatchIndex(text[offset:])
		if loc == nil {
			return nil
		}

		// between the end of the label and the start of the last number
		span := text[offset+loc[0]+len(r.label) : offset+loc[len(loc)-2]]
		if !r.crossesStop(span) {
			groups := make([]string, 0, len(loc)/2-1)
			for i := 2; i < len(loc); i += 2 {
				groups = append(groups, text[offset+loc[i]:offset+loc[i+1]])
			}
			return groups
		}

		offset += loc[0] + 1
	}
	return nil
}

func (r Rule) crossesStop(span string) bool {
	for _, stop := range r.stops {
		if strings.Contains(span, stop) {
			return true
		}
	}
	return false
}

// parseNumber parses a captured number, allowing one trailing '.' of
// sentence punctuation ("24.5.").
func parseNumber(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err == nil {
		return v, nil
	}
	if trimmed, ok := strings.CutSuffix(raw, "."); ok && trimmed != "" {
		if v, terr := strconv.ParseFloat(trimmed, 64); terr == nil {
			return v, nil
		}
	}
	return 0, err
}

// bounded returns copies of rules in which every rule stops at the labels of
// the others.
func bounded(rules []Rule) []Rule {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		var stops []string
		for j, other := range rules {
			if j != i && other.label != "" && other.label != r.label {
				stops = append(stops, other.label)
			}
		}
		r.stops = stops
		out[i] = r
	}
	return out
}

// DefaultRules returns one rule per field using [DefaultLabels].
func DefaultRules() []Rule {
	rules := make([]Rule, 0, len(Fields))
	for _, f := range Fields {
		rules = append(rules, MustRule(f, DefaultLabels[f]))
	}
	return rules
}

// RulesWithLabels returns the default rules with the labels in overrides
// replacing the stock ones. Unknown fields in overrides are an error.
func RulesWithLabels(overrides map[Field]string) ([]Rule, error) {
	for f := range overrides {
		if !f.Valid() {
			return nil, fmt.Errorf("unknown field %q", f)
		}
	}

	rules := make([]Rule, 0, len(Fields))
	for _, f := range Fields {
		label := DefaultLabels[f]
		if override, ok := overrides[f]; ok {
			label = override
		}
		r, err := NewRule(f, label)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// assign copies a successful result into the matching Reading field.
func assign(reading *Reading, result FieldResult) {
	v := result.Values
	switch result.Field {
	case FieldAccelerometer:
		reading.Accelerometer = Vector{X: v[0], Y: v[1], Z: v[2]}
	case FieldGyroscope:
		reading.Gyroscope = Vector{X: v[0], Y: v[1], Z: v[2]}
	case FieldTemperature:
		reading.Temperature = v[0]
	case FieldPostureAngle:
		reading.PostureAngle = v[0]
	case FieldPitchAngle:
		reading.PitchAngle = v[0]
	case FieldRollAngle:
		reading.RollAngle = v[0]
	}
}
