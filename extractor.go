package sensorbridge

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"
)

// Extractor turns the device's free-text status page into a [Reading].
//
// An Extractor evaluates a fixed set of independent [Rule] values against the
// text. Each rule owns its default and its failure: a rule that does not
// match, fails to parse, or panics leaves only its own field at zero. The
// remaining fields are still populated.
//
// Extractor is safe for concurrent use; it holds no mutable state.
type Extractor struct {
	rules  []Rule
	logger *slog.Logger
}

// NewExtractor creates an Extractor from rules. With no rules,
// [DefaultRules] are used. A nil logger falls back to [slog.Default].
//
// Returns an error if two rules target the same field.
func NewExtractor(logger *slog.Logger, rules ...Rule) (*Extractor, error) {
	if len(rules) == 0 {
		rules = DefaultRules()
	}

	seen := make(map[Field]bool, len(rules))
	for _, r := range rules {
		if !r.field.Valid() {
			return nil, errors.New("rule has no field; construct rules with NewRule")
		}
		if seen[r.field] {
			return nil, fmt.Errorf("duplicate rule for field %q", r.field)
		}
		seen[r.field] = true
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Extractor{
		rules:  bounded(rules),
		logger: logger,
	}, nil
}

// defaultExtractor backs the package-level [Extract].
var defaultExtractor = &Extractor{rules: bounded(DefaultRules())}

// Extract parses raw with the default rules, logging field failures to
// [slog.Default]. See [Extractor.Extract].
func Extract(raw string) Reading {
	return defaultExtractor.Extract(raw)
}

// Rules returns a copy of the extractor's rules.
func (e *Extractor) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Extract parses raw into a Reading. It never fails: fields that cannot be
// extracted keep their zero default and the reason is logged. Missing fields
// log at debug level, unparseable or panicking rules at warn level.
func (e *Extractor) Extract(raw string) Reading {
	reading, results := e.ExtractFields(raw)

	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}
	LogFieldResults(logger, results)

	return reading
}

// ExtractFields parses raw and also returns the per-rule outcomes, in rule
// order. It does not log; callers decide how to surface failures.
func (e *Extractor) ExtractFields(raw string) (Reading, []FieldResult) {
	var reading Reading
	results := make([]FieldResult, 0, len(e.rules))

	for _, rule := range e.rules {
		result := e.apply(rule, raw, &reading)
		results = append(results, result)
	}

	return reading, results
}

// apply runs one rule inside its own recovery boundary so that a panic in
// one rule cannot discard what sibling rules already extracted.
func (e *Extractor) apply(rule Rule, raw string, reading *Reading) (result FieldResult) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()

			logger := e.logger
			if logger == nil {
				logger = slog.Default()
			}
			logger.Error("extraction rule panic",
				"correlation_id", correlationID,
				"field", string(rule.field),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)

			result = FieldResult{
				Field: rule.field,
				Err:   &FieldError{Field: rule.field, CorrelationID: correlationID, Err: ErrFieldPanic},
			}
		}
	}()

	result = rule.Apply(raw)
	if result.OK() {
		next := *reading
		assign(&next, result)
		*reading = next
	}
	return result
}

// LogFieldResults writes one log record per failed field.
func LogFieldResults(logger *slog.Logger, results []FieldResult) {
	for _, r := range results {
		if r.OK() {
			continue
		}

		var fe *FieldError
		if errors.As(r.Err, &fe) && fe.Reason() == "missing" {
			logger.Debug("field not found, using default", "field", string(r.Field))
			continue
		}
		logger.Warn("field extraction failed, using default", "field", string(r.Field), "error", r.Err.Error())
	}
}
