package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Field is a customer attribute a rule can reference
type Field string

const (
	FieldSpend            Field = "spend"
	FieldVisits           Field = "visits"
	FieldInactiveDays     Field = "inactiveDays"
	FieldTotalSpent       Field = "totalSpent"
	FieldLastPurchaseDate Field = "lastPurchaseDate"
)

// FieldKind is the comparable type a field coerces to
type FieldKind int

const (
	KindUnknown FieldKind = iota
	KindNumeric
	KindDate
)

var fieldKinds = map[Field]FieldKind{
	FieldSpend:            KindNumeric,
	FieldVisits:           KindNumeric,
	FieldInactiveDays:     KindNumeric,
	FieldTotalSpent:       KindNumeric,
	FieldLastPurchaseDate: KindDate,
}

// Kind returns the comparable type of the field, KindUnknown if unrecognized
func (f Field) Kind() FieldKind {
	return fieldKinds[f]
}

// IsKnown reports whether the field references a recognized attribute
func (f Field) IsKnown() bool {
	return f.Kind() != KindUnknown
}

// Operator is a rule comparison operator
type Operator string

const (
	OpGreaterThan     Operator = ">"
	OpLessThan        Operator = "<"
	OpEqual           Operator = "="
	OpOlderThan       Operator = "older_than"
	OpGreaterThanWord Operator = "greater_than"
)

// IsValid reports whether the operator is supported
func (o Operator) IsValid() bool {
	switch o {
	case OpGreaterThan, OpLessThan, OpEqual, OpOlderThan, OpGreaterThanWord:
		return true
	}
	return false
}

// Rule is a single comparison against a customer attribute
type Rule struct {
	Field    Field    `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// String renders the rule for logs
func (r Rule) String() string {
	return fmt.Sprintf("%s %s %s", r.Field, r.Operator, r.Value)
}

// Validate checks the rule references a known field, a known operator and
// carries a literal that parses for the field's type
func (r Rule) Validate() error {
	if !r.Field.IsKnown() {
		return fmt.Errorf("unknown field %q", r.Field)
	}
	if !r.Operator.IsValid() {
		return fmt.Errorf("unknown operator %q", r.Operator)
	}
	value := strings.TrimSpace(r.Value)
	if value == "" {
		return fmt.Errorf("value is required for field %q", r.Field)
	}

	// older_than always takes a day count
	if r.Operator == OpOlderThan || r.Field.Kind() == KindNumeric {
		if _, err := ParseNumber(value); err != nil {
			return fmt.Errorf("value %q for %s %s must be a number", r.Value, r.Field, r.Operator)
		}
		return nil
	}

	if _, err := ParseDate(value); err != nil {
		return fmt.Errorf("value %q for %s must be a date (YYYY-MM-DD)", r.Value, r.Field)
	}
	return nil
}

// RuleSet is an ordered list of rules combined with AND
type RuleSet []Rule

// Validate checks the set is non-empty and every rule is valid
func (rs RuleSet) Validate() error {
	if len(rs) == 0 {
		return fmt.Errorf("at least one rule is required")
	}
	for i, rule := range rs {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i+1, err)
		}
	}
	return nil
}

// Value implements driver.Valuer so a RuleSet is stored as JSONB
func (rs RuleSet) Value() (driver.Value, error) {
	if rs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(rs)
}

// Scan implements sql.Scanner for JSONB rule columns
func (rs *RuleSet) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*rs = RuleSet{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into RuleSet", src)
	}
	return json.Unmarshal(data, rs)
}

// ParseNumber parses a rule literal or attribute string as a finite float
func ParseNumber(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return f, nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses a rule literal as a date. Dates without a zone are UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
