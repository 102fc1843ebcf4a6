// Package rules evaluates segment rule sets against customer records.
package rules

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"campaignhub/internal/models"
)

// Evaluator decides segment membership for customer records.
// It is stateless apart from its clock and safe for concurrent use.
type Evaluator struct {
	now    func() time.Time
	logger logrus.FieldLogger
}

// Option configures an Evaluator
type Option func(*Evaluator)

// WithClock overrides the clock used by older_than
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		e.now = now
	}
}

// NewEvaluator creates a new evaluator
func NewEvaluator(logger logrus.FieldLogger, opts ...Option) *Evaluator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	e := &Evaluator{
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Matches reports whether the customer satisfies every rule in the set.
// An empty set matches nobody.
func (e *Evaluator) Matches(customer *models.Customer, ruleSet models.RuleSet) bool {
	if customer == nil || len(ruleSet) == 0 {
		return false
	}
	now := e.now()
	for _, rule := range ruleSet {
		ok, err := e.evaluate(customer, rule, now)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"customer_id": customer.ID,
				"rule":        rule.String(),
			}).WithError(err).Debug("skipping customer: rule not evaluable")
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}

// CountMatches returns the number of customers matching the rule set
func (e *Evaluator) CountMatches(customers []*models.Customer, ruleSet models.RuleSet) int {
	count := 0
	for _, customer := range customers {
		if e.Matches(customer, ruleSet) {
			count++
		}
	}
	return count
}

// Filter returns the customers matching the rule set, in input order
func (e *Evaluator) Filter(customers []*models.Customer, ruleSet models.RuleSet) []*models.Customer {
	audience := make([]*models.Customer, 0)
	for _, customer := range customers {
		if e.Matches(customer, ruleSet) {
			audience = append(audience, customer)
		}
	}
	return audience
}

// evaluate returns an error when the rule cannot be applied to this customer
func (e *Evaluator) evaluate(customer *models.Customer, rule models.Rule, now time.Time) (bool, error) {
	raw, ok := customer.Attribute(rule.Field)
	if !ok {
		return false, fmt.Errorf("attribute %q missing", rule.Field)
	}

	switch rule.Field.Kind() {
	case models.KindNumeric:
		value, err := toNumber(raw)
		if err != nil {
			return false, err
		}
		return compareNumeric(value, rule)
	case models.KindDate:
		value, err := toTime(raw)
		if err != nil {
			return false, err
		}
		return compareDate(value, rule, now)
	}
	return false, fmt.Errorf("unknown field %q", rule.Field)
}

func compareNumeric(value float64, rule models.Rule) (bool, error) {
	literal, err := models.ParseNumber(rule.Value)
	if err != nil {
		return false, fmt.Errorf("literal %q is not a number", rule.Value)
	}

	switch rule.Operator {
	case models.OpGreaterThan, models.OpGreaterThanWord:
		return value > literal, nil
	case models.OpLessThan:
		return value < literal, nil
	case models.OpEqual:
		return value == literal, nil
	case models.OpOlderThan:
		// numeric attributes are read as a day count
		return value > literal, nil
	}
	return false, fmt.Errorf("unknown operator %q", rule.Operator)
}

func compareDate(value time.Time, rule models.Rule, now time.Time) (bool, error) {
	if rule.Operator == models.OpOlderThan {
		days, err := models.ParseNumber(rule.Value)
		if err != nil {
			return false, fmt.Errorf("literal %q is not a day count", rule.Value)
		}
		// compared in days; a Duration built from a large literal overflows
		elapsedDays := now.Sub(value).Hours() / 24
		return elapsedDays > days, nil
	}

	literal, err := models.ParseDate(rule.Value)
	if err != nil {
		return false, fmt.Errorf("literal %q is not a date", rule.Value)
	}

	switch rule.Operator {
	case models.OpGreaterThan, models.OpGreaterThanWord:
		return value.After(literal), nil
	case models.OpLessThan:
		return value.Before(literal), nil
	case models.OpEqual:
		return sameDay(value, literal), nil
	}
	return false, fmt.Errorf("unknown operator %q", rule.Operator)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func toNumber(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return models.ParseNumber(v)
	}
	return 0, fmt.Errorf("value of type %T is not numeric", raw)
}

func toTime(raw interface{}) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, fmt.Errorf("zero date")
		}
		return v, nil
	case string:
		return models.ParseDate(v)
	}
	return time.Time{}, fmt.Errorf("value of type %T is not a date", raw)
}
