package rules_test

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"campaignhub/internal/models"
	"campaignhub/internal/rules"
	"campaignhub/internal/testutil"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestEvaluator(t *testing.T) (*rules.Evaluator, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return rules.NewEvaluator(logger, rules.WithClock(func() time.Time { return fixedNow })), hook
}

func TestMatches_SpendAndInactivityExample(t *testing.T) {
	evaluator, _ := newTestEvaluator(t)

	ruleSet := models.RuleSet{
		{Field: "spend", Operator: ">", Value: "1000"},
		{Field: "inactiveDays", Operator: ">", Value: "30"},
	}
	customers := []*models.Customer{
		testutil.NewTestCustomer(1, 1500, 40),
		testutil.NewTestCustomer(2, 500, 50),
	}

	audience := evaluator.Filter(customers, ruleSet)
	testutil.AssertEqual(t, len(audience), 1)
	testutil.AssertEqual(t, audience[0].ID, 1)
	testutil.AssertEqual(t, evaluator.CountMatches(customers, ruleSet), 1)
}

func TestMatches_Operators(t *testing.T) {
	evaluator, _ := newTestEvaluator(t)

	customer := testutil.NewTestCustomer(7, 1000, 45)
	customer.Visits = testutil.IntPtr(3)
	customer.TotalSpent = testutil.FloatPtr(2500.5)
	customer.LastPurchaseDate = testutil.TimePtr(time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC))

	tests := []struct {
		name string
		rule models.Rule
		want bool
	}{
		{"greater than false on equal", models.Rule{Field: "spend", Operator: ">", Value: "1000"}, false},
		{"greater_than word", models.Rule{Field: "totalSpent", Operator: "greater_than", Value: "2500"}, true},
		{"less than", models.Rule{Field: "visits", Operator: "<", Value: "5"}, true},
		{"less than false on equal", models.Rule{Field: "visits", Operator: "<", Value: "3"}, false},
		{"numeric equality", models.Rule{Field: "spend", Operator: "=", Value: "1000.0"}, true},
		{"numeric older_than reads day count", models.Rule{Field: "inactiveDays", Operator: "older_than", Value: "30"}, true},
		{"date after", models.Rule{Field: "lastPurchaseDate", Operator: ">", Value: "2024-01-01"}, true},
		{"date before", models.Rule{Field: "lastPurchaseDate", Operator: "<", Value: "2024-01-01"}, false},
		{"date same day", models.Rule{Field: "lastPurchaseDate", Operator: "=", Value: "2024-01-15"}, true},
		{"date older_than 90 days", models.Rule{Field: "lastPurchaseDate", Operator: "older_than", Value: "90"}, true},
		{"date not older_than 200 days", models.Rule{Field: "lastPurchaseDate", Operator: "older_than", Value: "200"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluator.Matches(customer, models.RuleSet{tt.rule})
			testutil.AssertEqual(t, got, tt.want)
		})
	}
}

func TestMatches_OlderThanHugeDayCount(t *testing.T) {
	evaluator, _ := newTestEvaluator(t)

	customer := testutil.NewTestCustomer(1, 100, 1)
	customer.LastPurchaseDate = testutil.TimePtr(fixedNow.Add(-36 * time.Hour))

	for _, days := range []string{"1", "200000", "1e9", "1e300"} {
		t.Run(days, func(t *testing.T) {
			rule := models.Rule{Field: "lastPurchaseDate", Operator: "older_than", Value: days}
			testutil.AssertEqual(t, evaluator.Matches(customer, models.RuleSet{rule}), days == "1")
		})
	}
}

func TestMatches_NonFiniteLiteralMatchesNobody(t *testing.T) {
	evaluator, _ := newTestEvaluator(t)

	customer := testutil.NewTestCustomer(1, 100, 1)
	customer.LastPurchaseDate = testutil.TimePtr(fixedNow.Add(-36 * time.Hour))

	for _, rule := range []models.Rule{
		{Field: "lastPurchaseDate", Operator: "older_than", Value: "Inf"},
		{Field: "lastPurchaseDate", Operator: "older_than", Value: "-Inf"},
		{Field: "spend", Operator: "<", Value: "NaN"},
		{Field: "spend", Operator: "<", Value: "+Inf"},
	} {
		t.Run(rule.String(), func(t *testing.T) {
			testutil.AssertEqual(t, evaluator.Matches(customer, models.RuleSet{rule}), false)
		})
	}
}

func TestMatches_MissingAttributeExcludesAndLogs(t *testing.T) {
	evaluator, hook := newTestEvaluator(t)

	customer := testutil.NewTestCustomer(3, 2000, 10)
	customer.LastPurchaseDate = nil

	ok := evaluator.Matches(customer, models.RuleSet{
		{Field: "lastPurchaseDate", Operator: "older_than", Value: "30"},
	})

	testutil.AssertEqual(t, ok, false)
	entry := hook.LastEntry()
	testutil.AssertNotNil(t, entry)
	testutil.AssertEqual(t, entry.Level, logrus.DebugLevel)
	testutil.AssertEqual(t, entry.Data["customer_id"], 3)
}

func TestMatches_BadLiteralDoesNotAbortEvaluation(t *testing.T) {
	evaluator, _ := newTestEvaluator(t)

	customers := testutil.NewTestCustomers(5)
	bad := models.RuleSet{{Field: "spend", Operator: ">", Value: "lots"}}

	// every customer is skipped, none panic or error
	testutil.AssertEqual(t, evaluator.CountMatches(customers, bad), 0)
}

func TestMatches_EmptyRuleSetMatchesNobody(t *testing.T) {
	evaluator, _ := newTestEvaluator(t)

	testutil.AssertEqual(t, evaluator.Matches(testutil.NewTestCustomer(1, 10, 1), nil), false)
	testutil.AssertEqual(t, evaluator.Matches(nil, models.RuleSet{{Field: "spend", Operator: ">", Value: "1"}}), false)
}

func TestCountMatches_EqualsIndependentPredicateCount(t *testing.T) {
	evaluator, _ := newTestEvaluator(t)

	customers := testutil.NewTestCustomers(50)
	customers[4].Spend = nil
	customers[9].InactiveDays = nil

	ruleSets := []models.RuleSet{
		{{Field: "spend", Operator: ">", Value: "1000"}},
		{{Field: "spend", Operator: "<", Value: "2500"}, {Field: "inactiveDays", Operator: ">", Value: "100"}},
		{{Field: "inactiveDays", Operator: "=", Value: "200"}},
		{{Field: "visits", Operator: ">", Value: "0"}},
	}

	for _, rs := range ruleSets {
		want := 0
		for _, c := range customers {
			if evaluator.Matches(c, rs) {
				want++
			}
		}
		testutil.AssertEqual(t, evaluator.CountMatches(customers, rs), want)
		testutil.AssertEqual(t, len(evaluator.Filter(customers, rs)), want)
		// repeated preview with unchanged input is stable
		testutil.AssertEqual(t, evaluator.CountMatches(customers, rs), want)
	}
}
