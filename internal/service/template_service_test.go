package service

import (
	"testing"

	"campaignhub/internal/models"
	"campaignhub/internal/testutil"
)

// TestTemplateRendering_AllFields verifies every supported placeholder is replaced
func TestTemplateRendering_AllFields(t *testing.T) {
	templateSvc := NewTemplateService()
	customer := testutil.NewTestCustomer(1, 1250.5, 3)
	customer.Email = testutil.StringPtr("one@example.com")
	customer.Visits = testutil.IntPtr(7)

	result, err := templateSvc.Render("Hi {name} ({email}), {visits} visits and {spend} spent. Reply to {phone}", customer)

	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, result, "Hi Customer 1 (one@example.com), 7 visits and 1250.5 spent. Reply to +254700000001")
}

// TestTemplateRendering_NullFields replaces missing values with empty strings
func TestTemplateRendering_NullFields(t *testing.T) {
	templateSvc := NewTemplateService()

	result, err := templateSvc.Render("Hi {name}, your email is {email}.", &models.Customer{ID: 4})

	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, result, "Hi Customer, your email is .")
}

func TestTemplateRendering_UnknownPlaceholderKept(t *testing.T) {
	result, err := NewTemplateService().Render("Use code {promo_code}", testutil.NewTestCustomer(1, 1, 1))

	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, result, "Use code {promo_code}")
}

func TestTemplateRendering_Errors(t *testing.T) {
	templateSvc := NewTemplateService()

	_, err := templateSvc.Render("", testutil.NewTestCustomer(1, 1, 1))
	testutil.AssertError(t, err, "template cannot be empty")

	_, err = templateSvc.Render("hi", nil)
	testutil.AssertError(t, err, "customer cannot be nil")
}

func TestValidateTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		wantErr  string
	}{
		{name: "plain text", template: "20% off this week"},
		{name: "known placeholders", template: "Hi {name}, reply to {phone}"},
		{name: "unbalanced", template: "Hi {name", wantErr: "message has unbalanced braces: 1 open, 0 close"},
		{name: "unknown placeholder", template: "Hi {first_name}", wantErr: "message has unknown placeholders: {first_name}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTemplateService().ValidateTemplate(tt.template)
			if tt.wantErr == "" {
				testutil.AssertNoError(t, err)
				return
			}
			testutil.AssertError(t, err, tt.wantErr)
		})
	}
}

func TestGetPlaceholders(t *testing.T) {
	got := NewTemplateService().GetPlaceholders("{name} bought {spend} worth, {name}!")

	testutil.AssertEqual(t, got, []string{"{name}", "{spend}", "{name}"})
}
