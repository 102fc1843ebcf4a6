package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"campaignhub/internal/models"
)

var placeholderPattern = regexp.MustCompile(`\{[a-zA-Z_]+\}`)

// TemplateService personalizes campaign messages per recipient
type TemplateService struct{}

// NewTemplateService creates a new template service
func NewTemplateService() *TemplateService {
	return &TemplateService{}
}

// placeholderValues maps every supported placeholder to the customer's value.
// Missing values render as an empty string, except {name} which falls back
// to the display name.
func placeholderValues(customer *models.Customer) map[string]string {
	values := map[string]string{
		"{name}":   customer.DisplayName(),
		"{email}":  "",
		"{phone}":  "",
		"{spend}":  "",
		"{visits}": "",
	}
	if customer.Email != nil {
		values["{email}"] = *customer.Email
	}
	if customer.Phone != nil {
		values["{phone}"] = *customer.Phone
	}
	if customer.Spend != nil {
		values["{spend}"] = strconv.FormatFloat(*customer.Spend, 'f', -1, 64)
	}
	if customer.Visits != nil {
		values["{visits}"] = strconv.Itoa(*customer.Visits)
	}
	return values
}

// Render replaces known placeholders with the customer's values.
// Unknown placeholders are left as-is.
func (s *TemplateService) Render(template string, customer *models.Customer) (string, error) {
	if template == "" {
		return "", fmt.Errorf("template cannot be empty")
	}
	if customer == nil {
		return "", fmt.Errorf("customer cannot be nil")
	}

	values := placeholderValues(customer)
	return placeholderPattern.ReplaceAllStringFunc(template, func(placeholder string) string {
		if v, ok := values[placeholder]; ok {
			return v
		}
		return placeholder
	}), nil
}

// ValidateTemplate rejects unbalanced braces and unknown placeholders
func (s *TemplateService) ValidateTemplate(template string) error {
	openCount := strings.Count(template, "{")
	closeCount := strings.Count(template, "}")
	if openCount != closeCount {
		return fmt.Errorf("message has unbalanced braces: %d open, %d close", openCount, closeCount)
	}

	known := placeholderValues(&models.Customer{})
	var unknown []string
	for _, placeholder := range s.GetPlaceholders(template) {
		if _, ok := known[placeholder]; !ok {
			unknown = append(unknown, placeholder)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("message has unknown placeholders: %s", strings.Join(unknown, ", "))
	}

	return nil
}

// GetPlaceholders extracts all placeholders from a template
func (s *TemplateService) GetPlaceholders(template string) []string {
	return placeholderPattern.FindAllString(template, -1)
}
