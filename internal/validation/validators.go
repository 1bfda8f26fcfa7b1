package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

// DayLayout is the calendar day format used in retrieval URLs.
const DayLayout = "2006-01-02"

// MaxLabelLength is the maximum length of a single photo label.
const MaxLabelLength = 100

func init() {
	Validate = validator.New()

	// Register custom validators for domain formats
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("calendar_day", validateCalendarDay); err != nil {
		panic(fmt.Sprintf("failed to register calendar_day validator: %v", err))
	}
}

// validateCalendarDay validates that a string is a YYYY-MM-DD calendar day
func validateCalendarDay(fl validator.FieldLevel) bool {
	_, err := time.Parse(DayLayout, fl.Field().String())
	return err == nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateDay validates a YYYY-MM-DD calendar day string
func ValidateDay(value string) error {
	if _, err := time.Parse(DayLayout, value); err != nil {
		return fmt.Errorf("invalid day: %s (must be YYYY-MM-DD)", value)
	}
	return nil
}

// ValidateLabel validates a single photo label
func ValidateLabel(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("label cannot be empty")
	}
	if len(value) > MaxLabelLength {
		return fmt.Errorf("label exceeds maximum length of %d characters", MaxLabelLength)
	}
	return nil
}
