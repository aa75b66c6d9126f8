package usecase

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

const (
	maxEmailLength   = 254
	maxPhoneLength   = 50
	maxMessageLength = 5000
	maxSourceLength  = 100
	maxAttrKeyLength = 100
	maxAttrValLength = 500
)

// ValidateSubmission checks a raw submission. requireName is false for the
// upsert contract, where an update may omit the name.
func ValidateSubmission(input SubmitLeadInput, requireName bool) []ValidationError {
	var errors []ValidationError

	name := strings.TrimSpace(input.Name)
	if name == "" {
		if requireName {
			errors = append(errors, ValidationError{"name", "is required"})
		}
	} else if utf8.RuneCountInString(name) > entity.MaxNameLength {
		errors = append(errors, ValidationError{"name", fmt.Sprintf("must not exceed %d characters", entity.MaxNameLength)})
	}

	email := strings.TrimSpace(input.Email)
	if email == "" {
		errors = append(errors, ValidationError{"email", "is required"})
	} else if len(email) > maxEmailLength || !isValidEmail(email) {
		errors = append(errors, ValidationError{"email", "is invalid"})
	}

	if utf8.RuneCountInString(input.Phone) > maxPhoneLength {
		errors = append(errors, ValidationError{"phone", fmt.Sprintf("must not exceed %d characters", maxPhoneLength)})
	}
	if utf8.RuneCountInString(input.Message) > maxMessageLength {
		errors = append(errors, ValidationError{"message", fmt.Sprintf("must not exceed %d characters", maxMessageLength)})
	}

	if strings.TrimSpace(input.Category) != "" {
		if _, err := entity.ParseCategory(input.Category); err != nil {
			errors = append(errors, ValidationError{"category", "must be one of inquiry, complaint, quote-request, other"})
		}
	}
	if input.CategoryTag != nil && utf8.RuneCountInString(strings.TrimSpace(*input.CategoryTag)) > entity.MaxTagLength {
		errors = append(errors, ValidationError{"categoryTag", fmt.Sprintf("must not exceed %d characters", entity.MaxTagLength)})
	}

	if utf8.RuneCountInString(input.Source) > maxSourceLength {
		errors = append(errors, ValidationError{"source", fmt.Sprintf("must not exceed %d characters", maxSourceLength)})
	}
	for k, v := range input.Attribution {
		if utf8.RuneCountInString(k) > maxAttrKeyLength || utf8.RuneCountInString(v) > maxAttrValLength {
			errors = append(errors, ValidationError{"utm", fmt.Sprintf("entry %q is too long", truncate(k, 20))})
		}
	}

	return errors
}

// isValidEmail accepts a bare address only; display names are rejected.
func isValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s && strings.Contains(s[strings.LastIndex(s, "@"):], ".")
}

func validationFailure(errs []ValidationError) error {
	msg := "validation failed: "
	for i, e := range errs {
		if i > 0 {
			msg += ", "
		}
		msg += e.Field + " (" + e.Message + ")"
	}
	return &DomainError{
		Code:    CodeValidation,
		Message: msg,
		Details: errs,
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
