package usecase

import "errors"

const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNameRequired     = "NAME_REQUIRED"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
)

type DomainError struct {
	Code    string
	Message string
	Details []ValidationError
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

func storeUnavailable(err error) error {
	return &TechnicalError{
		Code:    CodeStoreUnavailable,
		Message: "lead store unavailable",
		Err:     err,
	}
}
