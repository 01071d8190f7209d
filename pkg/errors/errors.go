package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrLoanNotFound         = errors.New("loan not found")
	ErrInstallmentNotFound  = errors.New("installment not found")
	ErrConsumerNotFound     = errors.New("consumer not found")
	ErrInvalidLoanOperation = errors.New("invalid loan operation")
	ErrInvalidRepayment     = errors.New("invalid repayment")
	ErrConcurrencyConflict  = errors.New("concurrent modification detected")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeInvalidInput         = "INVALID_INPUT"
	ErrCodeLoanNotFound         = "LOAN_NOT_FOUND"
	ErrCodeInstallmentNotFound  = "INSTALLMENT_NOT_FOUND"
	ErrCodeConsumerNotFound     = "CONSUMER_NOT_FOUND"
	ErrCodeInvalidLoanOperation = "INVALID_LOAN_OPERATION"
	ErrCodeInvalidRepayment     = "INVALID_REPAYMENT"
	ErrCodeConcurrencyConflict  = "CONCURRENCY_CONFLICT"
)

// Wrap common errors with business context
func WrapInvalidInput(message string) *BusinessError {
	return NewBusinessError(ErrCodeInvalidInput, message, ErrInvalidInput)
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapInstallmentNotFound(loanID string, installmentNumber int) *BusinessError {
	return NewBusinessError(
		ErrCodeInstallmentNotFound,
		fmt.Sprintf("Installment %d of loan %s not found", installmentNumber, loanID),
		ErrInstallmentNotFound,
	)
}

func WrapConsumerNotFound(consumerID string) *BusinessError {
	return NewBusinessError(
		ErrCodeConsumerNotFound,
		fmt.Sprintf("Consumer with ID %s not found", consumerID),
		ErrConsumerNotFound,
	)
}

func WrapInvalidLoanOperation(message string) *BusinessError {
	return NewBusinessError(ErrCodeInvalidLoanOperation, message, ErrInvalidLoanOperation)
}

func WrapInvalidRepayment(message string) *BusinessError {
	return NewBusinessError(ErrCodeInvalidRepayment, message, ErrInvalidRepayment)
}

func WrapConcurrencyConflict(entity, id string) *BusinessError {
	return NewBusinessError(
		ErrCodeConcurrencyConflict,
		fmt.Sprintf("%s %s was modified concurrently, reload and retry", entity, id),
		ErrConcurrencyConflict,
	)
}

// Code extracts the business error code, or "" for errors that carry none.
func Code(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
