package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/segyhp/loan-engine/internal/repository"
	customError "github.com/segyhp/loan-engine/pkg/errors"
)

// loanStoreError classifies a store error raised while reading or writing a loan.
// Anything the store cannot classify is returned unchanged.
func loanStoreError(err error, loanID uuid.UUID) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return customError.WrapLoanNotFound(loanID.String())
	case errors.Is(err, repository.ErrVersionConflict):
		return customError.WrapConcurrencyConflict("loan", loanID.String())
	default:
		return err
	}
}

func installmentStoreError(err error, loanID uuid.UUID, number int) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return customError.WrapInstallmentNotFound(loanID.String(), number)
	case errors.Is(err, repository.ErrVersionConflict):
		return customError.WrapConcurrencyConflict("installment", fmt.Sprintf("%s#%d", loanID, number))
	default:
		return err
	}
}

func isBusinessError(err error) bool {
	var be *customError.BusinessError
	return errors.As(err, &be)
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
