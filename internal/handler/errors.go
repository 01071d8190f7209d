package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	customError "github.com/segyhp/loan-engine/pkg/errors"
	"github.com/segyhp/loan-engine/pkg/response"
)

const codeInternal = "INTERNAL_ERROR"

// writeError maps an error returned by the services to an HTTP status.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		response.BadRequest(w, customError.ErrCodeInvalidInput, describeValidation(validationErrs))
		return
	}

	var be *customError.BusinessError
	if !errors.As(err, &be) {
		log.Error("Unhandled error", zap.Error(err))
		response.InternalServerError(w, codeInternal, "Internal server error")
		return
	}

	responderFor(err)(w, be.Code, be.Message)
}

func responderFor(err error) func(w http.ResponseWriter, code, message string) {
	switch {
	case errors.Is(err, customError.ErrInvalidInput),
		errors.Is(err, customError.ErrInvalidRepayment):
		return response.BadRequest
	case errors.Is(err, customError.ErrLoanNotFound),
		errors.Is(err, customError.ErrInstallmentNotFound),
		errors.Is(err, customError.ErrConsumerNotFound):
		return response.NotFound
	case errors.Is(err, customError.ErrInvalidLoanOperation),
		errors.Is(err, customError.ErrConcurrencyConflict):
		return response.Conflict
	default:
		return response.InternalServerError
	}
}

// decodeBody reads a JSON body into dst. An empty body is accepted when
// optional is set.
func decodeBody(r *http.Request, dst interface{}, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return nil
	}
	return customError.WrapInvalidInput("malformed JSON body: " + err.Error())
}

func loanIDParam(r *http.Request) (uuid.UUID, error) {
	raw := mux.Vars(r)["loanId"]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, customError.WrapInvalidInput("invalid loan id " + strconv.Quote(raw))
	}
	return id, nil
}

func installmentNumberParam(r *http.Request) (int, error) {
	raw := mux.Vars(r)["number"]
	number, err := strconv.Atoi(raw)
	if err != nil || number < 1 {
		return 0, customError.WrapInvalidInput("invalid installment number " + strconv.Quote(raw))
	}
	return number, nil
}
