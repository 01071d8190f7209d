package handler

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segyhp/loan-engine/internal/domain"
	customError "github.com/segyhp/loan-engine/pkg/errors"
	"github.com/segyhp/loan-engine/pkg/logger"
	"github.com/segyhp/loan-engine/pkg/response"
)

// LoanManager is the loan lifecycle surface the HTTP layer drives.
type LoanManager interface {
	CalculateAmortization(principal, annualRatePercent decimal.Decimal, tenureMonths int) (*domain.AmortizationResult, error)
	CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, error)
	ApproveLoan(ctx context.Context, loanID uuid.UUID, remarks string) (*domain.Loan, error)
	RejectLoan(ctx context.Context, loanID uuid.UUID, reason string) (*domain.Loan, error)
	DisburseLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error)
	CloseLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error)
	GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error)
	ListLoansByConsumer(ctx context.Context, consumerID string) ([]*domain.Loan, error)
	ListActiveLoansByConsumer(ctx context.Context, consumerID string) ([]*domain.Loan, error)
	ListLoansByStatus(ctx context.Context, status string) ([]*domain.Loan, error)
}

type LoanHandler struct {
	loans     LoanManager
	validator *validator.Validate
	logger    *zap.Logger
}

func NewLoanHandler(loans LoanManager, log *zap.Logger) *LoanHandler {
	return &LoanHandler{
		loans:     loans,
		validator: NewValidator(),
		logger:    logger.OrNop(log).Named("loan_handler"),
	}
}

// CalculateAmortization handles POST /emi/calculate
func (h *LoanHandler) CalculateAmortization(w http.ResponseWriter, r *http.Request) {
	var req domain.CalculateAmortizationRequest
	if err := h.decodeAndValidate(r, &req, false); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.loans.CalculateAmortization(req.PrincipalAmount, req.AnnualInterestRate, req.TenureMonths)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, result)
}

// CreateLoan handles POST /loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLoanRequest
	if err := h.decodeAndValidate(r, &req, false); err != nil {
		writeError(w, h.logger, err)
		return
	}

	loan, err := h.loans.CreateLoan(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Created(w, loan)
}

// GetLoan handles GET /loans/{loanId}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := loanIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	loan, err := h.loans.GetLoan(r.Context(), loanID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, loan)
}

// ListLoans handles GET /loans?consumerId=&status=
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	consumerID := r.URL.Query().Get("consumerId")
	status := r.URL.Query().Get("status")

	var (
		loans []*domain.Loan
		err   error
	)
	switch {
	case consumerID != "":
		loans, err = h.loans.ListLoansByConsumer(r.Context(), consumerID)
		if err == nil && status != "" {
			loans, err = filterByStatus(loans, status)
		}
	case status != "":
		loans, err = h.loans.ListLoansByStatus(r.Context(), status)
	default:
		err = customError.WrapInvalidInput("consumerId or status query parameter is required")
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, loans)
}

// ListActiveLoans handles GET /loans/consumer/{consumerId}/active
func (h *LoanHandler) ListActiveLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.loans.ListActiveLoansByConsumer(r.Context(), mux.Vars(r)["consumerId"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, loans)
}

// ApproveLoan handles PUT /loans/{loanId}/approve
func (h *LoanHandler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	var req domain.ApproveLoanRequest
	h.transition(w, r, &req, func(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
		return h.loans.ApproveLoan(ctx, id, req.Remarks)
	})
}

// RejectLoan handles PUT /loans/{loanId}/reject
func (h *LoanHandler) RejectLoan(w http.ResponseWriter, r *http.Request) {
	var req domain.RejectLoanRequest
	h.transition(w, r, &req, func(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
		return h.loans.RejectLoan(ctx, id, req.Reason)
	})
}

// DisburseLoan handles PUT /loans/{loanId}/disburse
func (h *LoanHandler) DisburseLoan(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, nil, h.loans.DisburseLoan)
}

// CloseLoan handles PUT /loans/{loanId}/close
func (h *LoanHandler) CloseLoan(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, nil, h.loans.CloseLoan)
}

func (h *LoanHandler) transition(w http.ResponseWriter, r *http.Request, body interface{},
	apply func(ctx context.Context, id uuid.UUID) (*domain.Loan, error)) {
	loanID, err := loanIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if body != nil {
		if err := h.decodeAndValidate(r, body, true); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}

	loan, err := apply(r.Context(), loanID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, loan)
}

func (h *LoanHandler) decodeAndValidate(r *http.Request, dst interface{}, optional bool) error {
	if err := decodeBody(r, dst, optional); err != nil {
		return err
	}
	return h.validator.Struct(dst)
}

func filterByStatus(loans []*domain.Loan, raw string) ([]*domain.Loan, error) {
	status, err := domain.ParseLoanStatus(raw)
	if err != nil {
		return nil, err
	}
	filtered := make([]*domain.Loan, 0, len(loans))
	for _, loan := range loans {
		if loan.Status == status {
			filtered = append(filtered, loan)
		}
	}
	return filtered, nil
}
