package handler

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/segyhp/loan-engine/internal/domain"
	"github.com/segyhp/loan-engine/pkg/logger"
	"github.com/segyhp/loan-engine/pkg/response"
)

// RepaymentManager is the installment surface the HTTP layer drives.
type RepaymentManager interface {
	PayInstallment(ctx context.Context, request *domain.PayInstallmentRequest) (*domain.RepaymentResult, error)
	GetInstallment(ctx context.Context, loanID uuid.UUID, number int) (*domain.Installment, error)
	ListInstallments(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error)
	ListInstallmentsByStatus(ctx context.Context, loanID uuid.UUID, status string) ([]*domain.Installment, error)
	ListOverdueInstallments(ctx context.Context) ([]*domain.Installment, error)
}

type RepaymentHandler struct {
	repayments RepaymentManager
	validator  *validator.Validate
	logger     *zap.Logger
}

func NewRepaymentHandler(repayments RepaymentManager, log *zap.Logger) *RepaymentHandler {
	return &RepaymentHandler{
		repayments: repayments,
		validator:  NewValidator(),
		logger:     logger.OrNop(log).Named("repayment_handler"),
	}
}

// PayInstallment handles POST /loans/{loanId}/installments/{number}/pay
func (h *RepaymentHandler) PayInstallment(w http.ResponseWriter, r *http.Request) {
	loanID, err := loanIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	number, err := installmentNumberParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req domain.PayInstallmentRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	req.LoanID = loanID
	req.InstallmentNumber = number

	result, err := h.repayments.PayInstallment(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, result)
}

// GetInstallment handles GET /loans/{loanId}/installments/{number}
func (h *RepaymentHandler) GetInstallment(w http.ResponseWriter, r *http.Request) {
	loanID, err := loanIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	number, err := installmentNumberParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	installment, err := h.repayments.GetInstallment(r.Context(), loanID, number)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, installment)
}

// ListInstallments handles GET /loans/{loanId}/installments[?status=]
func (h *RepaymentHandler) ListInstallments(w http.ResponseWriter, r *http.Request) {
	loanID, err := loanIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var installments []*domain.Installment
	if status := r.URL.Query().Get("status"); status != "" {
		installments, err = h.repayments.ListInstallmentsByStatus(r.Context(), loanID, status)
	} else {
		installments, err = h.repayments.ListInstallments(r.Context(), loanID)
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, domain.ScheduleResponse{LoanID: loanID, Installments: installments})
}

// ListOverdueInstallments handles GET /installments/overdue
func (h *RepaymentHandler) ListOverdueInstallments(w http.ResponseWriter, r *http.Request) {
	installments, err := h.repayments.ListOverdueInstallments(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, installments)
}
