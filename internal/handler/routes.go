package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the API under /api/v1 on router.
func RegisterRoutes(router *mux.Router, loans *LoanHandler, repayments *RepaymentHandler) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/emi/calculate", loans.CalculateAmortization).Methods(http.MethodPost)

	api.HandleFunc("/loans", loans.CreateLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans", loans.ListLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans/consumer/{consumerId}/active", loans.ListActiveLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}", loans.GetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/approve", loans.ApproveLoan).Methods(http.MethodPut)
	api.HandleFunc("/loans/{loanId}/reject", loans.RejectLoan).Methods(http.MethodPut)
	api.HandleFunc("/loans/{loanId}/disburse", loans.DisburseLoan).Methods(http.MethodPut)
	api.HandleFunc("/loans/{loanId}/close", loans.CloseLoan).Methods(http.MethodPut)

	api.HandleFunc("/loans/{loanId}/installments", repayments.ListInstallments).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/installments/{number}", repayments.GetInstallment).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/installments/{number}/pay", repayments.PayInstallment).Methods(http.MethodPost)

	api.HandleFunc("/installments/overdue", repayments.ListOverdueInstallments).Methods(http.MethodGet)
}
