package domain

// Eligibility holds the consumer facts checked before a loan may be created.
type Eligibility struct {
	KYCVerified        bool `json:"kyc_verified" db:"kyc_verified"`
	Active             bool `json:"active" db:"active"`
	HasVerifiedAccount bool `json:"has_verified_account" db:"has_verified_account"`
	HasActiveLoan      bool `json:"has_active_loan" db:"has_active_loan"`
}

// Violation returns the first failed precondition, or "" when eligible.
func (e Eligibility) Violation() string {
	switch {
	case !e.KYCVerified:
		return "consumer KYC verification is required"
	case !e.Active:
		return "consumer account is not active"
	case !e.HasVerifiedAccount:
		return "consumer must have a verified principal account"
	case e.HasActiveLoan:
		return "consumer cannot have more than one active loan"
	default:
		return ""
	}
}
