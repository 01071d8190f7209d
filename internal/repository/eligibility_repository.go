package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/loan-engine/internal/domain"
)

type eligibilityRepository struct {
	db *sqlx.DB
}

func NewEligibilityRepository(db *sqlx.DB) EligibilityRepository {
	return &eligibilityRepository{db: db}
}

func (r *eligibilityRepository) Check(ctx context.Context, consumerID string) (*domain.Eligibility, error) {
	query := `
		SELECT
			c.kyc_status = 'VERIFIED' AS kyc_verified,
			c.status = 'ACTIVE' AS active,
			EXISTS (
				SELECT 1 FROM principal_accounts pa
				WHERE pa.consumer_id = c.id AND pa.verification_status = 'VERIFIED'
			) AS has_verified_account,
			EXISTS (
				SELECT 1 FROM loans l
				WHERE l.consumer_id = c.id AND l.status = 'ACTIVE'
			) AS has_active_loan
		FROM consumers c
		WHERE c.id = $1
	`

	var eligibility domain.Eligibility
	if err := r.db.GetContext(ctx, &eligibility, query, consumerID); err != nil {
		return nil, mapNoRows(err)
	}

	return &eligibility, nil
}
