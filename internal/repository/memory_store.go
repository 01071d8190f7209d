package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/loan-engine/internal/domain"
	"github.com/segyhp/loan-engine/pkg/utils"
)

type memoryData struct {
	loans        map[uuid.UUID]domain.Loan
	installments map[uuid.UUID][]domain.Installment
	consumers    map[string]MemoryConsumer
}

func (d *memoryData) clone() *memoryData {
	c := &memoryData{
		loans:        make(map[uuid.UUID]domain.Loan, len(d.loans)),
		installments: make(map[uuid.UUID][]domain.Installment, len(d.installments)),
		consumers:    make(map[string]MemoryConsumer, len(d.consumers)),
	}
	for id, loan := range d.loans {
		c.loans[id] = loan
	}
	for id, schedule := range d.installments {
		c.installments[id] = append([]domain.Installment(nil), schedule...)
	}
	for id, consumer := range d.consumers {
		c.consumers[id] = consumer
	}
	return c
}

// MemoryConsumer is the consumer record the in-memory eligibility check reads.
type MemoryConsumer struct {
	KYCVerified        bool
	Active             bool
	HasVerifiedAccount bool
}

// MemoryStore keeps loans and installments in process memory. Transactions
// are serialized and work on a copy that replaces the live data on commit.
type MemoryStore struct {
	mu   *sync.RWMutex
	txMu *sync.Mutex // nil inside a transaction
	data *memoryData
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu:   &sync.RWMutex{},
		txMu: &sync.Mutex{},
		data: &memoryData{
			loans:        map[uuid.UUID]domain.Loan{},
			installments: map[uuid.UUID][]domain.Installment{},
			consumers:    map[string]MemoryConsumer{},
		},
	}
}

func (s *MemoryStore) Loans() LoanRepository {
	return &memoryLoanRepository{s: s}
}

func (s *MemoryStore) Installments() InstallmentRepository {
	return &memoryInstallmentRepository{s: s}
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.txMu == nil {
		return fn(s)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	tx := &MemoryStore{mu: &sync.RWMutex{}, data: snapshot}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
	return nil
}

// PutConsumer registers or replaces a consumer for eligibility checks.
func (s *MemoryStore) PutConsumer(id string, consumer MemoryConsumer) {
	s.write(func(d *memoryData) error {
		d.consumers[id] = consumer
		return nil
	})
}

// Check implements EligibilityRepository.
func (s *MemoryStore) Check(ctx context.Context, consumerID string) (*domain.Eligibility, error) {
	var eligibility *domain.Eligibility
	s.read(func(d *memoryData) {
		consumer, ok := d.consumers[consumerID]
		if !ok {
			return
		}
		eligibility = &domain.Eligibility{
			KYCVerified:        consumer.KYCVerified,
			Active:             consumer.Active,
			HasVerifiedAccount: consumer.HasVerifiedAccount,
		}
		for _, loan := range d.loans {
			if loan.ConsumerID == consumerID && loan.Status == domain.LoanStatusActive {
				eligibility.HasActiveLoan = true
				break
			}
		}
	})
	if eligibility == nil {
		return nil, ErrNotFound
	}
	return eligibility, nil
}

func (s *MemoryStore) read(fn func(d *memoryData)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

// write applies fn to the live data. Outside a transaction it waits for any
// running transaction so its commit cannot drop the change.
func (s *MemoryStore) write(fn func(d *memoryData) error) error {
	if s.txMu != nil {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

type memoryLoanRepository struct {
	s *MemoryStore
}

func (r *memoryLoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	return r.s.write(func(d *memoryData) error {
		if _, ok := d.loans[loan.ID]; ok {
			return ErrVersionConflict
		}
		d.loans[loan.ID] = *loan
		return nil
	})
}

func (r *memoryLoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	var found *domain.Loan
	r.s.read(func(d *memoryData) {
		if loan, ok := d.loans[id]; ok {
			found = &loan
		}
	})
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (r *memoryLoanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	err := r.s.write(func(d *memoryData) error {
		current, ok := d.loans[loan.ID]
		if !ok {
			return ErrNotFound
		}
		if current.Version != loan.Version {
			return ErrVersionConflict
		}
		stored := *loan
		stored.Version++
		d.loans[loan.ID] = stored
		return nil
	})
	if err != nil {
		return err
	}

	loan.Version++
	return nil
}

func (r *memoryLoanRepository) ListByConsumer(ctx context.Context, consumerID string) ([]*domain.Loan, error) {
	return r.filter(func(l *domain.Loan) bool { return l.ConsumerID == consumerID }), nil
}

func (r *memoryLoanRepository) ListByConsumerAndStatus(ctx context.Context, consumerID string, status domain.LoanStatus) ([]*domain.Loan, error) {
	return r.filter(func(l *domain.Loan) bool { return l.ConsumerID == consumerID && l.Status == status }), nil
}

func (r *memoryLoanRepository) ListByStatus(ctx context.Context, status domain.LoanStatus) ([]*domain.Loan, error) {
	return r.filter(func(l *domain.Loan) bool { return l.Status == status }), nil
}

func (r *memoryLoanRepository) filter(keep func(l *domain.Loan) bool) []*domain.Loan {
	loans := []*domain.Loan{}
	r.s.read(func(d *memoryData) {
		for _, loan := range d.loans {
			if keep(&loan) {
				l := loan
				loans = append(loans, &l)
			}
		}
	})
	sort.Slice(loans, func(i, j int) bool {
		if loans[i].CreatedAt.Equal(loans[j].CreatedAt) {
			return loans[i].ID.String() < loans[j].ID.String()
		}
		return loans[i].CreatedAt.After(loans[j].CreatedAt)
	})
	return loans
}

type memoryInstallmentRepository struct {
	s *MemoryStore
}

func (r *memoryInstallmentRepository) CreateSchedule(ctx context.Context, installments []*domain.Installment) error {
	return r.s.write(func(d *memoryData) error {
		byLoan := map[uuid.UUID][]domain.Installment{}
		for _, inst := range installments {
			for _, existing := range d.installments[inst.LoanID] {
				if existing.InstallmentNumber == inst.InstallmentNumber {
					return ErrVersionConflict
				}
			}
			byLoan[inst.LoanID] = append(byLoan[inst.LoanID], *inst)
		}
		for loanID, added := range byLoan {
			schedule := append(d.installments[loanID], added...)
			sort.Slice(schedule, func(i, j int) bool {
				return schedule[i].InstallmentNumber < schedule[j].InstallmentNumber
			})
			d.installments[loanID] = schedule
		}
		return nil
	})
}

func (r *memoryInstallmentRepository) GetByNumber(ctx context.Context, loanID uuid.UUID, number int) (*domain.Installment, error) {
	var found *domain.Installment
	r.s.read(func(d *memoryData) {
		for _, inst := range d.installments[loanID] {
			if inst.InstallmentNumber == number {
				i := inst
				found = &i
				return
			}
		}
	})
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (r *memoryInstallmentRepository) ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	return r.filterLoan(loanID, func(i *domain.Installment) bool { return true }), nil
}

func (r *memoryInstallmentRepository) ListByLoanIDAndStatus(ctx context.Context, loanID uuid.UUID, status domain.InstallmentStatus) ([]*domain.Installment, error) {
	return r.filterLoan(loanID, func(i *domain.Installment) bool { return i.Status == status }), nil
}

func (r *memoryInstallmentRepository) ListByStatus(ctx context.Context, status domain.InstallmentStatus) ([]*domain.Installment, error) {
	installments := []*domain.Installment{}
	r.s.read(func(d *memoryData) {
		for _, schedule := range d.installments {
			for _, inst := range schedule {
				if inst.Status == status {
					i := inst
					installments = append(installments, &i)
				}
			}
		}
	})
	sort.Slice(installments, func(i, j int) bool {
		a, b := installments[i], installments[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if a.LoanID != b.LoanID {
			return a.LoanID.String() < b.LoanID.String()
		}
		return a.InstallmentNumber < b.InstallmentNumber
	})
	return installments, nil
}

func (r *memoryInstallmentRepository) Update(ctx context.Context, inst *domain.Installment) error {
	err := r.s.write(func(d *memoryData) error {
		schedule := d.installments[inst.LoanID]
		for idx := range schedule {
			if schedule[idx].ID != inst.ID {
				continue
			}
			if schedule[idx].Version != inst.Version {
				return ErrVersionConflict
			}
			stored := *inst
			stored.Version++
			schedule[idx] = stored
			return nil
		}
		return ErrNotFound
	})
	if err != nil {
		return err
	}

	inst.Version++
	return nil
}

func (r *memoryInstallmentRepository) CountUnsettled(ctx context.Context, loanID uuid.UUID) (int, error) {
	return len(r.filterLoan(loanID, func(i *domain.Installment) bool { return !i.Status.IsSettled() })), nil
}

func (r *memoryInstallmentRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	var marked int64
	err := r.s.write(func(d *memoryData) error {
		for _, schedule := range d.installments {
			for idx := range schedule {
				inst := &schedule[idx]
				if inst.Status == domain.InstallmentStatusPending && utils.IsDateOverdue(inst.DueDate, asOf, time.UTC) {
					inst.Status = domain.InstallmentStatusOverdue
					inst.UpdatedAt = asOf
					inst.Version++
					marked++
				}
			}
		}
		return nil
	})
	return marked, err
}

func (r *memoryInstallmentRepository) filterLoan(loanID uuid.UUID, keep func(i *domain.Installment) bool) []*domain.Installment {
	installments := []*domain.Installment{}
	r.s.read(func(d *memoryData) {
		for _, inst := range d.installments[loanID] {
			if keep(&inst) {
				i := inst
				installments = append(installments, &i)
			}
		}
	})
	return installments
}
