package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/propelhq/propel-backend/internal/models"
	"github.com/propelhq/propel-backend/internal/pkg/apperror"
	"github.com/propelhq/propel-backend/internal/repository"
)

// memStore воспроизводит в памяти транзакционную семантику хранилища
// жизненного цикла: каждый переход выполняется целиком под общей
// блокировкой, как SQL-транзакция под FOR UPDATE. Моки с заранее
// заданными ответами не ловят гонки, поэтому конкурентные сценарии
// гоняются через это хранилище.
type memStore struct {
	mu        sync.Mutex
	projects  map[uuid.UUID]*models.Project
	bids      map[uuid.UUID]*models.Bid
	contracts map[uuid.UUID]*models.Contract
	disputes  map[uuid.UUID]*models.Dispute
	balances  map[uuid.UUID]float64
	transfers int
}

func newMemStore() *memStore {
	return &memStore{
		projects:  map[uuid.UUID]*models.Project{},
		bids:      map[uuid.UUID]*models.Bid{},
		contracts: map[uuid.UUID]*models.Contract{},
		disputes:  map[uuid.UUID]*models.Dispute{},
		balances:  map[uuid.UUID]float64{},
	}
}

// transfer двигает средства между кошельками. Вызывается только под
// блокировкой хранилища.
func (s *memStore) transfer(from, to uuid.UUID, amount float64) {
	s.balances[from] -= amount
	s.balances[to] += amount
	s.transfers++
}

func (s *memStore) balanceSum() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum float64
	for _, b := range s.balances {
		sum += b
	}
	return sum
}

func (s *memStore) transferCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transfers
}

func (s *memStore) contractSnapshot(id uuid.UUID) models.Contract {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.contracts[id]
}

// memContracts реализует ContractRepository поверх memStore.
type memContracts struct {
	s *memStore
}

func (m *memContracts) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.contracts[id]
	if !ok {
		return nil, repository.ErrContractNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memContracts) GetNonTerminalByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Contract, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, c := range m.s.contracts {
		if c.ProjectID == projectID && !c.IsTerminal() {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrContractNotFound
}

func (m *memContracts) GetLatestFinalizedByProjectID(ctx context.Context, projectID uuid.UUID) (*models.Contract, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var latest *models.Contract
	for _, c := range m.s.contracts {
		if c.ProjectID != projectID || !c.IsTerminal() {
			continue
		}
		if latest == nil || c.UpdatedAt.After(latest.UpdatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, repository.ErrContractNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *memContracts) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Contract, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []models.Contract
	for _, c := range m.s.contracts {
		if c.ClientID == userID || c.ContractorID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memContracts) AcceptBid(ctx context.Context, bidID uuid.UUID) (*models.Contract, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	bid, ok := m.s.bids[bidID]
	if !ok {
		return nil, repository.ErrBidNotFound
	}
	if bid.Status != models.BidStatusPending {
		return nil, repository.ErrBidNotPending
	}

	project, ok := m.s.projects[bid.ProjectID]
	if !ok {
		return nil, repository.ErrProjectNotFound
	}
	if project.Status != models.ProjectStatusOpen {
		return nil, repository.ErrProjectNotOpen
	}

	for _, c := range m.s.contracts {
		if c.ProjectID == project.ID && !c.IsTerminal() {
			return nil, repository.ErrContractExists
		}
	}

	contract := &models.Contract{
		ID:           uuid.New(),
		ProjectID:    project.ID,
		ClientID:     project.ClientID,
		ContractorID: bid.ContractorID,
		BidID:        bid.ID,
		Amount:       bid.Amount,
		Days:         bid.Days,
		Status:       models.ContractStatusActive,
		EscrowStatus: models.EscrowStatusHeld,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.s.contracts[contract.ID] = contract

	bid.Status = models.BidStatusAccepted
	for _, other := range m.s.bids {
		if other.ProjectID == project.ID && other.ID != bid.ID && other.Status == models.BidStatusPending {
			other.Status = models.BidStatusRejected
		}
	}
	project.Status = models.ProjectStatusInProgress

	cp := *contract
	return &cp, nil
}

func (m *memContracts) SubmitWork(ctx context.Context, contractID uuid.UUID, link, notes string) (*models.Contract, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	c, ok := m.s.contracts[contractID]
	if !ok {
		return nil, repository.ErrContractNotFound
	}

	switch c.Status {
	case models.ContractStatusActive:
	case models.ContractStatusWorkSubmitted:
		if c.SubmissionLink != nil && *c.SubmissionLink == link &&
			c.SubmissionNotes != nil && *c.SubmissionNotes == notes {
			cp := *c
			return &cp, nil
		}
		return nil, repository.ErrSubmissionMismatch
	case models.ContractStatusDisputed:
		return nil, repository.ErrContractDisputed
	default:
		return nil, repository.ErrContractNotActive
	}

	project := m.s.projects[c.ProjectID]
	if project != nil && !project.Checklist.AllCompleted() {
		return nil, repository.ErrChecklistIncomplete
	}

	now := time.Now()
	c.Status = models.ContractStatusWorkSubmitted
	c.SubmissionLink = &link
	c.SubmissionNotes = &notes
	c.SubmittedAt = &now
	c.UpdatedAt = now
	if project != nil {
		project.Status = models.ProjectStatusWorkSubmitted
		project.WorkLink = &link
	}

	cp := *c
	return &cp, nil
}

func (m *memContracts) ReleaseEscrow(ctx context.Context, contractID uuid.UUID) (*models.Contract, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	c, ok := m.s.contracts[contractID]
	if !ok {
		return nil, repository.ErrContractNotFound
	}
	if c.Status == models.ContractStatusDisputed {
		return nil, repository.ErrContractDisputed
	}
	if c.EscrowStatus != models.EscrowStatusHeld || c.IsTerminal() {
		return nil, repository.ErrEscrowNotHeld
	}

	m.s.transfer(c.ClientID, c.ContractorID, c.Amount)
	c.Status = models.ContractStatusCompleted
	c.EscrowStatus = models.EscrowStatusReleased
	c.UpdatedAt = time.Now()
	if project := m.s.projects[c.ProjectID]; project != nil {
		project.Status = models.ProjectStatusCompleted
	}

	cp := *c
	return &cp, nil
}

// memDisputes реализует DisputeRepository поверх того же memStore.
type memDisputes struct {
	s *memStore
}

func (m *memDisputes) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	d, ok := m.s.disputes[id]
	if !ok {
		return nil, repository.ErrDisputeNotFound
	}
	dp := *d
	return &dp, nil
}

func (m *memDisputes) GetByContractID(ctx context.Context, contractID uuid.UUID) (*models.Dispute, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, d := range m.s.disputes {
		if d.ContractID == contractID {
			dp := *d
			return &dp, nil
		}
	}
	return nil, repository.ErrDisputeNotFound
}

func (m *memDisputes) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	return nil, nil
}

func (m *memDisputes) ListOpen(ctx context.Context, limit, offset int) ([]models.Dispute, error) {
	return nil, nil
}

func (m *memDisputes) Open(ctx context.Context, dispute *models.Dispute) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	c, ok := m.s.contracts[dispute.ContractID]
	if !ok {
		return repository.ErrContractNotFound
	}
	if c.Status != models.ContractStatusActive && c.Status != models.ContractStatusWorkSubmitted {
		if c.Status == models.ContractStatusDisputed {
			return repository.ErrDisputeExists
		}
		return repository.ErrContractNotDisputable
	}

	dispute.ID = uuid.New()
	dispute.Defendant = c.Counterparty(dispute.RaisedBy)
	dispute.Status = models.DisputeStatusOpen
	dispute.CreatedAt = time.Now()

	dp := *dispute
	m.s.disputes[dispute.ID] = &dp
	c.Status = models.ContractStatusDisputed
	return nil
}

func (m *memDisputes) AddEvidence(ctx context.Context, disputeID uuid.UUID, path string) (*models.Dispute, error) {
	return nil, repository.ErrDisputeNotFound
}

func (m *memDisputes) MarkUnderReview(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	return nil, repository.ErrDisputeNotFound
}

func (m *memDisputes) Resolve(ctx context.Context, disputeID, resolverID uuid.UUID, action, summary string) (*models.Dispute, *models.Contract, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	d, ok := m.s.disputes[disputeID]
	if !ok {
		return nil, nil, repository.ErrDisputeNotFound
	}
	if d.IsResolved() {
		return nil, nil, repository.ErrDisputeResolved
	}

	c := m.s.contracts[d.ContractID]
	if c == nil || c.Status != models.ContractStatusDisputed || c.EscrowStatus != models.EscrowStatusHeld {
		return nil, nil, repository.ErrDisputeResolved
	}

	disputeStatus := models.DisputeStatusResolvedRefund
	escrowStatus := models.EscrowStatusRefunded
	if action == models.DisputeActionPayContractor {
		disputeStatus = models.DisputeStatusResolvedPayout
		escrowStatus = models.EscrowStatusReleased
		m.s.transfer(c.ClientID, c.ContractorID, c.Amount)
	}

	now := time.Now()
	d.Status = disputeStatus
	d.ResolutionSummary = &summary
	d.ResolvedBy = &resolverID
	d.ResolvedAt = &now
	c.Status = models.ContractStatusTerminated
	c.EscrowStatus = escrowStatus
	c.UpdatedAt = now

	dp := *d
	cp := *c
	return &dp, &cp, nil
}

// seedActiveContract наполняет хранилище проектом, контрактом и
// стартовыми балансами.
func seedActiveContract(store *memStore, amount float64) (clientID, contractorID, contractID uuid.UUID) {
	clientID = uuid.New()
	contractorID = uuid.New()
	contractID = uuid.New()
	projectID := uuid.New()

	store.projects[projectID] = &models.Project{
		ID:       projectID,
		ClientID: clientID,
		Title:    "Интеграция платёжного шлюза",
		Status:   models.ProjectStatusInProgress,
	}
	store.contracts[contractID] = &models.Contract{
		ID:           contractID,
		ProjectID:    projectID,
		ClientID:     clientID,
		ContractorID: contractorID,
		Amount:       amount,
		Status:       models.ContractStatusActive,
		EscrowStatus: models.EscrowStatusHeld,
		UpdatedAt:    time.Now(),
	}
	store.balances[clientID] = amount
	store.balances[contractorID] = 0
	return clientID, contractorID, contractID
}

func newContractServiceOverStore(store *memStore) *ContractService {
	bids := new(mockBidRepo)
	projects := new(mockProjectRepo)
	users := new(mockUserReader)
	// Фоновая сборка квитанции упирается в отсутствие пользователей и
	// молча завершается, расчёт от этого не зависит.
	users.On("GetByID", mock.Anything, mock.Anything).Return(nil, repository.ErrUserNotFound).Maybe()
	projects.On("GetByID", mock.Anything, mock.Anything).Return(nil, repository.ErrProjectNotFound).Maybe()
	return NewContractService(&memContracts{s: store}, bids, projects, users, nil)
}

func TestConcurrentRelease_MovesFundsExactlyOnce(t *testing.T) {
	store := newMemStore()
	const amount = 4200.0
	clientID, contractorID, contractID := seedActiveContract(store, amount)

	svc := newContractServiceOverStore(store)
	ctx := context.Background()

	const workers = 16
	results := make(chan *ReleaseResult, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.ReleasePayment(ctx, clientID, contractID)
			if assert.NoError(t, err) {
				results <- res
			}
		}()
	}
	wg.Wait()
	close(results)

	var moved, repeated int
	for res := range results {
		if res.AlreadyReleased {
			repeated++
			assert.Equal(t, float64(0), res.AmountMoved)
		} else {
			moved++
			assert.Equal(t, amount, res.AmountMoved)
		}
	}

	assert.Equal(t, 1, moved, "деньги должны двигаться ровно один раз")
	assert.Equal(t, workers-1, repeated)
	assert.Equal(t, 1, store.transferCount())

	// Двойная запись: сумма балансов не меняется, деньги только переехали.
	assert.Equal(t, float64(amount), store.balanceSum())
	store.mu.Lock()
	assert.Equal(t, float64(0), store.balances[clientID])
	assert.Equal(t, amount, store.balances[contractorID])
	store.mu.Unlock()

	final := store.contractSnapshot(contractID)
	assert.Equal(t, models.ContractStatusCompleted, final.Status)
	assert.Equal(t, models.EscrowStatusReleased, final.EscrowStatus)
}

func TestConcurrentAcceptBid_SingleNonTerminalContract(t *testing.T) {
	store := newMemStore()
	clientID := uuid.New()
	projectID := uuid.New()

	project := &models.Project{
		ID:       projectID,
		ClientID: clientID,
		Title:    "Редизайн личного кабинета",
		Status:   models.ProjectStatusOpen,
	}
	store.projects[projectID] = project

	const rivals = 8
	bidIDs := make([]uuid.UUID, 0, rivals)
	for i := 0; i < rivals; i++ {
		bid := &models.Bid{
			ID:           uuid.New(),
			ProjectID:    projectID,
			ContractorID: uuid.New(),
			Amount:       1000 + float64(i),
			Days:         7,
			Status:       models.BidStatusPending,
		}
		store.bids[bid.ID] = bid
		bidIDs = append(bidIDs, bid.ID)
	}

	bids := new(mockBidRepo)
	projects := new(mockProjectRepo)
	users := new(mockUserReader)
	for _, id := range bidIDs {
		snapshot := *store.bids[id]
		bids.On("GetByID", mock.Anything, id).Return(&snapshot, nil)
	}
	projectSnapshot := *project
	projects.On("GetByID", mock.Anything, projectID).Return(&projectSnapshot, nil)

	svc := NewContractService(&memContracts{s: store}, bids, projects, users, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	var accepted int32
	var conflicts int32
	var mu sync.Mutex
	for _, id := range bidIDs {
		wg.Add(1)
		go func(bidID uuid.UUID) {
			defer wg.Done()
			_, err := svc.AcceptBid(ctx, clientID, bidID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
				return
			}
			if assert.True(t, apperror.IsConflict(err), "проигравшие получают Conflict: %v", err) {
				conflicts++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted)
	assert.Equal(t, int32(rivals-1), conflicts)

	store.mu.Lock()
	var contracts, acceptedBids, rejectedBids int
	for _, c := range store.contracts {
		if c.ProjectID == projectID && !c.IsTerminal() {
			contracts++
		}
	}
	for _, b := range store.bids {
		switch b.Status {
		case models.BidStatusAccepted:
			acceptedBids++
		case models.BidStatusRejected:
			rejectedBids++
		}
	}
	projectStatus := store.projects[projectID].Status
	store.mu.Unlock()

	assert.Equal(t, 1, contracts, "у проекта не более одного нетерминального контракта")
	assert.Equal(t, 1, acceptedBids)
	assert.Equal(t, rivals-1, rejectedBids)
	assert.Equal(t, models.ProjectStatusInProgress, projectStatus)
}

func TestConcurrentReleaseVersusDispute_NeverBoth(t *testing.T) {
	// Гонка расчёта и открытия спора: выигрывает ровно одна ветка.
	// Если победил расчёт, перевод один и спор получает Conflict; если
	// победил спор, денег не двигалось и контракт заморожен.
	for round := 0; round < 20; round++ {
		store := newMemStore()
		const amount = 1500.0
		clientID, contractorID, contractID := seedActiveContract(store, amount)

		contractSvc := newContractServiceOverStore(store)
		disputeSvc := NewDisputeService(&memDisputes{s: store}, &memContracts{s: store}, &fakeSettler{})
		ctx := context.Background()

		var wg sync.WaitGroup
		var releaseErr, disputeErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, releaseErr = contractSvc.ReleasePayment(ctx, clientID, contractID)
		}()
		go func() {
			defer wg.Done()
			_, disputeErr = disputeSvc.OpenDispute(ctx, OpenDisputeInput{
				ContractID:  contractID,
				RaisedBy:    contractorID,
				Reason:      models.DisputeReasonPaymentIssue,
				Description: validDisputeText,
			})
		}()
		wg.Wait()

		final := store.contractSnapshot(contractID)
		switch {
		case releaseErr == nil && disputeErr != nil:
			assert.True(t, apperror.IsConflict(disputeErr))
			assert.Equal(t, models.EscrowStatusReleased, final.EscrowStatus)
			assert.Equal(t, 1, store.transferCount())
		case releaseErr != nil && disputeErr == nil:
			assert.True(t, apperror.IsConflict(releaseErr))
			assert.Equal(t, models.ContractStatusDisputed, final.Status)
			assert.Equal(t, models.EscrowStatusHeld, final.EscrowStatus)
			assert.Equal(t, 0, store.transferCount())
		default:
			t.Fatalf("ровно одна операция должна выиграть: release=%v dispute=%v", releaseErr, disputeErr)
		}

		assert.Equal(t, float64(amount), store.balanceSum())
	}
}

func TestConcurrentResolve_PaysContractorExactlyOnce(t *testing.T) {
	store := newMemStore()
	const amount = 2500.0
	clientID, contractorID, contractID := seedActiveContract(store, amount)

	store.mu.Lock()
	store.contracts[contractID].Status = models.ContractStatusDisputed
	dispute := &models.Dispute{
		ID:         uuid.New(),
		ContractID: contractID,
		RaisedBy:   contractorID,
		Defendant:  clientID,
		Reason:     models.DisputeReasonPaymentIssue,
		Status:     models.DisputeStatusOpen,
	}
	store.disputes[dispute.ID] = dispute
	store.mu.Unlock()

	disputeSvc := NewDisputeService(&memDisputes{s: store}, &memContracts{s: store}, nil)
	ctx := context.Background()
	resolverID := uuid.New()

	const arbiters = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	var wins, conflicts int
	for i := 0; i < arbiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := disputeSvc.ResolveDispute(ctx, ResolveDisputeInput{
				DisputeID:  dispute.ID,
				ResolverID: resolverID,
				Role:       models.RoleAdmin,
				Action:     models.DisputeActionPayContractor,
				Summary:    "Работа выполнена, выплата исполнителю по материалам спора",
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			if assert.True(t, apperror.IsConflict(err), "повторное разрешение даёт Conflict: %v", err) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, arbiters-1, conflicts)
	assert.Equal(t, 1, store.transferCount())
	assert.Equal(t, float64(amount), store.balanceSum())

	final := store.contractSnapshot(contractID)
	assert.Equal(t, models.ContractStatusTerminated, final.Status)
	assert.Equal(t, models.EscrowStatusReleased, final.EscrowStatus)

	store.mu.Lock()
	assert.Equal(t, amount, store.balances[contractorID])
	assert.Equal(t, float64(0), store.balances[clientID])
	store.mu.Unlock()
}
