package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/propelhq/propel-backend/internal/models"
	"github.com/propelhq/propel-backend/internal/pkg/apperror"
	"github.com/propelhq/propel-backend/internal/repository"
)

const validProposal = "Сделаю за две недели, есть опыт похожих интеграций и готовое портфолио"

func TestBidService_PlaceBid_Success(t *testing.T) {
	bids := new(mockBidRepo)
	projects := new(mockProjectRepo)
	svc := NewBidService(bids, projects)
	hub := &fakeHub{}
	svc.SetHub(hub)
	ctx := context.Background()

	projectID := uuid.New()
	contractorID := uuid.New()
	clientID := uuid.New()

	projects.On("GetByID", ctx, projectID).Return(&models.Project{ID: projectID, ClientID: clientID, Title: "Бот для поддержки", Status: models.ProjectStatusOpen}, nil)
	bids.On("Create", ctx, mock.MatchedBy(func(b *models.Bid) bool {
		return b.ProjectID == projectID && b.Status == models.BidStatusPending
	})).Return(nil)

	bid, err := svc.PlaceBid(ctx, PlaceBidInput{
		ProjectID:    projectID,
		ContractorID: contractorID,
		Amount:       1500,
		Days:         10,
		Proposal:     validProposal,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.BidStatusPending, bid.Status)
	assert.Contains(t, hub.Events(), models.EventBidReceived)
}

func TestBidService_PlaceBid_OwnProject(t *testing.T) {
	bids := new(mockBidRepo)
	projects := new(mockProjectRepo)
	svc := NewBidService(bids, projects)
	ctx := context.Background()

	projectID := uuid.New()
	ownerID := uuid.New()

	projects.On("GetByID", ctx, projectID).Return(&models.Project{ID: projectID, ClientID: ownerID}, nil)

	_, err := svc.PlaceBid(ctx, PlaceBidInput{
		ProjectID:    projectID,
		ContractorID: ownerID,
		Amount:       1500,
		Days:         10,
		Proposal:     validProposal,
	})
	assert.True(t, apperror.IsForbidden(err))
	bids.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBidService_PlaceBid_ProjectNotOpen(t *testing.T) {
	bids := new(mockBidRepo)
	projects := new(mockProjectRepo)
	svc := NewBidService(bids, projects)
	ctx := context.Background()

	projectID := uuid.New()

	projects.On("GetByID", ctx, projectID).Return(&models.Project{ID: projectID, ClientID: uuid.New(), Status: models.ProjectStatusInProgress}, nil)
	bids.On("Create", ctx, mock.Anything).Return(repository.ErrProjectNotOpen)

	_, err := svc.PlaceBid(ctx, PlaceBidInput{
		ProjectID:    projectID,
		ContractorID: uuid.New(),
		Amount:       1500,
		Days:         10,
		Proposal:     validProposal,
	})
	assert.True(t, apperror.IsConflict(err))
}

func TestBidService_PlaceBid_Duplicate(t *testing.T) {
	bids := new(mockBidRepo)
	projects := new(mockProjectRepo)
	svc := NewBidService(bids, projects)
	ctx := context.Background()

	projectID := uuid.New()

	projects.On("GetByID", ctx, projectID).Return(&models.Project{ID: projectID, ClientID: uuid.New()}, nil)
	bids.On("Create", ctx, mock.Anything).Return(repository.ErrBidAlreadyPlaced)

	_, err := svc.PlaceBid(ctx, PlaceBidInput{
		ProjectID:    projectID,
		ContractorID: uuid.New(),
		Amount:       1500,
		Days:         10,
		Proposal:     validProposal,
	})
	assert.True(t, apperror.IsConflict(err))
	assert.Contains(t, err.Error(), "уже откликнулись")
}

func TestBidService_PlaceBid_InvalidInput(t *testing.T) {
	svc := NewBidService(new(mockBidRepo), new(mockProjectRepo))
	ctx := context.Background()

	_, err := svc.PlaceBid(ctx, PlaceBidInput{ProjectID: uuid.New(), ContractorID: uuid.New(), Amount: 0, Days: 10, Proposal: validProposal})
	assert.Error(t, err)

	_, err = svc.PlaceBid(ctx, PlaceBidInput{ProjectID: uuid.New(), ContractorID: uuid.New(), Amount: 100, Days: 0, Proposal: validProposal})
	assert.Error(t, err)

	_, err = svc.PlaceBid(ctx, PlaceBidInput{ProjectID: uuid.New(), ContractorID: uuid.New(), Amount: 100, Days: 10, Proposal: "мало"})
	assert.Error(t, err)
}

func TestBidService_ListProjectBids_OwnerOnly(t *testing.T) {
	bids := new(mockBidRepo)
	projects := new(mockProjectRepo)
	svc := NewBidService(bids, projects)
	ctx := context.Background()

	projectID := uuid.New()
	ownerID := uuid.New()

	projects.On("GetByID", ctx, projectID).Return(&models.Project{ID: projectID, ClientID: ownerID}, nil)
	bids.On("ListByProject", ctx, projectID).Return([]models.Bid{{ID: uuid.New()}}, nil)

	list, err := svc.ListProjectBids(ctx, projectID, ownerID, models.RoleClient)
	assert.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.ListProjectBids(ctx, projectID, uuid.New(), models.RoleContractor)
	assert.True(t, apperror.IsForbidden(err))

	_, err = svc.ListProjectBids(ctx, projectID, uuid.New(), models.RoleAdmin)
	assert.NoError(t, err)
}
