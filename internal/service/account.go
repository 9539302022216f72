package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"giftcanvas-api/internal/model"
	"giftcanvas-api/internal/repository"
)

// AccountService manages tracked accounts for a tenant and exposes the
// per-account queue, ledger and archive views for display.
type AccountService struct {
	accounts repository.AccountRepository
	queue    repository.JobQueueRepository
	ledger   repository.GiftLedgerRepository
	archive  repository.JobArchiveRepository // optional
	manager  *WorkerManager
}

// NewAccountService creates an account service. archive may be nil.
func NewAccountService(
	accounts repository.AccountRepository,
	queue repository.JobQueueRepository,
	ledger repository.GiftLedgerRepository,
	archive repository.JobArchiveRepository,
	manager *WorkerManager,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		queue:    queue,
		ledger:   ledger,
		archive:  archive,
		manager:  manager,
	}
}

// Create registers a new tracked account for the tenant.
func (s *AccountService) Create(ctx context.Context, userID, username string, settings map[string]any) (*model.Account, error) {
	if settings == nil {
		settings = map[string]any{}
	}
	account := &model.Account{
		ID:        strconv.FormatInt(time.Now().UnixMilli(), 10),
		UserID:    userID,
		Username:  username,
		Settings:  settings,
		Status:    model.StatusStopped,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Get returns the tenant's account or nil when it does not exist.
func (s *AccountService) Get(ctx context.Context, userID, accountID string) (*model.Account, error) {
	return s.accounts.Get(ctx, userID, accountID)
}

// Update patches the account's settings and username.
func (s *AccountService) Update(ctx context.Context, userID, accountID string, username string, settings map[string]any) (*model.Account, error) {
	account, err := s.accounts.Get(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, nil
	}

	if username != "" {
		account.Username = username
	}
	for k, v := range settings {
		if account.Settings == nil {
			account.Settings = map[string]any{}
		}
		account.Settings[k] = v
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Delete removes the account. The pipeline, if active, is stopped first.
func (s *AccountService) Delete(ctx context.Context, userID, accountID string) error {
	account, err := s.accounts.Get(ctx, userID, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return nil
	}
	s.manager.Stop(ctx, account)
	return s.accounts.Delete(ctx, userID, accountID)
}

// List returns the tenant's accounts with live pipeline status overlaid.
func (s *AccountService) List(ctx context.Context, userID string) ([]model.Account, error) {
	accounts, err := s.accounts.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		accounts[i].Status = s.manager.Status(accounts[i].ID)
	}
	return accounts, nil
}

// Queue returns the account's pending jobs in order, or nil when the
// account does not exist.
func (s *AccountService) Queue(ctx context.Context, userID, accountID string) ([]model.Job, error) {
	account, err := s.accounts.Get(ctx, userID, accountID)
	if err != nil || account == nil {
		return nil, err
	}
	return s.queue.List(ctx, accountID)
}

// Gifted returns the account's gifted-viewer set, or nil when the
// account does not exist.
func (s *AccountService) Gifted(ctx context.Context, userID, accountID string) ([]string, error) {
	account, err := s.accounts.Get(ctx, userID, accountID)
	if err != nil || account == nil {
		return nil, err
	}
	return s.ledger.GiftedViewers(ctx, accountID)
}

// CompletedJobs returns the account's archived job history.
func (s *AccountService) CompletedJobs(ctx context.Context, userID, accountID string, limit int) ([]model.Job, error) {
	account, err := s.accounts.Get(ctx, userID, accountID)
	if err != nil || account == nil {
		return nil, err
	}
	if s.archive == nil {
		return nil, fmt.Errorf("job archive is not configured")
	}
	return s.archive.ListCompleted(ctx, accountID, limit)
}
