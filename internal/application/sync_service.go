package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bnema/galho-seco-gateway/internal/domain"
	"github.com/bnema/galho-seco-gateway/internal/ports"
)

// Delivery is the outcome of one push to one account.
type Delivery struct {
	Account    domain.AccountID
	Characters int
	Err        error
}

func failedDeliveries(deliveries []Delivery) int {
	failed := 0
	for _, delivery := range deliveries {
		if delivery.Err != nil {
			failed++
		}
	}
	return failed
}

// SyncService decides which local changes reach the remote service and
// delivers them, once per owning account.
type SyncService struct {
	entities  ports.EntityStore
	directory ports.Directory
	accounts  ports.LinkedAccountSource
	pusher    ports.CharacterPusher
	logger    *slog.Logger
}

func NewSyncService(entities ports.EntityStore, directory ports.Directory, accounts ports.LinkedAccountSource, pusher ports.CharacterPusher, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}

	return &SyncService{
		entities:  entities,
		directory: directory,
		accounts:  accounts,
		pusher:    pusher,
		logger:    logger,
	}
}

// HandleChange pushes the entity carried by event to each of its owning
// accounts. Item events push the parent entity. A failed delivery is logged
// and does not stop delivery to the other owners.
func (s *SyncService) HandleChange(ctx context.Context, serverAddress string, event domain.ChangeEvent) []Delivery {
	entity := event.Entity
	logger := s.logger.With("entity", entity.ID, "change", event.Kind)

	if !entity.IsCharacter() {
		return nil
	}
	if serverAddress == "" {
		logger.Warn("server address not configured, push skipped")
		return nil
	}

	accounts, err := s.accounts.LinkedAccounts(ctx)
	if err != nil {
		logger.Error("list linked accounts", "error", err)
		return nil
	}
	if len(accounts) == 0 {
		logger.Warn("no linked accounts configured, push skipped")
		return nil
	}
	if !IsSynced(entity, accounts) {
		logger.Debug("entity not synced")
		return nil
	}

	targets := owningTargets(ctx, entity, accounts, s.directory, logger)
	deliveries := make([]Delivery, 0, len(targets))
	for _, target := range targets {
		delivery := Delivery{Account: target.Account.ID}
		if event.IsDeletion() {
			delivery.Err = s.pusher.Delete(ctx, serverAddress, target.Account.APIKey, domain.DeleteNotice{Character: entity.ID})
		} else {
			delivery.Characters = 1
			delivery.Err = s.pusher.Upsert(ctx, serverAddress, target.Account.APIKey, domain.UpsertBatch{
				Username:   target.User.Name,
				UserID:     target.Account.ID,
				Characters: []domain.CharacterSnapshot{domain.SnapshotOf(entity)},
			})
		}

		if delivery.Err != nil {
			logger.Error("push failed", "account", target.Account.ID, "error", delivery.Err)
		} else {
			logger.Info("push delivered", "account", target.Account.ID, "user", target.User.Name)
		}
		deliveries = append(deliveries, delivery)
	}

	return deliveries
}

// Sweep pushes every character each linked account owns as one batch per
// account. Accounts without a key or without a matching user are skipped.
func (s *SyncService) Sweep(ctx context.Context, serverAddress string) ([]Delivery, error) {
	if serverAddress == "" {
		return nil, fmt.Errorf("sweep: server address: %w", domain.ErrConfigurationIncomplete)
	}

	accounts, err := s.accounts.LinkedAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list linked accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("sweep: linked accounts: %w", domain.ErrConfigurationIncomplete)
	}

	entities, err := s.entities.ListEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}

	deliveries := make([]Delivery, 0, len(accounts))
	for _, account := range accounts {
		logger := s.logger.With("account", account.ID)
		if !account.Usable() {
			logger.Warn("account has no api key, sweep skipped")
			continue
		}

		user, err := s.directory.GetUser(ctx, account.ID)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				logger.Warn("account does not resolve to a user, sweep skipped")
			} else {
				logger.Error("resolve account user", "error", err)
			}
			continue
		}

		characters := ownedCharacters(entities, account.ID)
		delivery := Delivery{Account: account.ID, Characters: len(characters)}
		delivery.Err = s.pusher.Upsert(ctx, serverAddress, account.APIKey, domain.UpsertBatch{
			UserID:     account.ID,
			Characters: characters,
		})
		if delivery.Err != nil {
			logger.Error("sweep push failed", "error", delivery.Err)
		} else {
			logger.Info("sweep push delivered", "user", user.Name, "characters", len(characters))
		}
		deliveries = append(deliveries, delivery)
	}

	return deliveries, nil
}

func ownedCharacters(entities []domain.Entity, id domain.AccountID) []domain.CharacterSnapshot {
	characters := []domain.CharacterSnapshot{}
	for _, entity := range entities {
		if entity.IsCharacter() && entity.OwnedBy(id) {
			characters = append(characters, domain.SnapshotOf(entity))
		}
	}

	return characters
}

// Status lists each linked account with the characters it owns, for display.
func (s *SyncService) Status(ctx context.Context) ([]AccountStatus, error) {
	accounts, err := s.accounts.LinkedAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list linked accounts: %w", err)
	}
	entities, err := s.entities.ListEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}

	statuses := make([]AccountStatus, 0, len(accounts))
	for _, account := range accounts {
		status := AccountStatus{ID: account.ID, HasKey: account.Usable()}
		if user, err := s.directory.GetUser(ctx, account.ID); err == nil {
			status.User = user.Name
		}
		for _, entity := range entities {
			if entity.IsCharacter() && entity.OwnedBy(account.ID) {
				status.Characters = append(status.Characters, entity.Name)
			}
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}
