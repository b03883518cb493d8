package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bnema/galho-seco-gateway/internal/domain"
	"github.com/bnema/galho-seco-gateway/internal/ports"
)

// IsSynced reports whether any configured account holds owner permission on
// the entity. No configured accounts means nothing is synced.
func IsSynced(entity domain.Entity, accounts []domain.LinkedAccount) bool {
	for _, account := range accounts {
		if entity.OwnedBy(account.ID) {
			return true
		}
	}

	return false
}

// pushTarget is one owner of an entity that can receive a push.
type pushTarget struct {
	Account domain.LinkedAccount
	User    domain.User
}

// owningTargets lists the owners of entity that are configured, carry an API
// key and resolve to a session user. Owners failing any of those checks are
// skipped.
func owningTargets(ctx context.Context, entity domain.Entity, accounts []domain.LinkedAccount, directory ports.Directory, logger *slog.Logger) []pushTarget {
	var targets []pushTarget
	for _, owner := range entity.Owners() {
		account, ok := domain.FindLinkedAccount(accounts, owner)
		if !ok {
			continue
		}
		if !account.Usable() {
			logger.Warn("owner has no api key, skipping", "account", owner, "entity", entity.ID)
			continue
		}

		user, err := directory.GetUser(ctx, owner)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				logger.Warn("owner does not resolve to a user, skipping", "account", owner, "entity", entity.ID)
			} else {
				logger.Error("resolve owner", "account", owner, "entity", entity.ID, "error", err)
			}
			continue
		}

		targets = append(targets, pushTarget{Account: account, User: user})
	}

	return targets
}
