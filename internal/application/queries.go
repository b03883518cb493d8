package application

import "github.com/bnema/galho-seco-gateway/internal/domain"

// AccountStatus is a linked account as the status view shows it.
type AccountStatus struct {
	ID         domain.AccountID
	User       string
	HasKey     bool
	Characters []string
}

// AccountView is a configured account with its key source and whether the
// key currently resolves.
type AccountView struct {
	Account  domain.Account
	Source   domain.KeySource
	Resolved bool
}
