package domain

import "errors"

var (
	ErrAccountNotFound         = errors.New("account not found")
	ErrSecretNotFound          = errors.New("secret not found")
	ErrUserNotFound            = errors.New("user not found")
	ErrEntityNotFound          = errors.New("entity not found")
	ErrItemNotFound            = errors.New("item not found")
	ErrActivityNotFound        = errors.New("activity not found")
	ErrNoCombat                = errors.New("no active combat")
	ErrConfigurationIncomplete = errors.New("configuration incomplete")
)
