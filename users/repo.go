package users

import "context"

// UserRepo stores application users keyed by id and by Telegram id
type UserRepo interface {
	// UpsertLogin creates the user for a Telegram account on first login or refreshes it
	UpsertLogin(ctx context.Context, profile Profile) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByTelegramID(ctx context.Context, telegramID string) (*User, error)
}
