package kol

import "context"

type Repository interface {
	CreateKOL(ctx context.Context, userID int, req CreateKOLRequest) (*KOL, error)
	GetByID(ctx context.Context, id int) (*KOL, error)
	GetByUserID(ctx context.Context, userID int) (*KOL, error)
	UpdatePricing(ctx context.Context, id int, p PricingUpdate) (*KOL, error)
	UpdateReputation(ctx context.Context, id int, score int64) (*KOL, error)
	ListAvailable(ctx context.Context) ([]KOL, error)
	TopByReputation(ctx context.Context, limit int) ([]KOL, error)
}
