package kol

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sore/internal/logger"
)

const (
	leaderboardCacheKey = "kol:leaderboard"
	leaderboardCacheTTL = time.Minute
	leaderboardSize     = 50
)

type Service interface {
	BecomeKOL(ctx context.Context, userID int, req CreateKOLRequest) (*KOL, error)
	SetPolicy(ctx context.Context, kolID, actorUserID int, p PricingUpdate) (*KOL, error)
	SetReputation(ctx context.Context, kolID int, score int64) (*KOL, error)
	GetKOL(ctx context.Context, id int) (*KOL, error)
	ListAvailable(ctx context.Context) ([]KOL, error)
	Leaderboard(ctx context.Context) (*LeaderboardResult, error)
}

type service struct {
	repo  Repository
	cache *redis.Client
}

func NewService(repo Repository, cache *redis.Client) Service {
	return &service{repo: repo, cache: cache}
}

// validatePolicy enforces the pricing policy contract: positive price,
// sane duration range, minimum a multiple of the 30-minute slot length.
func validatePolicy(priceCents int64, minDuration, maxDuration int) error {
	if priceCents <= 0 {
		return fmt.Errorf("%w: price_per_slot_cents must be positive", ErrInvalidPolicy)
	}
	if minDuration <= 0 || minDuration > maxDuration {
		return fmt.Errorf("%w: duration range must satisfy 0 < min <= max", ErrInvalidPolicy)
	}
	if minDuration%30 != 0 {
		return fmt.Errorf("%w: min_booking_duration must be a multiple of 30 minutes", ErrInvalidPolicy)
	}
	return nil
}

func (s *service) BecomeKOL(ctx context.Context, userID int, req CreateKOLRequest) (*KOL, error) {
	if err := validatePolicy(req.PricePerSlotCents, req.MinBookingDuration, req.MaxBookingDuration); err != nil {
		return nil, err
	}
	return s.repo.CreateKOL(ctx, userID, req)
}

func (s *service) SetPolicy(ctx context.Context, kolID, actorUserID int, p PricingUpdate) (*KOL, error) {
	k, err := s.repo.GetByID(ctx, kolID)
	if err != nil {
		return nil, err
	}
	if k.UserID != actorUserID {
		return nil, fmt.Errorf("%w: only the owner may change pricing", ErrInvalidPolicy)
	}

	if err := validatePolicy(p.PricePerSlotCents, p.MinBookingDuration, p.MaxBookingDuration); err != nil {
		return nil, err
	}

	return s.repo.UpdatePricing(ctx, kolID, p)
}

func (s *service) SetReputation(ctx context.Context, kolID int, score int64) (*KOL, error) {
	k, err := s.repo.UpdateReputation(ctx, kolID, score)
	if err != nil {
		return nil, err
	}

	// Ranking changed, drop the cached leaderboard. Best effort.
	if s.cache != nil {
		if err := s.cache.Del(ctx, leaderboardCacheKey).Err(); err != nil {
			logger.Error("failed to invalidate leaderboard cache", "error", err)
		}
	}

	return k, nil
}

func (s *service) GetKOL(ctx context.Context, id int) (*KOL, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListAvailable(ctx context.Context) ([]KOL, error) {
	return s.repo.ListAvailable(ctx)
}

// Leaderboard serves from the Redis cache when possible and falls back
// to the database with an explicit degraded flag when the cache errors.
// A cache outage is visible in the result, never papered over.
func (s *service) Leaderboard(ctx context.Context) (*LeaderboardResult, error) {
	degraded := false

	if s.cache != nil {
		raw, err := s.cache.Get(ctx, leaderboardCacheKey).Result()
		if err == nil {
			var kols []KOL
			if jsonErr := json.Unmarshal([]byte(raw), &kols); jsonErr == nil {
				return &LeaderboardResult{Data: kols, Source: "cache"}, nil
			}
			logger.Error("corrupt leaderboard cache entry, refreshing from database")
		} else if err != redis.Nil {
			logger.Error("leaderboard cache unavailable", "error", err)
			degraded = true
		}
	}

	kols, err := s.repo.TopByReputation(ctx, leaderboardSize)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && !degraded {
		if data, jsonErr := json.Marshal(kols); jsonErr == nil {
			if err := s.cache.Set(ctx, leaderboardCacheKey, data, leaderboardCacheTTL).Err(); err != nil {
				logger.Error("failed to cache leaderboard", "error", err)
			}
		}
	}

	return &LeaderboardResult{Data: kols, Source: "database", Degraded: degraded}, nil
}
