package wishlist

import (
	"context"
	"log/slog"

	"github.com/mcoot/wishlist/internal/dependencies/random"
	"github.com/mcoot/wishlist/internal/model"
	"github.com/mcoot/wishlist/internal/services/auth"
	"github.com/mcoot/wishlist/internal/storage"
)

// Service posts gifts to wish lists and hands wish lists out through draws.
// A drawn wish list is removed from storage, so each one is delivered at
// most once across the whole server.
type Service struct {
	storage storage.Storage
	auth    *auth.Service
	random  random.Random
	logger  *slog.Logger
}

// New creates a new wish list Service
func New(storage storage.Storage, authService *auth.Service, random random.Random, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		auth:    authService,
		random:  random,
		logger:  logger.With(slog.String("component", "wishlist")),
	}
}

// Post adds gift to owner's wish list
func (s *Service) Post(ctx context.Context, owner, gift string) error {
	exists, err := s.auth.AccountExists(ctx, owner)
	if err != nil {
		return err
	}
	if !exists {
		return model.ErrAccountNotFound
	}

	if err := s.storage.AddGift(ctx, owner, gift); err != nil {
		return err
	}

	s.logger.Debug("gift posted", slog.String("owner", owner), slog.String("gift", gift))
	return nil
}

// Draw picks a random wish list not owned by requester and removes it.
//
// Owners are snapshotted in lexicographic order and one index is drawn.
// If it lands on the requester the next owner (wrapping) is taken instead;
// there is no further retry.
func (s *Service) Draw(ctx context.Context, requester string) (*model.WishList, error) {
	owners, err := s.storage.ListWishListOwners(ctx)
	if err != nil {
		return nil, err
	}

	if len(owners) == 0 || (len(owners) == 1 && owners[0] == requester) {
		return nil, model.ErrNoWishLists
	}

	i := s.random.Intn(len(owners))
	if owners[i] == requester {
		i = (i + 1) % len(owners)
	}

	wl, err := s.storage.TakeWishList(ctx, owners[i])
	if err != nil {
		return nil, err
	}

	s.logger.Info("wish list drawn",
		slog.String("requester", requester),
		slog.String("owner", wl.Owner),
		slog.Int("remaining", len(owners)-1))
	return wl, nil
}
