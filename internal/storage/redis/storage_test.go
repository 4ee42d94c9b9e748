package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/wishlist/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.storage = NewWithClient(client, DefaultConfig())
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

// Account tests

func (s *StorageSuite) TestCreateAndGetAccount() {
	account := &model.Account{
		Username:     "alice",
		PasswordHash: "hash123",
		CreatedAt:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	err := s.storage.CreateAccount(s.ctx, account)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetAccount(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(account.Username, retrieved.Username)
	s.Equal(account.PasswordHash, retrieved.PasswordHash)
	s.True(account.CreatedAt.Equal(retrieved.CreatedAt))
}

func (s *StorageSuite) TestGetAccountNotFound() {
	_, err := s.storage.GetAccount(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *StorageSuite) TestCreateAccountTwiceKeepsFirst() {
	_ = s.storage.CreateAccount(s.ctx, &model.Account{Username: "alice", PasswordHash: "first"})

	err := s.storage.CreateAccount(s.ctx, &model.Account{Username: "alice", PasswordHash: "second"})
	s.ErrorIs(err, model.ErrUsernameTaken)

	retrieved, _ := s.storage.GetAccount(s.ctx, "alice")
	s.Equal("first", retrieved.PasswordHash)

	n, _ := s.storage.CountAccounts(s.ctx)
	s.Equal(1, n)
}

func (s *StorageSuite) TestAccountKeyLayout() {
	_ = s.storage.CreateAccount(s.ctx, &model.Account{Username: "alice"})

	s.True(s.mini.Exists("wishlist:account:alice"))
	members, err := s.mini.Members("wishlist:idx:accounts")
	s.Require().NoError(err)
	s.Equal([]string{"alice"}, members)
}

// Wish list tests

func (s *StorageSuite) TestAddGiftCreatesWishList() {
	err := s.storage.AddGift(s.ctx, "bob", "bicycle")
	s.Require().NoError(err)

	wl, err := s.storage.TakeWishList(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal([]string{"bicycle"}, wl.Gifts)
}

func (s *StorageSuite) TestAddGiftKeepsPostingOrder() {
	_ = s.storage.AddGift(s.ctx, "bob", "scooter")
	_ = s.storage.AddGift(s.ctx, "bob", "a red ball")

	wl, err := s.storage.TakeWishList(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal([]string{"scooter", "a red ball"}, wl.Gifts)
}

func (s *StorageSuite) TestAddGiftRejectsDuplicate() {
	_ = s.storage.AddGift(s.ctx, "bob", "bicycle")

	err := s.storage.AddGift(s.ctx, "bob", "bicycle")
	s.ErrorIs(err, model.ErrGiftExists)

	wl, err := s.storage.TakeWishList(s.ctx, "bob")
	s.Require().NoError(err)
	s.Len(wl.Gifts, 1)
}

func (s *StorageSuite) TestTakeWishListNotFound() {
	_, err := s.storage.TakeWishList(s.ctx, "bob")
	s.ErrorIs(err, model.ErrWishListNotFound)
}

func (s *StorageSuite) TestListWishListOwnersSorted() {
	_ = s.storage.AddGift(s.ctx, "carol", "kite")
	_ = s.storage.AddGift(s.ctx, "alice", "book")
	_ = s.storage.AddGift(s.ctx, "bob", "bicycle")

	owners, err := s.storage.ListWishListOwners(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"alice", "bob", "carol"}, owners)
}

func (s *StorageSuite) TestTakeWishListRemovesIt() {
	_ = s.storage.AddGift(s.ctx, "bob", "bicycle")
	_ = s.storage.AddGift(s.ctx, "bob", "kite")

	wl, err := s.storage.TakeWishList(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal("bob", wl.Owner)
	s.Equal([]string{"bicycle", "kite"}, wl.Gifts)

	_, err = s.storage.TakeWishList(s.ctx, "bob")
	s.ErrorIs(err, model.ErrWishListNotFound)

	s.False(s.mini.Exists("wishlist:gifts:bob"))
	s.False(s.mini.Exists("wishlist:giftset:bob"))
}

func (s *StorageSuite) TestGiftCanBePostedAgainAfterTake() {
	_ = s.storage.AddGift(s.ctx, "bob", "bicycle")
	_, _ = s.storage.TakeWishList(s.ctx, "bob")

	err := s.storage.AddGift(s.ctx, "bob", "bicycle")
	s.Require().NoError(err)
}

func (s *StorageSuite) TestClearOnlyTouchesPrefix() {
	_ = s.storage.CreateAccount(s.ctx, &model.Account{Username: "alice"})
	_ = s.storage.AddGift(s.ctx, "alice", "book")
	s.Require().NoError(s.mini.Set("other:key", "value"))

	s.Require().NoError(s.storage.Clear(s.ctx))

	n, _ := s.storage.CountAccounts(s.ctx)
	s.Zero(n)
	owners, _ := s.storage.ListWishListOwners(s.ctx)
	s.Empty(owners)
	s.True(s.mini.Exists("other:key"))
}
