package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/wishlist/internal/model"
	"github.com/mcoot/wishlist/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	accounts  map[string]*model.Account
	wishLists map[string]*model.WishList
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		accounts:  make(map[string]*model.Account),
		wishLists: make(map[string]*model.WishList),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.Username]; ok {
		return model.ErrUsernameTaken
	}
	stored := *account
	s.accounts[account.Username] = &stored
	return nil
}

func (s *Storage) GetAccount(ctx context.Context, username string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[username]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	result := *account
	return &result, nil
}

func (s *Storage) CountAccounts(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts), nil
}

// Wish list operations

func (s *Storage) AddGift(ctx context.Context, owner, gift string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wl, ok := s.wishLists[owner]
	if !ok {
		wl = &model.WishList{Owner: owner}
		s.wishLists[owner] = wl
	}
	if wl.Contains(gift) {
		return model.ErrGiftExists
	}
	wl.Gifts = append(wl.Gifts, gift)
	return nil
}

func (s *Storage) ListWishListOwners(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owners := make([]string, 0, len(s.wishLists))
	for owner := range s.wishLists {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners, nil
}

func (s *Storage) TakeWishList(ctx context.Context, owner string) (*model.WishList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wl, ok := s.wishLists[owner]
	if !ok {
		return nil, model.ErrWishListNotFound
	}
	delete(s.wishLists, owner)
	return wl, nil
}

func (s *Storage) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = make(map[string]*model.Account)
	s.wishLists = make(map[string]*model.WishList)
	return nil
}
