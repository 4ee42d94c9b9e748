package storage

import (
	"context"

	"github.com/mcoot/wishlist/internal/model"
)

// Storage holds accounts and wish lists. Sessions are tied to live
// connections and stay with the auth service.
type Storage interface {
	// Account operations
	// CreateAccount fails with model.ErrUsernameTaken if the username exists
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, username string) (*model.Account, error)
	CountAccounts(ctx context.Context) (int, error)

	// Wish list operations
	// AddGift creates the owner's wish list on first use and fails with
	// model.ErrGiftExists if the gift is already on it
	AddGift(ctx context.Context, owner, gift string) error
	// ListWishListOwners returns owners in lexicographic order
	ListWishListOwners(ctx context.Context) ([]string, error)
	// TakeWishList removes the owner's wish list and returns it
	TakeWishList(ctx context.Context, owner string) (*model.WishList, error)

	// Clear drops all accounts and wish lists
	Clear(ctx context.Context) error
}
