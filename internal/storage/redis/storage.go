package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/wishlist/internal/model"
	"github.com/mcoot/wishlist/internal/storage"
)

// addGiftScript appends a gift unless the owner already has it.
// KEYS: giftSet, gifts, ownerIndex. ARGV: gift, owner.
var addGiftScript = redis.NewScript(`
if redis.call('SADD', KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call('RPUSH', KEYS[2], ARGV[1])
redis.call('SADD', KEYS[3], ARGV[2])
return 1
`)

// takeWishListScript removes an owner's wish list and returns its gifts.
// KEYS: ownerIndex, gifts, giftSet. ARGV: owner.
var takeWishListScript = redis.NewScript(`
if redis.call('SREM', KEYS[1], ARGV[1]) == 0 then
  return false
end
local gifts = redis.call('LRANGE', KEYS[2], 0, -1)
redis.call('DEL', KEYS[2], KEYS[3])
return gifts
`)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	keys   keys
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultConfig().KeyPrefix
	}
	return &Storage{
		client: client,
		keys:   keys{prefix: prefix},
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return err
	}

	var created *redis.BoolCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		created = pipe.SetNX(ctx, s.keys.account(account.Username), data, 0)
		pipe.SAdd(ctx, s.keys.accountIndex(), account.Username)
		return nil
	})
	if err != nil {
		return err
	}
	if !created.Val() {
		return model.ErrUsernameTaken
	}
	return nil
}

func (s *Storage) GetAccount(ctx context.Context, username string) (*model.Account, error) {
	data, err := s.client.Get(ctx, s.keys.account(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}

	var account model.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("decode account %q: %w", username, err)
	}
	return &account, nil
}

func (s *Storage) CountAccounts(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, s.keys.accountIndex()).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Wish list operations

func (s *Storage) AddGift(ctx context.Context, owner, gift string) error {
	added, err := addGiftScript.Run(ctx, s.client,
		[]string{s.keys.giftSet(owner), s.keys.gifts(owner), s.keys.ownerIndex()},
		gift, owner,
	).Int()
	if err != nil {
		return err
	}
	if added == 0 {
		return model.ErrGiftExists
	}
	return nil
}

func (s *Storage) ListWishListOwners(ctx context.Context) ([]string, error) {
	owners, err := s.client.SMembers(ctx, s.keys.ownerIndex()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(owners)
	return owners, nil
}

func (s *Storage) TakeWishList(ctx context.Context, owner string) (*model.WishList, error) {
	gifts, err := takeWishListScript.Run(ctx, s.client,
		[]string{s.keys.ownerIndex(), s.keys.gifts(owner), s.keys.giftSet(owner)},
		owner,
	).StringSlice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrWishListNotFound
		}
		return nil, err
	}
	return &model.WishList{Owner: owner, Gifts: gifts}, nil
}

// Clear deletes every key under the configured prefix
func (s *Storage) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.keys.pattern(), 100).Iterator()

	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.client.Del(ctx, batch...).Err()
	}
	return nil
}
