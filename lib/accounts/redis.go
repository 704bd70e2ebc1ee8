package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one json value per account plus a sorted set of external
// ids scored by first insertion time, which gives listings a stable order.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisStore connects to the given redis url and pings it. Keys are
// prefixed with namespace ("yamisign" when empty).
func NewRedisStore(ctx context.Context, redisURL, namespace string) (*RedisStore, error) {
	url := strings.TrimSpace(redisURL)
	if url == "" {
		return nil, errors.New("redis url is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	if namespace == "" {
		namespace = "yamisign"
	}
	return &RedisStore{client: client, namespace: namespace}, nil
}

func (s *RedisStore) accountKey(id string) string {
	return fmt.Sprintf("%s:account:%s", s.namespace, id)
}

func (s *RedisStore) orderKey() string {
	return fmt.Sprintf("%s:accounts", s.namespace)
}

func (s *RedisStore) list(ctx context.Context, keep func(Account) bool) ([]Account, error) {
	ids, err := s.client.ZRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := []Account{}
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.accountKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var acc Account
		err := json.Unmarshal([]byte(raw), &acc)
		if err != nil {
			return nil, fmt.Errorf("decode account '%s': %w", ids[i], err)
		}
		if keep(acc) {
			out = append(out, acc)
		}
	}
	return out, nil
}

func (s *RedisStore) GetAll(ctx context.Context) ([]Account, error) {
	out, err := s.list(ctx, func(Account) bool { return true })
	if err != nil {
		return nil, fmt.Errorf("get all accounts: %w", err)
	}
	return out, nil
}

func (s *RedisStore) GetAutoSign(ctx context.Context) ([]Account, error) {
	out, err := s.list(ctx, func(a Account) bool { return a.AutoSign })
	if err != nil {
		return nil, fmt.Errorf("get autosign accounts: %w", err)
	}
	return out, nil
}

func (s *RedisStore) GetByID(ctx context.Context, externalID string) (Account, error) {
	raw, err := s.client.Get(ctx, s.accountKey(externalID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("get account '%s': %w", externalID, err)
	}
	var acc Account
	err = json.Unmarshal(raw, &acc)
	if err != nil {
		return Account{}, fmt.Errorf("decode account '%s': %w", externalID, err)
	}
	return acc, nil
}

func (s *RedisStore) Upsert(ctx context.Context, account Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("upsert account '%s': %w", account.ExternalID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.accountKey(account.ExternalID), data, 0)
	pipe.ZAddNX(ctx, s.orderKey(), redis.Z{
		Score:  float64(time.Now().UnixMicro()),
		Member: account.ExternalID,
	})
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert account '%s': %w", account.ExternalID, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
