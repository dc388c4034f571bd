package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the production Store backed by Redis. TTL expiry is the
// store's own; none of the staging families has an explicit timeout path.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

func (s *RedisStore) delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func setJSON[T any](ctx context.Context, s *RedisStore, key string, rec T, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.set(ctx, key, string(data), ttl)
}

func getJSON[T any](ctx context.Context, s *RedisStore, key string) (T, bool, error) {
	var rec T
	raw, ok, err := s.get(ctx, key)
	if err != nil || !ok {
		return rec, false, err
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return rec, false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return rec, true, nil
}

func (s *RedisStore) SetRefreshSession(ctx context.Context, subject, token string, ttl time.Duration) error {
	return s.set(ctx, keyRefresh+subject, token, ttl)
}

func (s *RedisStore) GetRefreshSession(ctx context.Context, subject string) (string, bool, error) {
	return s.get(ctx, keyRefresh+subject)
}

func (s *RedisStore) DeleteRefreshSession(ctx context.Context, subject string) error {
	return s.delete(ctx, keyRefresh+subject)
}

func (s *RedisStore) SetMemberID(ctx context.Context, subject string, memberID int64, ttl time.Duration) error {
	return s.set(ctx, keyMemberID+subject, strconv.FormatInt(memberID, 10), ttl)
}

func (s *RedisStore) GetMemberID(ctx context.Context, subject string) (int64, bool, error) {
	raw, ok, err := s.get(ctx, keyMemberID+subject)
	if err != nil || !ok {
		return 0, false, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse cached member id: %w", err)
	}
	return id, true, nil
}

func (s *RedisStore) DeleteMemberID(ctx context.Context, subject string) error {
	return s.delete(ctx, keyMemberID+subject)
}

func (s *RedisStore) SetSignupStaging(ctx context.Context, correlationID string, rec SignupStaging, ttl time.Duration) error {
	return setJSON(ctx, s, keySignup+correlationID, rec, ttl)
}

func (s *RedisStore) GetSignupStaging(ctx context.Context, correlationID string) (SignupStaging, bool, error) {
	return getJSON[SignupStaging](ctx, s, keySignup+correlationID)
}

func (s *RedisStore) DeleteSignupStaging(ctx context.Context, correlationID string) error {
	return s.delete(ctx, keySignup+correlationID)
}

func (s *RedisStore) SetPhoneCode(ctx context.Context, phone string, rec PhoneCodeStaging, ttl time.Duration) error {
	return setJSON(ctx, s, keyPhoneCode+phone, rec, ttl)
}

func (s *RedisStore) GetPhoneCode(ctx context.Context, phone string) (PhoneCodeStaging, bool, error) {
	return getJSON[PhoneCodeStaging](ctx, s, keyPhoneCode+phone)
}

func (s *RedisStore) DeletePhoneCode(ctx context.Context, phone string) error {
	return s.delete(ctx, keyPhoneCode+phone)
}

func (s *RedisStore) SetLinkStaging(ctx context.Context, phone string, rec LinkStaging, ttl time.Duration) error {
	return setJSON(ctx, s, keyLinkStaging+phone, rec, ttl)
}

func (s *RedisStore) GetLinkStaging(ctx context.Context, phone string) (LinkStaging, bool, error) {
	return getJSON[LinkStaging](ctx, s, keyLinkStaging+phone)
}

func (s *RedisStore) DeleteLinkStaging(ctx context.Context, phone string) error {
	return s.delete(ctx, keyLinkStaging+phone)
}

func (s *RedisStore) ExtendLinkStaging(ctx context.Context, phone string, ttl time.Duration) error {
	// Expire on a missing key is a no-op; absence means the flow expired.
	if err := s.client.Expire(ctx, keyLinkStaging+phone, ttl).Err(); err != nil {
		return fmt.Errorf("redis expire %s: %w", keyLinkStaging+phone, err)
	}
	return nil
}

func (s *RedisStore) MarkPhoneVerified(ctx context.Context, phone string, ttl time.Duration) error {
	return s.set(ctx, keyPhoneVerified+phone, "1", ttl)
}

func (s *RedisStore) IsPhoneVerified(ctx context.Context, phone string) (bool, error) {
	_, ok, err := s.get(ctx, keyPhoneVerified+phone)
	return ok, err
}

func (s *RedisStore) DeletePhoneVerified(ctx context.Context, phone string) error {
	return s.delete(ctx, keyPhoneVerified+phone)
}
