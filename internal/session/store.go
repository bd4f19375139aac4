// Package session はRedisを使ったセッションストアを提供する。
// アクティブなセッションと、アカウント切り替え時に退避する副アカウントのセッションを保持する。
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hitoshi/lactech/internal/model"
)

const keyPrefix = "lactech:session:"

// Key はアクティブなセッションのキーを返す。
func Key(sid string) string {
	return keyPrefix + sid
}

// SecondaryKey は退避した副アカウントセッションのキーを返す。
func SecondaryKey(sid string) string {
	return keyPrefix + sid + ":secondary"
}

// Store はセッション情報をRedisに保存する。
// Redisのキー有効期限とは別に、読み出し時にログイン時刻からのTTLを検証する。
type Store struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewStore はStoreを生成する。
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl, now: time.Now}
}

// TTL はセッションの有効期間を返す。
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Get はアクティブなセッションを取得する。
// 存在しない場合はnilを返す。期限切れのセッションは削除してnilを返す。
func (s *Store) Get(ctx context.Context, sid string) (*model.SessionData, error) {
	return s.get(ctx, Key(sid))
}

// GetSecondary は退避した副アカウントのセッションを取得する。
func (s *Store) GetSecondary(ctx context.Context, sid string) (*model.SessionData, error) {
	return s.get(ctx, SecondaryKey(sid))
}

// Put はアクティブなセッションを保存する。
func (s *Store) Put(ctx context.Context, sid string, data *model.SessionData) error {
	return s.put(ctx, Key(sid), data)
}

// PutSecondary は副アカウントのセッションを退避キーに保存する。
func (s *Store) PutSecondary(ctx context.Context, sid string, data *model.SessionData) error {
	return s.put(ctx, SecondaryKey(sid), data)
}

// Delete はアクティブなセッションと退避セッションの両方を削除する。
func (s *Store) Delete(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, Key(sid), SecondaryKey(sid)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) (*model.SessionData, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var data model.SessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		slog.Warn("discarding malformed session", slog.String("key", key), slog.String("error", err.Error()))
		s.client.Del(ctx, key)
		return nil, nil
	}

	if !data.Valid(s.now(), s.ttl) {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			slog.Warn("failed to delete expired session", slog.String("key", key), slog.String("error", err.Error()))
		}
		return nil, nil
	}
	return &data, nil
}

func (s *Store) put(ctx context.Context, key string, data *model.SessionData) error {
	remaining := s.ttl - s.now().Sub(data.LoginTime)
	if remaining <= 0 {
		return fmt.Errorf("session login time %s is outside the %s window", data.LoginTime.Format(time.RFC3339), s.ttl)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, key, raw, remaining).Err(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// NewID は暗号的に安全なセッションIDを生成する。
func NewID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
