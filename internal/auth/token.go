package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Source yields an access token for the market-data provider. The full
// login exchange lives outside this process; implementations wrap whatever
// collaborator performs it.
type Source interface {
	Token(ctx context.Context) (string, error)
}

// Static returns a fixed, pre-issued token.
type Static struct {
	Value string
}

// Token implements Source.
func (s Static) Token(context.Context) (string, error) {
	if s.Value == "" {
		return "", errors.New("auth: no access token configured")
	}
	return s.Value, nil
}

type tokenRecord struct {
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"timestamp"`
}

// FileCache persists the most recent token on disk and reuses it for the
// rest of the calendar day it was issued on. Provider tokens expire
// overnight, so a token from any earlier day is treated as stale.
type FileCache struct {
	path   string
	inner  Source
	logger zerolog.Logger
	now    func() time.Time
}

// NewFileCache wraps inner with a same-day on-disk token cache at path.
func NewFileCache(path string, inner Source, logger zerolog.Logger) *FileCache {
	return &FileCache{
		path:   path,
		inner:  inner,
		logger: logger.With().Str("component", "token_cache").Logger(),
		now:    time.Now,
	}
}

// Token returns the cached token when it was issued today, otherwise asks
// the inner source and saves the result.
func (c *FileCache) Token(ctx context.Context) (string, error) {
	if record, err := c.load(); err == nil {
		if sameDay(record.IssuedAt, c.now()) {
			return record.Token, nil
		}
		c.logger.Info().Time("issued_at", record.IssuedAt).Msg("cached token expired")
	} else if !errors.Is(err, os.ErrNotExist) {
		c.logger.Warn().Err(err).Msg("failed to read token cache")
	}

	token, err := c.inner.Token(ctx)
	if err != nil {
		return "", err
	}

	if err := c.save(tokenRecord{Token: token, IssuedAt: c.now()}); err != nil {
		c.logger.Error().Err(err).Msg("failed to persist token")
	}
	return token, nil
}

func (c *FileCache) load() (tokenRecord, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return tokenRecord{}, err
	}
	var record tokenRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return tokenRecord{}, fmt.Errorf("parse token cache: %w", err)
	}
	return record, nil
}

// save writes via a temp file and rename so a crash never leaves a
// truncated cache behind.
func (c *FileCache) save(record tokenRecord) error {
	if dir := filepath.Dir(c.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

var _ Source = Static{}
var _ Source = (*FileCache)(nil)
