package ideastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mohammad-safakhou/ideahub/internal/hub"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultHashKey = "ideahub:ideas"

// RedisPersistence stores every owner's state as one field of a hash.
type RedisPersistence struct {
	client redis.UniversalClient
	key    string
}

func NewRedisPersistence(client redis.UniversalClient, key string) *RedisPersistence {
	if key == "" {
		key = defaultHashKey
	}
	return &RedisPersistence{client: client, key: key}
}

func (p *RedisPersistence) Save(ctx context.Context, s State) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode idea: %w", err)
	}
	if err := p.client.HSet(ctx, p.key, s.Owner, raw).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (p *RedisPersistence) LoadAll(ctx context.Context) ([]State, error) {
	fields, err := p.client.HGetAll(ctx, p.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	out := make([]State, 0, len(fields))
	for owner, raw := range fields {
		var s State
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, fmt.Errorf("decode idea of %q: %w", owner, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// LegacyKeys names the flat keys older deployments kept the single current
// idea under.
type LegacyKeys struct {
	Idea   string
	Pinned string
}

func DefaultLegacyKeys() LegacyKeys {
	return LegacyKeys{Idea: "currentIdea", Pinned: "ideaPinned"}
}

// ImportLegacy moves the legacy idea, if any, into the store under owner and
// deletes the legacy keys. An owner that already has an idea keeps it. It
// reports whether an idea was imported.
func (s *Store) ImportLegacy(ctx context.Context, client redis.UniversalClient, owner string, keys LegacyKeys) (bool, error) {
	raw, err := client.Get(ctx, keys.Idea).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read legacy idea: %w", err)
	}
	in := parseLegacyIdea(raw)

	imported := false
	if _, exists := s.Current(owner); !exists && strings.TrimSpace(in.Idea) != "" {
		if _, err := s.Set(ctx, owner, in); err != nil {
			return false, err
		}
		if pinned, _ := client.Get(ctx, keys.Pinned).Result(); legacyTrue(pinned) {
			if _, err := s.Pin(ctx, owner); err != nil {
				return false, err
			}
		}
		imported = true
	}
	if err := client.Del(ctx, keys.Idea, keys.Pinned).Err(); err != nil {
		return imported, fmt.Errorf("delete legacy keys: %w", err)
	}
	s.log.WithFields(logrus.Fields{"owner": ownerKey(owner), "imported": imported}).Info("legacy idea keys migrated")
	return imported, nil
}

// parseLegacyIdea accepts either a JSON input descriptor or the bare idea text.
func parseLegacyIdea(raw string) hub.InputDescriptor {
	var in hub.InputDescriptor
	if strings.HasPrefix(strings.TrimSpace(raw), "{") && json.Unmarshal([]byte(raw), &in) == nil {
		return in
	}
	return hub.InputDescriptor{Idea: strings.TrimSpace(raw)}
}

func legacyTrue(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
