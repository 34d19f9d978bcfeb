// Package redis provides a Redis-backed ownership store.
// Each owner has one set per relation holding data entity ids.
package redis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"alertcache/internal/config"
	"alertcache/internal/domain"
)

const prefixOwner = "owner:"

// OwnershipStore implements store.OwnershipStore using Redis sets.
type OwnershipStore struct {
	client *redis.Client
}

// NewOwnershipStore connects to Redis and returns an ownership store.
func NewOwnershipStore(cfg *config.RedisConfig) (*OwnershipStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &OwnershipStore{client: client}, nil
}

// relationKey generates the Redis key of an owner's relation set.
func relationKey(owner string, relation domain.Relation) string {
	return fmt.Sprintf("%s%s:%s", prefixOwner, owner, relation)
}

func otherRelation(relation domain.Relation) domain.Relation {
	if relation == domain.RelationOwned {
		return domain.RelationDependent
	}
	return domain.RelationOwned
}

// Assign adds the entity to the relation set and removes it from the other one.
func (s *OwnershipStore) Assign(ctx context.Context, o domain.Ownership) error {
	if err := o.Validate(); err != nil {
		return err
	}

	id := string(o.DataEntityID)
	pipe := s.client.TxPipeline()
	pipe.SRem(ctx, relationKey(o.Owner, otherRelation(o.Relation)), id)
	pipe.SAdd(ctx, relationKey(o.Owner, o.Relation), id)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to assign data entity: %w", err)
	}
	return nil
}

// Unassign removes the entity from both relation sets.
func (s *OwnershipStore) Unassign(ctx context.Context, owner string, id domain.DataEntityID) error {
	pipe := s.client.TxPipeline()
	pipe.SRem(ctx, relationKey(owner, domain.RelationOwned), string(id))
	pipe.SRem(ctx, relationKey(owner, domain.RelationDependent), string(id))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to unassign data entity: %w", err)
	}
	return nil
}

// Entities returns the sorted members of an owner's relation set.
func (s *OwnershipStore) Entities(ctx context.Context, owner string, relation domain.Relation) ([]domain.DataEntityID, error) {
	members, err := s.client.SMembers(ctx, relationKey(owner, relation)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get data entities: %w", err)
	}

	sort.Strings(members)
	out := make([]domain.DataEntityID, len(members))
	for i, m := range members {
		out[i] = domain.DataEntityID(m)
	}
	return out, nil
}

// Close closes the Redis client.
func (s *OwnershipStore) Close() error {
	return s.client.Close()
}
