package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidSession means the session token could not be resolved to a user:
// the key is absent or the stored attribute is malformed.
var ErrInvalidSession = errors.New("invalid session")

const (
	keyPrefix     = "spring:session:sessions:"
	idField       = "sessionAttr:id"
	attrDelimiter = "|BEGIN|"

	lookupTimeout = 5 * time.Second
)

// Resolver maps session cookies to durable user ids via the external Redis
// session store.
type Resolver struct {
	client *redis.Client
}

// NewResolver connects to the session store and verifies the connection
// before the server starts accepting clients.
func NewResolver(addr string) (*Resolver, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("unable to reach session store: %w", err)
	}

	return &Resolver{client: client}, nil
}

// Resolve looks the session up and returns the user id it belongs to.
func (r *Resolver) Resolve(ctx context.Context, token string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	attr, err := r.client.HGet(ctx, keyPrefix+token, idField).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, fmt.Errorf("%w: %s", ErrInvalidSession, token)
		}
		return 0, err
	}

	return parseIdentity(attr)
}

func (r *Resolver) Close() error {
	return r.client.Close()
}

// parseIdentity extracts the user id from a session attribute. The Spring
// Session serializer prefixes its own data, so the application id is the
// substring after the delimiter.
func parseIdentity(attr string) (int, error) {
	_, raw, found := strings.Cut(attr, attrDelimiter)
	if !found {
		return 0, fmt.Errorf("%w: attribute has no delimiter", ErrInvalidSession)
	}

	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: attribute id is not numeric", ErrInvalidSession)
	}
	return id, nil
}
