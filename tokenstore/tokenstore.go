// Package tokenstore advances and reads a per-stream high-water-mark token,
// letting a PrepareCommit handler detect and skip redelivery from an
// at-least-once event source. Built atop store.Store.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/axonkit/uowkernel/store"
)

// TokenStore tracks the furthest-processed position in a stream of
// envelopes, so PrepareCommit handlers can detect and skip re-delivery from
// an at-least-once source.
type TokenStore struct {
	backing store.Store
}

// New creates a TokenStore atop the given backing Store.
func New(backing store.Store) *TokenStore {
	return &TokenStore{backing: backing}
}

func key(streamID string) string {
	return store.NamespaceTokens + "/" + streamID
}

// Current returns the stream's current token, or 0 if the stream has never
// advanced.
func (t *TokenStore) Current(ctx context.Context, streamID string) (uint64, error) {
	entries, err := t.backing.Load(ctx, key(streamID))
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("tokenstore: current: %w", err)
	}
	return parseToken(entries[0].Value)
}

// Advance sets the stream's token to candidate, unless candidate is less
// than or equal to the current token — in which case Advance is a no-op,
// not an error, so idempotent retries from an at-least-once source never
// regress the stream and never fail.
func (t *TokenStore) Advance(ctx context.Context, streamID string, candidate uint64) error {
	current, err := t.Current(ctx, streamID)
	if err != nil {
		return err
	}
	if candidate <= current {
		return nil
	}
	err = t.backing.Save(ctx, store.Entry{
		Key:   key(streamID),
		Value: []byte(strconv.FormatUint(candidate, 10)),
	})
	if err != nil {
		return fmt.Errorf("tokenstore: advance: %w", err)
	}
	return nil
}

func parseToken(raw []byte) (uint64, error) {
	v, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("tokenstore: corrupt token value %q: %w", raw, err)
	}
	return v, nil
}
