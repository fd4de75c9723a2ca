// Package repository maps the stage, task and feature collections of the
// record store onto typed models.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/homekey/stage-tracker/internal/store"
)

// Payload is a create or update body. It is forwarded to the store unchanged;
// the store is the only validator.
type Payload map[string]interface{}

// RecordStore is the part of the store client the repositories use
type RecordStore interface {
	List(ctx context.Context, collection string, opts store.ListOptions) ([]json.RawMessage, error)
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	Create(ctx context.Context, collection string, payload interface{}) (json.RawMessage, error)
	Update(ctx context.Context, collection, id string, payload interface{}) (json.RawMessage, error)
	Delete(ctx context.Context, collection, id string) error
}

// records implements the CRUD operations shared by every collection
type records[T any] struct {
	store      RecordStore
	collection string
}

func (r records[T]) list(ctx context.Context, opts store.ListOptions) ([]T, error) {
	raw, err := r.store.List(ctx, r.collection, opts)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for _, item := range raw {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", r.collection, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (r records[T]) get(ctx context.Context, id string) (*T, error) {
	raw, err := r.store.Get(ctx, r.collection, id)
	if err != nil {
		return nil, err
	}
	return decodeOne[T](r.collection, raw)
}

func (r records[T]) create(ctx context.Context, payload Payload) (*T, error) {
	raw, err := r.store.Create(ctx, r.collection, payload)
	if err != nil {
		return nil, err
	}
	return decodeOne[T](r.collection, raw)
}

func (r records[T]) update(ctx context.Context, id string, payload Payload) (*T, error) {
	raw, err := r.store.Update(ctx, r.collection, id, payload)
	if err != nil {
		return nil, err
	}
	return decodeOne[T](r.collection, raw)
}

func (r records[T]) delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, r.collection, id)
}

func decodeOne[T any](collection string, raw json.RawMessage) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("decode %s record: %w", collection, err)
	}
	return v, nil
}

// CoerceCompletion turns the strings "true" and "false" (any case, surrounding
// spaces ignored) under isCompleted into booleans. Any other value is left
// for the store to accept or reject.
func CoerceCompletion(payload Payload) Payload {
	v, ok := payload["isCompleted"].(string)
	if !ok {
		return payload
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true":
		payload["isCompleted"] = true
	case "false":
		payload["isCompleted"] = false
	}
	return payload
}
