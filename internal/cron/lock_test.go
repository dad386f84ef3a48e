package cron

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memoryLockStore struct {
	values map[string]string
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryLockStore) ExpireIfEquals(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	return m.values[key] == value, nil
}

func (m *memoryLockStore) DelIfEquals(_ context.Context, key, value string) (bool, error) {
	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockIsExclusive(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	first, err := NewRedisLock(store, "sf:lock:cron", 0)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, _ := NewRedisLock(store, "sf:lock:cron", 0)

	if ok, err := first.Acquire(context.Background()); err != nil || !ok {
		t.Fatalf("expected first acquire, got %v %v", ok, err)
	}
	if ok, _ := second.Acquire(context.Background()); ok {
		t.Fatalf("second replica must not acquire a held lock")
	}
	if err := second.Release(context.Background()); err != nil {
		t.Fatalf("release by non-owner: %v", err)
	}
	if _, ok := store.values["sf:lock:cron"]; !ok {
		t.Fatalf("non-owner release must not delete the key")
	}
	if err := first.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := second.Acquire(context.Background()); !ok {
		t.Fatalf("expected lock free after owner release")
	}
}

func TestRedisLockLeavesForeignOwner(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	lock, _ := NewRedisLock(store, "k", time.Minute)
	if ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatalf("expected acquire")
	}
	store.values["k"] = "someone-else"

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.values["k"] != "someone-else" {
		t.Fatalf("expired lock re-taken by another owner must survive")
	}
}

func TestNewRedisLockValidates(t *testing.T) {
	if _, err := NewRedisLock(nil, "k", 0); err == nil {
		t.Fatalf("expected store requirement")
	}
	if _, err := NewRedisLock(&memoryLockStore{}, "", 0); err == nil {
		t.Fatalf("expected key requirement")
	}
}

func TestRedisLockExtendDetectsLostOwnership(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	lock, _ := NewRedisLock(store, "k", time.Minute)
	if err := lock.Extend(context.Background()); !errors.Is(err, errLockLost) {
		t.Fatalf("extend before acquire should report a lost lock, got %v", err)
	}
	if ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatalf("expected acquire")
	}
	if err := lock.Extend(context.Background()); err != nil {
		t.Fatalf("extend while held: %v", err)
	}

	store.values["k"] = "someone-else"
	if err := lock.Extend(context.Background()); !errors.Is(err, errLockLost) {
		t.Fatalf("expected errLockLost, got %v", err)
	}
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release after loss: %v", err)
	}
	if store.values["k"] != "someone-else" {
		t.Fatalf("release after loss must not touch the new owner's key")
	}
}
