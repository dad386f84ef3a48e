package session

import (
	"context"
	"errors"
	"testing"

	redisclient "github.com/angelmondragon/storefront-backend/pkg/redis"
)

type fakeStore struct {
	data map[string]string
	err  error
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.data[key]
	if !ok {
		return "", redisclient.Nil
	}
	return v, nil
}

type fakeKeyer struct{}

func (fakeKeyer) AccessSessionKey(accessID string) string {
	return "session:" + accessID
}

func TestHasSession(t *testing.T) {
	store := &fakeStore{data: map[string]string{"session:live": "token"}}
	checker := &Checker{store: store, keyer: fakeKeyer{}}

	ok, err := checker.HasSession(context.Background(), "live")
	if err != nil || !ok {
		t.Fatalf("expected live session, ok=%v err=%v", ok, err)
	}

	ok, err = checker.HasSession(context.Background(), "gone")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected missing session")
	}

	if _, err := checker.HasSession(context.Background(), " "); err == nil {
		t.Fatal("expected error for blank access id")
	}
}

func TestHasSessionPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection refused")
	checker := &Checker{store: &fakeStore{err: boom}, keyer: fakeKeyer{}}

	if _, err := checker.HasSession(context.Background(), "id"); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestNewCheckerRequiresClient(t *testing.T) {
	if _, err := NewChecker(nil); err == nil {
		t.Fatal("expected error for nil client")
	}
}
