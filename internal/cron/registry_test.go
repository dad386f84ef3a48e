package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryStoresJobsInOrder(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	if err := registry.Register(jobA); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := registry.Register(jobB); err != nil {
		t.Fatalf("register b: %v", err)
	}
	if err := registry.Register(nil); err != nil {
		t.Fatalf("nil job should be ignored: %v", err)
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 || jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("unexpected jobs %v", jobs)
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	if _, err := NewRegistry(&stubJob{name: "a"}, &stubJob{name: "a"}); err == nil {
		t.Fatalf("expected duplicate name error")
	}
}

func TestRegistryRejectsBlankNameAndListsNames(t *testing.T) {
	if _, err := NewRegistry(&stubJob{name: "  "}); err == nil {
		t.Fatalf("expected blank name error")
	}
	registry, err := NewRegistry(&stubJob{name: "outbox-retention"}, &stubJob{name: "outbox-parked-report"})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	names := registry.Names()
	if len(names) != 2 || names[0] != "outbox-retention" || names[1] != "outbox-parked-report" {
		t.Fatalf("unexpected names %v", names)
	}
}
