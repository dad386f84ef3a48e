package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		name    string
		project string
		topic   string
		want    string
	}{
		{name: "short id", project: "shop", topic: "orders", want: "projects/shop/topics/orders"},
		{name: "trims", project: " shop ", topic: " orders ", want: "projects/shop/topics/orders"},
		{name: "full name kept", project: "other", topic: "projects/shop/topics/orders", want: "projects/shop/topics/orders"},
		{name: "empty topic", project: "shop", topic: "  ", want: ""},
		{name: "missing project", project: "", topic: "orders", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := topicResourceName(tc.project, tc.topic); got != tc.want {
				t.Fatalf("expected %q got %q", tc.want, got)
			}
		})
	}
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	if got := topicNames(config.PubSubConfig{OrdersTopic: "  "}); len(got) != 0 {
		t.Fatalf("expected no topics, got %v", got)
	}
	got := topicNames(config.PubSubConfig{OrdersTopic: "orders"})
	if len(got) != 1 || got[0] != "orders" {
		t.Fatalf("unexpected topics %v", got)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("orders") != nil {
		t.Fatalf("expected nil publisher from nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping error on nil client")
	}
}
