package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/estore-backend/pkg/config"
)

func TestResourceNames(t *testing.T) {
	c := &Client{projectID: "estore-prod"}

	cases := []struct {
		kind, name, want string
	}{
		{"topics", "estore-order-events", "projects/estore-prod/topics/estore-order-events"},
		{"topics", "projects/other/topics/x", "projects/other/topics/x"},
		{"subscriptions", " notifications ", "projects/estore-prod/subscriptions/notifications"},
		{"subscriptions", "", ""},
	}
	for _, tc := range cases {
		if got := c.resourceName(tc.kind, tc.name); got != tc.want {
			t.Fatalf("resourceName(%q, %q) = %q, want %q", tc.kind, tc.name, got, tc.want)
		}
	}
}

func TestResourcesPerBinary(t *testing.T) {
	cfg := config.PubSubConfig{
		OrdersTopic:              "orders",
		InventoryTopic:           " ",
		NotificationSubscription: "notify",
	}
	pub := PublisherResources(cfg)
	if len(pub.Topics) != 1 || pub.Topics[0] != "orders" || len(pub.Subscriptions) != 0 {
		t.Fatalf("unexpected publisher resources %+v", pub)
	}
	sub := SubscriberResources(cfg)
	if len(sub.Subscriptions) != 1 || sub.Subscriptions[0] != "notify" || len(sub.Topics) != 0 {
		t.Fatalf("unexpected subscriber resources %+v", sub)
	}
	if !(Resources{}).empty() {
		t.Fatal("zero resources should be empty")
	}
}

func TestNewClientValidatesBeforeDialing(t *testing.T) {
	ctx := context.Background()
	cfg := config.PubSubConfig{OrdersTopic: "orders"}
	if _, err := NewClient(ctx, config.GCPConfig{}, cfg, PublisherResources(cfg), nil); err == nil {
		t.Fatal("expected error without project id")
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "p"}, cfg, Resources{}, nil); err == nil {
		t.Fatal("expected error without resources")
	}
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	if c.Publisher("orders") != nil {
		t.Fatal("nil client should not return a publisher")
	}
	if c.Subscription("notify") != nil {
		t.Fatal("nil client should not return a subscriber")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("ping on nil client should fail")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
}

func TestClientOptionsPreferInlineCredentials(t *testing.T) {
	if opts := clientOptions(config.GCPConfig{ProjectID: "p"}); len(opts) != 0 {
		t.Fatalf("expected default credentials, got %d options", len(opts))
	}
	inline := clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/tmp/key.json"})
	if len(inline) != 1 {
		t.Fatalf("expected a single credential option, got %d", len(inline))
	}
	if opts := clientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/key.json"}); len(opts) != 1 {
		t.Fatalf("expected key file option, got %d", len(opts))
	}
}
