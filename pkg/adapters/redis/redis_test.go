package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisadapter "github.com/aretw0/conductor/pkg/adapters/redis"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/ports"
)

func newTestClient(t *testing.T) *backend.Client {
	t.Helper()

	srv := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRepository_Contract(t *testing.T) {
	repo := redisadapter.NewRepository(newTestClient(t), "conductor:test:")
	ports.RunRepositoryContract(t, repo)
}

func TestRepository_KeysArePrefixScoped(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	a := redisadapter.NewRepository(client, "tenant-a:")
	b := redisadapter.NewRepository(client, "tenant-b:")

	inst := &domain.WorkflowInstance{ID: "inst-1", State: "draft"}
	require.NoError(t, a.SaveInstance(ctx, inst))

	fromB, err := b.GetInstance(ctx, "inst-1")
	require.NoError(t, err)
	assert.Nil(t, fromB, "prefixes must isolate repositories sharing a server")
}

func TestBus_PublishReachesSubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := redisadapter.NewBus(newTestClient(t), "conductor:test:")

	received := make(chan domain.EventPayload, 1)
	require.NoError(t, bus.Subscribe(ctx, func(ctx context.Context, event domain.EventPayload) {
		received <- event
	}))

	event := domain.EventPayload{
		EventType:     "order.paid",
		Tenant:        "acme",
		Data:          map[string]any{"order_id": "o-1"},
		CorrelationID: "corr-1",
	}
	require.NoError(t, bus.Publish(ctx, event))

	select {
	case got := <-received:
		assert.Equal(t, "order.paid", got.EventType)
		assert.Equal(t, "acme", got.Tenant)
		assert.Equal(t, "o-1", got.Data["order_id"])
		assert.Equal(t, "corr-1", got.CorrelationID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered to the subscriber")
	}
}
