package conductor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/conductor"
	"github.com/aretw0/conductor/pkg/adapters/memory"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/dsl"
)

// End-to-end: a definition built with the DSL, an application-supplied
// action that emits an outbound event, and an inbound event advancing
// the instance.
func TestOrchestrator_EndToEnd(t *testing.T) {
	ctx := context.Background()
	core := conductor.New(conductor.WithRepository(memory.NewRepository()))

	emitted := make(chan string, 1)
	core.Policies().RegisterAction("announce", func(ctx context.Context, instCtx, cfg map[string]any) error {
		emitted <- "announced"
		return core.EmitEvent(ctx, "order.submitted", "acme", instCtx)
	})

	def, err := dsl.NewWorkflow("order", "1.0.0").
		Tenant("acme").
		States("draft", "review", "approved").
		Initial("draft").
		Transition("submit").From("draft").To("review").OnEvent("order.paid").
		Then("announce", nil).
		End().
		Transition("approve").From("review").To("approved").
		When("threshold_check", map[string]any{"key": "amount", "threshold": 1000}).
		End().
		Build()
	require.NoError(t, err)

	_, err = core.RegisterDefinition(ctx, def)
	require.NoError(t, err)

	inst, err := core.CreateInstance(ctx, def, map[string]any{"amount": 250})
	require.NoError(t, err)

	res, err := core.RouteEvent(ctx, domain.EventPayload{
		EventType: "order.paid",
		Tenant:    "acme",
		Data:      map[string]any{"paid_at": "2024-06-01"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	select {
	case <-emitted:
	case <-time.After(time.Second):
		t.Fatal("announce action did not run")
	}

	final, err := core.TriggerTransition(ctx, inst.ID, "approve", nil)
	require.NoError(t, err)
	assert.Equal(t, "approved", final.State)
	assert.Equal(t, "2024-06-01", final.Context["paid_at"])
}

// A workflow action can hand off to the saga coordinator, approximating a
// business transaction triggered by a state change.
func TestOrchestrator_WorkflowDrivenSaga(t *testing.T) {
	ctx := context.Background()
	core := conductor.New()

	core.RegisterSaga(&domain.SagaDefinition{
		Name: "fulfillment",
		Steps: []domain.SagaStep{
			{
				Name: "reserve_stock",
				Action: func(ctx context.Context, sagaCtx map[string]any) error {
					sagaCtx["reserved"] = true
					return nil
				},
				Compensation: func(ctx context.Context, sagaCtx map[string]any) error {
					sagaCtx["reserved"] = false
					return nil
				},
			},
			{
				Name: "charge_payment",
				Action: func(ctx context.Context, sagaCtx map[string]any) error {
					return errors.New("card declined")
				},
			},
			{
				Name: "ship_order",
				Action: func(ctx context.Context, sagaCtx map[string]any) error {
					return nil
				},
			},
		},
	})

	sagaID := make(chan string, 1)
	core.Policies().RegisterAction("start_fulfillment", func(ctx context.Context, instCtx, cfg map[string]any) error {
		inst, err := core.StartSaga(ctx, "fulfillment", instCtx)
		if err != nil {
			return err
		}
		sagaID <- inst.ID
		return nil
	})

	def, err := dsl.NewWorkflow("order", "1.0.0").
		States("draft", "placed").
		Initial("draft").
		Transition("place").From("draft").To("placed").
		Then("start_fulfillment", nil).
		End().
		Build()
	require.NoError(t, err)

	_, err = core.RegisterDefinition(ctx, def)
	require.NoError(t, err)

	inst, err := core.CreateInstance(ctx, def, map[string]any{"order_id": "o-1"})
	require.NoError(t, err)

	_, err = core.TriggerTransition(ctx, inst.ID, "place", nil)
	require.NoError(t, err)

	var id string
	select {
	case id = <-sagaID:
	case <-time.After(time.Second):
		t.Fatal("saga was never started")
	}

	require.Eventually(t, func() bool {
		s, err := core.SagaStatus(id)
		return err == nil && s.Status == domain.SagaCompensated
	}, 2*time.Second, 10*time.Millisecond)

	s, err := core.SagaStatus(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"reserve_stock"}, s.CompletedSteps)
	assert.Equal(t, false, s.Context["reserved"], "compensation undid the reservation")
	assert.Contains(t, s.Error, "card declined")
}

func TestOrchestrator_StartReplaysPersistedDefinitions(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()

	first := conductor.New(conductor.WithRepository(repo))
	def, err := dsl.NewWorkflow("order", "2.0.0").
		States("a", "b").
		Initial("a").
		Transition("go").From("a").To("b").
		End().
		Build()
	require.NoError(t, err)
	_, err = first.RegisterDefinition(ctx, def)
	require.NoError(t, err)

	second := conductor.New(conductor.WithRepository(repo))
	require.NoError(t, second.Start(ctx))

	got, err := second.GetDefinition(ctx, "order", "", "")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", got.Version)
}
