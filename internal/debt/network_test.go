package debt_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/karmatracker/internal/debt"
	"github.com/roach88/karmatracker/internal/graph"
	"github.com/roach88/karmatracker/internal/ledger"
	"github.com/roach88/karmatracker/internal/store"
	"github.com/roach88/karmatracker/internal/testutil"
)

var epoch = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	store   *store.Memory
	network *debt.Network
	clock   *testutil.FakeClock
}

func newFixture(t *testing.T, users ...string) *fixture {
	t.Helper()
	mem := store.NewMemory()
	for _, id := range users {
		require.NoError(t, mem.InsertUser(context.Background(), ledger.NewRecord(id, epoch)))
	}
	clk := testutil.NewFakeClock(epoch)
	n := debt.NewNetwork(mem, mem, ledger.DefaultWeights(),
		debt.WithClock(clk),
		debt.WithIDGenerator(testutil.NewSequenceGenerator("e")),
	)
	return &fixture{store: mem, network: n, clock: clk}
}

func TestCreateDebt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "u1", "u2")

	e, err := f.network.CreateDebt(ctx, "u1", "u2", ledger.SeverityMedium, 20, "breaking_promise", "missed the study session")
	require.NoError(t, err)
	assert.Equal(t, "e-1", e.ID)
	assert.Equal(t, debt.StatusActive, e.Status)
	assert.Equal(t, 20.0, e.Amount)
	assert.Equal(t, 20.0, e.OriginalAmount)
	assert.Empty(t, e.RepaymentHistory)

	stored, err := f.store.GetEdge(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e, stored)
}

func TestCreateDebtInvalidRelationship(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "u1", "u2")

	tests := []struct {
		name     string
		debtor   string
		receiver string
		sev      ledger.Severity
		amount   float64
	}{
		{"self", "u1", "u1", ledger.SeverityMinor, 1},
		{"missing debtor", "ghost", "u2", ledger.SeverityMinor, 1},
		{"missing receiver", "u1", "ghost", ledger.SeverityMinor, 1},
		{"zero amount", "u1", "u2", ledger.SeverityMinor, 0},
		{"negative amount", "u1", "u2", ledger.SeverityMinor, -3},
		{"unknown severity", "u1", "u2", ledger.Severity(0), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.network.CreateDebt(ctx, tt.debtor, tt.receiver, tt.sev, tt.amount, "lying", "")
			assert.ErrorIs(t, err, debt.ErrInvalidRelationship)
			assert.True(t, debt.IsRelationshipError(err))
		})
	}

	edges, err := f.store.ListEdges(ctx, debt.EdgeFilter{})
	require.NoError(t, err)
	assert.Empty(t, edges, "rejected before any mutation")
}

func TestRepayConservation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "u1", "u2")
	e, err := f.network.CreateDebt(ctx, "u1", "u2", ledger.SeverityMedium, 20, "breaking_promise", "")
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	e, err = f.network.Repay(ctx, e.ID, 7.5, "seva")
	require.NoError(t, err)
	assert.Equal(t, 12.5, e.Amount)
	assert.Equal(t, debt.StatusActive, e.Status)
	require.Len(t, e.RepaymentHistory, 1)
	assert.Equal(t, debt.Repayment{Amount: 7.5, Method: "seva", Timestamp: epoch.Add(time.Hour)}, e.RepaymentHistory[0])

	e, err = f.network.Repay(ctx, e.ID, 12.5, "punya")
	require.NoError(t, err)
	assert.Zero(t, e.Amount)
	assert.Equal(t, debt.StatusRepaid, e.Status)
	assert.Equal(t, 20.0, e.Repaid())

	_, err = f.network.Repay(ctx, e.ID, 1, "seva")
	assert.ErrorIs(t, err, debt.ErrEdgeNotActive)
}

func TestRepayClampsOverpayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "u1", "u2")
	e, err := f.network.CreateDebt(ctx, "u1", "u2", ledger.SeverityMinor, 5, "lying", "")
	require.NoError(t, err)

	e, err = f.network.Repay(ctx, e.ID, 50, "charity")
	require.NoError(t, err)
	assert.Zero(t, e.Amount)
	assert.Equal(t, debt.StatusRepaid, e.Status)
	assert.Equal(t, 5.0, e.RepaymentHistory[0].Amount)
}

func TestRepayErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "u1", "u2")
	e, err := f.network.CreateDebt(ctx, "u1", "u2", ledger.SeverityMinor, 5, "lying", "")
	require.NoError(t, err)

	_, err = f.network.Repay(ctx, "missing", 1, "seva")
	assert.ErrorIs(t, err, debt.ErrEdgeNotFound)
	_, err = f.network.Repay(ctx, e.ID, 0, "seva")
	assert.ErrorIs(t, err, debt.ErrInvalidAmount)
	_, err = f.network.Repay(ctx, e.ID, -1, "seva")
	assert.ErrorIs(t, err, debt.ErrInvalidAmount)
}

func TestRepaidDebtScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "u1", "u2")
	e, err := f.network.CreateDebt(ctx, "u1", "u2", ledger.SeverityMedium, 20, "breaking_promise", "")
	require.NoError(t, err)

	before, err := f.network.NetworkSummary(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 40.0, before.CreditsByDebtor["u1"])

	e, err = f.network.Repay(ctx, e.ID, 20, "seva")
	require.NoError(t, err)
	assert.Equal(t, debt.StatusRepaid, e.Status)

	after, err := f.network.NetworkSummary(ctx, "u2")
	require.NoError(t, err)
	assert.Zero(t, after.CreditsByDebtor["u1"])
	assert.Zero(t, after.TotalCredit)
	assert.Zero(t, after.ActiveCredits)
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "u1", "u2", "u3")
	e, err := f.network.CreateDebt(ctx, "u1", "u2", ledger.SeverityMajor, 9, "harming_others", "")
	require.NoError(t, err)
	_, err = f.network.Repay(ctx, e.ID, 4, "seva")
	require.NoError(t, err)

	succ, err := f.network.Transfer(ctx, e.ID, "u3")
	require.NoError(t, err)
	assert.Equal(t, "e-2", succ.ID)
	assert.Equal(t, "u3", succ.DebtorID)
	assert.Equal(t, "u2", succ.ReceiverID)
	assert.Equal(t, 5.0, succ.Amount)
	assert.Equal(t, ledger.SeverityMajor, succ.Severity)
	assert.Equal(t, e.ID, succ.TransferredFrom)
	assert.Equal(t, debt.StatusActive, succ.Status)

	src, err := f.network.Edge(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, debt.StatusTransferred, src.Status)
	assert.Equal(t, 5.0, src.Amount, "frozen at transfer time")
	assert.Equal(t, succ.ID, src.TransferredTo)

	_, err = f.network.Transfer(ctx, e.ID, "u1")
	assert.ErrorIs(t, err, debt.ErrEdgeNotActive)
	_, err = f.network.Repay(ctx, e.ID, 1, "seva")
	assert.ErrorIs(t, err, debt.ErrEdgeNotActive)
}

func TestTransferInvalid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "u1", "u2")
	e, err := f.network.CreateDebt(ctx, "u1", "u2", ledger.SeverityMinor, 3, "lying", "")
	require.NoError(t, err)

	_, err = f.network.Transfer(ctx, e.ID, "u2")
	assert.ErrorIs(t, err, debt.ErrInvalidRelationship)
	_, err = f.network.Transfer(ctx, e.ID, "u1")
	assert.ErrorIs(t, err, debt.ErrInvalidRelationship)
	_, err = f.network.Transfer(ctx, e.ID, "ghost")
	assert.ErrorIs(t, err, debt.ErrInvalidRelationship)
	_, err = f.network.Transfer(ctx, "missing", "u2")
	assert.ErrorIs(t, err, debt.ErrEdgeNotFound)
}

func TestTransferAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "u1", "u2", "u3", "heir")
	_, err := f.network.CreateDebt(ctx, "u1", "u2", ledger.SeverityMinor, 3, "lying", "")
	require.NoError(t, err)
	_, err = f.network.CreateDebt(ctx, "u1", "u3", ledger.SeverityMedium, 6, "disrespect_guru", "")
	require.NoError(t, err)
	_, err = f.network.CreateDebt(ctx, "u3", "u1", ledger.SeverityMinor, 1, "lying", "")
	require.NoError(t, err)

	moved, err := f.network.TransferAll(ctx, "u1", "heir")
	require.NoError(t, err)
	require.Len(t, moved, 2)

	s, err := f.network.NetworkSummary(ctx, "heir")
	require.NoError(t, err)
	assert.Equal(t, 3.0+12.0, s.TotalDebt)

	old, err := f.network.NetworkSummary(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, old.TotalDebt)
	assert.Equal(t, 1.0, old.TotalCredit, "credits stay with the original receiver")
}

func TestNetworkSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "u1", "u2", "u3")
	mustCreate := func(debtor, receiver string, sev ledger.Severity, amount float64) {
		_, err := f.network.CreateDebt(ctx, debtor, receiver, sev, amount, "test", "")
		require.NoError(t, err)
	}
	mustCreate("u1", "u2", ledger.SeverityMinor, 10)
	mustCreate("u1", "u2", ledger.SeverityMajor, 1)
	mustCreate("u3", "u1", ledger.SeverityMedium, 5)

	s, err := f.network.NetworkSummary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 14.0, s.TotalDebt)
	assert.Equal(t, 10.0, s.TotalCredit)
	assert.Equal(t, -4.0, s.NetPosition)
	assert.Equal(t, 2, s.ActiveDebts)
	assert.Equal(t, 1, s.ActiveCredits)
	assert.Equal(t, map[string]float64{"u2": 14}, s.DebtsByReceiver)
	assert.Equal(t, map[string]float64{"u3": 10}, s.CreditsByDebtor)

	_, err = f.network.NetworkSummary(ctx, "ghost")
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)
}

func TestDegreesAndCommunities(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "a", "b", "c", "d", "e")
	mustCreate := func(debtor, receiver string) string {
		e, err := f.network.CreateDebt(ctx, debtor, receiver, ledger.SeverityMinor, 1, "test", "")
		require.NoError(t, err)
		return e.ID
	}
	mustCreate("a", "b")
	mustCreate("b", "a")
	mustCreate("c", "b")
	ed := mustCreate("d", "e")

	deg, err := f.network.Degrees(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, debt.Degree{In: 2, Out: 1}, deg)

	comms, err := f.network.Communities(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b", "c"}, {"d", "e"}}, comms)

	before, err := f.store.ListEdges(ctx, debt.EdgeFilter{})
	require.NoError(t, err)

	_, err = f.network.Repay(ctx, ed, 1, "seva")
	require.NoError(t, err)
	comms, err = f.network.Communities(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b", "c"}}, comms, "repaid edges leave the active network")

	after, err := f.store.ListEdges(ctx, debt.EdgeFilter{})
	require.NoError(t, err)
	assert.Len(t, after, len(before), "analyses never add or drop edges")
}

func TestConcurrentRepaySerialized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "u1", "u2")
	e, err := f.network.CreateDebt(ctx, "u1", "u2", ledger.SeverityMinor, 50, "lying", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.network.Repay(ctx, e.ID, 1, "seva")
		}()
	}
	wg.Wait()

	got, err := f.network.Edge(ctx, e.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Amount)
	assert.Equal(t, debt.StatusRepaid, got.Status)
	assert.Len(t, got.RepaymentHistory, 50)
	assert.Equal(t, 50.0, got.Repaid())
}

func TestGraphMirror(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "u1", "u2", "u3")
	client := graph.NewMemoryClient()
	mirror := debt.NewGraphMirror(client, f.network)
	mirror.Attach(f.network)

	e, err := f.network.CreateDebt(ctx, "u1", "u2", ledger.SeverityMedium, 20, "breaking_promise", "")
	require.NoError(t, err)
	_, err = f.network.Transfer(ctx, e.ID, "u3")
	require.NoError(t, err)

	calls := client.WriteCalls()
	require.Len(t, calls, 3)
	assert.Contains(t, calls[0].Query, "MERGE (d)-[o:OWES {edge_id: $edge_id}]->(r)")
	assert.Equal(t, "u1", calls[0].Params["debtor_id"])
	assert.Equal(t, 40.0, calls[0].Params["weighted"])
	assert.Equal(t, "medium", calls[0].Params["severity"])
	assert.Equal(t, "transferred", calls[1].Params["status"])
	assert.Equal(t, "u3", calls[2].Params["debtor_id"])
}

func TestGraphMirrorFailureDoesNotFailOperation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "u1", "u2")
	client := graph.NewMemoryClient().WithError(errors.New("bolt unavailable"))
	debt.NewGraphMirror(client, f.network).Attach(f.network)

	e, err := f.network.CreateDebt(ctx, "u1", "u2", ledger.SeverityMinor, 2, "lying", "")
	require.NoError(t, err)
	_, err = f.store.GetEdge(ctx, e.ID)
	assert.NoError(t, err)
}

func TestGraphMirrorCycles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	client := graph.NewMemoryClient()
	client.PushReadResult(graph.Result{Records: []graph.Record{
		{"path": []any{"u1", "u2", "u1"}},
		{"path": "malformed"},
	}})
	mirror := debt.NewGraphMirror(client, f.network)

	paths, err := mirror.Cycles(ctx, "u1", 4)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"u1", "u2", "u1"}}, paths)

	reads := client.ReadCalls()
	require.Len(t, reads, 1)
	assert.Contains(t, reads[0].Query, "[:OWES*1..4]")
	assert.Equal(t, "u1", reads[0].Params["user_id"])
}
