package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClientRecordsCalls(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryClient()

	params := map[string]any{"id": "e1"}
	_, err := m.ExecuteWrite(ctx, "MERGE (n)", params)
	require.NoError(t, err)
	params["id"] = "mutated"

	calls := m.WriteCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "e1", calls[0].Params["id"], "params are copied")

	m.PushReadResult(Result{Records: []Record{{"count": int64(2)}}})
	res, err := m.ExecuteRead(ctx, "MATCH (n) RETURN count(n) AS count", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Records[0]["count"])
	assert.Len(t, m.ReadCalls(), 1)
}

func TestMemoryClientError(t *testing.T) {
	boom := errors.New("boom")
	m := NewMemoryClient().WithError(boom)

	_, err := m.ExecuteWrite(context.Background(), "MERGE (n)", nil)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, m.VerifyConnectivity(context.Background()), boom)
}

func TestNewNeo4jClientRequiresURI(t *testing.T) {
	_, err := NewNeo4jClient(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrMissingURI)
	assert.False(t, Options{}.Enabled())
}
