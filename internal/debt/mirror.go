package debt

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/karmatracker/internal/graph"
)

const mergeOwesCypher = `MERGE (d:User {id: $debtor_id})
MERGE (r:User {id: $receiver_id})
MERGE (d)-[o:OWES {edge_id: $edge_id}]->(r)
SET o.severity = $severity,
    o.amount = $amount,
    o.weighted = $weighted,
    o.status = $status,
    o.action_type = $action_type,
    o.updated_at = $updated_at`

const cyclesCypher = `MATCH p = (u:User {id: $user_id})-[:OWES*1..%d]->(u)
WHERE all(rel IN relationships(p) WHERE rel.status = 'active')
RETURN [n IN nodes(p) | n.id] AS path`

// GraphMirror writes edges as OWES relationships into a graph database so
// the network can be explored with graph tooling.
type GraphMirror struct {
	client  graph.Client
	weights func(Edge) float64
}

// NewGraphMirror creates a mirror over client using the severity weighting
// of n for the relationship's weighted property.
func NewGraphMirror(client graph.Client, n *Network) *GraphMirror {
	w := n.Weights()
	return &GraphMirror{client: client, weights: func(e Edge) float64 { return e.Weighted(w) }}
}

// Attach sets the mirror on an existing network.
func (m *GraphMirror) Attach(n *Network) {
	n.mirror = m
}

// EdgeChanged upserts the relationship for e.
func (m *GraphMirror) EdgeChanged(ctx context.Context, e Edge) error {
	_, err := m.client.ExecuteWrite(ctx, mergeOwesCypher, map[string]any{
		"debtor_id":   e.DebtorID,
		"receiver_id": e.ReceiverID,
		"edge_id":     e.ID,
		"severity":    e.Severity.String(),
		"amount":      e.Amount,
		"weighted":    m.weights(e),
		"status":      string(e.Status),
		"action_type": e.ActionType,
		"updated_at":  e.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("mirror edge %s: %w", e.ID, err)
	}
	return nil
}

// Sync upserts every edge, used to backfill a fresh graph.
func (m *GraphMirror) Sync(ctx context.Context, edges []Edge) error {
	for _, e := range edges {
		if err := m.EdgeChanged(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Cycles returns active obligation cycles through userID of at most maxDepth
// hops, as node id paths starting and ending at userID.
func (m *GraphMirror) Cycles(ctx context.Context, userID string, maxDepth int) ([][]string, error) {
	if maxDepth < 2 {
		maxDepth = 2
	}
	res, err := m.client.ExecuteRead(ctx, fmt.Sprintf(cyclesCypher, maxDepth), map[string]any{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	var paths [][]string
	for _, rec := range res.Records {
		raw, ok := rec["path"].([]any)
		if !ok {
			continue
		}
		path := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				path = append(path, s)
			}
		}
		paths = append(paths, path)
	}
	return paths, nil
}
