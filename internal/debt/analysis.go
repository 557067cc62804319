package debt

import (
	"context"
	"fmt"
	"slices"
)

// Degree counts the active edges touching a user. In is edges where the user
// is the receiver, Out is edges where the user is the debtor.
type Degree struct {
	In  int `json:"in"`
	Out int `json:"out"`
}

// Degrees returns the active in- and out-degree of userID.
func (n *Network) Degrees(ctx context.Context, userID string) (Degree, error) {
	edges, err := n.edges.ListEdges(ctx, EdgeFilter{UserID: userID, Status: StatusActive})
	if err != nil {
		return Degree{}, fmt.Errorf("list edges: %w", err)
	}
	var d Degree
	for _, e := range edges {
		if e.DebtorID == userID {
			d.Out++
		}
		if e.ReceiverID == userID {
			d.In++
		}
	}
	return d, nil
}

// Communities returns the weakly connected components of the active network.
// Members are sorted within each community and communities are ordered by
// their first member, so the result is deterministic.
func (n *Network) Communities(ctx context.Context) ([][]string, error) {
	edges, err := n.edges.ListEdges(ctx, EdgeFilter{Status: StatusActive})
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	return components(edges), nil
}

func components(edges []Edge) [][]string {
	uf := newUnionFind()
	for _, e := range edges {
		uf.union(e.DebtorID, e.ReceiverID)
	}

	groups := map[string][]string{}
	for id := range uf.parent {
		root := uf.find(id)
		groups[root] = append(groups[root], id)
	}

	out := make([][]string, 0, len(groups))
	for _, members := range groups {
		slices.Sort(members)
		out = append(out, members)
	}
	slices.SortFunc(out, func(a, b []string) int {
		if a[0] < b[0] {
			return -1
		}
		if a[0] > b[0] {
			return 1
		}
		return 0
	})
	return out
}

type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind() *unionFind {
	return &unionFind{parent: map[string]string{}, rank: map[string]int{}}
}

func (u *unionFind) find(x string) string {
	p, ok := u.parent[x]
	if !ok {
		u.parent[x] = x
		return x
	}
	if p == x {
		return x
	}
	root := u.find(p)
	u.parent[x] = root
	return root
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}

// TransferAll moves every active obligation owed by fromID to toID and
// returns the successor edges in creation order. It stops at the first
// failure; edges already moved stay moved.
func (n *Network) TransferAll(ctx context.Context, fromID, toID string) ([]Edge, error) {
	edges, err := n.edges.ListEdges(ctx, EdgeFilter{UserID: fromID, Status: StatusActive})
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	var moved []Edge
	for _, e := range edges {
		if e.DebtorID != fromID {
			continue
		}
		succ, err := n.Transfer(ctx, e.ID, toID)
		if err != nil {
			return moved, fmt.Errorf("transfer %s: %w", e.ID, err)
		}
		moved = append(moved, succ)
	}
	return moved, nil
}
