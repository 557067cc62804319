package evaluator

import (
	"container/list"
	"sync"

	"github.com/roach88/karmatracker/internal/ledger"
)

// LearningConfig tunes the adaptive reward.
type LearningConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	LearningRate float64 `yaml:"learning_rate" json:"learning_rate"`
	Discount     float64 `yaml:"discount" json:"discount"`
	// Blend is the weight of the learned value in the returned reward.
	Blend float64 `yaml:"blend" json:"blend"`
	// MaxUsers bounds the number of per-user tables kept in memory.
	MaxUsers int `yaml:"max_users" json:"max_users"`
}

// DefaultLearningConfig returns the standard learner settings.
func DefaultLearningConfig() LearningConfig {
	return LearningConfig{
		Enabled:      true,
		LearningRate: 0.1,
		Discount:     0.9,
		Blend:        0.3,
		MaxUsers:     10000,
	}
}

type qKey struct {
	role   ledger.Role
	action string
}

type userTable struct {
	userID string
	q      map[qKey]float64
}

// QLearner holds per-user Q tables keyed by (role, action). Tables are kept
// in an LRU bounded by MaxUsers; the least recently used user's table is
// dropped first.
//
// Thread-safety: QLearner is safe for concurrent use.
type QLearner struct {
	mu     sync.Mutex
	cfg    LearningConfig
	lru    *list.List
	tables map[string]*list.Element
}

// NewQLearner creates an empty learner.
func NewQLearner(cfg LearningConfig) *QLearner {
	if cfg.MaxUsers <= 0 {
		cfg.MaxUsers = DefaultLearningConfig().MaxUsers
	}
	return &QLearner{
		cfg:    cfg,
		lru:    list.New(),
		tables: make(map[string]*list.Element),
	}
}

// Update applies one Q-learning step for (user, role, action) against the
// observed reward and returns the new value:
//
//	Q <- Q + alpha * (reward + gamma * max_a Q(role, a) - Q)
func (l *QLearner) Update(userID string, role ledger.Role, action string, reward float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	tbl := l.table(userID)
	key := qKey{role: role, action: action}
	cur := tbl.q[key]

	best := cur
	for k, v := range tbl.q {
		if k.role == role && v > best {
			best = v
		}
	}

	next := cur + l.cfg.LearningRate*(reward+l.cfg.Discount*best-cur)
	tbl.q[key] = next
	return next
}

// Value returns the learned value for (user, role, action) without touching
// recency.
func (l *QLearner) Value(userID string, role ledger.Role, action string) (float64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	el, ok := l.tables[userID]
	if !ok {
		return 0, false
	}
	v, ok := el.Value.(*userTable).q[qKey{role: role, action: action}]
	return v, ok
}

// Len returns the number of users with a table.
func (l *QLearner) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lru.Len()
}

// table returns the user's table, creating it lazily and evicting the least
// recently used table when over capacity. Caller holds l.mu.
func (l *QLearner) table(userID string) *userTable {
	if el, ok := l.tables[userID]; ok {
		l.lru.MoveToFront(el)
		return el.Value.(*userTable)
	}

	tbl := &userTable{userID: userID, q: make(map[qKey]float64)}
	l.tables[userID] = l.lru.PushFront(tbl)

	for l.lru.Len() > l.cfg.MaxUsers {
		oldest := l.lru.Back()
		l.lru.Remove(oldest)
		delete(l.tables, oldest.Value.(*userTable).userID)
	}
	return tbl
}
