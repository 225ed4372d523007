// Package pool owns the in-memory working set of facts and decoy answers
// for one quiz session and turns it into a stream of unique questions.
package pool

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/abhisek/geoquiz/internal/knowledge"
	"github.com/abhisek/geoquiz/internal/questiongen"
)

// minDrainAttempts is the lower bound on queue pops per search.
const minDrainAttempts = 8

// FactSource fetches facts and decoy labels from the knowledge graph.
type FactSource interface {
	FetchFacts(ctx context.Context, count int) ([]knowledge.Fact, error)
	FetchDecoyLabels(ctx context.Context, count int) ([]string, error)
}

// QuestionBuilder synthesizes a question from a fact and the current pools.
type QuestionBuilder interface {
	Generate(fact knowledge.Fact, allFacts []knowledge.Fact, decoys []string) (*questiongen.Question, bool)
}

// Config holds the pool tuning parameters.
type Config struct {
	// BatchSize is the number of facts requested per refill. Decoys are
	// requested at twice this size. Default: 16.
	BatchSize int

	// RefillThreshold triggers a refill before serving a question when the
	// queue holds this many facts or fewer. Default: 6.
	RefillThreshold int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:       16,
		RefillThreshold: 6,
	}
}

// Stats is a point-in-time view of the pool sizes.
type Stats struct {
	Facts  int
	Decoys int
	Queued int
	Used   int
}

// Manager maintains the fact pool, decoy pool, work queue and used set.
// All methods serialize on a single mutex, so a UI event that fires while
// an earlier fetch is still in flight waits instead of corrupting state.
type Manager struct {
	mu sync.Mutex

	source FactSource
	gen    QuestionBuilder
	cfg    Config
	rng    *rand.Rand
	log    logrus.FieldLogger

	facts     []knowledge.Fact
	factKeys  map[string]struct{}
	decoys    []string
	decoyKeys map[string]struct{}
	queue     []knowledge.Fact
	used      map[string]struct{}
}

// Option customizes a Manager.
type Option func(*Manager)

// WithRand sets the random source used to shuffle the queue.
func WithRand(rng *rand.Rand) Option {
	return func(m *Manager) { m.rng = rng }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = log }
}

// New creates a Manager. Non-positive config values fall back to defaults.
func New(source FactSource, gen QuestionBuilder, cfg Config, opts ...Option) *Manager {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.RefillThreshold < 0 {
		cfg.RefillThreshold = def.RefillThreshold
	}

	now := uint64(time.Now().UnixNano())
	m := &Manager{
		source:    source,
		gen:       gen,
		cfg:       cfg,
		rng:       rand.New(rand.NewPCG(now, now>>13|1)),
		log:       logrus.StandardLogger(),
		factKeys:  make(map[string]struct{}),
		decoyKeys: make(map[string]struct{}),
		used:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Preload fetches a batch of facts and decoys, merges the new ones into the
// pools and reshuffles the whole queue. Fetch failures are returned as-is
// (wrapped) and leave the pools untouched.
func (m *Manager) Preload(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.preloadLocked(ctx)
}

// NextQuestion returns the next unique question. It returns (nil, nil) when
// the corpus is exhausted, which callers should treat as the end of the
// quiz rather than a failure.
func (m *Manager) NextQuestion(ctx context.Context) (*questiongen.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	budget := max(minDrainAttempts, len(m.queue))

	if len(m.queue) <= m.cfg.RefillThreshold {
		if err := m.preloadLocked(ctx); err != nil {
			if len(m.queue) == 0 {
				return nil, err
			}
			m.log.WithError(err).WithField("queued", len(m.queue)).
				Warn("refill failed, serving queued facts")
		}
	}

	if q := m.drainLocked(budget); q != nil {
		return q, nil
	}

	// At most one forced refill per call, so an endpoint that keeps
	// returning nothing new cannot loop us forever.
	if len(m.queue) == 0 {
		if err := m.preloadLocked(ctx); err != nil {
			return nil, err
		}
		if q := m.drainLocked(budget); q != nil {
			return q, nil
		}
	}

	if q := m.scanLocked(); q != nil {
		return q, nil
	}

	m.log.WithFields(m.statsFields()).Info("no more questions available")
	return nil, nil
}

// Stats returns the current pool sizes.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Facts:  len(m.facts),
		Decoys: len(m.decoys),
		Queued: len(m.queue),
		Used:   len(m.used),
	}
}

func (m *Manager) preloadLocked(ctx context.Context) error {
	facts, err := m.source.FetchFacts(ctx, m.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("fetch facts: %w", err)
	}
	decoys, err := m.source.FetchDecoyLabels(ctx, 2*m.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("fetch decoy labels: %w", err)
	}

	addedFacts := m.mergeFacts(facts)
	addedDecoys := m.mergeDecoys(decoys)
	m.rng.Shuffle(len(m.queue), func(i, j int) { m.queue[i], m.queue[j] = m.queue[j], m.queue[i] })

	m.log.WithFields(m.statsFields()).WithFields(logrus.Fields{
		"new_facts":  addedFacts,
		"new_decoys": addedDecoys,
	}).Debug("pool refilled")
	return nil
}

// mergeFacts appends facts whose key is neither used nor already pooled.
func (m *Manager) mergeFacts(facts []knowledge.Fact) int {
	added := 0
	for _, f := range facts {
		if !f.Valid() {
			continue
		}
		if m.isUsed(f) {
			continue
		}
		if _, dup := m.factKeys[f.Key()]; dup {
			continue
		}
		m.factKeys[f.Key()] = struct{}{}
		m.facts = append(m.facts, f)
		m.queue = append(m.queue, f)
		added++
	}
	return added
}

// mergeDecoys appends labels not already present, comparing trimmed and
// case-folded while keeping the original casing.
func (m *Manager) mergeDecoys(labels []string) int {
	added := 0
	for _, l := range labels {
		key := strings.ToLower(strings.TrimSpace(l))
		if key == "" {
			continue
		}
		if _, dup := m.decoyKeys[key]; dup {
			continue
		}
		m.decoyKeys[key] = struct{}{}
		m.decoys = append(m.decoys, strings.TrimSpace(l))
		added++
	}
	return added
}

// drainLocked pops from the queue head until a question is produced, the
// queue empties, or budget pops were spent. Popped facts are never
// returned to the queue.
func (m *Manager) drainLocked(budget int) *questiongen.Question {
	for attempts := budget; attempts > 0 && len(m.queue) > 0; attempts-- {
		f := m.queue[0]
		m.queue = m.queue[1:]
		if q := m.tryBuild(f); q != nil {
			return q
		}
	}
	return nil
}

// scanLocked tries every queued fact in random order, dropping unusable
// ones from the queue as it goes.
func (m *Manager) scanLocked() *questiongen.Question {
	candidates := slices.Clone(m.queue)
	m.rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	for _, f := range candidates {
		m.removeQueued(f.Key())
		if q := m.tryBuild(f); q != nil {
			return q
		}
	}
	return nil
}

func (m *Manager) tryBuild(f knowledge.Fact) *questiongen.Question {
	if m.isUsed(f) {
		return nil
	}
	q, ok := m.gen.Generate(f, m.facts, m.decoys)
	if !ok {
		m.log.WithField("country", f.SubjectLabel).Debug("fact unusable, dropped from queue")
		return nil
	}
	m.used[f.Key()] = struct{}{}
	return q
}

func (m *Manager) removeQueued(key string) {
	m.queue = slices.DeleteFunc(m.queue, func(f knowledge.Fact) bool { return f.Key() == key })
}

func (m *Manager) isUsed(f knowledge.Fact) bool {
	_, ok := m.used[f.Key()]
	return ok
}

func (m *Manager) statsFields() logrus.Fields {
	return logrus.Fields{
		"facts":  len(m.facts),
		"decoys": len(m.decoys),
		"queued": len(m.queue),
		"used":   len(m.used),
	}
}
