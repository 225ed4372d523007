package pool

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/geoquiz/internal/knowledge"
	"github.com/abhisek/geoquiz/internal/questiongen"
)

var errEndpointDown = errors.New("endpoint down")

// fakeSource hands out batches in order and repeats the last one once the
// list runs out.
type fakeSource struct {
	batches    [][]knowledge.Fact
	decoys     []string
	factErr    error
	decoyErr   error
	factCalls  int
	decoyCalls int
	lastCount  int
}

func (s *fakeSource) FetchFacts(_ context.Context, count int) ([]knowledge.Fact, error) {
	s.factCalls++
	s.lastCount = count
	if s.factErr != nil {
		return nil, s.factErr
	}
	if len(s.batches) == 0 {
		return nil, nil
	}
	idx := min(s.factCalls-1, len(s.batches)-1)
	return s.batches[idx], nil
}

func (s *fakeSource) FetchDecoyLabels(_ context.Context, _ int) ([]string, error) {
	s.decoyCalls++
	if s.decoyErr != nil {
		return nil, s.decoyErr
	}
	return s.decoys, nil
}

// rejectingBuilder refuses the first n facts it sees.
type rejectingBuilder struct {
	reject int
	calls  int
	inner  *questiongen.Generator
}

func (b *rejectingBuilder) Generate(f knowledge.Fact, all []knowledge.Fact, decoys []string) (*questiongen.Question, bool) {
	b.calls++
	if b.calls <= b.reject {
		return nil, false
	}
	return b.inner.Generate(f, all, decoys)
}

func makeFacts(from, n int) []knowledge.Fact {
	facts := make([]knowledge.Fact, 0, n)
	for i := from; i < from+n; i++ {
		facts = append(facts, knowledge.Fact{
			SubjectURI:   fmt.Sprintf("http://dbpedia.org/resource/Country_%02d", i),
			SubjectLabel: fmt.Sprintf("Country %02d", i),
			RelatedURI:   fmt.Sprintf("http://dbpedia.org/resource/Capital_%02d", i),
			RelatedLabel: fmt.Sprintf("Capital %02d", i),
		})
	}
	return facts
}

func makeDecoys(n int) []string {
	decoys := make([]string, 0, n)
	for i := range n {
		decoys = append(decoys, fmt.Sprintf("Capital %02d", i))
	}
	return decoys
}

func newTestManager(src FactSource, cfg Config) *Manager {
	return newTestManagerWith(src, questiongen.NewGenerator(rand.New(rand.NewPCG(1, 2))), cfg)
}

func newTestManagerWith(src FactSource, gen QuestionBuilder, cfg Config) *Manager {
	log, _ := test.NewNullLogger()
	return New(src, gen, cfg, WithRand(rand.New(rand.NewPCG(3, 4))), WithLogger(log))
}

func TestPreloadMergesWithoutDuplicates(t *testing.T) {
	batch := append(makeFacts(0, 5), makeFacts(0, 2)...)
	batch = append(batch,
		knowledge.Fact{SubjectLabel: "No URI"},
		knowledge.Fact{SubjectURI: "http://dbpedia.org/resource/Blank", SubjectLabel: "  "},
	)
	src := &fakeSource{
		batches: [][]knowledge.Fact{batch},
		decoys:  []string{"Capital 01", " capital 01 ", "", "CAPITAL 02", "Capital 02", "Paris"},
	}
	m := newTestManager(src, Config{BatchSize: 10, RefillThreshold: 6})

	require.NoError(t, m.Preload(context.Background()))
	assert.Equal(t, Stats{Facts: 5, Decoys: 3, Queued: 5}, m.Stats())
	assert.Equal(t, 10, src.lastCount)

	// A second preload of the same data adds nothing.
	require.NoError(t, m.Preload(context.Background()))
	assert.Equal(t, Stats{Facts: 5, Decoys: 3, Queued: 5}, m.Stats())
	assert.Equal(t, 2, src.factCalls)
	assert.Equal(t, 2, src.decoyCalls)
}

func TestPreloadErrorLeavesPoolsUntouched(t *testing.T) {
	src := &fakeSource{
		batches:  [][]knowledge.Fact{makeFacts(0, 4)},
		decoyErr: errEndpointDown,
	}
	m := newTestManager(src, DefaultConfig())

	err := m.Preload(context.Background())
	require.ErrorIs(t, err, errEndpointDown)
	assert.Equal(t, Stats{}, m.Stats())
}

func TestRefillTriggersAtThreshold(t *testing.T) {
	src := &fakeSource{
		batches: [][]knowledge.Fact{makeFacts(0, 12), makeFacts(12, 12)},
		decoys:  makeDecoys(40),
	}
	m := newTestManager(src, Config{BatchSize: 12, RefillThreshold: 6})
	ctx := context.Background()

	require.NoError(t, m.Preload(ctx))
	for i := range 6 {
		q, err := m.NextQuestion(ctx)
		require.NoError(t, err)
		require.NotNil(t, q, "question %d", i)
	}
	assert.Equal(t, 1, src.factCalls)
	assert.Equal(t, 6, m.Stats().Queued)

	q, err := m.NextQuestion(ctx)
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, 2, src.factCalls)
	assert.Equal(t, Stats{Facts: 24, Decoys: 40, Queued: 17, Used: 7}, m.Stats())
}

func TestNoFactIsReusedAndExhaustionReturnsNil(t *testing.T) {
	src := &fakeSource{
		batches: [][]knowledge.Fact{makeFacts(0, 10)},
		decoys:  makeDecoys(20),
	}
	m := newTestManager(src, DefaultConfig())
	ctx := context.Background()

	seen := make(map[string]bool)
	for range 10 {
		q, err := m.NextQuestion(ctx)
		require.NoError(t, err)
		require.NotNil(t, q)
		country := q.Meta[questiongen.MetaCountry]
		assert.False(t, seen[country], "fact %q served twice", country)
		seen[country] = true
	}
	assert.Len(t, seen, 10)

	before := src.factCalls
	q, err := m.NextQuestion(ctx)
	require.NoError(t, err)
	assert.Nil(t, q)
	// Threshold refill plus exactly one forced refill.
	assert.Equal(t, before+2, src.factCalls)

	q, err = m.NextQuestion(ctx)
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestRefillFailureServesQueuedFacts(t *testing.T) {
	src := &fakeSource{
		batches: [][]knowledge.Fact{makeFacts(0, 4)},
		decoys:  makeDecoys(10),
	}
	m := newTestManager(src, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, m.Preload(ctx))

	src.factErr = errEndpointDown
	for i := range 4 {
		q, err := m.NextQuestion(ctx)
		require.NoError(t, err, "question %d", i)
		require.NotNil(t, q)
	}

	q, err := m.NextQuestion(ctx)
	assert.Nil(t, q)
	assert.ErrorIs(t, err, errEndpointDown)
}

func TestInitialFailurePropagates(t *testing.T) {
	src := &fakeSource{factErr: &knowledge.TransportError{Attempts: 3, Err: errEndpointDown}}
	m := newTestManager(src, DefaultConfig())

	q, err := m.NextQuestion(context.Background())
	assert.Nil(t, q)

	var terr *knowledge.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 3, terr.Attempts)
}

func TestFallbackScanAfterDrainBudget(t *testing.T) {
	src := &fakeSource{
		batches: [][]knowledge.Fact{makeFacts(0, 12)},
		decoys:  makeDecoys(20),
	}
	gen := &rejectingBuilder{
		reject: 8,
		inner:  questiongen.NewGenerator(rand.New(rand.NewPCG(5, 6))),
	}
	m := newTestManagerWith(src, gen, Config{BatchSize: 12, RefillThreshold: 0})

	q, err := m.NextQuestion(context.Background())
	require.NoError(t, err)
	require.NotNil(t, q)

	assert.Equal(t, 9, gen.calls)
	assert.Equal(t, 1, src.factCalls)
	assert.Equal(t, Stats{Facts: 12, Decoys: 20, Queued: 3, Used: 1}, m.Stats())
}

func TestUnusableFactsAreDropped(t *testing.T) {
	// No decoys and only two facts: neither archetype can find three
	// distractors, so every fact is discarded.
	src := &fakeSource{batches: [][]knowledge.Fact{makeFacts(0, 2)}}
	m := newTestManager(src, DefaultConfig())

	q, err := m.NextQuestion(context.Background())
	require.NoError(t, err)
	assert.Nil(t, q)
	assert.Equal(t, Stats{Facts: 2}, m.Stats())
}

func TestConcurrentCallersNeverShareFacts(t *testing.T) {
	src := &fakeSource{
		batches: [][]knowledge.Fact{makeFacts(0, 40)},
		decoys:  makeDecoys(60),
	}
	m := newTestManager(src, Config{BatchSize: 40, RefillThreshold: 6})
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		served  []string
		callErr error
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 4 {
				q, err := m.NextQuestion(ctx)
				mu.Lock()
				if err != nil {
					callErr = err
				} else if q != nil {
					served = append(served, q.Meta[questiongen.MetaCountry])
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.NoError(t, callErr)
	assert.Len(t, served, 32)
	unique := make(map[string]struct{}, len(served))
	for _, c := range served {
		unique[c] = struct{}{}
	}
	assert.Len(t, unique, len(served))
	assert.Equal(t, 32, m.Stats().Used)
}

func TestNewAppliesDefaults(t *testing.T) {
	m := New(&fakeSource{}, questiongen.NewGenerator(nil), Config{BatchSize: 0, RefillThreshold: -1})
	assert.Equal(t, DefaultConfig(), m.cfg)
}
