package questiongen

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/abhisek/geoquiz/internal/knowledge"
)

const (
	// distractorCount is the number of wrong options per question.
	distractorCount = OptionCount - 1

	// maxDistractorCandidates caps how many candidates are collected before
	// random down-sampling.
	maxDistractorCandidates = 12
)

// Generator turns facts into multiple-choice questions. It is a pure
// transformation apart from its random source, and is not safe for
// concurrent use.
type Generator struct {
	rng   *rand.Rand
	newID func() string
}

// NewGenerator creates a Generator drawing from rng. A nil rng uses a PCG
// source seeded from the clock.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>17|1))
	}
	return &Generator{rng: rng, newID: uuid.NewString}
}

// Generate builds one question for fact, trying both archetypes in random
// order. allFacts supplies country-name distractors and decoys supplies
// capital-name distractors. It returns false when neither archetype has
// enough material.
func (g *Generator) Generate(fact knowledge.Fact, allFacts []knowledge.Fact, decoys []string) (*Question, bool) {
	types := []QuestionType{TypeByCountry, TypeByCapital}
	g.rng.Shuffle(len(types), func(i, j int) { types[i], types[j] = types[j], types[i] })

	for _, t := range types {
		var (
			q  *Question
			ok bool
		)
		switch t {
		case TypeByCountry:
			q, ok = g.CapitalOfCountry(fact, decoys)
		case TypeByCapital:
			q, ok = g.CountryByCapital(fact, allFacts)
		}
		if ok {
			return q, true
		}
	}
	return nil, false
}

// CapitalOfCountry builds "What is the capital city of X?" with capital
// names from decoys as distractors.
func (g *Generator) CapitalOfCountry(fact knowledge.Fact, decoys []string) (*Question, bool) {
	if isBlank(fact.SubjectLabel) || isBlank(fact.RelatedLabel) {
		return nil, false
	}
	correct := fact.RelatedLabel
	wrong, ok := g.pickDistractors(decoys, correct)
	if !ok {
		return nil, false
	}
	prompt := fmt.Sprintf("What is the capital city of %s?", fact.SubjectLabel)
	return g.build(TypeByCountry, prompt, correct, wrong, fact), true
}

// CountryByCapital builds "Which country has capital Y?" with other
// countries from allFacts as distractors.
func (g *Generator) CountryByCapital(fact knowledge.Fact, allFacts []knowledge.Fact) (*Question, bool) {
	if isBlank(fact.SubjectLabel) || isBlank(fact.RelatedLabel) {
		return nil, false
	}
	correct := fact.SubjectLabel
	names := make([]string, 0, len(allFacts))
	for _, f := range allFacts {
		names = append(names, f.SubjectLabel)
	}
	wrong, ok := g.pickDistractors(names, correct)
	if !ok {
		return nil, false
	}
	prompt := fmt.Sprintf("Which country has capital %s?", fact.RelatedLabel)
	return g.build(TypeByCapital, prompt, correct, wrong, fact), true
}

// pickDistractors collects up to maxDistractorCandidates distinct, non-blank
// candidates that differ from correct (trimmed, case-folded), then samples
// distractorCount of them at random.
func (g *Generator) pickDistractors(candidates []string, correct string) ([]string, bool) {
	seen := map[string]struct{}{fold(correct): {}}
	pool := make([]string, 0, maxDistractorCandidates)
	for _, c := range candidates {
		if isBlank(c) {
			continue
		}
		key := fold(c)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		pool = append(pool, strings.TrimSpace(c))
		if len(pool) == maxDistractorCandidates {
			break
		}
	}
	if len(pool) < distractorCount {
		return nil, false
	}
	g.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:distractorCount], true
}

func (g *Generator) build(t QuestionType, prompt, correct string, wrong []string, fact knowledge.Fact) *Question {
	options := make([]string, 0, OptionCount)
	options = append(options, correct)
	options = append(options, wrong...)
	shuffled, idx := g.shuffleTracking(options, correct)

	return &Question{
		ID:           g.newID(),
		Type:         t,
		Prompt:       prompt,
		Options:      shuffled,
		CorrectIndex: idx,
		Explanation:  explanation(fact),
		Meta: map[string]string{
			MetaCountry:   fact.SubjectLabel,
			MetaCapital:   fact.RelatedLabel,
			MetaThumbnail: fact.ImageURL,
		},
	}
}

// shuffleTracking shuffles a copy of options and returns it along with the
// new position of correct.
func (g *Generator) shuffleTracking(options []string, correct string) ([]string, int) {
	shuffled := slices.Clone(options)
	g.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled, slices.Index(shuffled, correct)
}

func explanation(fact knowledge.Fact) string {
	s := fmt.Sprintf("%s is the capital of %s.", fact.RelatedLabel, fact.SubjectLabel)
	if fact.Population != nil && *fact.Population > 0 {
		s += fmt.Sprintf(" %s has a population of about %s.", fact.SubjectLabel, humanize.Comma(*fact.Population))
	}
	return s
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
