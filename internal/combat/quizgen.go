package combat

import (
	"math/rand"
	"time"

	"idiom-battle-service/internal/domain"
)

// Generator builds multiple-choice quizzes from an idiom pool. The random
// source is injectable so tests can pin permutations.
type Generator struct {
	rnd *rand.Rand
}

// NewGenerator returns a generator seeded from the wall clock.
func NewGenerator() *Generator {
	return NewGeneratorWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewGeneratorWithRand returns a generator using the given random source.
func NewGeneratorWithRand(rnd *rand.Rand) *Generator {
	return &Generator{rnd: rnd}
}

// Generate builds one quiz for the requested tier: a uniformly random subject
// idiom, three distractors deduplicated by answer text, and a uniformly
// shuffled choice list. excludeID skips the previous turn's subject when the
// pool allows it; pass 0 for no exclusion.
//
// Returns domain.ErrInsufficientPool when the tier cannot supply four
// pairwise-distinct choices. No partial quiz is ever returned.
func (g *Generator) Generate(pool []domain.Idiom, tier domain.Tier, excludeID int64) (domain.Quiz, error) {
	var filtered []domain.Idiom
	for _, idiom := range pool {
		if idiom.Tier == tier {
			filtered = append(filtered, idiom)
		}
	}
	if len(filtered) < domain.ChoiceCount {
		return domain.Quiz{}, domain.ErrInsufficientPool
	}

	subjects := filtered
	if excludeID != 0 {
		withoutPrev := make([]domain.Idiom, 0, len(filtered))
		for _, idiom := range filtered {
			if idiom.ID != excludeID {
				withoutPrev = append(withoutPrev, idiom)
			}
		}
		if len(withoutPrev) > 0 {
			subjects = withoutPrev
		}
	}
	subject := subjects[g.rnd.Intn(len(subjects))]

	// Distractors are deduplicated by rendered answer text, not id: degenerate
	// data may give two idioms the same answer string.
	seen := map[string]struct{}{subject.Answer: {}}
	var candidates []string
	for _, idiom := range filtered {
		if idiom.ID == subject.ID {
			continue
		}
		if _, dup := seen[idiom.Answer]; dup {
			continue
		}
		seen[idiom.Answer] = struct{}{}
		candidates = append(candidates, idiom.Answer)
	}
	if len(candidates) < domain.ChoiceCount-1 {
		return domain.Quiz{}, domain.ErrInsufficientPool
	}

	choices := make([]string, 0, domain.ChoiceCount)
	choices = append(choices, subject.Answer)
	for _, i := range g.rnd.Perm(len(candidates))[:domain.ChoiceCount-1] {
		choices = append(choices, candidates[i])
	}
	g.rnd.Shuffle(len(choices), func(i, j int) {
		choices[i], choices[j] = choices[j], choices[i]
	})

	correct := 0
	for i, choice := range choices {
		if choice == subject.Answer {
			correct = i
			break
		}
	}

	return domain.Quiz{
		IdiomID:      subject.ID,
		Prompt:       subject.Prompt,
		Choices:      choices,
		CorrectIndex: correct,
		Tier:         tier,
		TimeLimitMs:  TimeLimit(tier),
	}, nil
}
