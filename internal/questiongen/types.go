package questiongen

// QuestionType identifies the question archetype.
type QuestionType string

const (
	// TypeByCountry asks for the capital of a given country.
	TypeByCountry QuestionType = "by_country"

	// TypeByCapital asks which country a given capital belongs to.
	TypeByCapital QuestionType = "by_capital"
)

// OptionCount is the number of options every question carries.
const OptionCount = 4

// Meta keys always present on a generated question.
const (
	MetaCountry   = "country"
	MetaCapital   = "capital"
	MetaThumbnail = "thumbnail"
)

// Question is a generated multiple-choice question ready for display.
// It is built once by the Generator and must not be modified afterwards;
// consumers that need to keep a copy should use Clone.
type Question struct {
	// ID is a random UUID identifying this question instance.
	ID string

	// Type is the archetype this question was generated from.
	Type QuestionType

	// Prompt is the question text, e.g. "What is the capital city of Laos?"
	Prompt string

	// Options holds exactly OptionCount distinct answers in display order.
	Options []string

	// CorrectIndex is the position of the true answer within Options.
	CorrectIndex int

	// Explanation is a short sentence shown after the question is answered.
	Explanation string

	// Meta carries the raw country name, capital name and thumbnail URL
	// (possibly empty) for the presentation layer.
	Meta map[string]string
}

// CorrectAnswer returns the text of the correct option.
func (q *Question) CorrectAnswer() string {
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return ""
	}
	return q.Options[q.CorrectIndex]
}

// IsCorrect reports whether the option at index is the correct answer.
func (q *Question) IsCorrect(index int) bool {
	return index >= 0 && index == q.CorrectIndex
}

// Thumbnail returns the thumbnail URL, or "" when none is known.
func (q *Question) Thumbnail() string {
	return q.Meta[MetaThumbnail]
}

// Clone returns a deep copy of the question.
func (q *Question) Clone() Question {
	c := *q
	c.Options = append([]string(nil), q.Options...)
	c.Meta = make(map[string]string, len(q.Meta))
	for k, v := range q.Meta {
		c.Meta[k] = v
	}
	return c
}
