package quiz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korjavin/padezbot/models"
	"github.com/korjavin/padezbot/store"
	"github.com/korjavin/padezbot/token"
)

func corpus(t *testing.T, n int) []models.Question {
	t.Helper()
	questions := make([]models.Question, 0, n)
	for i := 0; i < n; i++ {
		q := models.Question{
			MaskedPrompt: "Question ***** ?",
			Base:         "word" + string(rune('a'+i)),
			Correct:      "answer" + string(rune('a'+i)),
			WrongAnswers: []string{"x", "y", "z"},
			Attributes:   []models.AttributeValue{{Name: "base", Value: "word" + string(rune('a'+i))}},
			Active:       true,
		}
		q.Hash = models.ContentHash(&q)
		q.ID = q.Hash
		questions = append(questions, q)
	}
	return questions
}

func TestNextExhaustsBeforeRepeating(t *testing.T) {
	questions := corpus(t, 7)
	selector := NewSelector(NewMemorySource(questions), store.NewMemoryStore())

	const chatID = int64(1)
	seen := make(map[int64]int)
	for i := 0; i < len(questions); i++ {
		q, loaded, err := selector.Next(chatID)
		require.NoError(t, err)
		if i == 0 {
			assert.Equal(t, len(questions), loaded, "first call regenerates and reports the count")
		} else {
			assert.Zero(t, loaded)
		}
		seen[q.ID]++
	}

	assert.Len(t, seen, len(questions), "no repeat before exhaustion")
	for id, n := range seen {
		assert.Equal(t, 1, n, "question %d repeated inside one cycle", id)
	}

	// The next call starts a fresh cycle and notifies again.
	_, loaded, err := selector.Next(chatID)
	require.NoError(t, err)
	assert.Equal(t, len(questions), loaded)
}

func TestNextFailsOnEmptyCorpus(t *testing.T) {
	selector := NewSelector(NewMemorySource(nil), store.NewMemoryStore())
	_, _, err := selector.Next(1)
	assert.ErrorIs(t, err, ErrNoTaskFound)
}

func TestNextRespectsFilter(t *testing.T) {
	genitive := models.Question{
		MaskedPrompt: "g *****", Base: "b", Correct: "c", Active: true,
		Attributes: []models.AttributeValue{{Name: "case", Value: "genitive"}},
	}
	genitive.Hash = models.ContentHash(&genitive)
	genitive.ID = genitive.Hash
	accusative := models.Question{
		MaskedPrompt: "a *****", Base: "b", Correct: "c", Active: true,
		Attributes: []models.AttributeValue{{Name: "case", Value: "accusative"}},
	}
	accusative.Hash = models.ContentHash(&accusative)
	accusative.ID = accusative.Hash

	selector := NewSelector(
		NewMemorySource([]models.Question{genitive, accusative}),
		store.NewMemoryStore(),
	)

	const chatID = int64(1)
	eligible, err := selector.SetFilter(chatID, "genitive")
	require.NoError(t, err)
	assert.Equal(t, 1, eligible)

	for i := 0; i < 3; i++ {
		q, _, err := selector.Next(chatID)
		require.NoError(t, err)
		assert.Equal(t, genitive.ID, q.ID)
	}
}

func TestSetFilterRejectsEmptyMatch(t *testing.T) {
	selector := NewSelector(NewMemorySource(corpus(t, 3)), store.NewMemoryStore())

	_, err := selector.SetFilter(1, "no such attribute")
	assert.ErrorIs(t, err, ErrNoMatchingQuestions)

	// The failed attempt must not have touched the conversation.
	_, loaded, err := selector.Next(1)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded)
}

func TestFilterChangeResetsQueue(t *testing.T) {
	questions := corpus(t, 5)
	sessions := store.NewMemoryStore()
	selector := NewSelector(NewMemorySource(questions), sessions)

	const chatID = int64(1)
	_, loaded, err := selector.Next(chatID)
	require.NoError(t, err)
	require.Equal(t, 5, loaded)

	// Point the filter at one specific question.
	target := questions[2]
	_, err = selector.SetFilter(chatID, target.Base)
	require.NoError(t, err)

	q, loaded, err := selector.Next(chatID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded, "queue regenerated under the new filter")
	assert.Equal(t, target.ID, q.ID)
}

func TestResetFilterRestoresFullCorpus(t *testing.T) {
	questions := corpus(t, 4)
	selector := NewSelector(NewMemorySource(questions), store.NewMemoryStore())

	const chatID = int64(1)
	_, err := selector.SetFilter(chatID, questions[0].Base)
	require.NoError(t, err)
	_, _, err = selector.Next(chatID)
	require.NoError(t, err)

	require.NoError(t, selector.ResetFilter(chatID))

	_, loaded, err := selector.Next(chatID)
	require.NoError(t, err)
	assert.Equal(t, len(questions), loaded)
}

func TestInactiveQuestionsAreNotEligible(t *testing.T) {
	questions := corpus(t, 3)
	questions[1].Active = false
	selector := NewSelector(NewMemorySource(questions), store.NewMemoryStore())

	_, loaded, err := selector.Next(1)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)
}

// End-to-end shape of one interaction: import, filter, render, grade, record.
func TestAnswerFlow(t *testing.T) {
	genitive := models.Question{
		MaskedPrompt: "Ovo je *****.", Base: "moja kuća",
		Correct: "kuće", WrongAnswers: []string{"kućom", "kući"}, Active: true,
		Attributes: []models.AttributeValue{{Name: "case", Value: "genitive"}},
	}
	genitive.Hash = models.ContentHash(&genitive)
	genitive.ID = genitive.Hash
	accusative := models.Question{
		MaskedPrompt: "Vidim *****.", Base: "moju kuću",
		Correct: "kuću", WrongAnswers: []string{"kućom"}, Active: true,
		Attributes: []models.AttributeValue{{Name: "case", Value: "accusative"}},
	}
	accusative.Hash = models.ContentHash(&accusative)
	accusative.ID = accusative.Hash

	sessions := store.NewMemoryStore()
	selector := NewSelector(
		NewMemorySource([]models.Question{genitive, accusative}),
		sessions,
	)

	const chatID = int64(100)
	eligible, err := selector.SetFilter(chatID, "genitive")
	require.NoError(t, err)
	require.Equal(t, 1, eligible)

	q, _, err := selector.Next(chatID)
	require.NoError(t, err)
	require.Equal(t, genitive.ID, q.ID)

	asked := time.Now()
	_, options := BuildMessage(q, asked)

	// Grade the way the callback handler does: scan all tokens for the one
	// marked correct at render time.
	var pressed token.AnswerToken
	for _, opt := range options {
		decoded, err := token.Decode(opt.Payload)
		require.NoError(t, err)
		if decoded.IsCorrect {
			pressed = decoded
		}
	}

	require.NoError(t, sessions.RecordAnswer(models.AnswerRecord{
		UID:        chatID,
		QuestionID: pressed.QuestionID,
		Correct:    pressed.IsCorrect,
		AskedAt:    pressed.PresentedAt,
		AnsweredAt: time.Now(),
	}))

	stat, err := sessions.AnswerStat(chatID, FeedbackWindow)
	require.NoError(t, err)
	assert.Equal(t, models.AnswerStat{Count: 1, Correct: 1}, stat)
}
