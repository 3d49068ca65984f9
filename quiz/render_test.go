package quiz

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korjavin/padezbot/models"
	"github.com/korjavin/padezbot/token"
)

func TestFillBlanksLastMarkerAbsorbsRemainingWords(t *testing.T) {
	result := FillBlanks("Ovo je *****.", "moja  kuća")
	assert.Equal(t, "Ovo je `[moja kuća]`.", result)
}

func TestFillBlanksOneWordPerMarker(t *testing.T) {
	result := FillBlanks("Ovo je ***** *****.", "moja  kuća")
	assert.Equal(t, "Ovo je `[moja]` `[kuća]`.", result)
}

func TestFillBlanksNotEnoughWords(t *testing.T) {
	result := FillBlanks("Ovo je ***** *****.", "moja")
	assert.Equal(t, "Ovo je `[moja]` `[?????]`.", result)
}

func TestFillBlanksThreeMarkersFourWords(t *testing.T) {
	result := FillBlanks("***** ***** *****", "a b c d")
	assert.Equal(t, "`[a]` `[b]` `[c d]`", result)
}

func TestEscapeSymbols(t *testing.T) {
	assert.Equal(t, `a\. b\-c\!`, EscapeSymbols("a. b-c!", ".-!()"))
	assert.Equal(t, "plain", EscapeSymbols("plain", ".-!()"))
	assert.Equal(t, `\(x\)`, EscapeSymbols("(x)", "()"))
}

func testQuestion() *models.Question {
	return &models.Question{
		ID:           42,
		MaskedPrompt: "Ovo je *****.",
		Base:         "moja kuća",
		Correct:      "kući",
		WrongAnswers: []string{"kuća", "kućom", "kući", "kuće", "kuću"},
		Hints:        []models.Hint{{Name: "case", Value: "locative"}},
		Info:         []string{"This is my house."},
		Active:       true,
	}
}

func TestBuildMessageComposition(t *testing.T) {
	text, options := BuildMessage(testQuestion(), time.Now())

	assert.True(t, strings.HasPrefix(text, QuestionPrelude))
	assert.Contains(t, text, "`[moja kuća]`")
	assert.Contains(t, text, "_This is my house\\._")
	assert.Contains(t, text, "case: ||locative||")
	assert.NotEmpty(t, options)
}

func TestBuildMessageOptions(t *testing.T) {
	presented := time.Now()
	_, options := BuildMessage(testQuestion(), presented)

	// Correct answer plus at most three distractors.
	require.LessOrEqual(t, len(options), 4)
	require.GreaterOrEqual(t, len(options), 2)

	correctCount := 0
	seenTexts := make(map[string]bool)
	for i, opt := range options {
		decoded, err := token.Decode(opt.Payload)
		require.NoError(t, err)

		assert.Equal(t, int64(42), decoded.QuestionID)
		assert.Equal(t, i, decoded.OptionIndex)
		assert.Equal(t, presented.UnixMilli(), decoded.PresentedAt.UnixMilli())

		if decoded.IsCorrect {
			correctCount++
			assert.Equal(t, "kući", opt.Text)
		} else {
			// A distractor identical to the correct answer must never appear.
			assert.NotEqual(t, "kući", opt.Text)
		}
		assert.False(t, seenTexts[opt.Text], "option %q sampled twice", opt.Text)
		seenTexts[opt.Text] = true
	}
	assert.Equal(t, 1, correctCount)
}

func TestBuildMessageWithoutDistractors(t *testing.T) {
	q := testQuestion()
	q.WrongAnswers = []string{q.Correct} // everything collides with the correct text

	_, options := BuildMessage(q, time.Now())
	require.Len(t, options, 1)

	decoded, err := token.Decode(options[0].Payload)
	require.NoError(t, err)
	assert.True(t, decoded.IsCorrect)
}
