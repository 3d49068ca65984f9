package quiz

import (
	"math/rand"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/korjavin/padezbot/models"
	"github.com/korjavin/padezbot/token"
)

// QuestionPrelude opens every question message. The grading flow strips it
// before editing the answered message back in.
const QuestionPrelude = "➖❔➖❔➖❔➖❔➖❔➖\n\n\n"

// BlankMarker is the placeholder questions use for a masked word group.
const BlankMarker = "*****"

// MissingWordPlaceholder is rendered when the base has fewer words than the
// prompt has blank markers. A data-quality problem, never a fatal one.
const MissingWordPlaceholder = "?????"

// questionEscapeSet lists the MarkdownV2 characters a question body may
// legitimately contain and therefore must escape.
const questionEscapeSet = ".-!()"

// maxDistractors caps how many wrong answers accompany the correct one.
const maxDistractors = 3

// Option is one answer button: its visible text and the encoded AnswerToken
// it carries as callback payload.
type Option struct {
	Text    string
	Payload string
}

// BuildMessage composes the display text and the shuffled option set for a
// question. Every option carries a freshly encoded token with the same
// presentation timestamp.
func BuildMessage(q *models.Question, presentedAt time.Time) (string, []Option) {
	var sb strings.Builder
	sb.WriteString(QuestionPrelude)
	sb.WriteString(FillBlanks(q.MaskedPrompt, q.Base))
	sb.WriteString("\n")

	for _, info := range q.Info {
		sb.WriteString("\n\n_")
		sb.WriteString(info)
		sb.WriteString("_\n")
	}

	for _, hint := range q.Hints {
		sb.WriteString("\n")
		sb.WriteString(hint.Name)
		sb.WriteString(": ||")
		sb.WriteString(hint.Value)
		sb.WriteString("||")
	}

	message := EscapeSymbols(sb.String(), questionEscapeSet)

	type variant struct {
		text    string
		correct bool
	}
	variants := []variant{{text: q.Correct, correct: true}}
	for _, wrong := range sampleDistractors(q.WrongAnswers, q.Correct) {
		variants = append(variants, variant{text: wrong})
	}
	rand.Shuffle(len(variants), func(i, j int) { variants[i], variants[j] = variants[j], variants[i] })

	options := make([]Option, 0, len(variants))
	for i, v := range variants {
		options = append(options, Option{
			Text: v.text,
			Payload: token.Encode(token.AnswerToken{
				QuestionID:  q.ID,
				OptionIndex: i,
				IsCorrect:   v.correct,
				PresentedAt: presentedAt,
			}),
		})
	}

	return message, options
}

// sampleDistractors picks up to maxDistractors wrong answers without
// replacement, dropping duplicates and anything textually identical to the
// correct answer.
func sampleDistractors(wrongAnswers []string, correct string) []string {
	seen := make(map[string]bool, len(wrongAnswers))
	pool := make([]string, 0, len(wrongAnswers))
	for _, w := range wrongAnswers {
		if w == correct || seen[w] {
			continue
		}
		seen[w] = true
		pool = append(pool, w)
	}

	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > maxDistractors {
		pool = pool[:maxDistractors]
	}
	return pool
}

// FillBlanks replaces each blank marker in the prompt, left to right, with
// words from the base. Markers consume one word each except the last one,
// which absorbs all remaining words. A missing word renders as a visible
// placeholder and logs a data-quality warning.
func FillBlanks(prompt, base string) string {
	words := strings.Fields(base)
	parts := strings.Split(prompt, BlankMarker)

	var sb strings.Builder
	for i, part := range parts {
		sb.WriteString(part)
		if i == len(parts)-1 {
			break
		}

		sb.WriteString("`[")
		if i >= len(words) {
			sb.WriteString(MissingWordPlaceholder)
			logrus.WithFields(logrus.Fields{"base": base, "prompt": prompt}).
				Warn("Not enough base words for prompt blanks")
		} else if i+2 < len(parts) {
			sb.WriteString(words[i])
		} else {
			sb.WriteString(strings.Join(words[i:], " "))
		}
		sb.WriteString("]`")
	}

	return sb.String()
}

// EscapeSymbols backslash-escapes every rune of symbols found in s. The
// reserved set is the caller's: Telegram MarkdownV2 needs different sets for
// question bodies and help text.
func EscapeSymbols(s, symbols string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, c := range s {
		if strings.ContainsRune(symbols, c) {
			sb.WriteRune('\\')
		}
		sb.WriteRune(c)
	}
	return sb.String()
}
