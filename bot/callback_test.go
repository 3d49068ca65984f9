package bot

import (
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korjavin/padezbot/quiz"
	"github.com/korjavin/padezbot/token"
)

// keyboardMessage builds the message shape Telegram hands back in a callback:
// one button per row, each carrying an encoded answer token.
func keyboardMessage(payloads []string, texts []string) *tgbotapi.Message {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(payloads))
	for i := range payloads {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(texts[i], payloads[i]),
		))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &tgbotapi.Message{ReplyMarkup: &markup}
}

func encodeOptions(questionID int64, correctIndex int, presentedAt time.Time, texts []string) []string {
	payloads := make([]string, len(texts))
	for i := range texts {
		payloads[i] = token.Encode(token.AnswerToken{
			QuestionID:  questionID,
			OptionIndex: i,
			IsCorrect:   i == correctIndex,
			PresentedAt: presentedAt,
		})
	}
	return payloads
}

func TestScanSiblingTokensRecoversGroundTruth(t *testing.T) {
	presented := time.Now()
	texts := []string{"kuće", "kući", "kuća"}
	payloads := encodeOptions(42, 2, presented, texts)
	message := keyboardMessage(payloads, texts)

	pressed, err := token.Decode(payloads[0])
	require.NoError(t, err)

	answerText, correctText, correctIndex, err := scanSiblingTokens(message, pressed)
	require.NoError(t, err)
	assert.Equal(t, "kuće", answerText)
	assert.Equal(t, "kuća", correctText)
	assert.Equal(t, 2, correctIndex)
}

func TestScanSiblingTokensRejectsForeignQuestion(t *testing.T) {
	presented := time.Now()
	texts := []string{"a", "b"}
	payloads := encodeOptions(42, 0, presented, texts)

	// One sibling belongs to a different question.
	payloads[1] = token.Encode(token.AnswerToken{
		QuestionID: 43, OptionIndex: 1, PresentedAt: presented,
	})
	message := keyboardMessage(payloads, texts)

	pressed, err := token.Decode(payloads[0])
	require.NoError(t, err)

	_, _, _, err = scanSiblingTokens(message, pressed)
	assert.ErrorIs(t, err, quiz.ErrBadCallbackData)
}

func TestScanSiblingTokensRejectsUndecodableSibling(t *testing.T) {
	presented := time.Now()
	texts := []string{"a", "b"}
	payloads := encodeOptions(42, 0, presented, texts)
	payloads[1] = "not a token"
	message := keyboardMessage(payloads, texts)

	pressed, err := token.Decode(payloads[0])
	require.NoError(t, err)

	_, _, _, err = scanSiblingTokens(message, pressed)
	assert.ErrorIs(t, err, quiz.ErrBadCallbackData)
}

func TestScanSiblingTokensRejectsMissingMarkup(t *testing.T) {
	pressed := token.AnswerToken{QuestionID: 42, PresentedAt: time.Now()}

	_, _, _, err := scanSiblingTokens(&tgbotapi.Message{}, pressed)
	assert.ErrorIs(t, err, quiz.ErrMissingReplyContext)

	empty := &tgbotapi.Message{ReplyMarkup: &tgbotapi.InlineKeyboardMarkup{}}
	_, _, _, err = scanSiblingTokens(empty, pressed)
	assert.ErrorIs(t, err, quiz.ErrMissingReplyContext)
}

func TestScanSiblingTokensRejectsStalePressedIndex(t *testing.T) {
	presented := time.Now()
	texts := []string{"a", "b"}
	payloads := encodeOptions(42, 0, presented, texts)
	message := keyboardMessage(payloads, texts)

	// A button from an older rendering of the same question: its index does
	// not exist in the current keyboard.
	stale := token.AnswerToken{QuestionID: 42, OptionIndex: 7, PresentedAt: presented}

	_, _, _, err := scanSiblingTokens(message, stale)
	assert.ErrorIs(t, err, quiz.ErrBadCallbackData)
}
