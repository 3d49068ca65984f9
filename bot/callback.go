package bot

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/korjavin/padezbot/models"
	"github.com/korjavin/padezbot/quiz"
	"github.com/korjavin/padezbot/token"
)

// handleCallback grades a pressed answer button. The pressed token alone is
// never trusted for the grade: the ground truth is recovered by re-scanning
// every sibling button of the original message for the token the renderer
// marked correct, and the grade is "pressed index equals that token's index".
func (b *Bot) handleCallback(callback *tgbotapi.CallbackQuery) {
	message := callback.Message
	if message == nil {
		logrus.WithField("callback_id", callback.ID).Warn("Callback without original message")
		return
	}
	chatID := message.Chat.ID

	b.runInteraction(chatID, func() error {
		if _, err := b.sessions.TouchUser(userInfo(callback.From)); err != nil {
			return fmt.Errorf("failed to touch user: %w", err)
		}

		// Acknowledge immediately so Telegram doesn't expire the query.
		if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
			logrus.WithField("chat_id", chatID).WithError(err).Error("Error answering callback query")
		}

		pressed, err := token.Decode(callback.Data)
		if err != nil {
			return err
		}

		answerText, correctText, correctIndex, err := scanSiblingTokens(message, pressed)
		if err != nil {
			return err
		}
		correct := pressed.OptionIndex == correctIndex

		logrus.WithFields(logrus.Fields{
			"chat_id":     chatID,
			"question_id": models.FormatID(pressed.QuestionID),
			"correct":     correct,
		}).Debug("Got answer")

		answeredAt := time.Now()
		if err := b.sessions.RecordAnswer(models.AnswerRecord{
			UID:        callback.From.ID,
			QuestionID: pressed.QuestionID,
			Correct:    correct,
			AskedAt:    pressed.PresentedAt,
			AnsweredAt: answeredAt,
		}); err != nil {
			return fmt.Errorf("failed to record answer: %w", err)
		}

		b.revealAnswer(chatID, message, correct, answerText, correctText)

		if stat, err := b.sessions.AnswerStat(callback.From.ID, quiz.FeedbackWindow); err != nil {
			logrus.WithField("chat_id", chatID).WithError(err).Error("Error reading progress stats")
		} else if progress, due := quiz.Progress(stat); due {
			b.sendPlain(chatID, progress)
		}

		// Give the user a moment to read the reveal. Nothing is locked here.
		time.Sleep(nextQuestionDelay)

		return b.askNextTask(chatID)
	})
}

// scanSiblingTokens decodes the token of every button attached to the
// original message and returns the pressed option's text, the correct
// option's text and the correct option's index. Any undecodable or foreign
// sibling fails the whole interaction; guessing here would mean grading
// against the wrong question.
func scanSiblingTokens(message *tgbotapi.Message, pressed token.AnswerToken) (answerText, correctText string, correctIndex int, err error) {
	if message.ReplyMarkup == nil || len(message.ReplyMarkup.InlineKeyboard) == 0 {
		return "", "", 0, quiz.ErrMissingReplyContext
	}

	correctIndex = -1
	pressedFound := false
	for _, row := range message.ReplyMarkup.InlineKeyboard {
		for _, button := range row {
			if button.CallbackData == nil {
				return "", "", 0, quiz.ErrBadCallbackData
			}
			sibling, err := token.Decode(*button.CallbackData)
			if err != nil {
				return "", "", 0, quiz.ErrBadCallbackData
			}
			if sibling.QuestionID != pressed.QuestionID {
				return "", "", 0, quiz.ErrBadCallbackData
			}

			if sibling.OptionIndex == pressed.OptionIndex {
				answerText = button.Text
				pressedFound = true
			}
			if sibling.IsCorrect {
				correctText = button.Text
				correctIndex = sibling.OptionIndex
			}
		}
	}

	if correctIndex < 0 {
		// A rendered option set always contains the correct answer.
		return "", "", 0, quiz.ErrBadCallbackData
	}
	if !pressedFound {
		// A stale callback from an older rendering of the same question.
		return "", "", 0, quiz.ErrBadCallbackData
	}
	return answerText, correctText, correctIndex, nil
}

// revealAnswer edits the original message: the button row goes away and the
// chosen and correct answers are appended. Edit failures are logged but do
// not abort the interaction; the answer is already recorded.
func (b *Bot) revealAnswer(chatID int64, message *tgbotapi.Message, correct bool, answerText, correctText string) {
	text := strings.TrimPrefix(message.Text, strings.TrimSpace(quiz.QuestionPrelude))
	text = strings.TrimLeft(text, "\n")

	var sb strings.Builder
	sb.WriteString(text)
	sb.WriteString("\n\n")
	if !correct {
		sb.WriteString("\n❌ ")
		sb.WriteString(answerText)
	}
	sb.WriteString("\n✅ ")
	sb.WriteString(correctText)

	clear := tgbotapi.NewEditMessageReplyMarkup(chatID, message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	if _, err := b.api.Request(clear); err != nil {
		logrus.WithField("chat_id", chatID).WithError(err).Error("Error removing buttons")
	}

	edit := tgbotapi.NewEditMessageText(chatID, message.MessageID, sb.String())
	if _, err := b.api.Send(edit); err != nil {
		logrus.WithField("chat_id", chatID).WithError(err).Error("Error editing answered message")
	}
}
