// Package bot is the Telegram transport: it turns inbound commands and
// button presses into quiz-engine calls and renders the results back into
// chat messages. Everything stateful lives behind the store and source
// interfaces; the bot itself only orchestrates.
package bot

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/korjavin/padezbot/config"
	"github.com/korjavin/padezbot/models"
	"github.com/korjavin/padezbot/quiz"
	"github.com/korjavin/padezbot/store"
)

// Bot wires the Telegram API to the quiz engine.
type Bot struct {
	api            *tgbotapi.BotAPI
	sessions       store.SessionStore
	source         quiz.QuestionSource
	selector       *quiz.Selector
	feedbackChatID int64

	// Filter discoverability info rarely changes between imports; cache it
	// so /filter help doesn't rescan the corpus on every call.
	filterInfo *cache.Cache
}

const (
	cmdStart       = "start"
	cmdNext        = "next"
	cmdHelp        = "help"
	cmdStat        = "stat"
	cmdFilter      = "filter"
	cmdFilterReset = "filter_reset"
	cmdFeedback    = "feedback"

	filterInfoKey = "filter_info"
	filterInfoTTL = 5 * time.Minute

	// Pacing between revealing an answer and asking the next question. A UX
	// device, not a correctness mechanism; no lock is held across it.
	nextQuestionDelay = time.Second
)

const helpText = `Hi there! This bot helps you practice grammar cases with multiple-choice questions.

Commands:
/start - begin (or continue) practicing
/next - skip to another question
/filter - narrow questions down by attributes (send /filter for details)
/filter_reset - practice on the full question set again
/stat - your recent accuracy
/feedback - send a note to the authors

Pick the right option under each question and I'll keep score.`

// New creates a bot instance over the given corpus and session store.
func New(cfg *config.Config, source quiz.QuestionSource, sessions store.SessionStore) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	api.Debug = cfg.Debug

	return &Bot{
		api:            api,
		sessions:       sessions,
		source:         source,
		selector:       quiz.NewSelector(source, sessions),
		feedbackChatID: cfg.FeedbackChatID,
		filterInfo:     cache.New(filterInfoTTL, 2*filterInfoTTL),
	}, nil
}

// Start runs the long-poll loop. Each update is handled on its own
// goroutine: conversations never serialize behind each other, and the
// selector's per-conversation lock protects same-chat races.
func (b *Bot) Start() {
	logrus.Info("Starting bot polling...")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	for update := range b.api.GetUpdatesChan(u) {
		update := update
		go b.handleUpdate(update)
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(update.Message)
	}
}

// runInteraction is the error boundary: every failure is logged and turned
// into a short user-visible message inviting a restart, never a crash. State
// stays as of the last committed step.
func (b *Bot) runInteraction(chatID int64, fn func() error) {
	if err := fn(); err != nil {
		logrus.WithField("chat_id", chatID).WithError(err).Error("Interaction failed")
		b.sendPlain(chatID, fmt.Sprintf(
			"Oops, something went wrong:\n%s\n\nPress /start to continue.", err))
	}
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	b.runInteraction(chatID, func() error {
		if message.From != nil {
			if _, err := b.sessions.TouchUser(userInfo(message.From)); err != nil {
				return fmt.Errorf("failed to touch user: %w", err)
			}
		}

		command := message.Command()
		args := message.CommandArguments()

		logrus.WithFields(logrus.Fields{
			"chat_id": chatID,
			"command": command,
		}).Debug("Got message")

		switch command {
		case cmdStart:
			b.sendPlain(chatID, helpText)
			return b.askNextTask(chatID)
		case cmdNext:
			return b.askNextTask(chatID)
		case cmdStat:
			return b.handleStat(chatID, message.From)
		case cmdFilter:
			return b.handleFilter(chatID, args)
		case cmdFilterReset:
			return b.handleFilter(chatID, "-")
		case cmdFeedback:
			return b.handleFeedback(message, args)
		case cmdHelp:
			fallthrough
		default:
			b.sendPlain(chatID, helpText)
			return nil
		}
	})
}

// askNextTask pulls the next question for the conversation and renders it.
// When the queue was regenerated, the one-time count notification goes out
// first; a queue that regenerated but whose question message then failed to
// send stays consumed (reported, not rolled back).
func (b *Bot) askNextTask(chatID int64) error {
	question, loaded, err := b.selector.Next(chatID)
	if err != nil {
		return err
	}

	if loaded > 0 {
		state, err := b.sessions.GetState(chatID)
		if err != nil {
			return fmt.Errorf("failed to read conversation state: %w", err)
		}
		notice := fmt.Sprintf("I have %d %s for you, let's go!", loaded, plural(loaded, "question", "questions"))
		if state.Filter != "" {
			notice = fmt.Sprintf("I have %d %s matching filter %q, let's go! (use /filter to change it)",
				loaded, plural(loaded, "question", "questions"), state.Filter)
		}
		b.sendPlain(chatID, notice)
	}

	text, options := quiz.BuildMessage(question, time.Now())

	logrus.WithFields(logrus.Fields{
		"chat_id":     chatID,
		"question_id": models.FormatID(question.ID),
	}).Debug("Asking question")

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(options))
	for _, opt := range options {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(opt.Text, opt.Payload),
		))
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send question: %w", err)
	}
	return nil
}

func (b *Bot) handleStat(chatID int64, from *tgbotapi.User) error {
	if from == nil {
		b.sendPlain(chatID, "I can't identify you in this chat, so there are no statistics to show.")
		return nil
	}

	day, err := b.sessions.AnswerStat(from.ID, 24*time.Hour)
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}
	month, err := b.sessions.AnswerStat(from.ID, 30*24*time.Hour)
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	b.sendPlain(chatID, fmt.Sprintf(
		"📊 Your statistics:\n\nLast 24 hours: %d answered, %d correct\nLast 30 days: %d answered, %d correct",
		day.Count, day.Correct, month.Count, month.Correct))
	return nil
}

func (b *Bot) handleFeedback(message *tgbotapi.Message, text string) error {
	if b.feedbackChatID == 0 {
		b.sendPlain(message.Chat.ID, "Feedback is not configured for this bot instance.")
		return nil
	}
	if text == "" {
		b.sendPlain(message.Chat.ID, "Please write the text you want to send after /feedback. You can also reply to one of my messages to reference it.")
		return nil
	}

	author := "unknown"
	if message.From != nil {
		author = fmt.Sprintf("@%s (%s %s)", message.From.UserName, message.From.FirstName, message.From.LastName)
	}

	forward := fmt.Sprintf("Feedback from %s:\n\n%s", author, text)
	if message.ReplyToMessage != nil && message.ReplyToMessage.Text != "" {
		forward += fmt.Sprintf("\n\nReply to:\n\n%s", message.ReplyToMessage.Text)
	}

	if _, err := b.api.Send(tgbotapi.NewMessage(b.feedbackChatID, forward)); err != nil {
		return fmt.Errorf("failed to forward feedback: %w", err)
	}
	b.sendPlain(message.Chat.ID, "Thanks, your feedback was passed along!")
	return nil
}

// sendPlain sends a plain-text message; send failures at this level are
// logged, not propagated, since there is no better channel to report them.
func (b *Bot) sendPlain(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logrus.WithField("chat_id", chatID).WithError(err).Error("Error sending message")
	}
}

// sendMarkdown sends a MarkdownV2 message, falling back to plain text when
// Telegram rejects the formatting.
func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.api.Send(msg); err != nil {
		logrus.WithField("chat_id", chatID).WithError(err).Error("Markdown send failed, falling back to plain text")
		b.sendPlain(chatID, text)
	}
}

func userInfo(user *tgbotapi.User) models.UserInfo {
	fullName := user.FirstName
	if user.LastName != "" {
		fullName += " " + user.LastName
	}
	now := time.Now()
	return models.UserInfo{
		UID:          user.ID,
		Username:     user.UserName,
		FullName:     fullName,
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
