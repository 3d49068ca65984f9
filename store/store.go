// Package store defines the session-state capability the quiz engine depends
// on, together with a non-durable in-memory implementation. A durable
// sqlite-backed implementation lives in the database package.
package store

import (
	"time"

	"github.com/korjavin/padezbot/models"
)

// SessionStore holds per-conversation state (active filter, pending question
// queue) and per-user long-term data (answer records, stats).
//
// TakeNextTask must be an atomic pop: two concurrent calls for the same
// conversation must never return the same queued id. Cross-conversation
// operations must not block each other.
type SessionStore interface {
	// TouchUser upserts the user and reports whether it was seen for the
	// first time.
	TouchUser(user models.UserInfo) (bool, error)

	GetState(chatID int64) (models.ConversationState, error)
	UpdateState(chatID int64, state models.ConversationState) error

	// ReplaceQueue installs a freshly generated delivery queue, dropping
	// whatever was pending.
	ReplaceQueue(chatID int64, questionIDs []int64) error
	// TakeNextTask pops one question id from the queue; ok is false when the
	// queue is empty.
	TakeNextTask(chatID int64) (id int64, ok bool, err error)

	// RecordAnswer appends one graded interaction. Records are never
	// mutated or deleted.
	RecordAnswer(record models.AnswerRecord) error
	// AnswerStat counts the user's records answered within [now-window, now].
	AnswerStat(uid int64, window time.Duration) (models.AnswerStat, error)
}
