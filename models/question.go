package models

import (
	"hash/fnv"
	"sort"
	"strconv"
	"time"
)

// Question is a single quiz item loaded from the corpus. Questions are
// read-only after import; the ID is derived from the content hash so that
// re-imports are idempotent.
type Question struct {
	ID           int64            `yaml:"-" json:"id"`
	Hash         int64            `yaml:"-" json:"hash"`
	Prompt       string           `yaml:"sentence" json:"prompt"`
	MaskedPrompt string           `yaml:"masked_sentence" json:"masked_prompt"`
	Correct      string           `yaml:"correct" json:"correct"`
	Base         string           `yaml:"base" json:"base"`
	WrongAnswers []string         `yaml:"wrong_answers" json:"wrong_answers"`
	Hints        []Hint           `yaml:"hints" json:"hints"`
	Attributes   []AttributeValue `yaml:"filters" json:"attributes"`
	Info         []string         `yaml:"info" json:"info"`
	Active       bool             `yaml:"-" json:"-"`
}

// Hint is a revealable name/value pair shown redacted until the user opens it.
type Hint struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

// AttributeValue is a name->value tag used by filter expressions. Only the
// value takes part in matching; the name exists for discoverability.
type AttributeValue struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

// TaskGroup is the on-disk YAML shape: a themed batch of questions.
type TaskGroup struct {
	Theme    string     `yaml:"theme"`
	Category string     `yaml:"category"`
	Tasks    []Question `yaml:"tasks"`
}

// ConversationState is the per-chat mutable state. The raw filter text is
// kept unparsed and re-parsed on use, so corpus changes need no migration.
type ConversationState struct {
	Filter string
}

// UserInfo identifies a user across conversations.
type UserInfo struct {
	UID          int64
	Username     string
	FullName     string
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// AnswerRecord is an append-only record of one graded interaction.
type AnswerRecord struct {
	UID        int64
	QuestionID int64
	Correct    bool
	AskedAt    time.Time
	AnsweredAt time.Time
}

// AnswerStat is a derived count over a trailing time window.
type AnswerStat struct {
	Count   int64
	Correct int64
}

// ContentHash computes the stable identifier of a question from its content.
// Attribute order in the source file must not change the hash.
func ContentHash(q *Question) int64 {
	h := fnv.New64a()
	h.Write([]byte(q.MaskedPrompt))
	h.Write([]byte{0})
	h.Write([]byte(q.Base))
	h.Write([]byte{0})
	h.Write([]byte(q.Correct))
	h.Write([]byte{0})

	attrs := make([]string, 0, len(q.Attributes))
	for _, a := range q.Attributes {
		attrs = append(attrs, a.Name+"="+a.Value)
	}
	sort.Strings(attrs)
	for _, a := range attrs {
		h.Write([]byte(a))
		h.Write([]byte{0})
	}

	return int64(h.Sum64())
}

// FormatID renders a question id for logs.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
