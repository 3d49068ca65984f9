package store

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/korjavin/padezbot/models"
)

type conversation struct {
	state models.ConversationState
	queue []int64
}

// MemoryStore is the in-process SessionStore. State does not survive a
// restart; answer history lives only as long as the process.
type MemoryStore struct {
	mu            sync.Mutex
	conversations map[int64]*conversation

	usersMu sync.Mutex
	users   map[int64]models.UserInfo
	answers map[int64][]models.AnswerRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[int64]*conversation),
		users:         make(map[int64]models.UserInfo),
		answers:       make(map[int64][]models.AnswerRecord),
	}
}

func (s *MemoryStore) conversationLocked(chatID int64) *conversation {
	c, ok := s.conversations[chatID]
	if !ok {
		c = &conversation{}
		s.conversations[chatID] = c
	}
	return c
}

// TouchUser implements SessionStore.
func (s *MemoryStore) TouchUser(user models.UserInfo) (bool, error) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	existing, ok := s.users[user.UID]
	if ok {
		existing.LastActiveAt = user.LastActiveAt
		s.users[user.UID] = existing
		return false, nil
	}

	logrus.WithFields(logrus.Fields{"uid": user.UID, "username": user.Username}).Info("New user")
	s.users[user.UID] = user
	return true, nil
}

// GetState implements SessionStore.
func (s *MemoryStore) GetState(chatID int64) (models.ConversationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationLocked(chatID).state, nil
}

// UpdateState implements SessionStore.
func (s *MemoryStore) UpdateState(chatID int64, state models.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationLocked(chatID).state = state
	return nil
}

// ReplaceQueue implements SessionStore.
func (s *MemoryStore) ReplaceQueue(chatID int64, questionIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := make([]int64, len(questionIDs))
	copy(queue, questionIDs)
	s.conversationLocked(chatID).queue = queue
	return nil
}

// TakeNextTask implements SessionStore. The pop is from the tail: the order
// is random after the shuffle anyway, and removal stays O(1).
func (s *MemoryStore) TakeNextTask(chatID int64) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.conversationLocked(chatID)
	if len(c.queue) == 0 {
		return 0, false, nil
	}
	id := c.queue[len(c.queue)-1]
	c.queue = c.queue[:len(c.queue)-1]
	return id, true, nil
}

// RecordAnswer implements SessionStore.
func (s *MemoryStore) RecordAnswer(record models.AnswerRecord) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	s.answers[record.UID] = append(s.answers[record.UID], record)
	return nil
}

// AnswerStat implements SessionStore.
func (s *MemoryStore) AnswerStat(uid int64, window time.Duration) (models.AnswerStat, error) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	from := time.Now().Add(-window)
	var stat models.AnswerStat
	for _, record := range s.answers[uid] {
		if record.AnsweredAt.Before(from) {
			continue
		}
		stat.Count++
		if record.Correct {
			stat.Correct++
		}
	}
	return stat, nil
}
