package quiz

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/korjavin/padezbot/filter"
	"github.com/korjavin/padezbot/models"
	"github.com/korjavin/padezbot/store"
)

// Selector decides which question a conversation sees next. Each
// conversation cycles through a shuffled queue of every eligible question,
// exhausting it before any repeat, then regenerates.
type Selector struct {
	source QuestionSource
	store  store.SessionStore

	// One mutex per conversation so a double-tap cannot race the
	// read-regenerate-pop sequence. Conversations in different chats never
	// block each other. Entries are never removed; conversations have no
	// explicit end of life.
	locks sync.Map
}

// NewSelector creates a selector over the given corpus and session store.
func NewSelector(source QuestionSource, sessions store.SessionStore) *Selector {
	return &Selector{source: source, store: sessions}
}

func (s *Selector) lock(chatID int64) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(chatID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Next returns the next question for the conversation. When the pending
// queue was empty and had to be regenerated, loaded holds the number of
// questions installed (for the one-time notification); otherwise it is zero.
func (s *Selector) Next(chatID int64) (q *models.Question, loaded int, err error) {
	mu := s.lock(chatID)
	mu.Lock()
	defer mu.Unlock()

	state, err := s.store.GetState(chatID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read conversation state: %w", err)
	}

	id, ok, err := s.store.TakeNextTask(chatID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to take next task: %w", err)
	}

	if !ok {
		ids, err := s.source.QuestionIDs(filter.Parse(state.Filter))
		if err != nil {
			return nil, 0, fmt.Errorf("failed to select questions: %w", err)
		}
		if len(ids) == 0 {
			if state.Filter != "" {
				return nil, 0, ErrNoMatchingQuestions
			}
			return nil, 0, ErrNoTaskFound
		}

		rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		if err := s.store.ReplaceQueue(chatID, ids); err != nil {
			return nil, 0, fmt.Errorf("failed to install queue: %w", err)
		}
		loaded = len(ids)

		id, ok, err = s.store.TakeNextTask(chatID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to take next task: %w", err)
		}
		if !ok {
			return nil, 0, ErrNoTaskFound
		}
	}

	question, err := s.source.Question(id)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load question %d: %w", id, err)
	}
	if question == nil {
		return nil, 0, ErrNoTaskFound
	}
	return question, loaded, nil
}

// SetFilter validates the filter against the corpus, stores it and clears
// the pending queue so the next call to Next regenerates under the new
// filter. A question already rendered to the user is unaffected: its answer
// tokens grade normally.
func (s *Selector) SetFilter(chatID int64, text string) (eligible int, err error) {
	ids, err := s.source.QuestionIDs(filter.Parse(text))
	if err != nil {
		return 0, fmt.Errorf("failed to match filter: %w", err)
	}
	if len(ids) == 0 {
		return 0, ErrNoMatchingQuestions
	}

	mu := s.lock(chatID)
	mu.Lock()
	defer mu.Unlock()

	state, err := s.store.GetState(chatID)
	if err != nil {
		return 0, fmt.Errorf("failed to read conversation state: %w", err)
	}
	state.Filter = text
	if err := s.store.UpdateState(chatID, state); err != nil {
		return 0, fmt.Errorf("failed to update conversation state: %w", err)
	}
	if err := s.store.ReplaceQueue(chatID, nil); err != nil {
		return 0, fmt.Errorf("failed to clear queue: %w", err)
	}
	return len(ids), nil
}

// ResetFilter clears the active filter and the pending queue.
func (s *Selector) ResetFilter(chatID int64) error {
	mu := s.lock(chatID)
	mu.Lock()
	defer mu.Unlock()

	state, err := s.store.GetState(chatID)
	if err != nil {
		return fmt.Errorf("failed to read conversation state: %w", err)
	}
	state.Filter = ""
	if err := s.store.UpdateState(chatID, state); err != nil {
		return fmt.Errorf("failed to update conversation state: %w", err)
	}
	if err := s.store.ReplaceQueue(chatID, nil); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}
