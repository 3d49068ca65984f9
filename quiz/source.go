package quiz

import (
	"github.com/korjavin/padezbot/filter"
	"github.com/korjavin/padezbot/models"
)

// QuestionSource supplies the corpus to the engine. The database package
// provides the durable implementation; MemorySource serves a corpus loaded
// straight from YAML files.
type QuestionSource interface {
	// QuestionIDs returns ids of active questions matching the expression.
	QuestionIDs(expr filter.Expression) ([]int64, error)
	// Question resolves a question by id, active or not; nil when unknown.
	Question(id int64) (*models.Question, error)
	// FilterInfo lists attribute names and values for discoverability.
	FilterInfo() ([]filter.Info, error)
}

// MemorySource is a QuestionSource over an in-process question list.
type MemorySource struct {
	questions map[int64]*models.Question
	order     []int64
}

// NewMemorySource indexes the given questions by id.
func NewMemorySource(questions []models.Question) *MemorySource {
	s := &MemorySource{questions: make(map[int64]*models.Question, len(questions))}
	for i := range questions {
		q := questions[i]
		if _, dup := s.questions[q.ID]; dup {
			continue
		}
		s.questions[q.ID] = &q
		s.order = append(s.order, q.ID)
	}
	return s
}

// QuestionIDs implements QuestionSource.
func (s *MemorySource) QuestionIDs(expr filter.Expression) ([]int64, error) {
	var ids []int64
	for _, id := range s.order {
		q := s.questions[id]
		if q.Active && filter.Matches(q.Attributes, expr) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Question implements QuestionSource.
func (s *MemorySource) Question(id int64) (*models.Question, error) {
	return s.questions[id], nil
}

// FilterInfo implements QuestionSource.
func (s *MemorySource) FilterInfo() ([]filter.Info, error) {
	questions := make([]models.Question, 0, len(s.order))
	for _, id := range s.order {
		if s.questions[id].Active {
			questions = append(questions, *s.questions[id])
		}
	}
	return filter.CollectInfo(questions), nil
}
