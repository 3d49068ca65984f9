package quiz

import (
	"fmt"
	"time"

	"github.com/korjavin/padezbot/models"
)

// FeedbackWindow is the trailing window progress feedback is computed over.
const FeedbackWindow = 24 * time.Hour

// feedbackEvery: a progress message is emitted when the windowed answer
// count is a positive multiple of this.
const feedbackEvery = 5

// Accuracy bands, in percent. Fixed policy, not configuration.
const (
	encourageBelow = 31
	affirmBelow    = 91
)

// Progress decides whether a progress message is due after a graded answer
// and composes it. The message category depends on the rolling accuracy:
// encouragement up to 30%, affirmation up to 90%, praise above.
func Progress(stat models.AnswerStat) (string, bool) {
	if stat.Count <= 0 || stat.Count%feedbackEvery != 0 {
		return "", false
	}

	accuracy := stat.Correct * 100 / stat.Count

	var mood string
	switch {
	case accuracy < encourageBelow:
		mood = "Keep going, every answer teaches you something. 💪"
	case accuracy < affirmBelow:
		mood = "Nice steady progress, keep it up! 👍"
	default:
		mood = "Outstanding! You are nailing these. 🏆"
	}

	return fmt.Sprintf(
		"You've answered %d questions in the last 24 hours, %d of them correctly (%d%%).\n%s",
		stat.Count, stat.Correct, accuracy, mood,
	), true
}
