package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/korjavin/padezbot/filter"
	"github.com/korjavin/padezbot/quiz"
)

const filterHelpIntro = `The filter narrows questions down to the attributes you care about.

List the values to keep, separated by commas. For example: ` + "`/filter genitive, accusative`" + `

To require several criteria at once, separate them with semicolons. For example: ` + "`/filter genitive, accusative; plural`" + `

To reset the filter, use /filter_reset or ` + "`/filter -`" + `

Possible values:
`

// filterHelpEscapeSet is wider than the question-body set: help text carries
// markdown-significant runes of its own.
const filterHelpEscapeSet = ".-*_()[]"

// handleFilter implements the /filter command surface: no argument shows the
// discoverability help, "-" resets, anything else becomes the new filter.
func (b *Bot) handleFilter(chatID int64, text string) error {
	text = strings.TrimSpace(text)
	switch text {
	case "":
		return b.sendFilterHelp(chatID)
	case "-":
		if err := b.selector.ResetFilter(chatID); err != nil {
			return err
		}
		return b.askNextTask(chatID)
	}

	_, err := b.selector.SetFilter(chatID, text)
	if errors.Is(err, quiz.ErrNoMatchingQuestions) {
		b.sendPlain(chatID, "Nothing matches that filter, try changing it.")
		return nil
	}
	if err != nil {
		return err
	}
	return b.askNextTask(chatID)
}

func (b *Bot) sendFilterHelp(chatID int64) error {
	info, err := b.cachedFilterInfo()
	if err != nil {
		return fmt.Errorf("failed to collect filter info: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(filterHelpIntro)
	for _, group := range info {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", group.Name, strings.Join(group.PossibleValues, ", ")))
	}

	b.sendMarkdown(chatID, quiz.EscapeSymbols(sb.String(), filterHelpEscapeSet))
	return nil
}

func (b *Bot) cachedFilterInfo() ([]filter.Info, error) {
	if cached, ok := b.filterInfo.Get(filterInfoKey); ok {
		return cached.([]filter.Info), nil
	}

	info, err := b.source.FilterInfo()
	if err != nil {
		return nil, err
	}
	b.filterInfo.SetDefault(filterInfoKey, info)
	return info, nil
}
