package flags

import (
	"strings"

	"github.com/temirov/binguard/internal/utils"
)

const (
	choiceListOpeningConstant   = "`<"
	choiceListClosingConstant   = ">`"
	choiceListSeparatorConstant = "|"
	choiceUsageSpacingConstant  = " "
)

// ChoiceSet lists the values an enumerated flag accepts and the one applied when the flag is omitted.
type ChoiceSet struct {
	DefaultChoice string
	Choices       []string
}

// LogLevelChoices describes the --log-level values understood by the logger factory.
func LogLevelChoices() ChoiceSet {
	return ChoiceSet{
		DefaultChoice: string(utils.LogLevelInfo),
		Choices: []string{
			string(utils.LogLevelDebug),
			string(utils.LogLevelInfo),
			string(utils.LogLevelWarn),
			string(utils.LogLevelError),
		},
	}
}

// LogFormatChoices describes the --log-format values; console also enables human-readable command events.
func LogFormatChoices() ChoiceSet {
	return ChoiceSet{
		DefaultChoice: string(utils.LogFormatStructured),
		Choices:       []string{string(utils.LogFormatStructured), string(utils.LogFormatConsole)},
	}
}

// Usage renders the choices ahead of description, upper-casing the default, e.g. "`<debug|INFO>` Log level.".
func (choiceSet ChoiceSet) Usage(description string) string {
	var usageBuilder strings.Builder
	usageBuilder.WriteString(choiceListOpeningConstant)
	usageBuilder.WriteString(strings.Join(choiceSet.displayChoices(), choiceListSeparatorConstant))
	usageBuilder.WriteString(choiceListClosingConstant)

	if trimmedDescription := strings.TrimSpace(description); len(trimmedDescription) > 0 {
		usageBuilder.WriteString(choiceUsageSpacingConstant)
		usageBuilder.WriteString(trimmedDescription)
	}
	return usageBuilder.String()
}

// displayChoices trims and de-duplicates the choices case-insensitively, keeping first occurrences.
func (choiceSet ChoiceSet) displayChoices() []string {
	defaultKey := strings.ToLower(strings.TrimSpace(choiceSet.DefaultChoice))
	displayed := make([]string, 0, len(choiceSet.Choices))
	seenKeys := make(map[string]struct{}, len(choiceSet.Choices))

	for _, choice := range choiceSet.Choices {
		trimmedChoice := strings.TrimSpace(choice)
		choiceKey := strings.ToLower(trimmedChoice)
		if len(choiceKey) == 0 {
			continue
		}
		if _, seen := seenKeys[choiceKey]; seen {
			continue
		}
		seenKeys[choiceKey] = struct{}{}

		if choiceKey == defaultKey {
			trimmedChoice = strings.ToUpper(trimmedChoice)
		}
		displayed = append(displayed, trimmedChoice)
	}
	return displayed
}
