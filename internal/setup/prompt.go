// Package setup provides the interactive terminal prompts used for
// confirmations and the styled console output of the sync run.
package setup

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(0, 2).
			Bold(true).
			MarginBottom(1)

	symbolStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true)

	countStyle = lipgloss.NewStyle().
			Foreground(subtle)
)

// ConsoleConfirmer asks yes/no questions through a terminal form.
type ConsoleConfirmer struct{}

// Confirm shows the prompt and returns the user's answer.
func (ConsoleConfirmer) Confirm(prompt string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(prompt).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).Run()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// AutoConfirmer answers every question without prompting. Used for
// non-interactive runs.
type AutoConfirmer struct {
	Answer bool
}

// Confirm returns the preset answer.
func (a AutoConfirmer) Confirm(string) (bool, error) {
	return a.Answer, nil
}

// PrintHeader renders the application banner.
func PrintHeader(title string) {
	fmt.Println(headerStyle.Render(title))
}

// PrintSyncProgress renders one line of per-market sync progress.
func PrintSyncProgress(symbol string, fills int, current, total int) {
	fmt.Printf("%s %s %s\n",
		countStyle.Render(fmt.Sprintf("[%d/%d]", current, total)),
		symbolStyle.Render(symbol),
		countStyle.Render(fmt.Sprintf("%d fills", fills)))
}
