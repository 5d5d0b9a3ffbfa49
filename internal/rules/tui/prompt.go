// Package tui implements rules.Prompter with an interactive terminal
// prompt, generalizing quarry/cli/tui/inspect.go's Bubble Tea
// model/update/view shape from a read-only inspector into a
// {skip, retry, prune} choice plus an optional prune-factor prompt --
// the Go analogue of the original's click.prompt/click.Choice.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/profiler/internal/rules"
	"github.com/justapithecus/profiler/internal/types"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")).MarginBottom(1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).MarginTop(1)
)

type choiceKeyMap struct {
	Skip  key.Binding
	Retry key.Binding
	Prune key.Binding
}

var choiceKeys = choiceKeyMap{
	Skip:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "skip")),
	Retry: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
	Prune: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prune")),
}

// choiceModel prompts for {skip, retry, prune}.
type choiceModel struct {
	task    *types.Task
	errKind string
	picked  rules.Choice
	done    bool
}

func (m choiceModel) Init() tea.Cmd { return nil }

func (m choiceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, choiceKeys.Skip):
		m.picked, m.done = rules.ChoiceSkip, true
		return m, tea.Quit
	case key.Matches(keyMsg, choiceKeys.Retry):
		m.picked, m.done = rules.ChoiceRetry, true
		return m, tea.Quit
	case key.Matches(keyMsg, choiceKeys.Prune):
		m.picked, m.done = rules.ChoicePrune, true
		return m, tea.Quit
	case keyMsg.String() == "ctrl+c", keyMsg.String() == "q":
		m.picked, m.done = rules.ChoiceSkip, true
		return m, tea.Quit
	}
	return m, nil
}

func (m choiceModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Task %s failed (%s)", m.task.ID, m.errKind)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render(fmt.Sprintf("algorithm=%s family=%s stage=%d rows=%d", m.task.Algorithm, m.task.Family, m.task.Stage, m.task.Rows)))
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("[s] skip  [r] retry  [p] prune rows"))
	return b.String()
}

// factorModel prompts for a prune factor in (0, 1).
type factorModel struct {
	input string
	err   string
	done  bool
	value float64
}

func (m factorModel) Init() tea.Cmd { return nil }

func (m factorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.Type {
	case tea.KeyEnter:
		v, err := strconv.ParseFloat(strings.TrimSpace(m.input), 64)
		if err != nil || v <= 0 || v >= 1 {
			m.err = "enter a number in (0, 1)"
			return m, nil
		}
		m.value, m.done = v, true
		return m, tea.Quit
	case tea.KeyCtrlC, tea.KeyEsc:
		m.done = true
		return m, tea.Quit
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
		return m, nil
	case tea.KeyRunes:
		m.input += string(keyMsg.Runes)
		return m, nil
	}
	return m, nil
}

func (m factorModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Prune factor"))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("fraction of rows to keep (0, 1): "))
	b.WriteString(m.input)
	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.err))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("Enter to confirm, Esc to cancel"))
	return b.String()
}

// Prompter is an interactive rules.Prompter backed by Bubble Tea.
type Prompter struct{}

// PromptChoice runs the choice prompt and returns the user's selection.
func (Prompter) PromptChoice(task *types.Task, errKind string) (rules.Choice, error) {
	p := tea.NewProgram(choiceModel{task: task, errKind: errKind})
	final, err := p.Run()
	if err != nil {
		return rules.ChoiceSkip, err
	}
	m, ok := final.(choiceModel)
	if !ok || !m.done {
		return rules.ChoiceSkip, nil
	}
	return m.picked, nil
}

// PromptPruneFactor runs the prune-factor prompt.
func (Prompter) PromptPruneFactor(task *types.Task) (float64, error) {
	p := tea.NewProgram(factorModel{})
	final, err := p.Run()
	if err != nil {
		return 0, err
	}
	m, ok := final.(factorModel)
	if !ok || !m.done || m.value <= 0 {
		return 0, fmt.Errorf("rules/tui: prune factor prompt cancelled for task %s", task.ID)
	}
	return m.value, nil
}
