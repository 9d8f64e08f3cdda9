package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Confirm asks a yes/no question on w and reads the answer from r.
func Confirm(r io.Reader, w io.Writer, prompt string) bool {
	fmt.Fprintf(w, "%s [y/N]: ", StyleWarning.Render(prompt))
	line, _ := bufio.NewReader(r).ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}

// typedConfirmModel makes the user type a word, usually the network name,
// before a mainnet deploy or send goes out.
type typedConfirmModel struct {
	prompt    string
	expect    string
	input     []rune
	confirmed bool
	done      bool
}

func newTypedConfirm(prompt, expect string) typedConfirmModel {
	return typedConfirmModel{prompt: prompt, expect: expect}
}

func (m typedConfirmModel) Init() tea.Cmd { return nil }

func (m typedConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.done = true
		return m, tea.Quit
	case tea.KeyEnter:
		m.confirmed = string(m.input) == m.expect
		m.done = true
		return m, tea.Quit
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeyRunes, tea.KeySpace:
		m.input = append(m.input, key.Runes...)
	}
	return m, nil
}

func (m typedConfirmModel) View() string {
	if m.done {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n  " + StyleError.Render("⚠ "+m.prompt) + "\n\n")
	sb.WriteString("  Type " + StyleValue.Render(m.expect) + " to continue: ")
	typed := string(m.input)
	if strings.HasPrefix(m.expect, typed) {
		sb.WriteString(StyleAddress.Render(typed))
	} else {
		sb.WriteString(StyleError.Render(typed))
	}
	sb.WriteString("\n\n" + StyleMeta.Render("  [ Enter ] confirm   [ Esc ] cancel") + "\n")
	return sb.String()
}

// ConfirmTyped runs the typed confirmation and reports whether the user
// typed expect exactly.
func ConfirmTyped(prompt, expect string) (bool, error) {
	final, err := tea.NewProgram(newTypedConfirm(prompt, expect)).Run()
	if err != nil {
		return false, fmt.Errorf("confirm: %w", err)
	}
	return final.(typedConfirmModel).confirmed, nil
}
