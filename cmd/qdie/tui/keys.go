package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
)

type keyMap struct {
	Roll        key.Binding
	Clear       key.Binding
	QEC         key.Binding
	Batch       key.Binding
	BatchUp     key.Binding
	BatchDown   key.Binding
	Preset      key.Binding
	Oscillation key.Binding
	DecoLess    key.Binding
	DecoMore    key.Binding
	Tutorial    key.Binding
	NextPage    key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Roll: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "roll"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear history"),
		),
		QEC: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "error correction"),
		),
		Batch: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "start/stop batch"),
		),
		BatchUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "batch size up"),
		),
		BatchDown: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "batch size down"),
		),
		Preset: key.NewBinding(
			key.WithKeys("1", "2", "3"),
			key.WithHelp("1/2/3", "batch 10/50/100"),
		),
		Oscillation: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "hamiltonian oscillation"),
		),
		DecoLess: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "decoherence -"),
		),
		DecoMore: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "decoherence +"),
		),
		Tutorial: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "tutorial"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next concept"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Roll, k.Batch, k.QEC, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Roll, k.Clear, k.QEC},
		{k.Batch, k.BatchUp, k.BatchDown, k.Preset},
		{k.Oscillation, k.DecoLess, k.DecoMore},
		{k.Tutorial, k.NextPage, k.Help, k.Quit},
	}
}

// scrollKeyMap keeps only the viewport bindings that do not collide with
// the single-letter commands.
func scrollKeyMap() viewport.KeyMap {
	km := viewport.DefaultKeyMap()
	km.PageDown = key.NewBinding(key.WithKeys("pgdown"))
	km.PageUp = key.NewBinding(key.WithKeys("pgup"))
	km.HalfPageDown = key.NewBinding(key.WithKeys("ctrl+d"))
	km.HalfPageUp = key.NewBinding(key.WithKeys("ctrl+u"))
	km.Down = key.NewBinding(key.WithKeys("down"))
	km.Up = key.NewBinding(key.WithKeys("up"))
	km.Left = key.NewBinding()
	km.Right = key.NewBinding()
	return km
}
