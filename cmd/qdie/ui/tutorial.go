package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Concept is one page of the tutorial.
type Concept struct {
	Title string
	Body  string // markdown
}

// Concepts are the tutorial pages, in display order.
var Concepts = []Concept{
	{
		Title: "Wave function collapse",
		Body: `Before measurement the die is a superposition of all eight basis
states |000⟩ … |111⟩. Each roll asks the oracle for one measurement: the
**wave function** collapses onto a single face and the bar chart shows the
probability left on every state.`,
	},
	{
		Title: "Entanglement",
		Body: `Opposite faces of the octahedron are entangled. Whatever lands on
top, the face underneath is fixed by it: **roll + face_down = 7**. Both
faces are highlighted on the face map, and the parity and cos(πn) of each
are listed in the measurement details.`,
	},
	{
		Title: "Hamiltonian",
		Body: `The conserved quantity of the system is the Hamiltonian, **H = 7**.
With *oscillation* on, population flows back and forth between the two
entangled faces. With *decoherence* above zero the collapsed state leaks
into the rest of the basis over time.`,
	},
	{
		Title: "Quantum error correction",
		Body: `With QEC enabled every logical roll is measured on **three physical
registers**. A bit flip may corrupt one of them; the majority vote recovers
the logical result. Corrupted registers are marked with ✗.`,
	},
}

// Tutorial renders tutorial page i as markdown. Rendering falls back to the
// plain text when glamour cannot build a renderer. Pages are cached per width.
func Tutorial(s Styles, i, width int) string {
	if len(Concepts) == 0 {
		return ""
	}
	if i < 0 {
		i = 0
	}
	i %= len(Concepts)
	c := Concepts[i]

	if width < 20 {
		width = 20
	}
	key := ComputeKey("tutorial", i, width, s.Theme.IsDark)
	return tutorialCache.GetOrCompute(key, func() string {
		return renderConcept(s, c, width)
	})
}

func renderConcept(s Styles, c Concept, width int) string {
	md := "## " + c.Title + "\n\n" + c.Body + "\n"

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		if out, err := renderer.Render(md); err == nil {
			return strings.Trim(out, "\n")
		}
	}

	return s.Title.Render(c.Title) + "\n" + s.Body.Render(c.Body)
}
