package oracle

import (
	"strings"

	"google.golang.org/genai"
)

const basePrompt = `Simulate a quantum roll of an 8-sided die (octahedron, faces 0-7). The result must be a single JSON object.
- 'roll': The final collapsed state (0-7).
- 'face_down': The opposite, entangled face. 'roll' + 'face_down' must equal 7.
- 'hamiltonian': The total energy of the system. Must be 7.
- 'roll_cos': The cosine operator for the roll, calculated as cos(PI * roll).
- 'face_down_cos': The cosine operator for the face_down value, cos(PI * face_down).
- 'roll_parity' & 'face_down_parity': String, 'even' or 'odd'.
- 'qubitState': The 3-qubit basis state string for the roll (e.g., |010⟩ for roll 2).
- 'waveFunction': An 8-element array representing the collapsed wave function (1.0 at the roll's index, 0.0 elsewhere).`

const qecPrompt = `
- 'qec': Simulate Quantum Error Correction for the roll.
  - 'physicalRolls': An array of 3 numbers. Start with three copies of the logical 'roll'. Then, with a 33.3% probability, introduce a single random error to one of the three values (e.g., [5, 5, 5] becomes [5, 2, 5]).
  - 'errorOccurred': Boolean, must be true if an error was introduced, false otherwise.
  - 'wasCorrected': Boolean, must always be true, as the majority vote corrects the single error.`

const closingPrompt = `
Return ONLY the raw JSON object, without any markdown formatting.`

// BuildPrompt returns the natural-language instruction for one roll.
func BuildPrompt(useQEC bool) string {
	var sb strings.Builder
	sb.WriteString(basePrompt)
	if useQEC {
		sb.WriteString(qecPrompt)
	}
	sb.WriteString(closingPrompt)
	return sb.String()
}

var recordFields = []string{
	"roll", "face_down", "hamiltonian", "roll_cos", "face_down_cos",
	"roll_parity", "face_down_parity", "qubitState", "waveFunction",
}

// BuildSchema returns the structured-output schema for a roll record. The qec
// property is declared and required only when useQEC is set.
func BuildSchema(useQEC bool) *genai.Schema {
	integer := func() *genai.Schema { return &genai.Schema{Type: genai.TypeInteger} }
	number := func() *genai.Schema { return &genai.Schema{Type: genai.TypeNumber} }
	str := func() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }

	schema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"roll":             integer(),
			"face_down":        integer(),
			"hamiltonian":      integer(),
			"roll_cos":         number(),
			"face_down_cos":    number(),
			"roll_parity":      str(),
			"face_down_parity": str(),
			"qubitState":       str(),
			"waveFunction":     {Type: genai.TypeArray, Items: number()},
		},
		Required:         append([]string(nil), recordFields...),
		PropertyOrdering: append([]string(nil), recordFields...),
	}

	if useQEC {
		schema.Properties["qec"] = &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"physicalRolls": {Type: genai.TypeArray, Items: integer()},
				"errorOccurred": {Type: genai.TypeBoolean},
				"wasCorrected":  {Type: genai.TypeBoolean},
			},
			Required: []string{"physicalRolls", "errorOccurred", "wasCorrected"},
		}
		schema.Required = append(schema.Required, "qec")
		schema.PropertyOrdering = append(schema.PropertyOrdering, "qec")
	}

	return schema
}
