package interpret

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"
)

// DefaultPrompt is the instruction sent with every image. {{.Vars}} receives the
// JSON-serialized variable mapping.
const DefaultPrompt = `You have been given an image with some mathematical expressions, equations, or graphical problems, and you need to solve them.
Note: Use the PEMDAS rule for solving mathematical expressions. PEMDAS stands for the priority order: Parentheses, Exponents, Multiplication and Division (from left to right), Addition and Subtraction (from left to right). Parentheses have the highest priority, followed by Exponents, then Multiplication and Division, and lastly Addition and Subtraction.
For example:
Q. 2 + 3 * 4
(3 * 4) => 12, 2 + 12 = 14.
Q. 2 + 3 + 5 * 4 - 8 / 2
5 * 4 => 20, 8 / 2 => 4, 2 + 3 => 5, 5 + 20 => 25, 25 - 4 => 21.
YOU CAN HAVE FIVE TYPES OF EQUATIONS/EXPRESSIONS IN THIS IMAGE, AND ONLY ONE CASE SHALL APPLY EVERY TIME:
1. Simple mathematical expressions like 2 + 2, 3 * 4, 5 / 6, 7 - 8, etc.: solve and return a LIST OF ONE OBJECT [{"expr": given expression, "result": calculated answer}].
2. A set of equations like x^2 + 2x + 1 = 0, 3y + 4x = 0, 5x^2 + 6y + 7 = 12, etc.: solve for the given variables and return a LIST OF OBJECTS, one per variable, e.g. {"expr": "x", "result": 2, "assign": true} and {"expr": "y", "result": 5, "assign": true}.
3. Assigning values to variables like x = 4, y = 5, z = 6, etc.: return one object per variable with the variable as "expr", the value as "result" and "assign": true. RETURN A LIST OF OBJECTS.
4. Graphical math problems, which are word problems represented in drawing form, such as cars colliding, trigonometric problems, problems on the Pythagorean theorem, adding runs from a cricket wagon wheel, etc. PAY CLOSE ATTENTION TO DIFFERENT COLORS FOR THESE PROBLEMS. Return a LIST OF ONE OBJECT [{"expr": given expression, "result": calculated answer}].
5. Abstract concepts that a drawing might show, such as love, hate, jealousy, patriotism, or a historic reference to war, invention, discovery, quote, etc. Use the same format, where "expr" is the explanation of the drawing and "result" is the abstract concept.
Analyze the equation or expression in this image and return the answer according to the rules above.
Here is a dictionary of user-assigned variables. If the given expression has any of these variables, use its actual value from this dictionary: {{.Vars}}
Respond with JSON only: a list of objects with the keys "expr" (string), "result" (number or string) and "assign" (boolean, true only for cases 2 and 3).
DO NOT USE BACKTICKS OR MARKDOWN FORMATTING.`

// PromptBuilder renders the instruction for a given variable mapping.
type PromptBuilder struct {
	tmpl *template.Template
}

func NewPromptBuilder(text string) (*PromptBuilder, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultPrompt
	}
	t, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("prompt template: %w", err)
	}
	return &PromptBuilder{tmpl: t}, nil
}

// LoadPromptBuilder reads the template from path, falling back to DefaultPrompt
// when path is empty.
func LoadPromptBuilder(path string) (*PromptBuilder, error) {
	if strings.TrimSpace(path) == "" {
		return NewPromptBuilder(DefaultPrompt)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prompt %q: %w", path, err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, fmt.Errorf("prompt %q is empty", path)
	}
	return NewPromptBuilder(strings.TrimSpace(string(b)))
}

func (p *PromptBuilder) Build(vars Vars) (string, error) {
	if vars == nil {
		vars = Vars{}
	}
	vj, err := json.Marshal(vars)
	if err != nil {
		return "", fmt.Errorf("dict_of_vars: %w", err)
	}
	var out strings.Builder
	if err := p.tmpl.Execute(&out, struct{ Vars string }{Vars: string(vj)}); err != nil {
		return "", fmt.Errorf("prompt render: %w", err)
	}
	return out.String(), nil
}
