package engine

// ButtonKind groups keypad buttons by what they do.
type ButtonKind string

const (
	KindNumber    ButtonKind = "number"
	KindOperation ButtonKind = "operation"
	KindFunction  ButtonKind = "function"
	KindMemory    ButtonKind = "memory"
	KindEquals    ButtonKind = "equals"
	KindClear     ButtonKind = "clear"
)

// Button is one key on the on-screen keypad. Value is the token sent to
// Machine.Next; Label is what the key shows.
type Button struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	Value     string     `json:"value"`
	Kind      ButtonKind `json:"kind"`
	AriaLabel string     `json:"aria_label"`
}

func button(id, label, value string, kind ButtonKind) Button {
	return Button{ID: id, Label: label, Value: value, Kind: kind, AriaLabel: AriaLabel(value)}
}

// Buttons is the keypad layout, row by row.
var Buttons = []Button{
	button("mc", "MC", "MC", KindMemory),
	button("mr", "MR", "MR", KindMemory),
	button("m+", "M+", "M+", KindMemory),
	button("m-", "M-", "M-", KindMemory),

	button("c", "C", "C", KindClear),
	button("ce", "CE", "CE", KindClear),
	button("sqrt", "√", "√", KindFunction),
	button("power", "^", "^", KindOperation),

	button("reciprocal", "1/x", "1/x", KindFunction),
	button("percent", "%", "%", KindOperation),
	button("plus-minus", "±", "±", KindFunction),
	button("divide", "÷", "÷", KindOperation),

	button("7", "7", "7", KindNumber),
	button("8", "8", "8", KindNumber),
	button("9", "9", "9", KindNumber),
	button("multiply", "×", "×", KindOperation),

	button("4", "4", "4", KindNumber),
	button("5", "5", "5", KindNumber),
	button("6", "6", "6", KindNumber),
	button("subtract", "−", "-", KindOperation),

	button("1", "1", "1", KindNumber),
	button("2", "2", "2", KindNumber),
	button("3", "3", "3", KindNumber),
	button("add", "+", "+", KindOperation),

	button("0", "0", "0", KindNumber),
	button("decimal", ".", ".", KindNumber),
	button("equals", "=", "=", KindEquals),
}

// ButtonByID looks up a keypad button.
func ButtonByID(id string) (Button, bool) {
	for _, b := range Buttons {
		if b.ID == id {
			return b, true
		}
	}
	return Button{}, false
}

var ariaLabels = map[string]string{
	"C":   "Clear all",
	"CE":  "Clear entry",
	"=":   "Equals",
	"+":   "Plus",
	"-":   "Minus",
	"×":   "Multiply",
	"÷":   "Divide",
	"√":   "Square root",
	"^":   "Power",
	"%":   "Percentage",
	"±":   "Plus minus",
	"1/x": "Reciprocal",
	"M+":  "Memory plus",
	"M-":  "Memory minus",
	"MR":  "Memory recall",
	"MC":  "Memory clear",
	".":   "Decimal point",
}

// AriaLabel returns the accessible name of a token.
func AriaLabel(token string) string {
	if l, ok := ariaLabels[token]; ok {
		return l
	}
	return token
}
