package engine

// keyTokens maps keyboard key names to keypad tokens. Digits and the
// remaining operators map to themselves.
var keyTokens = map[string]string{
	"Enter":     TokenEquals,
	"=":         TokenEquals,
	" ":         TokenEquals,
	"Escape":    TokenClear,
	"Backspace": TokenClearEntry,
	"Delete":    TokenClearEntry,
	"*":         string(OpMultiply),
	"x":         string(OpMultiply),
	"/":         string(OpDivide),
	"+":         string(OpAdd),
	"-":         string(OpSubtract),
	"^":         string(OpPower),
	"%":         string(OpPercent),
	".":         TokenDecimal,
	",":         TokenDecimal,
}

// KeyToToken translates a keyboard key into the keypad token it triggers.
func KeyToToken(key string) (string, bool) {
	if t, ok := keyTokens[key]; ok {
		return t, true
	}
	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		return key, true
	}
	return "", false
}
