package calculator

import "go-chi-calculator/internal/engine"

// PressRequest is the JSON body for POST /calculator/sessions/{id}/press.
type PressRequest struct {
	Token string `json:"token"` // keypad token: "0"-"9", ".", "+", "=", "C", "M+", ...
}

// KeyRequest is the JSON body for POST /calculator/sessions/{id}/key.
type KeyRequest struct {
	Key string `json:"key"` // keyboard key name, e.g. "Enter", "Escape", "*"
}

// MemoryRequest is the JSON body for POST /calculator/sessions/{id}/memory.
type MemoryRequest struct {
	Op string `json:"op"`
}

// ThemeRequest is the JSON body for POST /calculator/sessions/{id}/theme.
type ThemeRequest struct {
	Theme string `json:"theme"`
}

// StateResponse is returned by every session endpoint.
type StateResponse struct {
	SessionID string             `json:"session_id"`
	State     engine.State       `json:"state"`
	Display   engine.DisplayView `json:"display"`
}

func newStateResponse(id string, st engine.State) StateResponse {
	return StateResponse{
		SessionID: id,
		State:     st,
		Display:   engine.Display(st),
	}
}

// OperateRequest is the JSON body for POST /calculator/operate.
type OperateRequest struct {
	A  float64 `json:"a"`
	B  float64 `json:"b"`
	Op string  `json:"op"` // "+", "-", "×", "÷", "^", "%"
}

// OperateResponse is the JSON response for POST /calculator/operate.
type OperateResponse struct {
	Operation  string  `json:"operation"`
	A          float64 `json:"a"`
	B          float64 `json:"b"`
	Result     float64 `json:"result"`
	Expression string  `json:"expression"`
	Display    string  `json:"display"`
}

// UnaryRequest is the JSON body for POST /calculator/unary.
type UnaryRequest struct {
	X  float64 `json:"x"`
	Op string  `json:"op"` // "√", "±", "1/x"
}

// UnaryResponse is the JSON response for POST /calculator/unary.
type UnaryResponse struct {
	Operation string  `json:"operation"`
	X         float64 `json:"x"`
	Result    float64 `json:"result"`
	Display   string  `json:"display"`
}

// EvaluateRequest is the JSON body for POST /calculator/evaluate.
type EvaluateRequest struct {
	Expression string `json:"expression"`
}

// EvaluateResponse is the JSON response for POST /calculator/evaluate.
type EvaluateResponse struct {
	Expression string  `json:"expression"`
	Result     float64 `json:"result"`
	Display    string  `json:"display"`
}

// KeypadResponse is the JSON response for GET /calculator/keypad.
type KeypadResponse struct {
	Buttons           []engine.Button `json:"buttons"`
	MaxDisplayLength  int             `json:"max_display_length"`
	MaxHistoryEntries int             `json:"max_history_entries"`
}
