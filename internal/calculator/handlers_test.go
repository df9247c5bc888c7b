package calculator

import (
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/metric/noop"

	"go-chi-calculator/internal/engine"
	"go-chi-calculator/internal/perf"
	"go-chi-calculator/internal/session"
	"go-chi-calculator/internal/store"
	"go-chi-calculator/internal/testutil"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	collector, err := perf.New(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("creating collector: %v", err)
	}
	svc, err := session.New(store.NewMemoryKV(), engine.NewMachine(),
		session.WithDebounce(0),
		session.WithCollector(collector),
	)
	if err != nil {
		t.Fatalf("creating session service: %v", err)
	}

	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(svc, collector, nil))
	return r
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions", nil), h)
	testutil.CheckResponseCode(t, http.StatusCreated, w.Code)

	var resp StateResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if resp.SessionID == "" {
		t.Fatal("expected a session id")
	}
	if resp.Display.Value != "0" {
		t.Fatalf("expected display %q, got %q", "0", resp.Display.Value)
	}
	return resp.SessionID
}

func press(t *testing.T, h http.Handler, id string, tokens ...string) StateResponse {
	t.Helper()

	var resp StateResponse
	for _, tok := range tokens {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+id+"/press", PressRequest{Token: tok})
		w := testutil.ExecuteRequest(req, h)
		testutil.CheckResponseCode(t, http.StatusOK, w.Code)
		resp = StateResponse{}
		testutil.DecodeJSONBody(t, w.Body, &resp)
	}
	return resp
}

func TestSessionPressFlow(t *testing.T) {
	h := newTestRouter(t)
	id := createSession(t, h)

	resp := press(t, h, id, "5", "+")
	if resp.Display.Secondary != "5 +" {
		t.Fatalf("expected secondary %q, got %q", "5 +", resp.Display.Secondary)
	}

	resp = press(t, h, id, "3", "=")
	if resp.Display.Value != "8" {
		t.Fatalf("expected display %q, got %q", "8", resp.Display.Value)
	}
	if len(resp.State.History) != 1 || resp.State.History[0].Expression != "5 + 3" {
		t.Fatalf("unexpected history %+v", resp.State.History)
	}

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodGet, "/calculator/sessions/"+id, nil), h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var got StateResponse
	testutil.DecodeJSONBody(t, w.Body, &got)
	if got.State.Display != "8" {
		t.Fatalf("expected stored display %q, got %q", "8", got.State.Display)
	}
}

func TestSessionDivideByZeroShowsError(t *testing.T) {
	h := newTestRouter(t)
	id := createSession(t, h)

	resp := press(t, h, id, "5", "÷", "0", "=")
	if resp.Display.Value != engine.ErrorDisplay {
		t.Fatalf("expected display %q, got %q", engine.ErrorDisplay, resp.Display.Value)
	}
	if len(resp.State.History) != 0 {
		t.Fatalf("expected no history, got %+v", resp.State.History)
	}
}

func TestSessionKeyMemoryThemeAndHistory(t *testing.T) {
	h := newTestRouter(t)
	id := createSession(t, h)
	base := "/calculator/sessions/" + id

	for _, k := range []string{"9", "*", "9", "Enter"} {
		w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, base+"/key", KeyRequest{Key: k}), h)
		testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	}

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, base+"/memory", MemoryRequest{Op: "M+"}), h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	var resp StateResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if resp.State.Memory != 81 || !resp.State.MemoryActive {
		t.Fatalf("expected memory 81 and active, got %v %t", resp.State.Memory, resp.State.MemoryActive)
	}

	w = testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, base+"/theme", ThemeRequest{Theme: "dark"}), h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	resp = press(t, h, id, "C")
	if resp.State.Theme != engine.ThemeDark || resp.State.Memory != 81 {
		t.Fatalf("expected theme and memory to survive C, got %+v", resp.State)
	}
	entryID := resp.State.History[0].ID

	w = testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, base+"/history/"+entryID+"/use", nil), h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	resp = StateResponse{}
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if resp.Display.Value != "81" {
		t.Fatalf("expected recalled display %q, got %q", "81", resp.Display.Value)
	}

	w = testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodDelete, base+"/history", nil), h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	resp = StateResponse{}
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if len(resp.State.History) != 0 {
		t.Fatalf("expected empty history, got %+v", resp.State.History)
	}

	w = testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, base+"/reset", nil), h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
}

func TestSessionErrors(t *testing.T) {
	h := newTestRouter(t)
	id := createSession(t, h)
	base := "/calculator/sessions/" + id

	tests := []struct {
		name   string
		method string
		target string
		body   any
		status int
	}{
		{"unknown session", http.MethodGet, "/calculator/sessions/nope", nil, http.StatusNotFound},
		{"press on unknown session", http.MethodPost, "/calculator/sessions/nope/press", PressRequest{Token: "1"}, http.StatusNotFound},
		{"unknown token", http.MethodPost, base + "/press", PressRequest{Token: "?"}, http.StatusBadRequest},
		{"unknown key", http.MethodPost, base + "/key", KeyRequest{Key: "F13"}, http.StatusBadRequest},
		{"unknown memory op", http.MethodPost, base + "/memory", MemoryRequest{Op: "M*"}, http.StatusBadRequest},
		{"invalid theme", http.MethodPost, base + "/theme", ThemeRequest{Theme: "neon"}, http.StatusBadRequest},
		{"unknown history entry", http.MethodPost, base + "/history/missing/use", nil, http.StatusNotFound},
		{"malformed body", http.MethodPost, base + "/press", `{"token":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, base + "/press", `{"tok":"1"}`, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, tc.method, tc.target, tc.body), h)
			testutil.CheckResponseCode(t, tc.status, w.Code)

			var body map[string]string
			testutil.DecodeJSONBody(t, w.Body, &body)
			if body["error"] == "" {
				t.Fatal("expected an error message")
			}
		})
	}
}

func TestOperate(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name    string
		body    any
		status  int
		result  float64
		errText string
	}{
		{name: "add", body: OperateRequest{A: 2, B: 3, Op: "+"}, status: http.StatusOK, result: 5},
		{name: "percent", body: OperateRequest{A: 200, B: 15, Op: "%"}, status: http.StatusOK, result: 30},
		{name: "power", body: OperateRequest{A: 2, B: 10, Op: "^"}, status: http.StatusOK, result: 1024},
		{name: "divide by zero", body: OperateRequest{A: 1, B: 0, Op: "÷"}, status: http.StatusUnprocessableEntity, errText: "Cannot divide by zero"},
		{name: "too large", body: OperateRequest{A: 1e15, B: 1e15, Op: "×"}, status: http.StatusUnprocessableEntity, errText: "Result is too large or too small"},
		{name: "unknown operator", body: OperateRequest{A: 1, B: 2, Op: "mod"}, status: http.StatusBadRequest, errText: "Invalid operation"},
		{name: "bad json", body: `{"a":`, status: http.StatusBadRequest, errText: "invalid request body"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/operate", tc.body), h)
			testutil.CheckResponseCode(t, tc.status, w.Code)

			if tc.status != http.StatusOK {
				var body map[string]string
				testutil.DecodeJSONBody(t, w.Body, &body)
				if body["error"] != tc.errText {
					t.Fatalf("expected error %q, got %q", tc.errText, body["error"])
				}
				return
			}

			var resp OperateResponse
			testutil.DecodeJSONBody(t, w.Body, &resp)
			if resp.Result != tc.result {
				t.Fatalf("expected result %v, got %v", tc.result, resp.Result)
			}
		})
	}
}

func TestOperateExpression(t *testing.T) {
	h := newTestRouter(t)

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/operate", OperateRequest{A: 7, B: 2, Op: "-"}), h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp OperateResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if resp.Expression != "7 - 2" || resp.Display != "5" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestUnary(t *testing.T) {
	h := newTestRouter(t)

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/unary", UnaryRequest{X: 16, Op: "√"}), h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	var resp UnaryResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if resp.Result != 4 {
		t.Fatalf("expected 4, got %v", resp.Result)
	}

	w = testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/unary", UnaryRequest{X: -4, Op: "√"}), h)
	testutil.CheckResponseCode(t, http.StatusUnprocessableEntity, w.Code)

	w = testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/unary", UnaryRequest{X: 0, Op: "1/x"}), h)
	testutil.CheckResponseCode(t, http.StatusUnprocessableEntity, w.Code)

	w = testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/unary", UnaryRequest{X: 2, Op: "sin"}), h)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)
}

func TestEvaluate(t *testing.T) {
	h := newTestRouter(t)

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/evaluate", EvaluateRequest{Expression: "2+3*4"}), h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	var resp EvaluateResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if resp.Result != 14 || resp.Display != "14" {
		t.Fatalf("unexpected response %+v", resp)
	}

	w = testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/evaluate", EvaluateRequest{Expression: "0.1+0.2"}), h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	resp = EvaluateResponse{}
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if resp.Result == 0.3 || resp.Display != "0.3" {
		t.Fatalf("unexpected response %+v", resp)
	}

	w = testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/evaluate", EvaluateRequest{Expression: "alert(1)"}), h)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)

	w = testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/evaluate", EvaluateRequest{Expression: "1/0"}), h)
	testutil.CheckResponseCode(t, http.StatusUnprocessableEntity, w.Code)

	w = testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/evaluate", EvaluateRequest{Expression: strings.Repeat("1+", 600) + "1"}), h)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)
}

func TestKeypad(t *testing.T) {
	h := newTestRouter(t)

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodGet, "/calculator/keypad", nil), h)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp KeypadResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	if len(resp.Buttons) != len(engine.Buttons) {
		t.Fatalf("expected %d buttons, got %d", len(engine.Buttons), len(resp.Buttons))
	}
	if resp.MaxDisplayLength != engine.MaxDisplayLength || resp.MaxHistoryEntries != engine.MaxHistoryEntries {
		t.Fatalf("unexpected caps %d/%d", resp.MaxDisplayLength, resp.MaxHistoryEntries)
	}
	for _, b := range resp.Buttons {
		if b.AriaLabel == "" {
			t.Fatalf("button %q has no aria label", b.ID)
		}
	}
}
