// AngelaMos | 2026
// handler_test.go

package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/nexxstore/storefront/internal/money"
	"github.com/nexxstore/storefront/internal/user"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestRouter(h *harness) http.Handler {
	r := chi.NewRouter()
	NewHandler(h.manager).RegisterRoutes(r, nil)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) (int, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func TestHandlerSessionFlow(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	router := newTestRouter(h)

	status, env := doJSON(t, router, http.MethodPost, "/session/register",
		`{"email":"a@x.com","phone":"111","password":"secret1","fullName":"Анна"}`)
	if status != http.StatusCreated || !env.Success {
		t.Fatalf("register: status %d env %+v", status, env)
	}

	var res AuthResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode AuthResult: %v", err)
	}
	if res.Redirect != RedirectProfile || res.User.Email != "a@x.com" {
		t.Errorf("register result: %+v", res)
	}
	if strings.Contains(string(env.Data), "argon2") {
		t.Error("register response leaks a credential hash")
	}

	status, env = doJSON(t, router, http.MethodPost, "/session/balance/deposit", `{"amount":12.34}`)
	if status != http.StatusOK {
		t.Fatalf("deposit: status %d env %+v", status, env)
	}
	var bal BalanceResponse
	if err := json.Unmarshal(env.Data, &bal); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if bal.Balance != 1234 {
		t.Errorf("balance: got %s, want 12.34", bal.Balance)
	}

	status, env = doJSON(t, router, http.MethodPost, "/session/balance/withdraw", `{"amount":20}`)
	if status != http.StatusUnprocessableEntity || env.Error == nil || env.Error.Code != "InsufficientFunds" {
		t.Errorf("overdraft: status %d env %+v", status, env)
	}

	status, env = doJSON(t, router, http.MethodPost, "/session/bonus", `{"points":15}`)
	if status != http.StatusOK || !strings.Contains(string(env.Data), `"bonusPoints":15`) {
		t.Errorf("bonus: status %d data %s", status, env.Data)
	}

	status, env = doJSON(t, router, http.MethodGet, "/session/permissions/cart.manage", "")
	if status != http.StatusOK || !strings.Contains(string(env.Data), `"allowed":true`) {
		t.Errorf("permission check: status %d data %s", status, env.Data)
	}

	status, env = doJSON(t, router, http.MethodGet, "/session/roles/admin", "")
	if status != http.StatusOK || !strings.Contains(string(env.Data), `"allowed":false`) {
		t.Errorf("role check: status %d data %s", status, env.Data)
	}

	status, env = doJSON(t, router, http.MethodPut, "/session/profile", `{"deliveryAddress":"Казань"}`)
	if status != http.StatusOK {
		t.Fatalf("profile: status %d env %+v", status, env)
	}
	var updated user.User
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if ind := updated.Profile.Individual; ind == nil || ind.FullName != "Анна" || ind.DeliveryAddress != "Казань" {
		t.Errorf("profile after update: %+v", updated.Profile.Individual)
	}

	status, env = doJSON(t, router, http.MethodGet, "/session/orders", "")
	if status != http.StatusOK || !strings.Contains(string(env.Data), `"orders":[]`) {
		t.Errorf("orders: status %d data %s", status, env.Data)
	}

	status, env = doJSON(t, router, http.MethodGet, "/session/", "")
	if status != http.StatusOK {
		t.Fatalf("current: status %d", status)
	}
	var state struct {
		View View       `json:"view"`
		User *user.User `json:"user"`
	}
	if err := json.Unmarshal(env.Data, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if !state.View.Authenticated || state.User == nil || state.View.Balance != money.Amount(1234) {
		t.Errorf("state: %+v", state)
	}

	status, _ = doJSON(t, router, http.MethodPost, "/session/logout", "")
	if status != http.StatusOK {
		t.Errorf("logout: status %d", status)
	}

	status, env = doJSON(t, router, http.MethodGet, "/session/orders", "")
	if status != http.StatusUnauthorized || env.Error == nil || env.Error.Code != "NotAuthenticated" {
		t.Errorf("orders after logout: status %d env %+v", status, env)
	}
}

func TestHandlerErrorMapping(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.users.seed(t, user.RoleUser, "a@x.com", "111", "secret1")
	router := newTestRouter(h)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{
			name:   "malformed body",
			method: http.MethodPost,
			path:   "/session/login",
			body:   `{"identifier":`,
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "missing password",
			method: http.MethodPost,
			path:   "/session/login",
			body:   `{"identifier":"a@x.com"}`,
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "unknown user",
			method: http.MethodPost,
			path:   "/session/login",
			body:   `{"identifier":"nobody@x.com","password":"secret1"}`,
			status: http.StatusUnauthorized,
			code:   "UserNotFound",
		},
		{
			name:   "wrong password",
			method: http.MethodPost,
			path:   "/session/login",
			body:   `{"identifier":"111","password":"nope"}`,
			status: http.StatusUnauthorized,
			code:   "InvalidCredential",
		},
		{
			name:   "email taken",
			method: http.MethodPost,
			path:   "/session/register",
			body:   `{"email":"a@x.com","phone":"222","password":"secret1"}`,
			status: http.StatusConflict,
			code:   "EmailTaken",
		},
		{
			name:   "bad profile type",
			method: http.MethodPost,
			path:   "/session/register",
			body:   `{"email":"b@x.com","phone":"333","password":"secret1","profileType":"llc"}`,
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "deposit while logged out",
			method: http.MethodPost,
			path:   "/session/balance/deposit",
			body:   `{"amount":10}`,
			status: http.StatusUnauthorized,
			code:   "NotAuthenticated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := doJSON(t, router, tt.method, tt.path, tt.body)
			if status != tt.status {
				t.Errorf("status: got %d, want %d", status, tt.status)
			}
			if env.Success || env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("envelope: got %+v, want code %s", env, tt.code)
			}
		})
	}
}

func TestHandlerInvalidAmount(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.register(t, "a@x.com", "111")
	router := newTestRouter(h)

	for _, body := range []string{`{"amount":0}`, `{"amount":-5}`, `{}`} {
		status, env := doJSON(t, router, http.MethodPost, "/session/balance/deposit", body)
		if status != http.StatusBadRequest || env.Error == nil || env.Error.Code != "InvalidAmount" {
			t.Errorf("deposit %s: status %d env %+v", body, status, env)
		}
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	if got := ErrorKind(ErrPhoneTaken); got != "PhoneTaken" {
		t.Errorf("ErrorKind(ErrPhoneTaken) = %q", got)
	}
	if got := ErrorKind(nil); got != "" {
		t.Errorf("ErrorKind(nil) = %q", got)
	}
	if got := ErrorKind(http.ErrBodyNotAllowed); got != "" {
		t.Errorf("ErrorKind(foreign) = %q", got)
	}
}
