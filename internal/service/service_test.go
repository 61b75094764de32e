package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/evenup/evenup/internal/auth"
	"github.com/evenup/evenup/internal/middleware"
	"github.com/evenup/evenup/internal/models"
	"github.com/evenup/evenup/internal/storage"
	"github.com/evenup/evenup/internal/storage/sqlite"
	"github.com/evenup/evenup/pkg/mail"
)

func newTestApp(t *testing.T) (*fiber.App, storage.Store) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	jwtManager := auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store)

	app := fiber.New()
	api := app.Group("/api")
	requireAuth := middleware.RequireAuth(jwtManager)

	NewAuthService(store, authenticator, jwtManager, store, mail.LogSender{}).RegisterRoutes(api, requireAuth)
	NewGroupService(store).RegisterRoutes(api, requireAuth)
	NewExpenseService(store).RegisterRoutes(api, requireAuth)
	NewBillService(store).RegisterRoutes(api, requireAuth)

	return app, store
}

func doRequest(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			t.Fatalf("failed to decode response for %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode, decoded
}

// registerActiveUser drives the register/verify flow and returns the
// OTP-verified account's email.
func registerActiveUser(t *testing.T, app *fiber.App, store storage.Store, email, name string) {
	t.Helper()

	status, _ := doRequest(t, app, fiber.MethodPost, "/api/user/register", "", map[string]any{
		"email":        email,
		"display_name": name,
		"password":     "password123",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d", email, status)
	}

	otp, err := store.GetOTP(context.Background(), email)
	if err != nil {
		t.Fatalf("failed to read OTP for %s: %v", email, err)
	}
	status, _ = doRequest(t, app, fiber.MethodPost, "/api/user/verify-otp", "", map[string]any{
		"email": email,
		"otp":   otp.Code,
	})
	if status != fiber.StatusOK {
		t.Fatalf("verify %s: expected 200, got %d", email, status)
	}
}

func login(t *testing.T, app *fiber.App, email, password string) (access, refresh string) {
	t.Helper()

	status, body := doRequest(t, app, fiber.MethodPost, "/api/user/login", "", map[string]any{
		"email":    email,
		"password": password,
	})
	if status != fiber.StatusOK {
		t.Fatalf("login %s: expected 200, got %d (%v)", email, status, body)
	}
	access, _ = body["access_token"].(string)
	refresh, _ = body["refresh_token"].(string)
	if access == "" || refresh == "" {
		t.Fatalf("login %s: missing tokens in response %v", email, body)
	}
	return access, refresh
}

func TestRegisterVerifyLogin(t *testing.T) {
	app, store := newTestApp(t)

	status, _ := doRequest(t, app, fiber.MethodPost, "/api/user/register", "", map[string]any{
		"email":        "alice@example.com",
		"display_name": "Alice",
		"password":     "password123",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}

	// Unverified accounts cannot log in.
	status, _ = doRequest(t, app, fiber.MethodPost, "/api/user/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "password123",
	})
	if status != fiber.StatusUnauthorized {
		t.Fatalf("login before verify: expected 401, got %d", status)
	}

	// Re-registering an unverified email resends a code, not an error.
	status, _ = doRequest(t, app, fiber.MethodPost, "/api/user/register", "", map[string]any{
		"email":    "alice@example.com",
		"password": "password123",
	})
	if status != fiber.StatusOK {
		t.Fatalf("re-register unverified: expected 200, got %d", status)
	}

	status, _ = doRequest(t, app, fiber.MethodPost, "/api/user/verify-otp", "", map[string]any{
		"email": "alice@example.com",
		"otp":   "WRONG1",
	})
	if status != fiber.StatusNotAcceptable {
		t.Fatalf("wrong OTP: expected 406, got %d", status)
	}

	otp, err := store.GetOTP(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("failed to read OTP: %v", err)
	}
	status, _ = doRequest(t, app, fiber.MethodPost, "/api/user/verify-otp", "", map[string]any{
		"email": "alice@example.com",
		"otp":   otp.Code,
	})
	if status != fiber.StatusOK {
		t.Fatalf("verify: expected 200, got %d", status)
	}

	// A second verification attempt conflicts.
	status, _ = doRequest(t, app, fiber.MethodPost, "/api/user/verify-otp", "", map[string]any{
		"email": "alice@example.com",
		"otp":   otp.Code,
	})
	if status != fiber.StatusConflict {
		t.Fatalf("re-verify: expected 409, got %d", status)
	}

	login(t, app, "alice@example.com", "password123")

	// Registering an already-active email is rejected.
	status, _ = doRequest(t, app, fiber.MethodPost, "/api/user/register", "", map[string]any{
		"email":    "alice@example.com",
		"password": "password123",
	})
	if status != fiber.StatusBadRequest {
		t.Fatalf("re-register active: expected 400, got %d", status)
	}
}

func TestRefreshRotationAndLogout(t *testing.T) {
	app, store := newTestApp(t)
	registerActiveUser(t, app, store, "bob@example.com", "Bob")
	_, refresh := login(t, app, "bob@example.com", "password123")

	status, body := doRequest(t, app, fiber.MethodPost, "/api/user/refresh-token", "", map[string]any{
		"refresh_token": refresh,
	})
	if status != fiber.StatusOK {
		t.Fatalf("refresh: expected 200, got %d", status)
	}
	rotated, _ := body["refresh_token"].(string)
	if rotated == "" || rotated == refresh {
		t.Fatal("expected a new refresh token after rotation")
	}

	// The consumed refresh token must not be replayable.
	status, _ = doRequest(t, app, fiber.MethodPost, "/api/user/refresh-token", "", map[string]any{
		"refresh_token": refresh,
	})
	if status != fiber.StatusUnauthorized {
		t.Fatalf("replayed refresh: expected 401, got %d", status)
	}

	access, _ := body["access_token"].(string)
	status, _ = doRequest(t, app, fiber.MethodPost, "/api/user/logout", access, map[string]any{
		"refresh_token": rotated,
	})
	if status != fiber.StatusOK {
		t.Fatalf("logout: expected 200, got %d", status)
	}
	status, _ = doRequest(t, app, fiber.MethodPost, "/api/user/refresh-token", "", map[string]any{
		"refresh_token": rotated,
	})
	if status != fiber.StatusUnauthorized {
		t.Fatalf("refresh after logout: expected 401, got %d", status)
	}
}

func TestForgotPassword(t *testing.T) {
	app, store := newTestApp(t)
	registerActiveUser(t, app, store, "carol@example.com", "Carol")

	status, _ := doRequest(t, app, fiber.MethodGet, "/api/user/forgot-password?email=carol@example.com", "", nil)
	if status != fiber.StatusOK {
		t.Fatalf("forgot-password OTP: expected 200, got %d", status)
	}

	otp, err := store.GetOTP(context.Background(), "carol@example.com")
	if err != nil {
		t.Fatalf("failed to read OTP: %v", err)
	}
	status, _ = doRequest(t, app, fiber.MethodPost, "/api/user/forgot-password", "", map[string]any{
		"email":        "carol@example.com",
		"otp":          otp.Code,
		"new_password": "newpassword456",
	})
	if status != fiber.StatusOK {
		t.Fatalf("forgot-password reset: expected 200, got %d", status)
	}

	status, _ = doRequest(t, app, fiber.MethodPost, "/api/user/login", "", map[string]any{
		"email":    "carol@example.com",
		"password": "password123",
	})
	if status != fiber.StatusUnauthorized {
		t.Fatalf("old password after reset: expected 401, got %d", status)
	}
	login(t, app, "carol@example.com", "newpassword456")
}

func TestResetPassword(t *testing.T) {
	app, store := newTestApp(t)
	registerActiveUser(t, app, store, "dave@example.com", "Dave")
	access, _ := login(t, app, "dave@example.com", "password123")

	tests := []struct {
		name       string
		oldPass    string
		newPass    string
		wantStatus int
	}{
		{"same password", "password123", "password123", fiber.StatusBadRequest},
		{"wrong old password", "wrongpass99", "newpassword456", fiber.StatusBadRequest},
		{"valid change", "password123", "newpassword456", fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := doRequest(t, app, fiber.MethodPost, "/api/user/reset-password", access, map[string]any{
				"old_password": tt.oldPass,
				"new_password": tt.newPass,
			})
			if status != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, status)
			}
		})
	}

	login(t, app, "dave@example.com", "newpassword456")
}

func TestUserInfo(t *testing.T) {
	app, store := newTestApp(t)

	// Profile routes are protected.
	status, _ := doRequest(t, app, fiber.MethodGet, "/api/user/user-info", "", nil)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", status)
	}

	registerActiveUser(t, app, store, "erin@example.com", "Erin")
	access, _ := login(t, app, "erin@example.com", "password123")

	status, _ = doRequest(t, app, fiber.MethodPost, "/api/user/user-info", access, map[string]any{
		"first_name": "Erin",
		"last_name":  "Example",
		"city":       "Oslo",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("create user info: expected 201, got %d", status)
	}

	status, _ = doRequest(t, app, fiber.MethodPut, "/api/user/user-info", access, map[string]any{
		"city": "Bergen",
	})
	if status != fiber.StatusOK {
		t.Fatalf("update user info: expected 200, got %d", status)
	}

	status, body := doRequest(t, app, fiber.MethodGet, "/api/user/user-info", access, nil)
	if status != fiber.StatusOK {
		t.Fatalf("get user info: expected 200, got %d", status)
	}
	info, _ := body["user_info"].(map[string]any)
	if info["city"] != "Bergen" || info["first_name"] != "Erin" {
		t.Errorf("unexpected user info: %v", info)
	}
}

func TestGroups(t *testing.T) {
	app, store := newTestApp(t)
	registerActiveUser(t, app, store, "frank@example.com", "Frank")
	registerActiveUser(t, app, store, "grace@example.com", "Grace")
	access, _ := login(t, app, "frank@example.com", "password123")

	status, _ := doRequest(t, app, fiber.MethodPost, "/api/groups/create", access, map[string]any{
		"group_name": "trip",
		"members":    []string{"frank@example.com", "grace@example.com"},
	})
	if status != fiber.StatusCreated {
		t.Fatalf("create group: expected 201, got %d", status)
	}

	// Unknown member emails are rejected up front.
	status, _ = doRequest(t, app, fiber.MethodPost, "/api/groups/create", access, map[string]any{
		"group_name": "bad",
		"members":    []string{"nobody@example.com"},
	})
	if status != fiber.StatusBadRequest {
		t.Fatalf("unknown member: expected 400, got %d", status)
	}

	status, body := doRequest(t, app, fiber.MethodGet, "/api/groups/members?name=trip", access, nil)
	if status != fiber.StatusOK {
		t.Fatalf("members: expected 200, got %d", status)
	}
	members, _ := body["members"].([]any)
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %v", members)
	}

	status, _ = doRequest(t, app, fiber.MethodPost, "/api/groups/add_user", access, map[string]any{
		"group_name": "trip",
		"user_email": "grace@example.com",
	})
	if status != fiber.StatusBadRequest {
		t.Fatalf("duplicate member: expected 400, got %d", status)
	}

	status, _ = doRequest(t, app, fiber.MethodPost, "/api/groups/delete", access, map[string]any{
		"group_name": "trip",
	})
	if status != fiber.StatusOK {
		t.Fatalf("delete group: expected 200, got %d", status)
	}
	status, _ = doRequest(t, app, fiber.MethodGet, "/api/groups/members?name=trip", access, nil)
	if status != fiber.StatusNotFound {
		t.Fatalf("members of deleted group: expected 404, got %d", status)
	}
}

func TestExpensesAndPayments(t *testing.T) {
	app, store := newTestApp(t)
	registerActiveUser(t, app, store, "heidi@example.com", "Heidi")
	registerActiveUser(t, app, store, "ivan@example.com", "Ivan")
	registerActiveUser(t, app, store, "judy@example.com", "Judy")
	access, _ := login(t, app, "heidi@example.com", "password123")

	status, _ := doRequest(t, app, fiber.MethodPost, "/api/groups/create", access, map[string]any{
		"group_name": "dinner-club",
		"members":    []string{"heidi@example.com", "ivan@example.com", "judy@example.com"},
	})
	if status != fiber.StatusCreated {
		t.Fatalf("create group: expected 201, got %d", status)
	}

	status, _ = doRequest(t, app, fiber.MethodPost, "/api/expenses/create", access, map[string]any{
		"name":       "dinner",
		"amount":     100,
		"users":      []string{"heidi@example.com", "ivan@example.com", "judy@example.com"},
		"paid_by":    "heidi@example.com",
		"group_name": "dinner-club",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("create expense: expected 201, got %d", status)
	}

	// Payer must be among the participants.
	status, _ = doRequest(t, app, fiber.MethodPost, "/api/expenses/create", access, map[string]any{
		"name":    "broken",
		"amount":  50,
		"users":   []string{"ivan@example.com", "judy@example.com"},
		"paid_by": "heidi@example.com",
	})
	if status != fiber.StatusBadRequest {
		t.Fatalf("payer outside split: expected 400, got %d", status)
	}

	pay := func(from string, amount int64) (int, map[string]any) {
		return doRequest(t, app, fiber.MethodPost, "/api/expenses/record_payment", access, map[string]any{
			"from_user":    from,
			"to_user":      "heidi@example.com",
			"amount":       amount,
			"group_name":   "dinner-club",
			"expense_name": "dinner",
		})
	}

	status, body := pay("ivan@example.com", 20)
	if status != fiber.StatusOK {
		t.Fatalf("partial payment: expected 200, got %d", status)
	}
	if paid, _ := body["paid"].(bool); paid {
		t.Error("expense should not be settled after a partial payment")
	}

	// Paying more than is owed is rejected.
	status, _ = pay("ivan@example.com", 500)
	if status != fiber.StatusBadRequest {
		t.Fatalf("overpayment: expected 400, got %d", status)
	}

	if _, body = pay("ivan@example.com", 13); body["paid"].(bool) {
		t.Error("expense should still be open while judy owes")
	}
	status, body = pay("judy@example.com", 33)
	if status != fiber.StatusOK {
		t.Fatalf("final payment: expected 200, got %d", status)
	}
	if paid, _ := body["paid"].(bool); !paid {
		t.Error("expense should be settled after all debts are repaid")
	}
}

func TestBills(t *testing.T) {
	app, store := newTestApp(t)
	registerActiveUser(t, app, store, "kate@example.com", "Kate")
	registerActiveUser(t, app, store, "leo@example.com", "Leo")
	access, _ := login(t, app, "kate@example.com", "password123")

	status, body := doRequest(t, app, fiber.MethodPost, "/api/bill/create", access, map[string]any{
		"title":       "electricity",
		"description": "march bill",
		"amount":      "120.50",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("create bill: expected 201, got %d (%v)", status, body)
	}
	billID, _ := body["id"].(string)
	if billID == "" {
		t.Fatalf("missing bill id in %v", body)
	}

	status, _ = doRequest(t, app, fiber.MethodPut, "/api/bill/"+billID, access, map[string]any{
		"title": "electricity march",
	})
	if status != fiber.StatusOK {
		t.Fatalf("update bill: expected 200, got %d", status)
	}

	// Split members must be registered users.
	status, _ = doRequest(t, app, fiber.MethodPost, fmt.Sprintf("/api/bill/%s/split", billID), access, map[string]any{
		"splits": []map[string]any{
			{"paid_by": "kate@example.com", "amount_paid": "120.50", "owed_by": "nobody@example.com", "amount_owed": "60.25"},
		},
	})
	if status != fiber.StatusBadRequest {
		t.Fatalf("split with unknown user: expected 400, got %d", status)
	}

	status, _ = doRequest(t, app, fiber.MethodPost, fmt.Sprintf("/api/bill/%s/split", billID), access, map[string]any{
		"splits": []map[string]any{
			{"paid_by": "kate@example.com", "amount_paid": "120.50", "owed_by": "leo@example.com", "amount_owed": "60.25"},
		},
	})
	if status != fiber.StatusCreated {
		t.Fatalf("create splits: expected 201, got %d", status)
	}

	status, body = doRequest(t, app, fiber.MethodGet, "/api/bill/"+billID, access, nil)
	if status != fiber.StatusOK {
		t.Fatalf("get bill: expected 200, got %d", status)
	}
	bill, _ := body["bill"].(map[string]any)
	if bill["title"] != "electricity march" {
		t.Errorf("unexpected bill title: %v", bill["title"])
	}
	splits, _ := body["splits"].([]any)
	if len(splits) != 1 {
		t.Fatalf("expected 1 split, got %v", splits)
	}
	split := splits[0].(map[string]any)
	if split["status"] != "pending" {
		t.Errorf("expected pending split, got %v", split["status"])
	}
	splitID, _ := split["id"].(string)

	status, _ = doRequest(t, app, fiber.MethodPut, "/api/bill/split/"+splitID, access, map[string]any{
		"owed_by": "nobody@example.com",
	})
	if status != fiber.StatusBadRequest {
		t.Fatalf("split update with unknown user: expected 400, got %d", status)
	}

	status, _ = doRequest(t, app, fiber.MethodPost, fmt.Sprintf("/api/bill/split/%s/settle", splitID), access, nil)
	if status != fiber.StatusOK {
		t.Fatalf("settle split: expected 200, got %d", status)
	}
	_, body = doRequest(t, app, fiber.MethodGet, "/api/bill/"+billID, access, nil)
	split = body["splits"].([]any)[0].(map[string]any)
	if split["status"] != "paid" {
		t.Errorf("expected paid split, got %v", split["status"])
	}

	status, _ = doRequest(t, app, fiber.MethodDelete, "/api/bill/"+billID, access, nil)
	if status != fiber.StatusNoContent {
		t.Fatalf("delete bill: expected 204, got %d", status)
	}
	status, _ = doRequest(t, app, fiber.MethodGet, "/api/bill/"+billID, access, nil)
	if status != fiber.StatusNotFound {
		t.Fatalf("deleted bill: expected 404, got %d", status)
	}
}

// failingUserStore simulates a backend outage on user lookups.
type failingUserStore struct {
	storage.Store
}

func (failingUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, errors.New("disk I/O error")
}

func TestCreateExpenseStorageFailureIsServerError(t *testing.T) {
	app := fiber.New()
	api := app.Group("/api")
	passthrough := func(c *fiber.Ctx) error { return c.Next() }
	NewExpenseService(failingUserStore{}).RegisterRoutes(api, passthrough)

	status, body := doRequest(t, app, fiber.MethodPost, "/api/expenses/create", "", map[string]any{
		"name":    "dinner",
		"amount":  100,
		"users":   []string{"a@example.com"},
		"paid_by": "a@example.com",
	})
	if status != fiber.StatusInternalServerError {
		t.Fatalf("backend failure: expected 500, got %d", status)
	}
	if body["message"] != "Server error" {
		t.Errorf("unexpected message: %v", body["message"])
	}
}

// flakyBlacklist fails revocations on demand while delegating the rest.
type flakyBlacklist struct {
	inner      auth.Blacklist
	failRevoke bool
}

func (b *flakyBlacklist) RevokeToken(ctx context.Context, jti string, until time.Time) error {
	if b.failRevoke {
		return errors.New("connection refused")
	}
	return b.inner.RevokeToken(ctx, jti, until)
}

func (b *flakyBlacklist) TokenRevoked(ctx context.Context, jti string) (bool, error) {
	return b.inner.TokenRevoked(ctx, jti)
}

func TestRefreshKeepsTokenWhenRevocationFails(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	jwtManager := auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	blacklist := &flakyBlacklist{inner: store}

	app := fiber.New()
	api := app.Group("/api")
	requireAuth := middleware.RequireAuth(jwtManager)
	NewAuthService(store, auth.NewPasswordAuthenticator(store), jwtManager, blacklist, mail.LogSender{}).RegisterRoutes(api, requireAuth)

	registerActiveUser(t, app, store, "mia@example.com", "Mia")
	_, refresh := login(t, app, "mia@example.com", "password123")

	blacklist.failRevoke = true
	status, _ := doRequest(t, app, fiber.MethodPost, "/api/user/refresh-token", "", map[string]any{
		"refresh_token": refresh,
	})
	if status != fiber.StatusInternalServerError {
		t.Fatalf("refresh during outage: expected 500, got %d", status)
	}

	// The presented token was not consumed by the failed rotation.
	blacklist.failRevoke = false
	status, _ = doRequest(t, app, fiber.MethodPost, "/api/user/refresh-token", "", map[string]any{
		"refresh_token": refresh,
	})
	if status != fiber.StatusOK {
		t.Fatalf("refresh after recovery: expected 200, got %d", status)
	}
}
