package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/mwilding/taskdeck/internal/auth"
	"github.com/mwilding/taskdeck/internal/task"
)

func TestUsers_RequireAdmin(t *testing.T) {
	_, h := testServer(t)
	_, tokens := registerUser(t, h, "Alice", "alice@example.com", "passw0rd")

	resp := doRequest(t, h, http.MethodGet, "/api/v1/users", tokens.AccessToken, nil)
	if resp.Code != http.StatusForbidden {
		t.Errorf("non-admin list users = %d, want 403", resp.Code)
	}

	resp = doRequest(t, h, http.MethodGet, "/api/v1/audit", tokens.AccessToken, nil)
	if resp.Code != http.StatusForbidden {
		t.Errorf("non-admin audit = %d, want 403", resp.Code)
	}
}

func TestUsers_AdminList(t *testing.T) {
	srv, h := testServer(t)
	registerUser(t, h, "Alice", "alice@example.com", "passw0rd")
	registerUser(t, h, "Root", "root@example.com", "passw0rd")
	_, adminTokens := makeAdmin(t, srv, h, "root@example.com", "passw0rd")

	resp := doRequest(t, h, http.MethodGet, "/api/v1/users", adminTokens.AccessToken, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}

	var users []auth.User
	unmarshalData(t, resp, "users", &users)
	if len(users) != 2 {
		t.Errorf("len(users) = %d, want 2", len(users))
	}

	// Sensitive fields never serialize.
	body := resp.Recorder.Body.String()
	for _, secret := range []string{"password_hash", "refresh_token_hash", "$argon2id$"} {
		if strings.Contains(body, secret) {
			t.Errorf("response leaks %q", secret)
		}
	}
}

func TestUsers_AdminCreate(t *testing.T) {
	srv, h := testServer(t)
	registerUser(t, h, "Root", "root@example.com", "passw0rd")
	_, adminTokens := makeAdmin(t, srv, h, "root@example.com", "passw0rd")

	resp := doRequest(t, h, http.MethodPost, "/api/v1/users", adminTokens.AccessToken, map[string]string{
		"name":     "Second Admin",
		"email":    "admin2@example.com",
		"password": "passw0rd",
		"role":     "admin",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", resp.Code, resp.Recorder.Body.String())
	}

	var user auth.User
	unmarshalData(t, resp, "user", &user)
	if user.Role != auth.RoleAdmin {
		t.Errorf("Role = %q, want admin", user.Role)
	}

	// The new account can log in.
	login := doRequest(t, h, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "admin2@example.com",
		"password": "passw0rd",
	})
	if login.Code != http.StatusOK {
		t.Errorf("new account login = %d, want 200", login.Code)
	}
}

func TestUsers_AdminUpdateRole(t *testing.T) {
	srv, h := testServer(t)
	userID, _ := registerUser(t, h, "Alice", "alice@example.com", "passw0rd")
	registerUser(t, h, "Root", "root@example.com", "passw0rd")
	_, adminTokens := makeAdmin(t, srv, h, "root@example.com", "passw0rd")

	resp := doRequest(t, h, http.MethodPut, "/api/v1/users/"+userID, adminTokens.AccessToken, map[string]string{
		"role": "admin",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.Code, resp.Recorder.Body.String())
	}

	var user auth.User
	unmarshalData(t, resp, "user", &user)
	if user.Role != auth.RoleAdmin {
		t.Errorf("Role = %q, want admin", user.Role)
	}
}

func TestUsers_SelfProtection(t *testing.T) {
	srv, h := testServer(t)
	registerUser(t, h, "Root", "root@example.com", "passw0rd")
	adminID, adminTokens := makeAdmin(t, srv, h, "root@example.com", "passw0rd")

	// Changing own role is refused even though the caller is an admin.
	resp := doRequest(t, h, http.MethodPut, "/api/v1/users/"+adminID, adminTokens.AccessToken, map[string]string{
		"role": "user",
	})
	if resp.Code != http.StatusForbidden {
		t.Errorf("self role change = %d, want 403", resp.Code)
	}

	// Restating the current role is not a role change.
	resp = doRequest(t, h, http.MethodPut, "/api/v1/users/"+adminID, adminTokens.AccessToken, map[string]string{
		"role": "admin",
	})
	if resp.Code != http.StatusOK {
		t.Errorf("self role restate = %d, want 200", resp.Code)
	}

	// Renaming self is fine — only the role is protected.
	resp = doRequest(t, h, http.MethodPut, "/api/v1/users/"+adminID, adminTokens.AccessToken, map[string]string{
		"name": "Renamed Root",
	})
	if resp.Code != http.StatusOK {
		t.Errorf("self rename = %d, want 200", resp.Code)
	}

	// Deleting self is refused.
	resp = doRequest(t, h, http.MethodDelete, "/api/v1/users/"+adminID, adminTokens.AccessToken, nil)
	if resp.Code != http.StatusForbidden {
		t.Errorf("self delete = %d, want 403", resp.Code)
	}
}

func TestUsers_DeleteCascades(t *testing.T) {
	srv, h := testServer(t)
	userID, userTokens := registerUser(t, h, "Alice", "alice@example.com", "passw0rd")
	registerUser(t, h, "Root", "root@example.com", "passw0rd")
	_, adminTokens := makeAdmin(t, srv, h, "root@example.com", "passw0rd")

	doRequest(t, h, http.MethodPost, "/api/v1/tasks", userTokens.AccessToken, map[string]any{"title": "doomed"})

	resp := doRequest(t, h, http.MethodDelete, "/api/v1/users/"+userID, adminTokens.AccessToken, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("delete status = %d: %s", resp.Code, resp.Recorder.Body.String())
	}

	// The account and its tasks are gone.
	get := doRequest(t, h, http.MethodGet, "/api/v1/users/"+userID, adminTokens.AccessToken, nil)
	if get.Code != http.StatusNotFound {
		t.Errorf("get deleted user = %d, want 404", get.Code)
	}

	list := doRequest(t, h, http.MethodGet, "/api/v1/tasks", adminTokens.AccessToken, nil)
	var tasks []task.Task
	unmarshalData(t, list, "tasks", &tasks)
	if len(tasks) != 0 {
		t.Errorf("orphaned tasks = %d, want 0", len(tasks))
	}

	// The deleted account's tokens stop working at the next DB-backed call.
	me := doRequest(t, h, http.MethodGet, "/api/v1/auth/me", userTokens.AccessToken, nil)
	if me.Code != http.StatusNotFound {
		t.Errorf("deleted user /me = %d, want 404", me.Code)
	}
}

func TestUsers_NotFound(t *testing.T) {
	srv, h := testServer(t)
	registerUser(t, h, "Root", "root@example.com", "passw0rd")
	_, adminTokens := makeAdmin(t, srv, h, "root@example.com", "passw0rd")

	resp := doRequest(t, h, http.MethodGet, "/api/v1/users/usr-missing", adminTokens.AccessToken, nil)
	if resp.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.Code)
	}
}
