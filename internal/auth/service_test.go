package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mwilding/taskdeck/internal/infrastructure/config"
)

func testService(t *testing.T) (*Service, UserRepository) {
	t.Helper()

	db := testDB(t)
	repo := NewUserRepository(db)
	svc := NewService(repo, config.JWTConfig{
		Secret:          testSecret,
		AccessTokenTTL:  15,
		RefreshTokenTTL: 60,
	}, nil)
	return svc, repo
}

func TestService_Register(t *testing.T) {
	svc, repo := testService(t)
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, RegisterInput{
		Name:            "Alice",
		Email:           "Alice@Example.com",
		Password:        "passw0rd",
		ConfirmPassword: "passw0rd",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if user.Email != "alice@example.com" {
		t.Errorf("Email = %q, want normalised", user.Email)
	}
	if user.Role != RoleUser {
		t.Errorf("Role = %q, want default %q", user.Role, RoleUser)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("Register() should issue a token pair")
	}

	// The refresh token hash must be anchored to the account row.
	stored, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.RefreshTokenHash != HashToken(pair.RefreshToken) {
		t.Error("stored refresh hash should match the issued token")
	}
}

func TestService_Register_UnknownRoleDefaults(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	// An unrecognised role is not a validation failure; it falls back to
	// the non-privileged role.
	user, _, err := svc.Register(ctx, RegisterInput{
		Name:            "Mod",
		Email:           "mod@example.com",
		Password:        "passw0rd",
		ConfirmPassword: "passw0rd",
		Role:            Role("moderator"),
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Role != RoleUser {
		t.Errorf("Role = %q, want %q", user.Role, RoleUser)
	}

	// A recognised role is taken at face value.
	user, _, err = svc.Register(ctx, RegisterInput{
		Name:            "Root",
		Email:           "root@example.com",
		Password:        "passw0rd",
		ConfirmPassword: "passw0rd",
		Role:            RoleAdmin,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Role != RoleAdmin {
		t.Errorf("Role = %q, want %q", user.Role, RoleAdmin)
	}
}

func TestService_SetPasswordParams(t *testing.T) {
	svc, repo := testService(t)
	ctx := context.Background()

	svc.SetPasswordParams(Argon2Params{Time: 1, MemoryKiB: 8 * 1024, Threads: 1})

	user, _, err := svc.Register(ctx, RegisterInput{
		Name:            "Tuned",
		Email:           "tuned@example.com",
		Password:        "passw0rd",
		ConfirmPassword: "passw0rd",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	stored, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !strings.Contains(stored.PasswordHash, "m=8192,t=1,p=1") {
		t.Errorf("stored hash should use configured factors, got %q", stored.PasswordHash)
	}

	ok, err := VerifyPassword("passw0rd", stored.PasswordHash)
	if err != nil || !ok {
		t.Errorf("VerifyPassword() = %v, %v, want match", ok, err)
	}
}

func TestService_Register_ValidationFailure(t *testing.T) {
	svc, _ := testService(t)

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Name:            "Bob",
		Email:           "bad-email",
		Password:        "x",
		ConfirmPassword: "y",
	})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Register(invalid) = %v, want *ValidationError", err)
	}
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	in := RegisterInput{
		Name:            "First",
		Email:           "same@example.com",
		Password:        "passw0rd",
		ConfirmPassword: "passw0rd",
	}
	if _, _, err := svc.Register(ctx, in); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, _, err := svc.Register(ctx, in)
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("Register(duplicate) = %v, want ErrEmailExists", err)
	}
}

func TestService_Login(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, RegisterInput{
		Name: "Carol", Email: "carol@example.com",
		Password: "passw0rd", ConfirmPassword: "passw0rd",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	user, pair, err := svc.Login(ctx, "carol@example.com", "passw0rd")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if user.Email != "carol@example.com" {
		t.Errorf("Email = %q", user.Email)
	}
	if pair.AccessToken == "" {
		t.Error("Login() should issue tokens")
	}

	claims, err := svc.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess() error = %v", err)
	}
	if claims.Subject != user.ID {
		t.Errorf("Subject = %q, want %q", claims.Subject, user.ID)
	}
}

func TestService_Login_WrongPassword(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, RegisterInput{
		Name: "Dave", Email: "dave@example.com",
		Password: "passw0rd", ConfirmPassword: "passw0rd",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, _, err := svc.Login(ctx, "dave@example.com", "wrongpass1")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login(wrong password) = %v, want ErrInvalidCredentials", err)
	}
}

func TestService_Login_UnknownEmail(t *testing.T) {
	svc, _ := testService(t)

	// Unknown email must not be distinguishable from a wrong password.
	_, _, err := svc.Login(context.Background(), "nobody@example.com", "passw0rd")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login(unknown email) = %v, want ErrInvalidCredentials", err)
	}
}

func TestService_Login_InvalidatesPreviousRefresh(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	_, first, err := svc.Register(ctx, RegisterInput{
		Name: "Erin", Email: "erin@example.com",
		Password: "passw0rd", ConfirmPassword: "passw0rd",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// A second login supersedes the first session's refresh token.
	if _, _, err := svc.Login(ctx, "erin@example.com", "passw0rd"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	_, err = svc.Refresh(ctx, first.RefreshToken)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Refresh(superseded) = %v, want ErrTokenInvalid", err)
	}
}

func TestService_Refresh_Rotates(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, RegisterInput{
		Name: "Frank", Email: "frank@example.com",
		Password: "passw0rd", ConfirmPassword: "passw0rd",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Error("Refresh() should issue a new refresh token")
	}

	// The old token is single-use: replaying it must fail.
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Refresh(replay) = %v, want ErrTokenInvalid", err)
	}

	// The rotated token keeps working.
	if _, err := svc.Refresh(ctx, next.RefreshToken); err != nil {
		t.Errorf("Refresh(rotated) error = %v", err)
	}
}

func TestService_Refresh_Garbage(t *testing.T) {
	svc, _ := testService(t)

	_, err := svc.Refresh(context.Background(), "not-a-token")
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Refresh(garbage) = %v, want ErrTokenInvalid", err)
	}
}

func TestService_Logout(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, RegisterInput{
		Name: "Grace", Email: "grace@example.com",
		Password: "passw0rd", ConfirmPassword: "passw0rd",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := svc.Logout(ctx, user.ID); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Refresh(after logout) = %v, want ErrTokenInvalid", err)
	}

	// Access tokens are not revoked by logout; they expire on their own.
	if _, err := svc.VerifyAccess(pair.AccessToken); err != nil {
		t.Errorf("VerifyAccess(after logout) error = %v", err)
	}
}

func TestService_ChangePassword(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	user, oldPair, err := svc.Register(ctx, RegisterInput{
		Name: "Henry", Email: "henry@example.com",
		Password: "oldpass1", ConfirmPassword: "oldpass1",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	newPair, err := svc.ChangePassword(ctx, user.ID, "oldpass1", "newpass2", "newpass2")
	if err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if newPair.AccessToken == "" || newPair.RefreshToken == "" {
		t.Error("ChangePassword() should issue a fresh token pair")
	}

	// Old credentials stop working, new ones work.
	if _, _, err := svc.Login(ctx, "henry@example.com", "oldpass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login(old password) = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login(ctx, "henry@example.com", "newpass2"); err != nil {
		t.Errorf("Login(new password) error = %v", err)
	}

	// The old session's refresh token is superseded.
	if _, err := svc.Refresh(ctx, oldPair.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Refresh(pre-change token) = %v, want ErrTokenInvalid", err)
	}
}

func TestService_ChangePassword_WrongCurrent(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	user, _, err := svc.Register(ctx, RegisterInput{
		Name: "Iris", Email: "iris@example.com",
		Password: "passw0rd", ConfirmPassword: "passw0rd",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err = svc.ChangePassword(ctx, user.ID, "not-current1", "newpass2", "newpass2")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("ChangePassword(wrong current) = %v, want ErrInvalidCredentials", err)
	}
}

func TestService_ChangePassword_WeakNew(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	user, _, err := svc.Register(ctx, RegisterInput{
		Name: "Jack", Email: "jack@example.com",
		Password: "passw0rd", ConfirmPassword: "passw0rd",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	var verr *ValidationError
	_, err = svc.ChangePassword(ctx, user.ID, "passw0rd", "weak", "weak")
	if !errors.As(err, &verr) {
		t.Errorf("ChangePassword(weak) = %v, want *ValidationError", err)
	}
}
