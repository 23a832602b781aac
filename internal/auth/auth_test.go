package auth

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/qazedu/examcenter/internal/model"
	"github.com/qazedu/examcenter/internal/store"
)

func newTestAuth(t *testing.T) (*Service, *store.Store, int64) {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("sekret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	userID, err := s.CreateUser(model.User{
		Username:     "aman",
		FirstName:    "Аман",
		LastName:     "Ахметов",
		PasswordHash: string(hash),
		Role:         model.RoleStudent,
		Active:       true,
		Student:      &model.StudentProfile{ClassID: 1},
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	svc := NewService(s, "test-signing-secret", time.Minute, time.Hour)
	return svc, s, userID
}

func TestLoginAndVerify(t *testing.T) {
	svc, _, userID := newTestAuth(t)

	pair, err := svc.Login("aman", "sekret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("empty token pair")
	}

	user, err := svc.Verify(pair.AccessToken)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if user.ID != userID {
		t.Errorf("verified user id = %d, want %d", user.ID, userID)
	}
	if user.Role != model.RoleStudent {
		t.Errorf("verified role = %q, want student", user.Role)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newTestAuth(t)

	if _, err := svc.Login("aman", "wrong"); err == nil {
		t.Error("wrong password accepted")
	}
	if _, err := svc.Login("nobody", "sekret"); err == nil {
		t.Error("unknown user accepted")
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, _ := newTestAuth(t)

	pair, err := svc.Login("aman", "sekret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	next, err := svc.Refresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Error("refresh token not rotated")
	}

	// The old refresh token is dead after rotation.
	if _, err := svc.Refresh(pair.RefreshToken); err == nil {
		t.Error("consumed refresh token accepted again")
	}
}

func TestVerifyGarbageToken(t *testing.T) {
	svc, _, _ := newTestAuth(t)

	if _, err := svc.Verify("not-a-jwt"); err == nil {
		t.Error("garbage token accepted")
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	svc, s, _ := newTestAuth(t)

	pair, err := svc.Login("aman", "sekret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	other := NewService(s, "different-secret", time.Minute, time.Hour)
	if _, err := other.Verify(pair.AccessToken); err == nil {
		t.Error("token verified with wrong secret")
	}
}

func TestInactiveUserRejected(t *testing.T) {
	svc, s, _ := newTestAuth(t)

	hash, _ := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if _, err := s.CreateUser(model.User{
		Username:     "frozen",
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		Active:       false,
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if _, err := svc.Login("frozen", "pw"); err == nil {
		t.Error("inactive user logged in")
	}
}
