package jwt

import (
	"testing"

	"github.com/google/uuid"
)

func TestManager_AccessAndRefreshAreNotInterchangeable(t *testing.T) {
	m := NewManager("test-secret")
	userID := uuid.New()

	pair, err := m.GenerateTokenPair(userID, "ada@example.com")
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}

	claims, err := m.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.UserID != userID || claims.Email != "ada@example.com" {
		t.Errorf("unexpected claims: %+v", claims)
	}

	if _, err := m.ValidateAccessToken(pair.RefreshToken); err != ErrInvalidToken {
		t.Errorf("refresh token accepted as access token: %v", err)
	}
	if _, _, err := m.RefreshTokens(pair.AccessToken); err != ErrInvalidToken {
		t.Errorf("access token accepted as refresh token: %v", err)
	}

	next, refreshed, err := m.RefreshTokens(pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshTokens: %v", err)
	}
	if refreshed.UserID != userID || next.AccessToken == "" {
		t.Errorf("unexpected refresh result: %+v %+v", refreshed, next)
	}
}

func TestManager_RejectsForeignSecret(t *testing.T) {
	pair, err := NewManager("one").GenerateTokenPair(uuid.New(), "x@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewManager("two").ValidateToken(pair.AccessToken); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}
