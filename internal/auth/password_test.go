package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/mrlokans/checkoutdesk/internal/circulation"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{name: "too short", password: "short1", wantErr: ErrPasswordTooShort},
		{name: "no uppercase", password: "longenough", wantErr: ErrPasswordNoUpper},
		{name: "valid", password: "LongEnough1", wantErr: nil},
		{name: "exactly minimum length", password: "Abcdefgh", wantErr: nil},
		{name: "uppercase only at the end", password: "abcdefghZ", wantErr: nil},
		{name: "too long", password: "A" + strings.Repeat("a", 72), wantErr: ErrPasswordTooLong},
		{name: "empty", password: "", wantErr: ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidatePassword(%q) = %v, want nil", tt.password, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidatePassword(%q) = %v, want %v", tt.password, err, tt.wantErr)
			}
			if !errors.Is(err, circulation.ErrValidationFailed) {
				t.Errorf("expected a validation error, got kind %q", circulation.KindOf(err))
			}
		})
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("LongEnough1", 4)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "" || hash == "LongEnough1" {
		t.Fatalf("HashPassword() returned %q", hash)
	}

	if err := CheckPassword("LongEnough1", hash); err != nil {
		t.Errorf("CheckPassword() with correct password = %v", err)
	}
	if err := CheckPassword("WrongPassword1", hash); !errors.Is(err, circulation.ErrInvalidCredentials) {
		t.Errorf("CheckPassword() with wrong password = %v, want ErrInvalidCredentials", err)
	}
}

func TestHashPassword_LowCostFallsBackToDefault(t *testing.T) {
	hash, err := HashPassword("LongEnough1", 0)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$10$") {
		t.Errorf("expected default cost hash, got %q", hash)
	}
}

func TestGenerateSessionSecret(t *testing.T) {
	a, err := GenerateSessionSecret()
	if err != nil {
		t.Fatalf("GenerateSessionSecret() error = %v", err)
	}
	b, _ := GenerateSessionSecret()
	if len(a) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(a))
	}
	if a == b {
		t.Error("expected distinct secrets")
	}
}
