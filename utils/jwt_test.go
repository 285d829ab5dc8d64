package utils

import (
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	ConfigureJWT("test-secret", time.Hour)

	token, err := GenerateToken(7, "captain", 3)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != 7 || claims.Role != "captain" || claims.ShopID != 3 {
		t.Errorf("claims = %+v", claims)
	}
}

func TestValidateTokenRejectsOtherSecret(t *testing.T) {
	ConfigureJWT("secret-a", time.Hour)
	token, err := GenerateToken(1, "student", 0)
	if err != nil {
		t.Fatal(err)
	}

	ConfigureJWT("secret-b", time.Hour)
	if _, err := ValidateToken(token); err == nil {
		t.Fatal("token signed with another secret was accepted")
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	ConfigureJWT("secret", time.Hour)
	if _, err := ValidateToken("not.a.token"); err == nil {
		t.Fatal("expected error")
	}
}
