package utils

import (
	"testing"

	"taxnexy/config"
	"taxnexy/models"
)

func TestJWTRoundTrip(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"

	user := &models.StaffUser{}
	user.ID = 42

	token, err := GenerateJWTToken(user)
	if err != nil {
		t.Fatalf("GenerateJWTToken: %v", err)
	}

	claims, err := ParseJWTToken(token)
	if err != nil {
		t.Fatalf("ParseJWTToken: %v", err)
	}
	if claims.StaffUserID != 42 {
		t.Fatalf("staff_user_id = %d, want 42", claims.StaffUserID)
	}
}

func TestParseJWTTokenRejectsWrongSecret(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"
	user := &models.StaffUser{}
	user.ID = 7
	token, err := GenerateJWTToken(user)
	if err != nil {
		t.Fatalf("GenerateJWTToken: %v", err)
	}

	config.AppConfig.JWTSecret = "rotated-secret"
	if _, err := ParseJWTToken(token); err == nil {
		t.Fatal("token signed with old secret accepted")
	}
}

func TestParseJWTTokenRejectsGarbage(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"
	if _, err := ParseJWTToken("not.a.jwt"); err == nil {
		t.Fatal("garbage token accepted")
	}
}
