package auth

import "testing"

func TestGenerateOTP(t *testing.T) {
	code, err := GenerateOTP(6)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("len = %d, want 6", len(code))
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("non-digit %q in code %q", r, code)
		}
	}
}

func TestGenerateOTPDefaultsLength(t *testing.T) {
	code, err := GenerateOTP(0)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("len = %d, want default 6", len(code))
	}
}

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if err := ComparePassword(hash, "hunter22"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Error("wrong password accepted")
	}
}
