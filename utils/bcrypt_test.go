package utils

import "testing"

func TestHashPassword_RoundTrip(t *testing.T) {
	hashed, err := HashPassword("hunter2!")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hashed == "" || hashed == "hunter2!" {
		t.Fatalf("expected an opaque hash; got %q", hashed)
	}
	if err := ComparePassword(hashed, "hunter2!"); err != nil {
		t.Fatalf("expected matching password to verify: %v", err)
	}
	if err := ComparePassword(hashed, "hunter3!"); err == nil {
		t.Fatal("expected mismatched password to fail verification")
	}
}
