package secretgen

import "testing"

func TestNewReturnsNonEmptyDistinctSecrets(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	b, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if a == "" || b == "" {
		t.Fatal("New() returned an empty secret")
	}
	if a == b {
		t.Fatal("two consecutive New() calls returned the same secret")
	}
}
