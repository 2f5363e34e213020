package analytics

import "testing"

func TestDeriveKeyDeterministic(t *testing.T) {
	t.Parallel()

	a := DeriveKey(KindSummary, "42", "click", "7", "2024-01-01T00:00:00Z", "")
	b := DeriveKey(KindSummary, "42", "click", "7", "2024-01-01T00:00:00Z", "")
	if a != b {
		t.Fatalf("same inputs produced different keys: %q vs %q", a, b)
	}
}

func TestDeriveKeyDiffersPerSegment(t *testing.T) {
	t.Parallel()

	base := DeriveKey(KindSummary, "42", "click", "7", "", "")
	variants := []string{
		DeriveKey(KindSummary, "42", "visit", "7", "", ""),
		DeriveKey(KindSummary, "42", "click", "8", "", ""),
		DeriveKey(KindSummary, "42", "click", "7", "2024-01-01T00:00:00Z", ""),
		DeriveKey(KindSummary, "42", "click", "7", "", "2024-02-01T00:00:00Z"),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with base key %q", i, base)
		}
	}
}

func TestDeriveKeyCallerIsolation(t *testing.T) {
	t.Parallel()

	a := DeriveKey(KindSummary, "1", "click", "all", "", "")
	b := DeriveKey(KindSummary, "2", "click", "all", "", "")
	if a == b {
		t.Fatalf("keys for different callers collided: %q", a)
	}
}

func TestDeriveKeyKindNamespaces(t *testing.T) {
	t.Parallel()

	a := DeriveKey(KindSummary, "", "u1")
	b := DeriveKey(KindUserStats, "", "u1")
	if a == b {
		t.Fatalf("distinct kinds share a key: %q", a)
	}
}

// Values containing the separator must not let two different splits
// produce the same key.
func TestDeriveKeySeparatorInValues(t *testing.T) {
	t.Parallel()

	a := DeriveKey(KindSummary, "1", "a:b", "c")
	b := DeriveKey(KindSummary, "1", "a", "b:c")
	if a == b {
		t.Fatalf("separator in value caused a collision: %q", a)
	}
}

func TestDeriveKeyAbsenceNormalizes(t *testing.T) {
	t.Parallel()

	a := DeriveKey(KindSummary, "1", "click", "all", "", "")
	b := DeriveKey(KindSummary, "1", "click", "all", "", "")
	if a != b {
		t.Fatalf("absent optionals did not normalize: %q vs %q", a, b)
	}
}
