package uuid

import "testing"

func TestNewGeneratesValidV4(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := New()
		if !IsValid(id) {
			t.Fatalf("Generated UUID is not valid v4: %q", id)
		}
		if seen[id] {
			t.Fatalf("Generated duplicate UUID: %q", id)
		}
		seen[id] = true
	}
}

func TestIsValid(t *testing.T) {
	valid := []string{
		"550e8400-e29b-41d4-a716-446655440000",
		"550E8400-E29B-41D4-A716-446655440000",
		"f47ac10b-58cc-4372-a567-0e02b2c3d479",
	}
	for _, s := range valid {
		if !IsValid(s) {
			t.Errorf("Expected %q to be valid", s)
		}
	}

	invalid := []string{
		"",
		"not-a-uuid",
		"550e8400-e29b-11d4-a716-446655440000", // v1, not v4
		"550e8400-e29b-41d4-c716-446655440000", // bad variant bits
		"550e8400e29b41d4a716446655440000",     // missing dashes
		"550e8400-e29b-41d4-a716-44665544000",  // too short
	}
	for _, s := range invalid {
		if IsValid(s) {
			t.Errorf("Expected %q to be invalid", s)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(New()); err != nil {
		t.Errorf("Validate should accept a generated UUID: %v", err)
	}
	if err := Validate("garbage"); err == nil {
		t.Error("Validate should reject a malformed string")
	}
}
