package identity

import (
	"testing"
)

func TestDeriveDeterministic(t *testing.T) {
	// 带不同标点的同一数字序列必须派生出同一身份
	inputs := []string{
		"12345678901",
		"123.456.789-01",
		"123 456 789 01",
		"123-456-789.01",
	}

	first, err := Derive(inputs[0])
	if err != nil {
		t.Fatalf("Derive(%q) returned error: %v", inputs[0], err)
	}

	for _, input := range inputs[1:] {
		id, err := Derive(input)
		if err != nil {
			t.Fatalf("Derive(%q) returned error: %v", input, err)
		}
		if id.FullHash != first.FullHash {
			t.Errorf("Derive(%q).FullHash = %s, want %s", input, id.FullHash, first.FullHash)
		}
		if id.OwnerID != first.OwnerID {
			t.Errorf("Derive(%q).OwnerID = %s, want %s", input, id.OwnerID, first.OwnerID)
		}
	}
}

func TestDeriveShape(t *testing.T) {
	id, err := Derive("987.654.321-00")
	if err != nil {
		t.Fatalf("Derive returned error: %v", err)
	}

	if len(id.FullHash) != HashLength {
		t.Errorf("FullHash length = %d, want %d", len(id.FullHash), HashLength)
	}
	if len(id.OwnerID) != OwnerIDLength {
		t.Errorf("OwnerID length = %d, want %d", len(id.OwnerID), OwnerIDLength)
	}
	if id.OwnerID != id.FullHash[:OwnerIDLength] {
		t.Errorf("OwnerID = %s, want prefix of %s", id.OwnerID, id.FullHash)
	}
	if !IsValidHash(id.FullHash) {
		t.Errorf("IsValidHash(%s) = false, want true", id.FullHash)
	}
	if !IsValidOwnerID(id.OwnerID) {
		t.Errorf("IsValidOwnerID(%s) = false, want true", id.OwnerID)
	}
}

func TestDeriveInvalidInputs(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"too short", "1234567890"},
		{"too long", "123456789012"},
		{"letters only", "abcdefghijk"},
		{"punctuation only", "..---..//--"},
		{"ten digits with letter", "1234567890a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Derive(tt.input); err != ErrInvalidFormat {
				t.Errorf("Derive(%q) error = %v, want ErrInvalidFormat", tt.input, err)
			}
		})
	}
}

func TestDeriveKnownVector(t *testing.T) {
	// SHA-256("12345678901")
	id, err := Derive("12345678901")
	if err != nil {
		t.Fatalf("Derive returned error: %v", err)
	}

	want := "254aa248acb47dd654ca3ea53f48c2c26d641d23d7e2e93a1ec56258df7674c4"
	if id.FullHash != want {
		t.Errorf("FullHash = %s, want %s", id.FullHash, want)
	}
	if id.OwnerID != want[:16] {
		t.Errorf("OwnerID = %s, want %s", id.OwnerID, want[:16])
	}
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		validHash bool
		validID   bool
	}{
		{"64 hex", "254aa248acb47dd654ca3ea53f48c2c26d641d23d7e2e93a1ec56258df7674c4", true, false},
		{"uppercase hex", "254AA248ACB47DD654CA3EA53F48C2C26D641D23D7E2E93A1EC56258DF7674C4", true, false},
		{"16 hex", "254aa248acb47dd6", false, true},
		{"non hex", "zz4aa248acb47dd6", false, false},
		{"empty", "", false, false},
		{"15 hex", "254aa248acb47dd", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidHash(tt.input); got != tt.validHash {
				t.Errorf("IsValidHash(%q) = %v, want %v", tt.input, got, tt.validHash)
			}
			if got := IsValidOwnerID(tt.input); got != tt.validID {
				t.Errorf("IsValidOwnerID(%q) = %v, want %v", tt.input, got, tt.validID)
			}
		})
	}
}

func TestClassifyOwner(t *testing.T) {
	hashed := ClassifyOwner("254aa248acb47dd6")
	if hashed.IsLegacy() {
		t.Error("16 hex chars should classify as hashed owner")
	}
	if hashed.OwnerID() != "254aa248acb47dd6" {
		t.Errorf("OwnerID() = %s, want 254aa248acb47dd6", hashed.OwnerID())
	}

	legacy := ClassifyOwner("12345678901")
	if !legacy.IsLegacy() {
		t.Error("11 digits should classify as legacy owner")
	}
	if legacy.OwnerID() != "" {
		t.Errorf("legacy OwnerID() = %s, want empty", legacy.OwnerID())
	}
	if legacy.PathPrefix() != "12345678901" {
		t.Errorf("legacy PathPrefix() = %s, want raw value", legacy.PathPrefix())
	}
	if legacy.String() != "legacy:***" {
		t.Errorf("legacy String() = %s, want masked form", legacy.String())
	}
}
