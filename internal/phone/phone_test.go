package phone

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+90 532 123 45 67", "+905321234567", false},
		{"0532-123-45-67", "05321234567", false},
		{"(0532) 123.45.67", "05321234567", false},
		{"00905321234567", "+905321234567", false},
		{"1234567", "1234567", false},
		{"", "", true},
		{"abc123", "", true},
		{"123456", "", true},                  // too short
		{"+1234567890123456", "", true},      // too long
		{"12+34567", "", true},               // plus not leading
	}
	for _, c := range cases {
		got, err := Normalize(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("Normalize(%q): expected error, got %q", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Normalize(%q): unexpected error %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDuplicateKeysMatch(t *testing.T) {
	a, err := Normalize("0090 532 123 45 67")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Normalize("+90 (532) 123-45-67")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("expected equal keys, got %q and %q", a, b)
	}
}
