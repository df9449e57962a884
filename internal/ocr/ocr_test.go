package ocr

import "testing"

func TestNewRejectsUnknownBackend(t *testing.T) {
	if _, err := New("cloud", ""); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "single line", in: "Jane Doe", want: "Jane Doe"},
		{name: "trims whitespace", in: "  Jane Doe \n", want: "Jane Doe"},
		{name: "skips leading blank lines", in: "\n \nRoom 5\nignored", want: "Room 5"},
		{name: "all blank", in: " \n\t\n", want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := firstLine(tc.in); got != tc.want {
				t.Fatalf("firstLine(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
