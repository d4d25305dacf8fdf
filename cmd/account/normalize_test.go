package account

import "testing"

func TestNormalizeUsername(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: "Creator", want: "creator"},
		{in: "  Creator  ", want: "creator"},
		{in: "cREAToR", want: "creator"},
		{in: "", want: ""},
		{in: "   ", want: ""},
	}
	for _, tc := range cases {
		if got := NormalizeUsername(tc.in); got != tc.want {
			t.Fatalf("NormalizeUsername(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: "User@Example.com", want: "user@example.com"},
		{in: "  user@example.COM ", want: "user@example.com"},
		{in: "", want: ""},
	}
	for _, tc := range cases {
		if got := NormalizeEmail(tc.in); got != tc.want {
			t.Fatalf("NormalizeEmail(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}
