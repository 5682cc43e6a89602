package parser

import "testing"

func TestDemangleEmailStrict(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"no address", "plain prose stays untouched", "plain prose stays untouched"},
		{
			"sob line",
			"Signed-off-by: Dev One <dev.one at example.com>",
			"Signed-off-by: Dev One <dev.one@example.com>",
		},
		{
			"several addresses",
			"Acked-by: A <a at x.com>\nAcked-by: B <b at y.com>",
			"Acked-by: A <a@x.com>\nAcked-by: B <b@y.com>",
		},
		{
			"already clean",
			"Acked-by: A <a@x.com>",
			"Acked-by: A <a@x.com>",
		},
		{
			"prose 'at' outside brackets untouched",
			"see the talk at example.com for details",
			"see the talk at example.com for details",
		},
	}

	for _, tc := range tests {
		if got := DemangleEmail(tc.in, true); got != tc.want {
			t.Errorf("%s: DemangleEmail(%q, true) = %q; want %q", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestDemangleEmailLoose(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{
			"from header",
			"dev.one at example.com (Dev One)",
			"Dev One <dev.one@example.com>",
		},
		{
			"mangled display name discarded",
			"dev.one at example.com (dev.one at example.com)",
			"dev.one@example.com",
		},
		{"no match", "Dev One <dev.one@example.com>", ""},
		{"missing display name", "dev.one at example.com", ""},
	}

	for _, tc := range tests {
		if got := DemangleEmail(tc.in, false); got != tc.want {
			t.Errorf("%s: DemangleEmail(%q, false) = %q; want %q", tc.name, tc.in, got, tc.want)
		}
	}
}
