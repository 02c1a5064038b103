package bookkey

import "testing"

func TestNormalizeISBN(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"9780306406157", "9780306406157"},
		{"978-0-306-40615-7", "9780306406157"},
		{"978 0 306 40615 7", "9780306406157"},
		{"0306406152", "0306406152"},
		{"0-8044-2957-x", "080442957X"},
	}
	for _, tc := range cases {
		got, err := NormalizeISBN(tc.in)
		if err != nil {
			t.Fatalf("NormalizeISBN(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizeISBN(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeISBN_Rejects(t *testing.T) {
	t.Parallel()

	bad := []string{
		"",
		"12345",
		"978030640615",       // 12 digits
		"97803064061570",     // 14 digits
		"978030640615X",      // X in 13-digit form
		"030640615 extra",    // letters
		"0X0640615 2",        // X not in check position
		"978‑0306406157",     // non-breaking hyphen
	}
	for _, in := range bad {
		if _, err := NormalizeISBN(in); err == nil {
			t.Fatalf("NormalizeISBN(%q) accepted, want error", in)
		}
	}
}

func TestTitleKey_FoldsAndCollapses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"The  Midnight   Library", "the midnight library"},
		{"CAFÉ", "cafe"},       // precomposed E acute
		{"CAFÉ", "cafe"}, // decomposed E plus combining acute
		{"Beyoncé Très Brève", "beyonce tres breve"},
		{"Ｗｉｄｅ Ｆｏｒｍ", "wide form"},
		{"  padded \t out \n", "padded out"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := TitleKey(tc.in); got != tc.want {
			t.Fatalf("TitleKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCompose(t *testing.T) {
	t.Parallel()

	if got := Compose("Project Hail Mary", "Andy Weir"); got != "project hail mary|andy weir" {
		t.Fatalf("Compose = %q", got)
	}
	if got := Compose("Anonymous Work", ""); got != "anonymous work" {
		t.Fatalf("Compose without author = %q", got)
	}
}
