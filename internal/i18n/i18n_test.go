package i18n

import "testing"

func TestT_TranslatesAndFallsBack(t *testing.T) {
	Init("en")
	if got := T("status.title"); got != "Nebula Authentication" {
		t.Fatalf("unexpected translation: %q", got)
	}
	if got := T("does.not.exist"); got != "does.not.exist" {
		t.Fatalf("missing ids must fall back to the id, got %q", got)
	}
}

func TestT_FormatsArguments(t *testing.T) {
	Init("en")
	got := T("sessions.cleaned", 3)
	if got != "Cleaned up 3 stale session(s)." {
		t.Fatalf("unexpected formatted translation: %q", got)
	}
}

func TestSetLang(t *testing.T) {
	SetLang("de")
	defer SetLang("en")
	if got := T("logout.success"); got != "Abgemeldet." {
		t.Fatalf("unexpected german translation: %q", got)
	}
}
