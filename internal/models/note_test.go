package models

import "testing"

func TestScopeDescriptions(t *testing.T) {
	for _, s := range AllScopes {
		if s.Description() == "" {
			t.Errorf("%s has no description", s)
		}
	}
	if got := Scope("notes:admin").Description(); got != "" {
		t.Errorf("unknown scope description = %q, want empty", got)
	}
}

func TestPresetScopes(t *testing.T) {
	tests := map[string][]Scope{
		PresetReadOnly:    {ScopeNotesRead},
		PresetCaptureOnly: {ScopeNotesRead, ScopeNotesCreate},
		PresetFullAccess:  AllScopes,
	}
	for name, want := range tests {
		got, ok := PresetScopes(name)
		if !ok {
			t.Fatalf("preset %q missing", name)
		}
		if len(got) != len(want) {
			t.Fatalf("%s = %v, want %v", name, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s[%d] = %q, want %q", name, i, got[i], want[i])
			}
		}
	}
	if _, ok := PresetScopes("everything"); ok {
		t.Error("unknown preset should not resolve")
	}
}

func TestScopePresetsAreCopies(t *testing.T) {
	p := ScopePresets()
	p[2].Scopes[0] = "notes:admin"
	got, _ := PresetScopes(PresetFullAccess)
	if got[0] != ScopeNotesRead {
		t.Errorf("full_access[0] = %q, want %q", got[0], ScopeNotesRead)
	}
	if AllScopes[0] != ScopeNotesRead {
		t.Errorf("AllScopes mutated: %v", AllScopes)
	}
}
