package ledger

import "testing"

func TestEntry_ZeroValueHasNoType(t *testing.T) {
	var e Entry
	if e.EntryType == EntryTypeDebit || e.EntryType == EntryTypeCredit {
		t.Fatalf("expected zero value entry to have no entry type, got %q", e.EntryType)
	}
}
