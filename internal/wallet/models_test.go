package wallet

import "testing"

func TestSystemKindForPrincipal(t *testing.T) {
	cases := []struct {
		principalID int64
		wantKind    SystemKind
		wantOK      bool
	}{
		{PrincipalTreasury, SystemKindTreasury, true},
		{PrincipalMarketing, SystemKindMarketing, true},
		{PrincipalRevenue, SystemKindRevenue, true},
		{1, "", false},
		{0, "", false},
	}
	for _, c := range cases {
		kind, ok := SystemKindForPrincipal(c.principalID)
		if ok != c.wantOK || kind != c.wantKind {
			t.Fatalf("SystemKindForPrincipal(%d) = (%q, %v), want (%q, %v)", c.principalID, kind, ok, c.wantKind, c.wantOK)
		}
	}
}

func TestWallet_ZeroValueIsNotSystem(t *testing.T) {
	var w Wallet
	if w.IsSystem {
		t.Fatalf("expected zero value wallet to not be a system wallet")
	}
	if w.SystemKind != nil {
		t.Fatalf("expected zero value wallet to have a nil system kind")
	}
	if !w.Balance.IsZero() {
		t.Fatalf("expected zero value wallet balance to be zero")
	}
}
