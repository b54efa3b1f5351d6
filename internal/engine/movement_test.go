package engine

import (
	"testing"

	"github.com/example/ledger-engine/internal/txn"
	"github.com/example/ledger-engine/internal/wallet"
)

func TestResolveEndpoints(t *testing.T) {
	cases := []struct {
		movement   txn.MovementType
		userID     int64
		wantSource int64
		wantDest   int64
	}{
		{txn.MovementTopup, 7, wallet.PrincipalTreasury, 7},
		{txn.MovementBonus, 7, wallet.PrincipalMarketing, 7},
		{txn.MovementSpend, 7, 7, wallet.PrincipalRevenue},
	}
	for _, c := range cases {
		ends, err := resolveEndpoints(c.movement, c.userID)
		if err != nil {
			t.Fatalf("resolveEndpoints(%s): unexpected error: %v", c.movement, err)
		}
		if ends.sourcePrincipalID != c.wantSource || ends.destPrincipalID != c.wantDest {
			t.Fatalf("resolveEndpoints(%s) = %+v, want source=%d dest=%d", c.movement, ends, c.wantSource, c.wantDest)
		}
	}
}

func TestResolveEndpoints_RejectsUnknownType(t *testing.T) {
	if _, err := resolveEndpoints("WIRE", 7); err == nil {
		t.Fatalf("expected error for unknown movement type")
	}
}

func TestSortByID_OrdersAscending(t *testing.T) {
	low := wallet.Wallet{ID: 1}
	high := wallet.Wallet{ID: 2}

	first, second := sortByID(low, high)
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("expected (1,2), got (%d,%d)", first.ID, second.ID)
	}

	first, second = sortByID(high, low)
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("expected (1,2) regardless of call order, got (%d,%d)", first.ID, second.ID)
	}
}
