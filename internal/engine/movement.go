package engine

import (
	"github.com/example/ledger-engine/internal/wallet"
	"github.com/example/ledger-engine/internal/txn"
)

// endpoints is the resolved pair of principals a movement type debits from
// and credits to, before either wallet has been looked up (spec §4.5.1).
type endpoints struct {
	sourcePrincipalID int64
	destPrincipalID   int64
}

// resolveEndpoints implements the movement-type table. userID is always the
// non-system side of the movement.
func resolveEndpoints(t txn.MovementType, userID int64) (endpoints, error) {
	switch t {
	case txn.MovementTopup:
		return endpoints{sourcePrincipalID: wallet.PrincipalTreasury, destPrincipalID: userID}, nil
	case txn.MovementBonus:
		return endpoints{sourcePrincipalID: wallet.PrincipalMarketing, destPrincipalID: userID}, nil
	case txn.MovementSpend:
		return endpoints{sourcePrincipalID: userID, destPrincipalID: wallet.PrincipalRevenue}, nil
	default:
		return endpoints{}, &ValidationError{Field: "type", Reason: "unknown movement type " + string(t)}
	}
}

// sortByID returns (a, b) reordered so a.ID <= b.ID, implementing the
// deterministic lock-ordering rule of spec §4.5.3 step 4. Wallet ids are
// never equal for distinct wallets, but ties are stable either way since a
// single wallet can never be both endpoints of a movement (a user can't be
// their own system counterpart).
func sortByID(a, b wallet.Wallet) (first, second wallet.Wallet) {
	if a.ID <= b.ID {
		return a, b
	}
	return b, a
}
