package reporting

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/ledger-engine/internal/ledger"
	"github.com/example/ledger-engine/internal/money"
)

// LedgerReader is the read-only subset of internal/ledger.Store this
// package depends on.
type LedgerReader interface {
	ListByWallet(ctx context.Context, walletID int64, since, until sql.NullTime, limit int) ([]ledger.Entry, error)
}

// Service computes movement summaries over ledger entries. It holds no
// state and performs no writes — every call is a point-in-time read.
type Service struct {
	ledger LedgerReader
}

func NewService(ledgerReader LedgerReader) *Service {
	return &Service{ledger: ledgerReader}
}

// Summarize aggregates debits/credits for a wallet over [from, to). A zero
// from/to leaves that bound open. Only the oldest 100,000 entries in the
// range are read; entries past that are not counted.
func (s *Service) Summarize(ctx context.Context, walletID int64, from, to time.Time) (MovementSummary, error) {
	since := sql.NullTime{Time: from, Valid: !from.IsZero()}
	until := sql.NullTime{Time: to, Valid: !to.IsZero()}

	const maxEntries = 100_000
	entries, err := s.ledger.ListByWallet(ctx, walletID, since, until, maxEntries)
	if err != nil {
		return MovementSummary{}, err
	}

	summary := MovementSummary{
		WalletID:      walletID,
		From:          from,
		To:            to,
		TotalDebited:  money.Zero,
		TotalCredited: money.Zero,
		NetDelta:      money.Zero,
	}

	for _, e := range entries {
		switch e.EntryType {
		case ledger.EntryTypeDebit:
			total, err := summary.TotalDebited.Add(e.Amount)
			if err != nil {
				return MovementSummary{}, err
			}
			summary.TotalDebited = total
			net, err := summary.NetDelta.Sub(e.Amount)
			if err != nil {
				return MovementSummary{}, err
			}
			summary.NetDelta = net
		case ledger.EntryTypeCredit:
			total, err := summary.TotalCredited.Add(e.Amount)
			if err != nil {
				return MovementSummary{}, err
			}
			summary.TotalCredited = total
			net, err := summary.NetDelta.Add(e.Amount)
			if err != nil {
				return MovementSummary{}, err
			}
			summary.NetDelta = net
		}
		summary.EntryCount++
	}

	return summary, nil
}
