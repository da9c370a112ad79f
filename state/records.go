package state

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rainman456/solana-dappTreasury/treasury"
)

// Stored record shapes. RLP has no signed integers and no nil optionals, so
// timestamps round-trip through uint64 and optional mints through a presence
// flag next to a zero-padded key.

type storedTreasury struct {
	Admin            solana.PublicKey
	EpochDuration    uint64
	SpendingLimit    uint64
	TotalFunds       uint64
	LastEpochStart   uint64
	EpochSpending    uint64
	NextPayoutIndex  uint64
	IsPaused         bool
	HasGateTokenMint bool
	GateTokenMint    solana.PublicKey
	Bump             uint8
}

func newStoredTreasury(t *treasury.Treasury) *storedTreasury {
	stored := &storedTreasury{
		Admin:           t.Admin,
		EpochDuration:   t.EpochDuration,
		SpendingLimit:   t.SpendingLimit,
		TotalFunds:      t.TotalFunds,
		LastEpochStart:  uint64(t.LastEpochStart),
		EpochSpending:   t.EpochSpending,
		NextPayoutIndex: t.NextPayoutIndex,
		IsPaused:        t.IsPaused,
		Bump:            t.Bump,
	}
	if t.GateTokenMint != nil {
		stored.HasGateTokenMint = true
		stored.GateTokenMint = *t.GateTokenMint
	}
	return stored
}

func (s *storedTreasury) toTreasury() *treasury.Treasury {
	record := &treasury.Treasury{
		Admin:           s.Admin,
		EpochDuration:   s.EpochDuration,
		SpendingLimit:   s.SpendingLimit,
		TotalFunds:      s.TotalFunds,
		LastEpochStart:  int64(s.LastEpochStart),
		EpochSpending:   s.EpochSpending,
		NextPayoutIndex: s.NextPayoutIndex,
		IsPaused:        s.IsPaused,
		Bump:            s.Bump,
	}
	if s.HasGateTokenMint {
		mint := s.GateTokenMint
		record.GateTokenMint = &mint
	}
	return record
}

type storedUser struct {
	User     solana.PublicKey
	Treasury solana.PublicKey
	Role     uint8
	IsActive bool
	Bump     uint8
}

func newStoredUser(u *treasury.TreasuryUser) *storedUser {
	return &storedUser{
		User:     u.User,
		Treasury: u.Treasury,
		Role:     uint8(u.Role),
		IsActive: u.IsActive,
		Bump:     u.Bump,
	}
}

func (s *storedUser) toUser() *treasury.TreasuryUser {
	return &treasury.TreasuryUser{
		User:     s.User,
		Treasury: s.Treasury,
		Role:     treasury.Role(s.Role),
		IsActive: s.IsActive,
		Bump:     s.Bump,
	}
}

type storedRecipient struct {
	Recipient solana.PublicKey
	Name      string
	IsActive  bool
	Treasury  solana.PublicKey
	Bump      uint8
}

func newStoredRecipient(r *treasury.WhitelistedRecipient) *storedRecipient {
	return &storedRecipient{
		Recipient: r.Recipient,
		Name:      r.Name,
		IsActive:  r.IsActive,
		Treasury:  r.Treasury,
		Bump:      r.Bump,
	}
}

func (s *storedRecipient) toRecipient() *treasury.WhitelistedRecipient {
	return &treasury.WhitelistedRecipient{
		Recipient: s.Recipient,
		Name:      s.Name,
		IsActive:  s.IsActive,
		Treasury:  s.Treasury,
		Bump:      s.Bump,
	}
}

type storedPayout struct {
	Recipient          solana.PublicKey
	Amount             uint64
	ScheduleTime       uint64
	Recurring          bool
	RecurrenceInterval uint64
	LastExecuted       uint64
	IsActive           bool
	CreatedBy          solana.PublicKey
	Treasury           solana.PublicKey
	Index              uint64
	HasTokenMint       bool
	TokenMint          solana.PublicKey
	Bump               uint8
}

func newStoredPayout(p *treasury.PayoutSchedule) *storedPayout {
	stored := &storedPayout{
		Recipient:          p.Recipient,
		Amount:             p.Amount,
		ScheduleTime:       uint64(p.ScheduleTime),
		Recurring:          p.Recurring,
		RecurrenceInterval: p.RecurrenceInterval,
		LastExecuted:       uint64(p.LastExecuted),
		IsActive:           p.IsActive,
		CreatedBy:          p.CreatedBy,
		Treasury:           p.Treasury,
		Index:              p.Index,
		Bump:               p.Bump,
	}
	if p.TokenMint != nil {
		stored.HasTokenMint = true
		stored.TokenMint = *p.TokenMint
	}
	return stored
}

func (s *storedPayout) toPayout() *treasury.PayoutSchedule {
	record := &treasury.PayoutSchedule{
		Recipient:          s.Recipient,
		Amount:             s.Amount,
		ScheduleTime:       int64(s.ScheduleTime),
		Recurring:          s.Recurring,
		RecurrenceInterval: s.RecurrenceInterval,
		LastExecuted:       int64(s.LastExecuted),
		IsActive:           s.IsActive,
		CreatedBy:          s.CreatedBy,
		Treasury:           s.Treasury,
		Index:              s.Index,
		Bump:               s.Bump,
	}
	if s.HasTokenMint {
		mint := s.TokenMint
		record.TokenMint = &mint
	}
	return record
}

type storedTokenBalance struct {
	Treasury      solana.PublicKey
	TokenMint     solana.PublicKey
	Balance       uint64
	EpochSpending uint64
	EpochStart    uint64
	Bump          uint8
}

func newStoredTokenBalance(b *treasury.TokenBalance) *storedTokenBalance {
	return &storedTokenBalance{
		Treasury:      b.Treasury,
		TokenMint:     b.TokenMint,
		Balance:       b.Balance,
		EpochSpending: b.EpochSpending,
		EpochStart:    uint64(b.EpochStart),
		Bump:          b.Bump,
	}
}

func (s *storedTokenBalance) toTokenBalance() *treasury.TokenBalance {
	return &treasury.TokenBalance{
		Treasury:      s.Treasury,
		TokenMint:     s.TokenMint,
		Balance:       s.Balance,
		EpochSpending: s.EpochSpending,
		EpochStart:    int64(s.EpochStart),
		Bump:          s.Bump,
	}
}

type storedAudit struct {
	Action       uint8
	Treasury     solana.PublicKey
	Initiator    solana.PublicKey
	Amount       uint64
	Timestamp    uint64
	HasTokenMint bool
	TokenMint    solana.PublicKey
	Bump         uint8
}

func newStoredAudit(a *treasury.AuditRecord) *storedAudit {
	stored := &storedAudit{
		Action:    uint8(a.Action),
		Treasury:  a.Treasury,
		Initiator: a.Initiator,
		Amount:    a.Amount,
		Timestamp: uint64(a.Timestamp),
		Bump:      a.Bump,
	}
	if a.TokenMint != nil {
		stored.HasTokenMint = true
		stored.TokenMint = *a.TokenMint
	}
	return stored
}

func (s *storedAudit) toAudit() *treasury.AuditRecord {
	record := &treasury.AuditRecord{
		Action:    treasury.AuditAction(s.Action),
		Treasury:  s.Treasury,
		Initiator: s.Initiator,
		Amount:    s.Amount,
		Timestamp: int64(s.Timestamp),
		Bump:      s.Bump,
	}
	if s.HasTokenMint {
		mint := s.TokenMint
		record.TokenMint = &mint
	}
	return record
}
