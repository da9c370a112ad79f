package treasury

import (
	"github.com/gagliardetto/solana-go"
)

// MinEpochDuration is the protocol minimum for the rolling spending window, in
// seconds (one hour).
const MinEpochDuration uint64 = 3600

// MaxRecipientNameLen bounds the display name stored for a whitelisted
// recipient.
const MaxRecipientNameLen = 32

// Role encodes the capability level bound to a treasury user.
type Role uint8

const (
	RoleAdmin     Role = 0
	RoleTreasurer Role = 1
)

// Valid reports whether the role value is within the supported range.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTreasurer:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleTreasurer:
		return "treasurer"
	default:
		return "unknown"
	}
}

// AuditAction identifies the operation recorded by an audit entry.
type AuditAction uint8

const (
	AuditDeposit              AuditAction = 0
	AuditWithdraw             AuditAction = 1
	AuditSchedulePayout       AuditAction = 2
	AuditExecutePayout        AuditAction = 3
	AuditCancelPayout         AuditAction = 4
	AuditAddUser              AuditAction = 5
	AuditAddRecipient         AuditAction = 6
	AuditPauseTreasury        AuditAction = 7
	AuditUnpauseTreasury      AuditAction = 8
	AuditSpendingLimitReset   AuditAction = 9
	AuditTokenGateSet         AuditAction = 10
	AuditEpochDurationUpdated AuditAction = 11
	AuditTokenDeposit         AuditAction = 12
	AuditTokenPayout          AuditAction = 13
)

// Valid reports whether the action value is within the supported range.
func (a AuditAction) Valid() bool {
	return a <= AuditTokenPayout
}

func (a AuditAction) String() string {
	switch a {
	case AuditDeposit:
		return "deposit"
	case AuditWithdraw:
		return "withdraw"
	case AuditSchedulePayout:
		return "schedule_payout"
	case AuditExecutePayout:
		return "execute_payout"
	case AuditCancelPayout:
		return "cancel_payout"
	case AuditAddUser:
		return "add_user"
	case AuditAddRecipient:
		return "add_recipient"
	case AuditPauseTreasury:
		return "pause_treasury"
	case AuditUnpauseTreasury:
		return "unpause_treasury"
	case AuditSpendingLimitReset:
		return "spending_limit_reset"
	case AuditTokenGateSet:
		return "token_gate_set"
	case AuditEpochDurationUpdated:
		return "epoch_duration_updated"
	case AuditTokenDeposit:
		return "token_deposit"
	case AuditTokenPayout:
		return "token_payout"
	default:
		return "unknown"
	}
}

// Treasury is the root configuration and native-currency ledger of the vault.
// The epoch window (`LastEpochStart`, `EpochDuration`, `SpendingLimit`) bounds
// cumulative spend per asset ledger; `EpochSpending` is the native ledger's
// usage within the current window.
type Treasury struct {
	Admin           solana.PublicKey
	EpochDuration   uint64
	SpendingLimit   uint64
	TotalFunds      uint64
	LastEpochStart  int64
	EpochSpending   uint64
	NextPayoutIndex uint64
	IsPaused        bool
	GateTokenMint   *solana.PublicKey
	Bump            uint8
}

// Clone returns a deep copy so callers can safely mutate the copy without
// affecting the stored instance.
func (t *Treasury) Clone() *Treasury {
	if t == nil {
		return nil
	}
	clone := *t
	if t.GateTokenMint != nil {
		mint := *t.GateTokenMint
		clone.GateTokenMint = &mint
	}
	return &clone
}

// NextIndex returns the current payout index and advances the counter.
func (t *Treasury) NextIndex() (uint64, error) {
	index := t.NextPayoutIndex
	next, err := checkedAdd(t.NextPayoutIndex, 1)
	if err != nil {
		return 0, err
	}
	t.NextPayoutIndex = next
	return index, nil
}

// TreasuryUser binds a user public key to a role within a treasury. Exactly
// one record exists per (treasury, user) pair; removal deactivates the record
// rather than deleting it.
type TreasuryUser struct {
	User     solana.PublicKey
	Treasury solana.PublicKey
	Role     Role
	IsActive bool
	Bump     uint8
}

// Clone returns a copy of the user record.
func (u *TreasuryUser) Clone() *TreasuryUser {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

// IsAdmin reports whether the record carries an active admin binding.
func (u *TreasuryUser) IsAdmin() bool {
	return u != nil && u.IsActive && u.Role == RoleAdmin
}

// HasPermission reports whether the record satisfies the required capability.
// Admins satisfy every requirement; treasurers satisfy treasurer-level
// requirements only.
func (u *TreasuryUser) HasPermission(required Role) bool {
	if u == nil || !u.IsActive {
		return false
	}
	switch required {
	case RoleAdmin:
		return u.Role == RoleAdmin
	case RoleTreasurer:
		return u.Role == RoleAdmin || u.Role == RoleTreasurer
	default:
		return false
	}
}

// WhitelistedRecipient marks a destination as pre-approved for payouts from a
// treasury.
type WhitelistedRecipient struct {
	Recipient solana.PublicKey
	Name      string
	IsActive  bool
	Treasury  solana.PublicKey
	Bump      uint8
}

// Clone returns a copy of the recipient record.
func (w *WhitelistedRecipient) Clone() *WhitelistedRecipient {
	if w == nil {
		return nil
	}
	clone := *w
	return &clone
}

// PayoutSchedule describes a one-time or recurring disbursement. A nil
// TokenMint denotes a native-currency payout.
type PayoutSchedule struct {
	Recipient          solana.PublicKey
	Amount             uint64
	ScheduleTime       int64
	Recurring          bool
	RecurrenceInterval uint64
	LastExecuted       int64
	IsActive           bool
	CreatedBy          solana.PublicKey
	Treasury           solana.PublicKey
	Index              uint64
	TokenMint          *solana.PublicKey
	Bump               uint8
}

// Clone returns a deep copy of the schedule.
func (p *PayoutSchedule) Clone() *PayoutSchedule {
	if p == nil {
		return nil
	}
	clone := *p
	if p.TokenMint != nil {
		mint := *p.TokenMint
		clone.TokenMint = &mint
	}
	return &clone
}

// IsDue reports whether the schedule may execute at the supplied time. For
// recurring schedules a full recurrence interval must have elapsed since the
// previous execution; one-time schedules are due once their schedule time has
// passed and they have not executed yet.
func (p *PayoutSchedule) IsDue(now int64) bool {
	if p == nil || !p.IsActive {
		return false
	}
	if p.Recurring {
		if p.LastExecuted == 0 {
			return now >= p.ScheduleTime
		}
		return now >= p.LastExecuted+int64(p.RecurrenceInterval)
	}
	return now >= p.ScheduleTime && p.LastExecuted == 0
}

// TokenBalance is the per-mint custody ledger of a treasury. EpochStart marks
// the epoch window this ledger last spent under so a ledger untouched for a
// whole epoch still resets its spending on the next use.
type TokenBalance struct {
	Treasury      solana.PublicKey
	TokenMint     solana.PublicKey
	Balance       uint64
	EpochSpending uint64
	EpochStart    int64
	Bump          uint8
}

// Clone returns a copy of the token balance record.
func (b *TokenBalance) Clone() *TokenBalance {
	if b == nil {
		return nil
	}
	clone := *b
	return &clone
}

// AuditRecord is an append-only entry describing a funds-moving action. The
// record address is derived from (treasury, timestamp, initiator), so one
// initiator records at most one action per exact timestamp.
type AuditRecord struct {
	Action    AuditAction
	Treasury  solana.PublicKey
	Initiator solana.PublicKey
	Amount    uint64
	Timestamp int64
	TokenMint *solana.PublicKey
	Bump      uint8
}

// Clone returns a deep copy of the audit record.
func (a *AuditRecord) Clone() *AuditRecord {
	if a == nil {
		return nil
	}
	clone := *a
	if a.TokenMint != nil {
		mint := *a.TokenMint
		clone.TokenMint = &mint
	}
	return &clone
}
