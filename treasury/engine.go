package treasury

import (
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rainman456/solana-dappTreasury/events"
	"github.com/rainman456/solana-dappTreasury/token"
)

var (
	errNilState  = errors.New("treasury engine: state not configured")
	errNilTokens = errors.New("treasury engine: token service not configured")
)

// State abstracts the account store the engine runs against. Every getter
// returns a clone; mutations become visible only through the matching put.
type State interface {
	TreasuryGet(addr solana.PublicKey) (*Treasury, bool, error)
	TreasuryPut(addr solana.PublicKey, record *Treasury) error
	UserGet(addr solana.PublicKey) (*TreasuryUser, bool, error)
	UserPut(addr solana.PublicKey, record *TreasuryUser) error
	RecipientGet(addr solana.PublicKey) (*WhitelistedRecipient, bool, error)
	RecipientPut(addr solana.PublicKey, record *WhitelistedRecipient) error
	PayoutGet(addr solana.PublicKey) (*PayoutSchedule, bool, error)
	PayoutPut(addr solana.PublicKey, record *PayoutSchedule) error
	TokenBalanceGet(addr solana.PublicKey) (*TokenBalance, bool, error)
	TokenBalancePut(addr solana.PublicKey, record *TokenBalance) error
	AuditGet(addr solana.PublicKey) (*AuditRecord, bool, error)
	AuditPut(addr solana.PublicKey, record *AuditRecord) error
	AuditIndexAppend(treasuryAddr, auditAddr solana.PublicKey) error
	NativeBalance(addr solana.PublicKey) (uint64, error)
	SetNativeBalance(addr solana.PublicKey, amount uint64) error
}

// Engine wires the treasury state machine with external state, the token
// service and an event emitter. Instructions execute one at a time to
// completion; every check runs before any mutation is persisted, so a failing
// instruction leaves state untouched.
type Engine struct {
	state     State
	tokens    token.Service
	emitter   events.Emitter
	nowFn     func() int64
	programID solana.PublicKey
}

// NewEngine creates a treasury engine for the given program identity with a
// no-op emitter and the wall clock as time source.
func NewEngine(programID solana.PublicKey) *Engine {
	return &Engine{
		emitter:   events.NoopEmitter{},
		nowFn:     func() int64 { return time.Now().Unix() },
		programID: programID,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetTokens configures the token service invoked for token-denominated
// operations and gate checks.
func (e *Engine) SetTokens(svc token.Service) { e.tokens = svc }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source. Primarily intended for tests to
// provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// ProgramID returns the program identity the engine derives addresses for.
func (e *Engine) ProgramID() solana.PublicKey { return e.programID }

func (e *Engine) emit(event *events.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(event)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// loadTreasury derives the treasury address and loads the record.
func (e *Engine) loadTreasury() (solana.PublicKey, *Treasury, error) {
	if e == nil || e.state == nil {
		return solana.PublicKey{}, nil, errNilState
	}
	addr, _, err := DeriveTreasuryAddress(e.programID)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("derive treasury: %w", err)
	}
	record, ok, err := e.state.TreasuryGet(addr)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	if !ok {
		return solana.PublicKey{}, nil, ErrTreasuryNotFound
	}
	return addr, record, nil
}

// requireRole loads the signer's role binding for the treasury and verifies
// the stored relations and capability. roleErr is returned when the binding
// exists and is active but the role is insufficient.
func (e *Engine) requireRole(treasuryAddr solana.PublicKey, signer solana.PublicKey, required Role, roleErr error) (*TreasuryUser, error) {
	userAddr, _, err := DeriveUserAddress(e.programID, signer, treasuryAddr)
	if err != nil {
		return nil, fmt.Errorf("derive user: %w", err)
	}
	record, ok, err := e.state.UserGet(userAddr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnauthorizedUser
	}
	if record.User != signer || record.Treasury != treasuryAddr || !record.IsActive {
		return nil, ErrUnauthorizedUser
	}
	if !record.HasPermission(required) {
		return nil, roleErr
	}
	return record, nil
}

// activeRecipient loads the whitelist entry for the recipient and verifies it
// is bound to the treasury and active.
func (e *Engine) activeRecipient(treasuryAddr, recipient solana.PublicKey) (*WhitelistedRecipient, error) {
	addr, _, err := DeriveRecipientAddress(e.programID, recipient, treasuryAddr)
	if err != nil {
		return nil, fmt.Errorf("derive recipient: %w", err)
	}
	record, ok, err := e.state.RecipientGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok || record.Recipient != recipient || record.Treasury != treasuryAddr {
		return nil, ErrRecipientNotWhitelisted
	}
	if !record.IsActive {
		return nil, ErrRecipientNotActive
	}
	return record, nil
}

// checkAuditSlot verifies the (treasury, timestamp, initiator) audit key is
// unoccupied and returns the derived address and bump. Two actions by the
// same initiator at the identical timestamp collide; the second is rejected.
func (e *Engine) checkAuditSlot(treasuryAddr solana.PublicKey, timestamp int64, initiator solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := DeriveAuditAddress(e.programID, treasuryAddr, timestamp, initiator)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive audit: %w", err)
	}
	_, ok, err := e.state.AuditGet(addr)
	if err != nil {
		return solana.PublicKey{}, 0, err
	}
	if ok {
		return solana.PublicKey{}, 0, ErrAuditRecordExists
	}
	return addr, bump, nil
}

// writeAudit persists an audit record at the pre-checked slot and links it
// into the treasury's audit index.
func (e *Engine) writeAudit(addr solana.PublicKey, bump uint8, action AuditAction, treasuryAddr, initiator solana.PublicKey, amount uint64, timestamp int64, mint *solana.PublicKey) error {
	record := &AuditRecord{
		Action:    action,
		Treasury:  treasuryAddr,
		Initiator: initiator,
		Amount:    amount,
		Timestamp: timestamp,
		TokenMint: mint,
		Bump:      bump,
	}
	if err := e.state.AuditPut(addr, record); err != nil {
		return err
	}
	return e.state.AuditIndexAppend(treasuryAddr, addr)
}

// creditNative adds amount to an external account's native balance.
func (e *Engine) creditNative(addr solana.PublicKey, amount uint64) error {
	balance, err := e.state.NativeBalance(addr)
	if err != nil {
		return err
	}
	next, err := checkedAdd(balance, amount)
	if err != nil {
		return err
	}
	return e.state.SetNativeBalance(addr, next)
}

// debitNative removes amount from an external account's native balance,
// reporting insufficient funds when the balance cannot cover it.
func (e *Engine) debitNative(addr solana.PublicKey, amount uint64) error {
	balance, err := e.state.NativeBalance(addr)
	if err != nil {
		return err
	}
	if balance < amount {
		return ErrInsufficientFunds
	}
	return e.state.SetNativeBalance(addr, balance-amount)
}

// checkGate enforces the treasury's token gate against the recipient. The
// gate passes when the recipient holds at least one unit of the gate mint.
func (e *Engine) checkGate(t *Treasury, recipient solana.PublicKey) error {
	if t.GateTokenMint == nil {
		return nil
	}
	if e.tokens == nil {
		return ErrTokenProgramRequired
	}
	held, err := e.tokens.BalanceOf(recipient, *t.GateTokenMint)
	if err != nil || held == 0 {
		return ErrTokenGateCheckFailed
	}
	return nil
}

// InitializeTreasury creates the treasury record and binds the caller as its
// first admin.
func (e *Engine) InitializeTreasury(admin solana.PublicKey, epochDuration, spendingLimit uint64) (*Treasury, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if epochDuration == 0 {
		return nil, ErrInvalidEpochDuration
	}
	if epochDuration < MinEpochDuration {
		return nil, ErrEpochDurationTooShort
	}
	if spendingLimit == 0 {
		return nil, ErrInvalidSpendingLimit
	}
	addr, bump, err := DeriveTreasuryAddress(e.programID)
	if err != nil {
		return nil, fmt.Errorf("derive treasury: %w", err)
	}
	if _, ok, err := e.state.TreasuryGet(addr); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrTreasuryExists
	}
	userAddr, userBump, err := DeriveUserAddress(e.programID, admin, addr)
	if err != nil {
		return nil, fmt.Errorf("derive user: %w", err)
	}
	now := e.now()
	record := &Treasury{
		Admin:          admin,
		EpochDuration:  epochDuration,
		SpendingLimit:  spendingLimit,
		LastEpochStart: now,
		Bump:           bump,
	}
	adminUser := &TreasuryUser{
		User:     admin,
		Treasury: addr,
		Role:     RoleAdmin,
		IsActive: true,
		Bump:     userBump,
	}
	if err := e.state.TreasuryPut(addr, record); err != nil {
		return nil, err
	}
	if err := e.state.UserPut(userAddr, adminUser); err != nil {
		return nil, err
	}
	e.emit(newTreasuryEvent(EventTypeTreasuryInitialized, addr, admin, 0, now, nil))
	return record.Clone(), nil
}

// Deposit moves native currency from the depositor into treasury custody.
// Deposits are open to any signer.
func (e *Engine) Deposit(depositor solana.PublicKey, amount uint64, timestamp int64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	addr, t, err := e.loadTreasury()
	if err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidDepositAmount
	}
	now := e.now()
	if timestamp > now {
		return ErrInvalidTimestamp
	}
	auditAddr, auditBump, err := e.checkAuditSlot(addr, timestamp, depositor)
	if err != nil {
		return err
	}
	if _, err := checkedAdd(t.TotalFunds, amount); err != nil {
		return err
	}
	if err := e.debitNative(depositor, amount); err != nil {
		return err
	}
	t.TotalFunds += amount
	if err := e.state.TreasuryPut(addr, t); err != nil {
		return err
	}
	if err := e.writeAudit(auditAddr, auditBump, AuditDeposit, addr, depositor, amount, timestamp, nil); err != nil {
		return err
	}
	e.emit(newTreasuryEvent(EventTypeDeposit, addr, depositor, amount, timestamp, nil))
	return nil
}

// Withdraw disburses native currency to a whitelisted recipient, subject to
// role, pause, epoch-window and balance checks.
func (e *Engine) Withdraw(authority, recipient solana.PublicKey, amount uint64, timestamp int64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	addr, t, err := e.loadTreasury()
	if err != nil {
		return err
	}
	if t.IsPaused {
		return ErrTreasuryPaused
	}
	if amount == 0 {
		return ErrInvalidWithdrawAmount
	}
	now := e.now()
	if timestamp > now {
		return ErrInvalidTimestamp
	}
	if _, err := e.requireRole(addr, authority, RoleTreasurer, ErrUnauthorizedUser); err != nil {
		return err
	}
	if _, err := e.activeRecipient(addr, recipient); err != nil {
		return err
	}
	auditAddr, auditBump, err := e.checkAuditSlot(addr, timestamp, authority)
	if err != nil {
		return err
	}
	recipientBalance, err := e.state.NativeBalance(recipient)
	if err != nil {
		return err
	}
	if _, err := checkedAdd(recipientBalance, amount); err != nil {
		return err
	}
	prevStart, prevSpending := t.LastEpochStart, t.EpochSpending
	if err := spend(t, nativeLedger(t), amount, now, ErrInsufficientFunds); err != nil {
		return err
	}
	if err := e.state.TreasuryPut(addr, t); err != nil {
		return err
	}
	if err := e.creditNative(recipient, amount); err != nil {
		return err
	}
	if err := e.writeAudit(auditAddr, auditBump, AuditWithdraw, addr, authority, amount, timestamp, nil); err != nil {
		return err
	}
	if t.LastEpochStart != prevStart {
		e.emit(NewEpochResetEvent(addr, prevSpending, now, nil))
	}
	evt := newTreasuryEvent(EventTypeWithdraw, addr, authority, amount, timestamp, nil)
	evt.Attributes["recipient"] = recipient.String()
	e.emit(evt)
	return nil
}

// UpdateTreasuryConfig updates the epoch duration and/or spending limit.
// Either field may be nil to leave it unchanged.
func (e *Engine) UpdateTreasuryConfig(admin solana.PublicKey, epochDuration, spendingLimit *uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	addr, t, err := e.loadTreasury()
	if err != nil {
		return err
	}
	if _, err := e.requireRole(addr, admin, RoleAdmin, ErrUnauthorizedConfigUpdate); err != nil {
		return err
	}
	durationChanged := false
	if epochDuration != nil {
		if *epochDuration == 0 {
			return ErrInvalidEpochDuration
		}
		if *epochDuration < MinEpochDuration {
			return ErrEpochDurationTooShort
		}
		durationChanged = t.EpochDuration != *epochDuration
		t.EpochDuration = *epochDuration
	}
	if spendingLimit != nil {
		if *spendingLimit == 0 {
			return ErrInvalidSpendingLimit
		}
		t.SpendingLimit = *spendingLimit
	}
	if err := e.state.TreasuryPut(addr, t); err != nil {
		return err
	}
	now := e.now()
	evt := newTreasuryEvent(EventTypeConfigUpdated, addr, admin, 0, now, nil)
	if epochDuration != nil {
		evt.Attributes["epochDuration"] = fmt.Sprintf("%d", *epochDuration)
	}
	if spendingLimit != nil {
		evt.Attributes["spendingLimit"] = fmt.Sprintf("%d", *spendingLimit)
	}
	if durationChanged {
		evt.Attributes["action"] = AuditEpochDurationUpdated.String()
	}
	e.emit(evt)
	return nil
}

// AddTreasuryUser creates or reactivates the role binding for a user. Only
// the stored treasury admin may manage user bindings.
func (e *Engine) AddTreasuryUser(admin, user solana.PublicKey, role Role) (*TreasuryUser, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	addr, t, err := e.loadTreasury()
	if err != nil {
		return nil, err
	}
	if t.Admin != admin {
		return nil, ErrUnauthorizedUser
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	userAddr, bump, err := DeriveUserAddress(e.programID, user, addr)
	if err != nil {
		return nil, fmt.Errorf("derive user: %w", err)
	}
	record, ok, err := e.state.UserGet(userAddr)
	if err != nil {
		return nil, err
	}
	if !ok {
		record = &TreasuryUser{User: user, Treasury: addr, Bump: bump}
	}
	record.Role = role
	record.IsActive = true
	if err := e.state.UserPut(userAddr, record); err != nil {
		return nil, err
	}
	evt := newTreasuryEvent(EventTypeUserAdded, addr, admin, 0, e.now(), nil)
	evt.Attributes["user"] = user.String()
	evt.Attributes["role"] = role.String()
	e.emit(evt)
	return record.Clone(), nil
}

// RemoveTreasuryUser deactivates the role binding for a user. The record is
// kept so the one-record-per-pair invariant holds.
func (e *Engine) RemoveTreasuryUser(admin, user solana.PublicKey) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	addr, t, err := e.loadTreasury()
	if err != nil {
		return err
	}
	if t.Admin != admin {
		return ErrUnauthorizedUser
	}
	userAddr, _, err := DeriveUserAddress(e.programID, user, addr)
	if err != nil {
		return fmt.Errorf("derive user: %w", err)
	}
	record, ok, err := e.state.UserGet(userAddr)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	record.IsActive = false
	if err := e.state.UserPut(userAddr, record); err != nil {
		return err
	}
	evt := newTreasuryEvent(EventTypeUserRemoved, addr, admin, 0, e.now(), nil)
	evt.Attributes["user"] = user.String()
	e.emit(evt)
	return nil
}

// AddWhitelistedRecipient approves a destination for payouts. Admin only.
func (e *Engine) AddWhitelistedRecipient(admin, recipient solana.PublicKey, name string) (*WhitelistedRecipient, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	addr, _, err := e.loadTreasury()
	if err != nil {
		return nil, err
	}
	if _, err := e.requireRole(addr, admin, RoleAdmin, ErrUnauthorizedUser); err != nil {
		return nil, err
	}
	if len(name) > MaxRecipientNameLen {
		return nil, ErrInvalidRecipientName
	}
	recipientAddr, bump, err := DeriveRecipientAddress(e.programID, recipient, addr)
	if err != nil {
		return nil, fmt.Errorf("derive recipient: %w", err)
	}
	record, ok, err := e.state.RecipientGet(recipientAddr)
	if err != nil {
		return nil, err
	}
	if !ok {
		record = &WhitelistedRecipient{Recipient: recipient, Treasury: addr, Bump: bump}
	}
	record.Name = name
	record.IsActive = true
	if err := e.state.RecipientPut(recipientAddr, record); err != nil {
		return nil, err
	}
	evt := newTreasuryEvent(EventTypeRecipientAdded, addr, admin, 0, e.now(), nil)
	evt.Attributes["recipient"] = recipient.String()
	evt.Attributes["name"] = name
	e.emit(evt)
	return record.Clone(), nil
}

// RemoveWhitelistedRecipient deactivates a whitelist entry. Admin only.
func (e *Engine) RemoveWhitelistedRecipient(admin, recipient solana.PublicKey) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	addr, _, err := e.loadTreasury()
	if err != nil {
		return err
	}
	if _, err := e.requireRole(addr, admin, RoleAdmin, ErrUnauthorizedUser); err != nil {
		return err
	}
	recipientAddr, _, err := DeriveRecipientAddress(e.programID, recipient, addr)
	if err != nil {
		return fmt.Errorf("derive recipient: %w", err)
	}
	record, ok, err := e.state.RecipientGet(recipientAddr)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRecipientNotWhitelisted
	}
	record.IsActive = false
	if err := e.state.RecipientPut(recipientAddr, record); err != nil {
		return err
	}
	evt := newTreasuryEvent(EventTypeRecipientRemoved, addr, admin, 0, e.now(), nil)
	evt.Attributes["recipient"] = recipient.String()
	e.emit(evt)
	return nil
}

// PauseTreasury blocks withdrawals and payout execution. Admin only.
func (e *Engine) PauseTreasury(admin solana.PublicKey) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	addr, t, err := e.loadTreasury()
	if err != nil {
		return err
	}
	if _, err := e.requireRole(addr, admin, RoleAdmin, ErrUnauthorizedPauseAction); err != nil {
		return err
	}
	if t.IsPaused {
		return ErrTreasuryAlreadyPaused
	}
	t.IsPaused = true
	if err := e.state.TreasuryPut(addr, t); err != nil {
		return err
	}
	e.emit(newTreasuryEvent(EventTypeTreasuryPaused, addr, admin, 0, e.now(), nil))
	return nil
}

// UnpauseTreasury lifts the pause switch. Admin only.
func (e *Engine) UnpauseTreasury(admin solana.PublicKey) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	addr, t, err := e.loadTreasury()
	if err != nil {
		return err
	}
	if _, err := e.requireRole(addr, admin, RoleAdmin, ErrUnauthorizedPauseAction); err != nil {
		return err
	}
	if !t.IsPaused {
		return ErrTreasuryAlreadyUnpaused
	}
	t.IsPaused = false
	if err := e.state.TreasuryPut(addr, t); err != nil {
		return err
	}
	e.emit(newTreasuryEvent(EventTypeTreasuryUnpaused, addr, admin, 0, e.now(), nil))
	return nil
}

// SetTokenGate sets or clears the mint recipients must hold for payouts to
// execute. Admin only; a nil mint clears the gate.
func (e *Engine) SetTokenGate(admin solana.PublicKey, mint *solana.PublicKey) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	addr, t, err := e.loadTreasury()
	if err != nil {
		return err
	}
	if _, err := e.requireRole(addr, admin, RoleAdmin, ErrUnauthorizedConfigUpdate); err != nil {
		return err
	}
	if mint != nil {
		gate := *mint
		t.GateTokenMint = &gate
	} else {
		t.GateTokenMint = nil
	}
	if err := e.state.TreasuryPut(addr, t); err != nil {
		return err
	}
	e.emit(newTreasuryEvent(EventTypeTokenGateSet, addr, admin, 0, e.now(), t.GateTokenMint))
	return nil
}
