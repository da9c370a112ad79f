package treasury

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// SchedulePayout registers a one-time or recurring payout to a whitelisted
// recipient. The caller picks the index, which addresses the schedule under
// (recipient, treasury, index); the treasury's next-index watermark advances
// past it.
func (e *Engine) SchedulePayout(authority, recipient solana.PublicKey, amount uint64, scheduleTime int64, recurring bool, recurrenceInterval uint64, tokenMint *solana.PublicKey, index uint64) (*PayoutSchedule, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	addr, t, err := e.loadTreasury()
	if err != nil {
		return nil, err
	}
	if _, err := e.requireRole(addr, authority, RoleTreasurer, ErrUnauthorizedUser); err != nil {
		return nil, err
	}
	if _, err := e.activeRecipient(addr, recipient); err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, ErrInvalidWithdrawAmount
	}
	now := e.now()
	if scheduleTime <= now {
		return nil, ErrInvalidScheduleTime
	}
	if recurring && recurrenceInterval == 0 {
		return nil, ErrInvalidRecurrenceInterval
	}
	if tokenMint != nil && e.tokens == nil {
		return nil, ErrTokenProgramRequired
	}
	payoutAddr, bump, err := DerivePayoutAddress(e.programID, recipient, addr, index)
	if err != nil {
		return nil, fmt.Errorf("derive payout: %w", err)
	}
	if _, ok, err := e.state.PayoutGet(payoutAddr); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrPayoutExists
	}
	if index >= t.NextPayoutIndex {
		next, err := checkedAdd(index, 1)
		if err != nil {
			return nil, err
		}
		t.NextPayoutIndex = next
	}
	payout := &PayoutSchedule{
		Recipient:          recipient,
		Amount:             amount,
		ScheduleTime:       scheduleTime,
		Recurring:          recurring,
		RecurrenceInterval: recurrenceInterval,
		IsActive:           true,
		CreatedBy:          authority,
		Treasury:           addr,
		Index:              index,
		Bump:               bump,
	}
	if tokenMint != nil {
		mint := *tokenMint
		payout.TokenMint = &mint
	}
	if err := e.state.PayoutPut(payoutAddr, payout); err != nil {
		return nil, err
	}
	if err := e.state.TreasuryPut(addr, t); err != nil {
		return nil, err
	}
	e.emit(NewPayoutScheduledEvent(payout, now))
	return payout.Clone(), nil
}

// loadPayout loads an active payout schedule for the recipient and index,
// checking its stored relations against the derivation inputs.
func (e *Engine) loadPayout(treasuryAddr, recipient solana.PublicKey, index uint64) (solana.PublicKey, *PayoutSchedule, error) {
	payoutAddr, _, err := DerivePayoutAddress(e.programID, recipient, treasuryAddr, index)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("derive payout: %w", err)
	}
	payout, ok, err := e.state.PayoutGet(payoutAddr)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	if !ok {
		return solana.PublicKey{}, nil, ErrPayoutNotFound
	}
	if payout.Recipient != recipient || payout.Treasury != treasuryAddr || payout.Index != index {
		return solana.PublicKey{}, nil, ErrPayoutNotFound
	}
	return payoutAddr, payout, nil
}

// checkDue verifies a payout may execute now: active, not already consumed if
// one-time, and inside its due window.
func checkDue(payout *PayoutSchedule, now int64) error {
	if !payout.IsActive {
		return ErrPayoutNotActive
	}
	if !payout.Recurring && payout.LastExecuted > 0 {
		return ErrPayoutAlreadyExecuted
	}
	if !payout.IsDue(now) {
		return ErrPayoutNotDue
	}
	return nil
}

// ExecutePayout runs a due native-denominated payout. The initiator needs
// treasurer capability; the recipient must still be whitelisted and pass the
// token gate when one is set.
func (e *Engine) ExecutePayout(authority, recipient solana.PublicKey, index uint64, timestamp int64) error {
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
	payoutAddr, payout, err := e.loadPayout(addr, recipient, index)
	if err != nil {
		return err
	}
	if payout.TokenMint != nil {
		return ErrInvalidTokenMint
	}
	if err := checkDue(payout, now); err != nil {
		return err
	}
	if err := e.checkGate(t, recipient); err != nil {
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
	if _, err := checkedAdd(recipientBalance, payout.Amount); err != nil {
		return err
	}
	prevStart, prevSpending := t.LastEpochStart, t.EpochSpending
	if err := spend(t, nativeLedger(t), payout.Amount, now, ErrInsufficientFunds); err != nil {
		return err
	}
	payout.LastExecuted = now
	if !payout.Recurring {
		payout.IsActive = false
	}
	if err := e.state.TreasuryPut(addr, t); err != nil {
		return err
	}
	if err := e.state.PayoutPut(payoutAddr, payout); err != nil {
		return err
	}
	if err := e.creditNative(recipient, payout.Amount); err != nil {
		return err
	}
	if err := e.writeAudit(auditAddr, auditBump, AuditWithdraw, addr, authority, payout.Amount, timestamp, nil); err != nil {
		return err
	}
	if t.LastEpochStart != prevStart {
		e.emit(NewEpochResetEvent(addr, prevSpending, now, nil))
	}
	e.emit(NewPayoutExecutedEvent(payout, authority, now))
	return nil
}

// ExecuteTokenPayout runs a due token-denominated payout against the
// schedule's mint ledger.
func (e *Engine) ExecuteTokenPayout(authority, recipient solana.PublicKey, index uint64, timestamp int64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.tokens == nil {
		return ErrTokenProgramRequired
	}
	addr, t, err := e.loadTreasury()
	if err != nil {
		return err
	}
	if t.IsPaused {
		return ErrTreasuryPaused
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
	payoutAddr, payout, err := e.loadPayout(addr, recipient, index)
	if err != nil {
		return err
	}
	if payout.TokenMint == nil {
		return ErrInvalidTokenMint
	}
	if err := checkDue(payout, now); err != nil {
		return err
	}
	if err := e.checkGate(t, recipient); err != nil {
		return err
	}
	auditAddr, auditBump, err := e.checkAuditSlot(addr, timestamp, authority)
	if err != nil {
		return err
	}
	mint := *payout.TokenMint
	balanceAddr, balance, err := e.loadTokenBalance(addr, t, mint, false)
	if err != nil {
		return err
	}
	prevStart, prevSpending := t.LastEpochStart, balance.EpochSpending
	if err := spend(t, tokenLedger(balance), payout.Amount, now, ErrInsufficientTokenBalance); err != nil {
		return err
	}
	if err := e.tokens.Transfer(addr, recipient, mint, payout.Amount); err != nil {
		return mapTokenErr(err)
	}
	payout.LastExecuted = now
	if !payout.Recurring {
		payout.IsActive = false
	}
	if err := e.state.TreasuryPut(addr, t); err != nil {
		return err
	}
	if err := e.state.TokenBalancePut(balanceAddr, balance); err != nil {
		return err
	}
	if err := e.state.PayoutPut(payoutAddr, payout); err != nil {
		return err
	}
	if err := e.writeAudit(auditAddr, auditBump, AuditTokenPayout, addr, authority, payout.Amount, timestamp, &mint); err != nil {
		return err
	}
	if t.LastEpochStart != prevStart {
		e.emit(NewEpochResetEvent(addr, prevSpending, now, &mint))
	}
	e.emit(NewPayoutExecutedEvent(payout, authority, now))
	return nil
}

// CancelPayout deactivates a schedule. The record is kept for its history;
// cancelling an already inactive schedule is rejected.
func (e *Engine) CancelPayout(authority, recipient solana.PublicKey, index uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	addr, _, err := e.loadTreasury()
	if err != nil {
		return err
	}
	if _, err := e.requireRole(addr, authority, RoleTreasurer, ErrUnauthorizedUser); err != nil {
		return err
	}
	payoutAddr, payout, err := e.loadPayout(addr, recipient, index)
	if err != nil {
		return err
	}
	if !payout.IsActive {
		return ErrPayoutNotActive
	}
	payout.IsActive = false
	if err := e.state.PayoutPut(payoutAddr, payout); err != nil {
		return err
	}
	e.emit(NewPayoutCancelledEvent(payout, authority, e.now()))
	return nil
}
