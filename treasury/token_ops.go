package treasury

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rainman456/solana-dappTreasury/token"
)

// mapTokenErr translates token-service failures into the treasury taxonomy.
// A transfer against a mint the token program does not know means the caller
// supplied a bogus token account.
func mapTokenErr(err error) error {
	switch {
	case errors.Is(err, token.ErrInsufficientBalance):
		return ErrInsufficientTokenBalance
	case errors.Is(err, token.ErrUnknownMint):
		return ErrInvalidTokenAccount
	case errors.Is(err, token.ErrAmountOverflow):
		return ErrArithmeticOverflow
	}
	return err
}

// loadTokenBalance derives and loads the per-mint custody ledger for the
// treasury. When create is set a missing ledger is initialized with the
// treasury's current epoch marker instead of reported as an error.
func (e *Engine) loadTokenBalance(treasuryAddr solana.PublicKey, t *Treasury, mint solana.PublicKey, create bool) (solana.PublicKey, *TokenBalance, error) {
	addr, bump, err := DeriveTokenBalanceAddress(e.programID, treasuryAddr, mint)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("derive token balance: %w", err)
	}
	record, ok, err := e.state.TokenBalanceGet(addr)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	if !ok {
		if !create {
			return solana.PublicKey{}, nil, ErrTokenBalanceNotFound
		}
		record = &TokenBalance{
			Treasury:   treasuryAddr,
			TokenMint:  mint,
			EpochStart: t.LastEpochStart,
			Bump:       bump,
		}
		return addr, record, nil
	}
	if record.TokenMint != mint || record.Treasury != treasuryAddr {
		return solana.PublicKey{}, nil, ErrInvalidTokenMint
	}
	return addr, record, nil
}

// DepositToken moves token units from the depositor into treasury custody and
// credits the per-mint ledger. Open to any signer, including while paused.
func (e *Engine) DepositToken(depositor, mint solana.PublicKey, amount uint64, timestamp int64) error {
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
	balanceAddr, balance, err := e.loadTokenBalance(addr, t, mint, true)
	if err != nil {
		return err
	}
	if _, err := checkedAdd(balance.Balance, amount); err != nil {
		return err
	}
	if err := e.tokens.Transfer(depositor, addr, mint, amount); err != nil {
		return mapTokenErr(err)
	}
	balance.Balance += amount
	if err := e.state.TokenBalancePut(balanceAddr, balance); err != nil {
		return err
	}
	gateMint := mint
	if err := e.writeAudit(auditAddr, auditBump, AuditTokenDeposit, addr, depositor, amount, timestamp, &gateMint); err != nil {
		return err
	}
	e.emit(newTreasuryEvent(EventTypeTokenDeposit, addr, depositor, amount, timestamp, &gateMint))
	return nil
}

// WithdrawToken disburses token units from treasury custody to a whitelisted
// recipient. The per-mint ledger shares the treasury's epoch window and
// spending limit with the native ledger, each tracking its own spending.
func (e *Engine) WithdrawToken(authority, recipient, mint solana.PublicKey, amount uint64, timestamp int64) error {
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
	balanceAddr, balance, err := e.loadTokenBalance(addr, t, mint, false)
	if err != nil {
		return err
	}
	prevStart, prevSpending := t.LastEpochStart, balance.EpochSpending
	if err := spend(t, tokenLedger(balance), amount, now, ErrInsufficientTokenBalance); err != nil {
		return err
	}
	if err := e.tokens.Transfer(addr, recipient, mint, amount); err != nil {
		return mapTokenErr(err)
	}
	if err := e.state.TreasuryPut(addr, t); err != nil {
		return err
	}
	if err := e.state.TokenBalancePut(balanceAddr, balance); err != nil {
		return err
	}
	auditMint := mint
	if err := e.writeAudit(auditAddr, auditBump, AuditWithdraw, addr, authority, amount, timestamp, &auditMint); err != nil {
		return err
	}
	if t.LastEpochStart != prevStart {
		e.emit(NewEpochResetEvent(addr, prevSpending, now, &auditMint))
	}
	evt := newTreasuryEvent(EventTypeTokenWithdraw, addr, authority, amount, timestamp, &auditMint)
	evt.Attributes["recipient"] = recipient.String()
	e.emit(evt)
	return nil
}
