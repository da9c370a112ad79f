// Package program decodes instruction payloads, re-derives the program
// addresses implied by the arguments, checks them against the caller-supplied
// accounts and dispatches to the treasury engine.
package program

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"

	"github.com/rainman456/solana-dappTreasury/observability"
	"github.com/rainman456/solana-dappTreasury/treasury"
)

var (
	ErrEmptyInstruction   = errors.New("program: empty instruction data")
	ErrUnknownInstruction = errors.New("program: unknown instruction tag")
	ErrAccountMismatch    = errors.New("program: account does not match derivation")
	ErrNilEngine          = errors.New("program: engine not configured")
)

// InstructionTag is the first byte of every instruction payload.
type InstructionTag uint8

const (
	TagInitializeTreasury InstructionTag = iota
	TagDeposit
	TagWithdraw
	TagDepositToken
	TagWithdrawToken
	TagAddTreasuryUser
	TagRemoveTreasuryUser
	TagAddWhitelistedRecipient
	TagRemoveWhitelistedRecipient
	TagSchedulePayout
	TagExecutePayout
	TagExecuteTokenPayout
	TagCancelPayout
	TagUpdateTreasuryConfig
	TagPauseTreasury
	TagUnpauseTreasury
	TagSetTokenGate
)

func (t InstructionTag) String() string {
	switch t {
	case TagInitializeTreasury:
		return "initialize_treasury"
	case TagDeposit:
		return "deposit"
	case TagWithdraw:
		return "withdraw"
	case TagDepositToken:
		return "deposit_token"
	case TagWithdrawToken:
		return "withdraw_token"
	case TagAddTreasuryUser:
		return "add_treasury_user"
	case TagRemoveTreasuryUser:
		return "remove_treasury_user"
	case TagAddWhitelistedRecipient:
		return "add_whitelisted_recipient"
	case TagRemoveWhitelistedRecipient:
		return "remove_whitelisted_recipient"
	case TagSchedulePayout:
		return "schedule_payout"
	case TagExecutePayout:
		return "execute_payout"
	case TagExecuteTokenPayout:
		return "execute_token_payout"
	case TagCancelPayout:
		return "cancel_payout"
	case TagUpdateTreasuryConfig:
		return "update_treasury_config"
	case TagPauseTreasury:
		return "pause_treasury"
	case TagUnpauseTreasury:
		return "unpause_treasury"
	case TagSetTokenGate:
		return "set_token_gate"
	default:
		return "unknown"
	}
}

// Instruction argument shapes, borsh-encoded after the tag byte. Pointer
// fields carry borsh's one-byte option flag.

type InitializeTreasuryArgs struct {
	EpochDuration uint64
	SpendingLimit uint64
}

type DepositArgs struct {
	Amount    uint64
	Timestamp int64
}

type WithdrawArgs struct {
	Recipient solana.PublicKey
	Amount    uint64
	Timestamp int64
}

type DepositTokenArgs struct {
	Mint      solana.PublicKey
	Amount    uint64
	Timestamp int64
}

type WithdrawTokenArgs struct {
	Recipient solana.PublicKey
	Mint      solana.PublicKey
	Amount    uint64
	Timestamp int64
}

type AddTreasuryUserArgs struct {
	User solana.PublicKey
	Role uint8
}

type RemoveTreasuryUserArgs struct {
	User solana.PublicKey
}

type AddWhitelistedRecipientArgs struct {
	Recipient solana.PublicKey
	Name      string
}

type RemoveWhitelistedRecipientArgs struct {
	Recipient solana.PublicKey
}

type SchedulePayoutArgs struct {
	Recipient          solana.PublicKey
	Amount             uint64
	ScheduleTime       int64
	Recurring          bool
	RecurrenceInterval uint64
	TokenMint          *solana.PublicKey
	Index              uint64
}

type ExecutePayoutArgs struct {
	Recipient solana.PublicKey
	Index     uint64
	Timestamp int64
}

type CancelPayoutArgs struct {
	Recipient solana.PublicKey
	Index     uint64
}

type UpdateTreasuryConfigArgs struct {
	EpochDuration *uint64
	SpendingLimit *uint64
}

type SetTokenGateArgs struct {
	Mint *solana.PublicKey
}

// Accounts carries the caller's claimed derived addresses. Zero-value fields
// are treated as omitted; supplied fields must match the derivation implied
// by the instruction arguments.
type Accounts struct {
	Treasury     solana.PublicKey
	User         solana.PublicKey
	Recipient    solana.PublicKey
	Payout       solana.PublicKey
	TokenBalance solana.PublicKey
}

// Dispatcher validates and routes instruction payloads to the engine.
type Dispatcher struct {
	engine  *treasury.Engine
	logger  *slog.Logger
	metrics *observability.InstructionMetrics
}

// NewDispatcher wires a dispatcher around the engine. A nil logger falls back
// to slog's default.
func NewDispatcher(engine *treasury.Engine, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		engine:  engine,
		logger:  logger.With("component", "program"),
		metrics: observability.Instructions(),
	}
}

// Execute decodes one instruction and runs it as the given signer.
func (d *Dispatcher) Execute(signer solana.PublicKey, data []byte, accounts Accounts) error {
	if d == nil || d.engine == nil {
		return ErrNilEngine
	}
	if len(data) == 0 {
		return ErrEmptyInstruction
	}
	tag := InstructionTag(data[0])
	started := time.Now()
	err := d.dispatch(tag, signer, data[1:], accounts)
	d.metrics.Observe(tag.String(), err, time.Since(started))
	if err != nil {
		d.logger.Warn("instruction failed", "instruction", tag.String(), "signer", signer.String(), "error", err)
		return err
	}
	d.logger.Info("instruction executed", "instruction", tag.String(), "signer", signer.String())
	return nil
}

func decodeArgs[T any](data []byte) (*T, error) {
	var args T
	if err := borsh.Deserialize(&args, data); err != nil {
		return nil, fmt.Errorf("program: decode args: %w", err)
	}
	return &args, nil
}

// checkAccount compares a caller-supplied address against the derived one.
// Omitted (zero) accounts pass; the derivation itself is still authoritative
// downstream.
func checkAccount(supplied, derived solana.PublicKey) error {
	if supplied.IsZero() {
		return nil
	}
	if supplied != derived {
		return ErrAccountMismatch
	}
	return nil
}

func (d *Dispatcher) verifyCommon(signer solana.PublicKey, accounts Accounts, recipient *solana.PublicKey, payoutIndex *uint64, mint *solana.PublicKey) error {
	programID := d.engine.ProgramID()
	treasuryAddr, _, err := treasury.DeriveTreasuryAddress(programID)
	if err != nil {
		return err
	}
	if err := checkAccount(accounts.Treasury, treasuryAddr); err != nil {
		return err
	}
	if !accounts.User.IsZero() {
		userAddr, _, err := treasury.DeriveUserAddress(programID, signer, treasuryAddr)
		if err != nil {
			return err
		}
		if err := checkAccount(accounts.User, userAddr); err != nil {
			return err
		}
	}
	if recipient != nil && !accounts.Recipient.IsZero() {
		recipientAddr, _, err := treasury.DeriveRecipientAddress(programID, *recipient, treasuryAddr)
		if err != nil {
			return err
		}
		if err := checkAccount(accounts.Recipient, recipientAddr); err != nil {
			return err
		}
	}
	if recipient != nil && payoutIndex != nil && !accounts.Payout.IsZero() {
		payoutAddr, _, err := treasury.DerivePayoutAddress(programID, *recipient, treasuryAddr, *payoutIndex)
		if err != nil {
			return err
		}
		if err := checkAccount(accounts.Payout, payoutAddr); err != nil {
			return err
		}
	}
	if mint != nil && !accounts.TokenBalance.IsZero() {
		balanceAddr, _, err := treasury.DeriveTokenBalanceAddress(programID, treasuryAddr, *mint)
		if err != nil {
			return err
		}
		if err := checkAccount(accounts.TokenBalance, balanceAddr); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) dispatch(tag InstructionTag, signer solana.PublicKey, data []byte, accounts Accounts) error {
	switch tag {
	case TagInitializeTreasury:
		args, err := decodeArgs[InitializeTreasuryArgs](data)
		if err != nil {
			return err
		}
		if err := d.verifyCommon(signer, accounts, nil, nil, nil); err != nil {
			return err
		}
		_, err = d.engine.InitializeTreasury(signer, args.EpochDuration, args.SpendingLimit)
		return err
	case TagDeposit:
		args, err := decodeArgs[DepositArgs](data)
		if err != nil {
			return err
		}
		if err := d.verifyCommon(signer, accounts, nil, nil, nil); err != nil {
			return err
		}
		return d.engine.Deposit(signer, args.Amount, args.Timestamp)
	case TagWithdraw:
		args, err := decodeArgs[WithdrawArgs](data)
		if err != nil {
			return err
		}
		if err := d.verifyCommon(signer, accounts, &args.Recipient, nil, nil); err != nil {
			return err
		}
		return d.engine.Withdraw(signer, args.Recipient, args.Amount, args.Timestamp)
	case TagDepositToken:
		args, err := decodeArgs[DepositTokenArgs](data)
		if err != nil {
			return err
		}
		if err := d.verifyCommon(signer, accounts, nil, nil, &args.Mint); err != nil {
			return err
		}
		return d.engine.DepositToken(signer, args.Mint, args.Amount, args.Timestamp)
	case TagWithdrawToken:
		args, err := decodeArgs[WithdrawTokenArgs](data)
		if err != nil {
			return err
		}
		if err := d.verifyCommon(signer, accounts, &args.Recipient, nil, &args.Mint); err != nil {
			return err
		}
		return d.engine.WithdrawToken(signer, args.Recipient, args.Mint, args.Amount, args.Timestamp)
	case TagAddTreasuryUser:
		args, err := decodeArgs[AddTreasuryUserArgs](data)
		if err != nil {
			return err
		}
		if err := d.verifyCommon(signer, accounts, nil, nil, nil); err != nil {
			return err
		}
		_, err = d.engine.AddTreasuryUser(signer, args.User, treasury.Role(args.Role))
		return err
	case TagRemoveTreasuryUser:
		args, err := decodeArgs[RemoveTreasuryUserArgs](data)
		if err != nil {
			return err
		}
		if err := d.verifyCommon(signer, accounts, nil, nil, nil); err != nil {
			return err
		}
		return d.engine.RemoveTreasuryUser(signer, args.User)
	case TagAddWhitelistedRecipient:
		args, err := decodeArgs[AddWhitelistedRecipientArgs](data)
		if err != nil {
			return err
		}
		if err := d.verifyCommon(signer, accounts, &args.Recipient, nil, nil); err != nil {
			return err
		}
		_, err = d.engine.AddWhitelistedRecipient(signer, args.Recipient, args.Name)
		return err
	case TagRemoveWhitelistedRecipient:
		args, err := decodeArgs[RemoveWhitelistedRecipientArgs](data)
		if err != nil {
			return err
		}
		if err := d.verifyCommon(signer, accounts, &args.Recipient, nil, nil); err != nil {
			return err
		}
		return d.engine.RemoveWhitelistedRecipient(signer, args.Recipient)
	case TagSchedulePayout:
		args, err := decodeArgs[SchedulePayoutArgs](data)
		if err != nil {
			return err
		}
		if err := d.verifyCommon(signer, accounts, &args.Recipient, &args.Index, args.TokenMint); err != nil {
			return err
		}
		_, err = d.engine.SchedulePayout(signer, args.Recipient, args.Amount, args.ScheduleTime, args.Recurring, args.RecurrenceInterval, args.TokenMint, args.Index)
		return err
	case TagExecutePayout:
		args, err := decodeArgs[ExecutePayoutArgs](data)
		if err != nil {
			return err
		}
		if err := d.verifyCommon(signer, accounts, &args.Recipient, &args.Index, nil); err != nil {
			return err
		}
		return d.engine.ExecutePayout(signer, args.Recipient, args.Index, args.Timestamp)
	case TagExecuteTokenPayout:
		args, err := decodeArgs[ExecutePayoutArgs](data)
		if err != nil {
			return err
		}
		if err := d.verifyCommon(signer, accounts, &args.Recipient, &args.Index, nil); err != nil {
			return err
		}
		return d.engine.ExecuteTokenPayout(signer, args.Recipient, args.Index, args.Timestamp)
	case TagCancelPayout:
		args, err := decodeArgs[CancelPayoutArgs](data)
		if err != nil {
			return err
		}
		if err := d.verifyCommon(signer, accounts, &args.Recipient, &args.Index, nil); err != nil {
			return err
		}
		return d.engine.CancelPayout(signer, args.Recipient, args.Index)
	case TagUpdateTreasuryConfig:
		args, err := decodeArgs[UpdateTreasuryConfigArgs](data)
		if err != nil {
			return err
		}
		if err := d.verifyCommon(signer, accounts, nil, nil, nil); err != nil {
			return err
		}
		return d.engine.UpdateTreasuryConfig(signer, args.EpochDuration, args.SpendingLimit)
	case TagPauseTreasury:
		if err := d.verifyCommon(signer, accounts, nil, nil, nil); err != nil {
			return err
		}
		return d.engine.PauseTreasury(signer)
	case TagUnpauseTreasury:
		if err := d.verifyCommon(signer, accounts, nil, nil, nil); err != nil {
			return err
		}
		return d.engine.UnpauseTreasury(signer)
	case TagSetTokenGate:
		args, err := decodeArgs[SetTokenGateArgs](data)
		if err != nil {
			return err
		}
		if err := d.verifyCommon(signer, accounts, nil, nil, nil); err != nil {
			return err
		}
		return d.engine.SetTokenGate(signer, args.Mint)
	default:
		return ErrUnknownInstruction
	}
}

// EncodeInstruction renders a tag and borsh-encodable args struct into wire
// form. A nil args value produces a bare tag.
func EncodeInstruction(tag InstructionTag, args interface{}) ([]byte, error) {
	out := []byte{byte(tag)}
	if args == nil {
		return out, nil
	}
	encoded, err := borsh.Serialize(args)
	if err != nil {
		return nil, fmt.Errorf("program: encode args: %w", err)
	}
	return append(out, encoded...), nil
}
