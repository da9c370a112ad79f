package treasury

import (
	"strconv"

	"github.com/gagliardetto/solana-go"

	"github.com/rainman456/solana-dappTreasury/events"
)

const (
	EventTypeTreasuryInitialized = "treasury.initialized"
	EventTypeDeposit             = "treasury.deposit"
	EventTypeWithdraw            = "treasury.withdraw"
	EventTypeTokenDeposit        = "treasury.token.deposit"
	EventTypeTokenWithdraw       = "treasury.token.withdraw"
	EventTypeUserAdded           = "treasury.user.added"
	EventTypeUserRemoved         = "treasury.user.removed"
	EventTypeRecipientAdded      = "treasury.recipient.added"
	EventTypeRecipientRemoved    = "treasury.recipient.removed"
	EventTypePayoutScheduled     = "treasury.payout.scheduled"
	EventTypePayoutExecuted      = "treasury.payout.executed"
	EventTypePayoutCancelled     = "treasury.payout.cancelled"
	EventTypeTreasuryPaused      = "treasury.paused"
	EventTypeTreasuryUnpaused    = "treasury.unpaused"
	EventTypeConfigUpdated       = "treasury.config.updated"
	EventTypeTokenGateSet        = "treasury.token_gate.set"
	EventTypeEpochReset          = "treasury.epoch.reset"
)

func newTreasuryEvent(eventType string, treasuryAddr, initiator solana.PublicKey, amount uint64, timestamp int64, mint *solana.PublicKey) *events.Event {
	attrs := map[string]string{
		"treasury":  treasuryAddr.String(),
		"initiator": initiator.String(),
		"amount":    strconv.FormatUint(amount, 10),
		"timestamp": strconv.FormatInt(timestamp, 10),
	}
	if mint != nil {
		attrs["tokenMint"] = mint.String()
	}
	return &events.Event{Type: eventType, Attributes: attrs}
}

// NewPayoutScheduledEvent returns the canonical payload emitted when a payout
// schedule is created.
func NewPayoutScheduledEvent(p *PayoutSchedule, now int64) *events.Event {
	if p == nil {
		return &events.Event{Type: EventTypePayoutScheduled, Attributes: map[string]string{}}
	}
	evt := newTreasuryEvent(EventTypePayoutScheduled, p.Treasury, p.CreatedBy, p.Amount, now, p.TokenMint)
	evt.Attributes["recipient"] = p.Recipient.String()
	evt.Attributes["index"] = strconv.FormatUint(p.Index, 10)
	evt.Attributes["scheduleTime"] = strconv.FormatInt(p.ScheduleTime, 10)
	evt.Attributes["recurring"] = strconv.FormatBool(p.Recurring)
	if p.Recurring {
		evt.Attributes["recurrenceInterval"] = strconv.FormatUint(p.RecurrenceInterval, 10)
	}
	return evt
}

// NewPayoutExecutedEvent returns the canonical payload emitted when a payout
// executes.
func NewPayoutExecutedEvent(p *PayoutSchedule, initiator solana.PublicKey, now int64) *events.Event {
	if p == nil {
		return &events.Event{Type: EventTypePayoutExecuted, Attributes: map[string]string{}}
	}
	evt := newTreasuryEvent(EventTypePayoutExecuted, p.Treasury, initiator, p.Amount, now, p.TokenMint)
	evt.Attributes["recipient"] = p.Recipient.String()
	evt.Attributes["index"] = strconv.FormatUint(p.Index, 10)
	evt.Attributes["recurring"] = strconv.FormatBool(p.Recurring)
	return evt
}

// NewPayoutCancelledEvent returns the canonical payload emitted when a payout
// schedule is cancelled.
func NewPayoutCancelledEvent(p *PayoutSchedule, initiator solana.PublicKey, now int64) *events.Event {
	if p == nil {
		return &events.Event{Type: EventTypePayoutCancelled, Attributes: map[string]string{}}
	}
	evt := newTreasuryEvent(EventTypePayoutCancelled, p.Treasury, initiator, p.Amount, now, p.TokenMint)
	evt.Attributes["recipient"] = p.Recipient.String()
	evt.Attributes["index"] = strconv.FormatUint(p.Index, 10)
	return evt
}

// NewEpochResetEvent records a spending-window rollover observed during a
// spend, including the spending discarded from the previous window.
func NewEpochResetEvent(treasuryAddr solana.PublicKey, previousSpending uint64, now int64, mint *solana.PublicKey) *events.Event {
	return newTreasuryEvent(EventTypeEpochReset, treasuryAddr, solana.PublicKey{}, previousSpending, now, mint)
}
