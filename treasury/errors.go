package treasury

import "errors"

// Validation errors: the caller must change its input before retrying.
var (
	ErrInvalidEpochDuration      = errors.New("treasury: epoch duration must be greater than zero")
	ErrEpochDurationTooShort     = errors.New("treasury: epoch duration below protocol minimum")
	ErrInvalidSpendingLimit      = errors.New("treasury: spending limit must be greater than zero")
	ErrInvalidDepositAmount      = errors.New("treasury: deposit amount must be greater than zero")
	ErrInvalidWithdrawAmount     = errors.New("treasury: withdraw amount must be greater than zero")
	ErrInvalidTimestamp          = errors.New("treasury: timestamp must be current or in the past")
	ErrInvalidScheduleTime       = errors.New("treasury: schedule time must be in the future")
	ErrInvalidRecurrenceInterval = errors.New("treasury: recurrence interval must be greater than zero")
	ErrInvalidRole               = errors.New("treasury: invalid role")
	ErrInvalidRecipientName      = errors.New("treasury: recipient name exceeds maximum length")
)

// Authorization errors.
var (
	ErrUnauthorizedUser         = errors.New("treasury: user is not authorized for this action")
	ErrUnauthorizedConfigUpdate = errors.New("treasury: only the admin can update configuration")
	ErrUnauthorizedPauseAction  = errors.New("treasury: only the admin can pause or unpause")
)

// State errors.
var (
	ErrTreasuryExists          = errors.New("treasury: treasury already initialised")
	ErrTreasuryNotFound        = errors.New("treasury: treasury not found")
	ErrTreasuryPaused          = errors.New("treasury: treasury is paused")
	ErrTreasuryAlreadyPaused   = errors.New("treasury: treasury is already paused")
	ErrTreasuryAlreadyUnpaused = errors.New("treasury: treasury is already unpaused")
	ErrPayoutNotActive         = errors.New("treasury: payout schedule is not active")
	ErrPayoutNotDue            = errors.New("treasury: payout is not due yet")
	ErrPayoutAlreadyExecuted   = errors.New("treasury: payout has already been executed")
	ErrPayoutExists            = errors.New("treasury: payout schedule already exists")
	ErrPayoutNotFound          = errors.New("treasury: payout schedule not found")
	ErrUserNotFound            = errors.New("treasury: treasury user not found")
	ErrRecipientNotWhitelisted = errors.New("treasury: recipient is not whitelisted")
	ErrRecipientNotActive      = errors.New("treasury: recipient is not active")
	ErrAuditRecordExists       = errors.New("treasury: audit record already exists for this key")
)

// Resource errors.
var (
	ErrInsufficientFunds        = errors.New("treasury: insufficient funds")
	ErrInsufficientTokenBalance = errors.New("treasury: insufficient token balance")
	ErrSpendingLimitExceeded    = errors.New("treasury: spending limit exceeded for current epoch")
	ErrArithmeticOverflow       = errors.New("treasury: arithmetic overflow")
)

// Token errors.
var (
	ErrTokenGateCheckFailed = errors.New("treasury: recipient does not hold the required token")
	ErrTokenProgramRequired = errors.New("treasury: token service required for token operations")
	ErrInvalidTokenMint     = errors.New("treasury: invalid token mint")
	ErrTokenBalanceNotFound = errors.New("treasury: token balance record not found")
	ErrInvalidTokenAccount  = errors.New("treasury: invalid token account")
)
