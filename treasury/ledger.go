package treasury

import "math"

// ledger is a uniform view over the two custody ledgers of a treasury: the
// native-currency ledger carried on the Treasury record itself and the
// per-mint ledgers carried on TokenBalance records. All arithmetic is checked;
// overflow or underflow aborts instead of wrapping.
type ledger struct {
	balance       *uint64
	epochSpending *uint64
	epochStart    *int64
}

func nativeLedger(t *Treasury) ledger {
	return ledger{balance: &t.TotalFunds, epochSpending: &t.EpochSpending, epochStart: &t.LastEpochStart}
}

func tokenLedger(b *TokenBalance) ledger {
	return ledger{balance: &b.Balance, epochSpending: &b.EpochSpending, epochStart: &b.EpochStart}
}

func checkedAdd(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrArithmeticOverflow
	}
	return a + b, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrArithmeticOverflow
	}
	return a - b, nil
}

// rollEpoch advances the treasury's epoch window when it has elapsed and
// resets the native ledger's spending for the new window. The window rolls
// strictly after epoch_duration seconds have passed. Token ledgers reset
// lazily in spend via their own epoch marker.
func rollEpoch(t *Treasury, now int64) bool {
	if now-t.LastEpochStart > int64(t.EpochDuration) {
		t.LastEpochStart = now
		t.EpochSpending = 0
		return true
	}
	return false
}

// credit increases the ledger balance with overflow protection.
func credit(led ledger, amount uint64) error {
	next, err := checkedAdd(*led.balance, amount)
	if err != nil {
		return err
	}
	*led.balance = next
	return nil
}

// spend debits the ledger under the treasury's epoch window and spending
// limit. The window is rolled first; a ledger entering a new window resets
// its epoch spending before the new amount is checked. insufficient is the
// error reported when the ledger balance cannot cover the amount.
func spend(t *Treasury, led ledger, amount uint64, now int64, insufficient error) error {
	rollEpoch(t, now)
	if *led.epochStart != t.LastEpochStart {
		*led.epochSpending = 0
		*led.epochStart = t.LastEpochStart
	}
	if *led.balance < amount {
		return insufficient
	}
	nextSpending, err := checkedAdd(*led.epochSpending, amount)
	if err != nil {
		return err
	}
	if nextSpending > t.SpendingLimit {
		return ErrSpendingLimitExceeded
	}
	nextBalance, err := checkedSub(*led.balance, amount)
	if err != nil {
		return err
	}
	*led.epochSpending = nextSpending
	*led.balance = nextBalance
	return nil
}
