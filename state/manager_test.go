package state

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/rainman456/solana-dappTreasury/storage"
	"github.com/rainman456/solana-dappTreasury/treasury"
)

func testKey(b byte) solana.PublicKey {
	var key solana.PublicKey
	key[0] = b
	key[31] = b
	return key
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func TestTreasuryRoundTrip(t *testing.T) {
	m := newTestManager(t)
	addr := testKey(0x10)

	_, ok, err := m.TreasuryGet(addr)
	require.NoError(t, err)
	require.False(t, ok)

	mint := testKey(0x20)
	record := &treasury.Treasury{
		Admin:           testKey(1),
		EpochDuration:   7200,
		SpendingLimit:   1_000,
		TotalFunds:      42,
		LastEpochStart:  1_700_000_000,
		EpochSpending:   17,
		NextPayoutIndex: 3,
		IsPaused:        true,
		GateTokenMint:   &mint,
		Bump:            254,
	}
	require.NoError(t, m.TreasuryPut(addr, record))

	loaded, ok, err := m.TreasuryGet(addr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, record, loaded)

	// Clearing the gate survives the round trip too.
	record.GateTokenMint = nil
	require.NoError(t, m.TreasuryPut(addr, record))
	loaded, _, err = m.TreasuryGet(addr)
	require.NoError(t, err)
	require.Nil(t, loaded.GateTokenMint)
}

func TestPayoutRoundTrip(t *testing.T) {
	m := newTestManager(t)
	addr := testKey(0x11)
	mint := testKey(0x21)
	record := &treasury.PayoutSchedule{
		Recipient:          testKey(3),
		Amount:             500,
		ScheduleTime:       1_700_000_100,
		Recurring:          true,
		RecurrenceInterval: 600,
		LastExecuted:       1_700_000_700,
		IsActive:           true,
		CreatedBy:          testKey(1),
		Treasury:           testKey(0x10),
		Index:              7,
		TokenMint:          &mint,
		Bump:               253,
	}
	require.NoError(t, m.PayoutPut(addr, record))
	loaded, ok, err := m.PayoutGet(addr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, record, loaded)
}

func TestUserAndRecipientRoundTrip(t *testing.T) {
	m := newTestManager(t)

	user := &treasury.TreasuryUser{
		User:     testKey(2),
		Treasury: testKey(0x10),
		Role:     treasury.RoleTreasurer,
		IsActive: true,
		Bump:     252,
	}
	require.NoError(t, m.UserPut(testKey(0x12), user))
	loadedUser, ok, err := m.UserGet(testKey(0x12))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, user, loadedUser)

	recipient := &treasury.WhitelistedRecipient{
		Recipient: testKey(3),
		Name:      "ops payroll",
		IsActive:  true,
		Treasury:  testKey(0x10),
		Bump:      251,
	}
	require.NoError(t, m.RecipientPut(testKey(0x13), recipient))
	loadedRecipient, ok, err := m.RecipientGet(testKey(0x13))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, recipient, loadedRecipient)
}

func TestTokenBalanceAndAuditRoundTrip(t *testing.T) {
	m := newTestManager(t)

	balance := &treasury.TokenBalance{
		Treasury:      testKey(0x10),
		TokenMint:     testKey(0x21),
		Balance:       9_000,
		EpochSpending: 150,
		EpochStart:    1_700_000_000,
		Bump:          250,
	}
	require.NoError(t, m.TokenBalancePut(testKey(0x14), balance))
	loadedBalance, ok, err := m.TokenBalanceGet(testKey(0x14))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, balance, loadedBalance)

	audit := &treasury.AuditRecord{
		Action:    treasury.AuditTokenPayout,
		Treasury:  testKey(0x10),
		Initiator: testKey(1),
		Amount:    300,
		Timestamp: 1_700_000_500,
		Bump:      249,
	}
	require.NoError(t, m.AuditPut(testKey(0x15), audit))
	loadedAudit, ok, err := m.AuditGet(testKey(0x15))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, audit, loadedAudit)
}

func TestAuditIndexOrderAndDedup(t *testing.T) {
	m := newTestManager(t)
	treasuryAddr := testKey(0x10)

	first := testKey(0x31)
	second := testKey(0x32)
	require.NoError(t, m.AuditIndexAppend(treasuryAddr, first))
	require.NoError(t, m.AuditIndexAppend(treasuryAddr, second))
	require.NoError(t, m.AuditIndexAppend(treasuryAddr, first))

	addrs, err := m.AuditIndex(treasuryAddr)
	require.NoError(t, err)
	require.Equal(t, []solana.PublicKey{first, second}, addrs)

	empty, err := m.AuditIndex(testKey(0x40))
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestNativeBalances(t *testing.T) {
	m := newTestManager(t)
	addr := testKey(0x16)

	balance, err := m.NativeBalance(addr)
	require.NoError(t, err)
	require.Zero(t, balance)

	require.NoError(t, m.SetNativeBalance(addr, 12_345))
	balance, err = m.NativeBalance(addr)
	require.NoError(t, err)
	require.Equal(t, uint64(12_345), balance)
}

func TestRecordNamespacesDoNotCollide(t *testing.T) {
	m := newTestManager(t)
	addr := testKey(0x17)

	require.NoError(t, m.UserPut(addr, &treasury.TreasuryUser{User: testKey(2)}))
	_, ok, err := m.RecipientGet(addr)
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = m.TreasuryGet(addr)
	require.NoError(t, err)
	require.False(t, ok)
}
