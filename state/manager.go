// Package state persists treasury records in a key/value database. Keys are
// namespaced by record kind, hashed with keccak256, and values are
// RLP-encoded stored shapes converted at the boundary.
package state

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/gagliardetto/solana-go"

	"github.com/rainman456/solana-dappTreasury/storage"
	"github.com/rainman456/solana-dappTreasury/treasury"
)

var (
	prefixTreasury     = []byte("treasury/")
	prefixUser         = []byte("treasury-user/")
	prefixRecipient    = []byte("treasury-recipient/")
	prefixPayout       = []byte("treasury-payout/")
	prefixTokenBalance = []byte("treasury-token-balance/")
	prefixAudit        = []byte("treasury-audit/")
	prefixAuditIndex   = []byte("treasury-audit-index/")
	prefixNative       = []byte("native-balance/")
)

// Manager implements the engine's state interface on top of a
// storage.Database.
type Manager struct {
	db storage.Database
}

// NewManager wraps the database in a treasury state manager.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func recordKey(prefix []byte, addr solana.PublicKey) []byte {
	return crypto.Keccak256(append(append([]byte(nil), prefix...), addr.Bytes()...))
}

func (m *Manager) kvPut(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode: %w", err)
	}
	return m.db.Put(key, encoded)
}

// kvGet decodes the value at key into out. The boolean reports whether the
// key existed.
func (m *Manager) kvGet(key []byte, out interface{}) (bool, error) {
	data, err := m.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("state: decode: %w", err)
	}
	return true, nil
}

// kvAppend appends value to the byte-slice list at key, skipping duplicates
// to keep the index deterministic.
func (m *Manager) kvAppend(key []byte, value []byte) error {
	var list [][]byte
	if _, err := m.kvGet(key, &list); err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	return m.kvPut(key, list)
}

// TreasuryGet loads the treasury record stored at addr.
func (m *Manager) TreasuryGet(addr solana.PublicKey) (*treasury.Treasury, bool, error) {
	var stored storedTreasury
	ok, err := m.kvGet(recordKey(prefixTreasury, addr), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return stored.toTreasury(), true, nil
}

// TreasuryPut stores the treasury record at addr.
func (m *Manager) TreasuryPut(addr solana.PublicKey, record *treasury.Treasury) error {
	if record == nil {
		return fmt.Errorf("state: nil treasury record")
	}
	return m.kvPut(recordKey(prefixTreasury, addr), newStoredTreasury(record))
}

// UserGet loads the role binding stored at addr.
func (m *Manager) UserGet(addr solana.PublicKey) (*treasury.TreasuryUser, bool, error) {
	var stored storedUser
	ok, err := m.kvGet(recordKey(prefixUser, addr), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return stored.toUser(), true, nil
}

// UserPut stores the role binding at addr.
func (m *Manager) UserPut(addr solana.PublicKey, record *treasury.TreasuryUser) error {
	if record == nil {
		return fmt.Errorf("state: nil user record")
	}
	return m.kvPut(recordKey(prefixUser, addr), newStoredUser(record))
}

// RecipientGet loads the whitelist entry stored at addr.
func (m *Manager) RecipientGet(addr solana.PublicKey) (*treasury.WhitelistedRecipient, bool, error) {
	var stored storedRecipient
	ok, err := m.kvGet(recordKey(prefixRecipient, addr), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return stored.toRecipient(), true, nil
}

// RecipientPut stores the whitelist entry at addr.
func (m *Manager) RecipientPut(addr solana.PublicKey, record *treasury.WhitelistedRecipient) error {
	if record == nil {
		return fmt.Errorf("state: nil recipient record")
	}
	return m.kvPut(recordKey(prefixRecipient, addr), newStoredRecipient(record))
}

// PayoutGet loads the payout schedule stored at addr.
func (m *Manager) PayoutGet(addr solana.PublicKey) (*treasury.PayoutSchedule, bool, error) {
	var stored storedPayout
	ok, err := m.kvGet(recordKey(prefixPayout, addr), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return stored.toPayout(), true, nil
}

// PayoutPut stores the payout schedule at addr.
func (m *Manager) PayoutPut(addr solana.PublicKey, record *treasury.PayoutSchedule) error {
	if record == nil {
		return fmt.Errorf("state: nil payout record")
	}
	return m.kvPut(recordKey(prefixPayout, addr), newStoredPayout(record))
}

// TokenBalanceGet loads the per-mint ledger stored at addr.
func (m *Manager) TokenBalanceGet(addr solana.PublicKey) (*treasury.TokenBalance, bool, error) {
	var stored storedTokenBalance
	ok, err := m.kvGet(recordKey(prefixTokenBalance, addr), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return stored.toTokenBalance(), true, nil
}

// TokenBalancePut stores the per-mint ledger at addr.
func (m *Manager) TokenBalancePut(addr solana.PublicKey, record *treasury.TokenBalance) error {
	if record == nil {
		return fmt.Errorf("state: nil token balance record")
	}
	return m.kvPut(recordKey(prefixTokenBalance, addr), newStoredTokenBalance(record))
}

// AuditGet loads the audit record stored at addr.
func (m *Manager) AuditGet(addr solana.PublicKey) (*treasury.AuditRecord, bool, error) {
	var stored storedAudit
	ok, err := m.kvGet(recordKey(prefixAudit, addr), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return stored.toAudit(), true, nil
}

// AuditPut stores the audit record at addr.
func (m *Manager) AuditPut(addr solana.PublicKey, record *treasury.AuditRecord) error {
	if record == nil {
		return fmt.Errorf("state: nil audit record")
	}
	return m.kvPut(recordKey(prefixAudit, addr), newStoredAudit(record))
}

// AuditIndexAppend links an audit record address into the treasury's
// insertion-ordered audit index.
func (m *Manager) AuditIndexAppend(treasuryAddr, auditAddr solana.PublicKey) error {
	return m.kvAppend(recordKey(prefixAuditIndex, treasuryAddr), auditAddr.Bytes())
}

// AuditIndex returns the audit record addresses for the treasury in insertion
// order.
func (m *Manager) AuditIndex(treasuryAddr solana.PublicKey) ([]solana.PublicKey, error) {
	var list [][]byte
	if _, err := m.kvGet(recordKey(prefixAuditIndex, treasuryAddr), &list); err != nil {
		return nil, err
	}
	addrs := make([]solana.PublicKey, 0, len(list))
	for _, raw := range list {
		if len(raw) != solana.PublicKeyLength {
			return nil, fmt.Errorf("state: audit index entry has %d bytes", len(raw))
		}
		addrs = append(addrs, solana.PublicKeyFromBytes(raw))
	}
	return addrs, nil
}

// NativeBalance returns the native-currency balance of an external account.
// Unknown accounts hold zero.
func (m *Manager) NativeBalance(addr solana.PublicKey) (uint64, error) {
	var balance uint64
	if _, err := m.kvGet(recordKey(prefixNative, addr), &balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// SetNativeBalance stores the native-currency balance of an external account.
func (m *Manager) SetNativeBalance(addr solana.PublicKey, amount uint64) error {
	return m.kvPut(recordKey(prefixNative, addr), amount)
}
