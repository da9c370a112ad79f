// Package token models the generic fungible-token program the treasury
// invokes for all token-denominated operations. The treasury trusts it as an
// atomic sub-operation: a transfer either fully succeeds or fully fails.
package token

import (
	"errors"
	"sync"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	ErrUnknownMint         = errors.New("token: unknown mint")
	ErrAmountOverflow      = errors.New("token: amount overflow")
)

// Service is the transfer/balance interface consumed by the treasury engine.
type Service interface {
	// Transfer moves amount units of mint from one owner to another.
	Transfer(from, to, mint solana.PublicKey, amount uint64) error
	// BalanceOf reports the units of mint held by owner.
	BalanceOf(owner, mint solana.PublicKey) (uint64, error)
}

type holdingKey struct {
	owner solana.PublicKey
	mint  solana.PublicKey
}

// InMemory is a Service implementation backing tests and the dev daemon. It
// tracks per-(owner, mint) holdings under a mutex.
type InMemory struct {
	mu       sync.RWMutex
	mints    map[solana.PublicKey]struct{}
	holdings map[holdingKey]uint64
}

// NewInMemory returns an empty in-memory token service.
func NewInMemory() *InMemory {
	return &InMemory{
		mints:    make(map[solana.PublicKey]struct{}),
		holdings: make(map[holdingKey]uint64),
	}
}

// CreateMint registers a mint so transfers against it are accepted.
func (s *InMemory) CreateMint(mint solana.PublicKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mints[mint] = struct{}{}
}

// MintTo credits freshly minted units to an owner, registering the mint if
// needed.
func (s *InMemory) MintTo(owner, mint solana.PublicKey, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mints[mint] = struct{}{}
	key := holdingKey{owner: owner, mint: mint}
	current := s.holdings[key]
	if current > ^uint64(0)-amount {
		return ErrAmountOverflow
	}
	s.holdings[key] = current + amount
	return nil
}

// Transfer implements Service.
func (s *InMemory) Transfer(from, to, mint solana.PublicKey, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mints[mint]; !ok {
		return ErrUnknownMint
	}
	if amount == 0 {
		return nil
	}
	fromKey := holdingKey{owner: from, mint: mint}
	toKey := holdingKey{owner: to, mint: mint}
	if s.holdings[fromKey] < amount {
		return ErrInsufficientBalance
	}
	if s.holdings[toKey] > ^uint64(0)-amount {
		return ErrAmountOverflow
	}
	s.holdings[fromKey] -= amount
	s.holdings[toKey] += amount
	return nil
}

// BalanceOf implements Service.
func (s *InMemory) BalanceOf(owner, mint solana.PublicKey) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.mints[mint]; !ok {
		return 0, ErrUnknownMint
	}
	return s.holdings[holdingKey{owner: owner, mint: mint}], nil
}
