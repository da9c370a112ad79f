package token

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func key(b byte) solana.PublicKey {
	var k solana.PublicKey
	k[0] = b
	return k
}

func TestTransfer(t *testing.T) {
	svc := NewInMemory()
	mint := key(1)
	alice := key(2)
	bob := key(3)

	if err := svc.Transfer(alice, bob, mint, 10); !errors.Is(err, ErrUnknownMint) {
		t.Fatalf("unknown mint: got %v", err)
	}
	if err := svc.MintTo(alice, mint, 100); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := svc.Transfer(alice, bob, mint, 150); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("over balance: got %v", err)
	}
	if err := svc.Transfer(alice, bob, mint, 60); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	got, err := svc.BalanceOf(alice, mint)
	if err != nil || got != 40 {
		t.Fatalf("alice = %d err=%v", got, err)
	}
	got, err = svc.BalanceOf(bob, mint)
	if err != nil || got != 60 {
		t.Fatalf("bob = %d err=%v", got, err)
	}
}

func TestZeroTransferIsNoop(t *testing.T) {
	svc := NewInMemory()
	mint := key(1)
	svc.CreateMint(mint)
	if err := svc.Transfer(key(2), key(3), mint, 0); err != nil {
		t.Fatalf("zero transfer: %v", err)
	}
}

func TestMintToOverflow(t *testing.T) {
	svc := NewInMemory()
	mint := key(1)
	owner := key(2)
	if err := svc.MintTo(owner, mint, ^uint64(0)); err != nil {
		t.Fatalf("mint max: %v", err)
	}
	if err := svc.MintTo(owner, mint, 1); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("overflow: got %v", err)
	}
}
