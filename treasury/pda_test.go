package treasury

import "testing"

func TestDerivationsAreDeterministic(t *testing.T) {
	programID := makeKey(0xAA)
	user := makeKey(1)

	treasuryA, bumpA, err := DeriveTreasuryAddress(programID)
	if err != nil {
		t.Fatalf("derive treasury: %v", err)
	}
	treasuryB, bumpB, err := DeriveTreasuryAddress(programID)
	if err != nil {
		t.Fatalf("derive treasury again: %v", err)
	}
	if treasuryA != treasuryB || bumpA != bumpB {
		t.Fatal("treasury derivation not deterministic")
	}

	userA, _, err := DeriveUserAddress(programID, user, treasuryA)
	if err != nil {
		t.Fatalf("derive user: %v", err)
	}
	userB, _, err := DeriveUserAddress(programID, user, treasuryA)
	if err != nil {
		t.Fatalf("derive user again: %v", err)
	}
	if userA != userB {
		t.Fatal("user derivation not deterministic")
	}
}

func TestDerivationsDiscriminate(t *testing.T) {
	programID := makeKey(0xAA)
	treasuryAddr, _, err := DeriveTreasuryAddress(programID)
	if err != nil {
		t.Fatalf("derive treasury: %v", err)
	}
	recipient := makeKey(3)

	p0, _, err := DerivePayoutAddress(programID, recipient, treasuryAddr, 0)
	if err != nil {
		t.Fatalf("derive payout 0: %v", err)
	}
	p1, _, err := DerivePayoutAddress(programID, recipient, treasuryAddr, 1)
	if err != nil {
		t.Fatalf("derive payout 1: %v", err)
	}
	if p0 == p1 {
		t.Fatal("payout indices collide")
	}

	a0, _, err := DeriveAuditAddress(programID, treasuryAddr, 100, recipient)
	if err != nil {
		t.Fatalf("derive audit: %v", err)
	}
	a1, _, err := DeriveAuditAddress(programID, treasuryAddr, 101, recipient)
	if err != nil {
		t.Fatalf("derive audit: %v", err)
	}
	a2, _, err := DeriveAuditAddress(programID, treasuryAddr, 100, makeKey(4))
	if err != nil {
		t.Fatalf("derive audit: %v", err)
	}
	if a0 == a1 || a0 == a2 {
		t.Fatal("audit keys collide across timestamp or initiator")
	}

	// Different subjects land on different user and recipient addresses.
	u1, _, err := DeriveUserAddress(programID, makeKey(1), treasuryAddr)
	if err != nil {
		t.Fatalf("derive user: %v", err)
	}
	r1, _, err := DeriveRecipientAddress(programID, makeKey(1), treasuryAddr)
	if err != nil {
		t.Fatalf("derive recipient: %v", err)
	}
	if u1 == r1 {
		t.Fatal("user and recipient namespaces collide")
	}
}
