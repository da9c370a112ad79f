package treasury

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// Seed tags for derived addresses. Every persisted record is addressed by a
// program-derived address computed from one of these tags plus its
// discriminating keys; the stored bump proves canonical derivation.
var (
	SeedTreasury     = []byte("treasury")
	SeedUser         = []byte("user")
	SeedRecipient    = []byte("recipient")
	SeedPayout       = []byte("payout")
	SeedAudit        = []byte("audit")
	SeedTokenBalance = []byte("token_balance")
)

// DeriveTreasuryAddress derives the singleton treasury address for a program
// deployment.
func DeriveTreasuryAddress(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{SeedTreasury}, programID)
}

// DeriveUserAddress derives the role-binding address for (treasury, user).
func DeriveUserAddress(programID, user, treasuryAddr solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{SeedUser, user.Bytes(), treasuryAddr.Bytes()}, programID)
}

// DeriveRecipientAddress derives the whitelist entry address for
// (treasury, recipient).
func DeriveRecipientAddress(programID, recipient, treasuryAddr solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{SeedRecipient, recipient.Bytes(), treasuryAddr.Bytes()}, programID)
}

// DerivePayoutAddress derives a payout schedule address. The explicit index
// lets a single recipient hold many independent schedules.
func DerivePayoutAddress(programID, recipient, treasuryAddr solana.PublicKey, index uint64) (solana.PublicKey, uint8, error) {
	var le [8]byte
	binary.LittleEndian.PutUint64(le[:], index)
	return solana.FindProgramAddress([][]byte{SeedPayout, recipient.Bytes(), treasuryAddr.Bytes(), le[:]}, programID)
}

// DeriveAuditAddress derives an audit record address. The timestamp is
// little-endian encoded, so two actions by the same initiator at the same
// integer timestamp collide; callers must space timestamps.
func DeriveAuditAddress(programID, treasuryAddr solana.PublicKey, timestamp int64, initiator solana.PublicKey) (solana.PublicKey, uint8, error) {
	var le [8]byte
	binary.LittleEndian.PutUint64(le[:], uint64(timestamp))
	return solana.FindProgramAddress([][]byte{SeedAudit, treasuryAddr.Bytes(), le[:], initiator.Bytes()}, programID)
}

// DeriveTokenBalanceAddress derives the per-mint custody ledger address for
// (treasury, mint).
func DeriveTokenBalanceAddress(programID, treasuryAddr, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{SeedTokenBalance, treasuryAddr.Bytes(), mint.Bytes()}, programID)
}
