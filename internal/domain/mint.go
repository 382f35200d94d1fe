package domain

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidateMint checks that a mint address is a well-formed Solana public key:
// base58 with the Bitcoin alphabet decoding to exactly 32 bytes.
func ValidateMint(mint string) error {
	if mint == "" {
		return &ValidationError{Field: "mint", Reason: "empty mint"}
	}
	raw, err := base58.Decode(mint)
	if err != nil {
		return &ValidationError{Field: "mint", Reason: "not base58"}
	}
	if len(raw) != 32 {
		return &ValidationError{Field: "mint", Reason: "decoded length != 32"}
	}
	return nil
}

// IsOnCurve reports whether a 32-byte public key lies on the ed25519 curve.
// Wallet-owned accounts are on-curve; program derived addresses are not.
func IsOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// IsWalletAddress reports whether a base58 address decodes to an on-curve
// public key, distinguishing wallets from PDAs such as AMM pool accounts.
func IsWalletAddress(addr string) bool {
	raw, err := base58.Decode(addr)
	if err != nil {
		return false
	}
	return IsOnCurve(raw)
}
