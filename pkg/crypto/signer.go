package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MakerKey holds the secp256k1 key pair a maker uses to sign limit orders.
// The derived Ethereum address is the order's maker identity.
type MakerKey struct {
	privateKey *ecdsa.PrivateKey
	publicKey  *ecdsa.PublicKey
	address    common.Address
}

// GenerateKey creates a new random secp256k1 key pair.
func GenerateKey() (*MakerKey, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return fromPrivateKey(privateKey)
}

// FromPrivateKeyHex loads a MakerKey from a hex-encoded private key
// (64 hex chars, no 0x prefix).
func FromPrivateKeyHex(hexKey string) (*MakerKey, error) {
	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return fromPrivateKey(privateKey)
}

func fromPrivateKey(privateKey *ecdsa.PrivateKey) (*MakerKey, error) {
	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to cast public key to ECDSA")
	}
	return &MakerKey{
		privateKey: privateKey,
		publicKey:  publicKeyECDSA,
		address:    crypto.PubkeyToAddress(*publicKeyECDSA),
	}, nil
}

// Address returns the Ethereum address derived from the public key.
func (k *MakerKey) Address() common.Address {
	return k.address
}

// PrivateKeyHex returns the private key as hex WITHOUT 0x prefix.
// Keep this secret; never log it.
func (k *MakerKey) PrivateKeyHex() string {
	return fmt.Sprintf("%x", crypto.FromECDSA(k.privateKey))
}

// PublicKeyHex returns the uncompressed public key as hex (130 chars).
func (k *MakerKey) PublicKeyHex() string {
	return fmt.Sprintf("%x", crypto.FromECDSAPub(k.publicKey))
}

// Sign signs a 32-byte digest and returns the signature in
// [R || S || V] format (65 bytes). V is the recovery id (0 or 1).
func (k *MakerKey) Sign(digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}
	signature, err := crypto.Sign(digest, k.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	return signature, nil
}

// VerifySignature reports whether signature over digest was produced by
// the key behind address.
func VerifySignature(address common.Address, digest []byte, signature []byte) bool {
	recovered, err := RecoverAddress(digest, signature)
	if err != nil {
		return false
	}
	return recovered == address
}

// RecoverAddress recovers the signing address from a digest and a 65-byte
// [R || S || V] signature.
func RecoverAddress(digest []byte, signature []byte) (common.Address, error) {
	if len(signature) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length: %d", len(signature))
	}
	if len(digest) != 32 {
		return common.Address{}, fmt.Errorf("invalid digest length: %d", len(digest))
	}

	publicKeyBytes, err := crypto.Ecrecover(digest, signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}
	publicKey, err := crypto.UnmarshalPubkey(publicKeyBytes)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to unmarshal public key: %w", err)
	}
	return crypto.PubkeyToAddress(*publicKey), nil
}

// SignatureToRSV splits a 65-byte signature into R, S, V components.
// Useful when the settlement contract wants the components separately.
func SignatureToRSV(signature []byte) (r, s *big.Int, v uint8, err error) {
	if len(signature) != 65 {
		return nil, nil, 0, fmt.Errorf("invalid signature length: %d", len(signature))
	}
	r = new(big.Int).SetBytes(signature[:32])
	s = new(big.Int).SetBytes(signature[32:64])
	v = signature[64]
	return r, s, v, nil
}

// RSVToSignature combines R, S, V back into a 65-byte signature.
func RSVToSignature(r, s *big.Int, v uint8) []byte {
	signature := make([]byte, 65)
	r.FillBytes(signature[:32])
	s.FillBytes(signature[32:64])
	signature[64] = v
	return signature
}
