package order

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidParameters is returned for malformed plan inputs. The run
// never starts when slice splitting fails with it.
var ErrInvalidParameters = errors.New("invalid parameters")

// saltBits sizes the random salt; 256 bits makes collisions across
// concurrent runs a non-concern.
const saltBits = 256

// SliceAmounts splits total into n integer slice amounts. Every slice gets
// total/n; the final slice absorbs the division remainder so the sum is
// exact and the plan never under-trades from truncation.
func SliceAmounts(total *big.Int, n int) ([]*big.Int, error) {
	if total == nil || total.Sign() <= 0 {
		return nil, fmt.Errorf("%w: totalAmount must be positive", ErrInvalidParameters)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: sliceCount must be positive", ErrInvalidParameters)
	}

	base := new(big.Int).Quo(total, big.NewInt(int64(n)))
	amounts := make([]*big.Int, n)
	distributed := new(big.Int)
	for i := 0; i < n-1; i++ {
		amounts[i] = new(big.Int).Set(base)
		distributed.Add(distributed, base)
	}
	amounts[n-1] = new(big.Int).Sub(total, distributed)
	return amounts, nil
}

// Builder stamps out per-slice Order records for one asset pair and maker.
// TakingAmount is supplied by the caller (from an external quote); the
// builder never prices anything itself.
type Builder struct {
	Maker      common.Address
	Receiver   common.Address // zero value means proceeds go to Maker
	MakerAsset common.Address
	TakerAsset common.Address
	Expiry     time.Duration // order lifetime from build time
}

// Build creates one unsigned Order for a slice. Expiration is now+Expiry,
// strictly in the future; salt is fresh random per call.
func (b *Builder) Build(makingAmount, takingAmount *big.Int, now time.Time) (Order, error) {
	if makingAmount == nil || makingAmount.Sign() <= 0 {
		return Order{}, fmt.Errorf("%w: makingAmount must be positive", ErrInvalidParameters)
	}
	if takingAmount == nil || takingAmount.Sign() <= 0 {
		return Order{}, fmt.Errorf("%w: takingAmount must be positive", ErrInvalidParameters)
	}
	if b.Expiry <= 0 {
		return Order{}, fmt.Errorf("%w: expiry must be positive", ErrInvalidParameters)
	}

	salt, err := NewSalt()
	if err != nil {
		return Order{}, err
	}

	receiver := b.Receiver
	if receiver == (common.Address{}) {
		receiver = b.Maker
	}

	return Order{
		Salt:         salt,
		Maker:        b.Maker,
		Receiver:     receiver,
		MakerAsset:   b.MakerAsset,
		TakerAsset:   b.TakerAsset,
		MakingAmount: new(big.Int).Set(makingAmount),
		TakingAmount: new(big.Int).Set(takingAmount),
		Expiration:   big.NewInt(now.Add(b.Expiry).Unix()),
	}, nil
}

// NewSalt returns a cryptographically random 256-bit salt.
func NewSalt() (*big.Int, error) {
	max := new(big.Int).Lsh(big.NewInt(1), saltBits)
	salt, err := rand.Int(rand.Reader, max)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}
