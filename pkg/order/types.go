package order

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ohsung/twapkit/pkg/crypto"
)

// Order is one slice's intended trade: the maker offers MakingAmount of
// MakerAsset and expects TakingAmount of TakerAsset in return. Amounts are
// integers in the token's smallest unit. Immutable once signed.
type Order struct {
	Salt         *big.Int       // unique per order, prevents hash collisions
	Maker        common.Address // order originator (signs the order)
	Receiver     common.Address // recipient of proceeds (usually == Maker)
	MakerAsset   common.Address // token the maker sells
	TakerAsset   common.Address // token the maker buys
	MakingAmount *big.Int       // offered quantity, smallest unit
	TakingAmount *big.Int       // expected quantity, smallest unit
	Expiration   *big.Int       // unix seconds after which the order is dead
}

// SignedOrder is an Order plus its EIP-712 signature and the typed-data
// digest it signs. The hash doubles as an idempotency key for tracking.
type SignedOrder struct {
	Order     Order
	Signature []byte
	OrderHash common.Hash
}

// Payload is the wire form the limit-order API accepts: uint256 fields as
// decimal strings, addresses EIP-55 checksummed, signature hex-encoded.
type Payload struct {
	Salt         string `json:"salt"`
	Maker        string `json:"maker"`
	Receiver     string `json:"receiver"`
	MakerAsset   string `json:"makerAsset"`
	TakerAsset   string `json:"takerAsset"`
	MakingAmount string `json:"makingAmount"`
	TakingAmount string `json:"takingAmount"`
	Expiration   string `json:"expiration"`
	OrderHash    string `json:"orderHash,omitempty"`
	Signature    string `json:"signature,omitempty"`
}

// ToPayload converts a SignedOrder to its wire form.
func (s *SignedOrder) ToPayload() *Payload {
	p := s.Order.payload()
	p.OrderHash = s.OrderHash.Hex()
	p.Signature = fmt.Sprintf("0x%x", s.Signature)
	return p
}

func (o *Order) payload() *Payload {
	return &Payload{
		Salt:         o.Salt.String(),
		Maker:        crypto.ChecksumAddress(o.Maker.Bytes()),
		Receiver:     crypto.ChecksumAddress(o.Receiver.Bytes()),
		MakerAsset:   crypto.ChecksumAddress(o.MakerAsset.Bytes()),
		TakerAsset:   crypto.ChecksumAddress(o.TakerAsset.Bytes()),
		MakingAmount: o.MakingAmount.String(),
		TakingAmount: o.TakingAmount.String(),
		Expiration:   o.Expiration.String(),
	}
}

// ToOrder parses a wire payload back into an Order.
func (p *Payload) ToOrder() (Order, error) {
	salt, ok := new(big.Int).SetString(p.Salt, 10)
	if !ok {
		return Order{}, fmt.Errorf("invalid salt: %s", p.Salt)
	}
	making, ok := new(big.Int).SetString(p.MakingAmount, 10)
	if !ok {
		return Order{}, fmt.Errorf("invalid makingAmount: %s", p.MakingAmount)
	}
	taking, ok := new(big.Int).SetString(p.TakingAmount, 10)
	if !ok {
		return Order{}, fmt.Errorf("invalid takingAmount: %s", p.TakingAmount)
	}
	expiration, ok := new(big.Int).SetString(p.Expiration, 10)
	if !ok {
		return Order{}, fmt.Errorf("invalid expiration: %s", p.Expiration)
	}

	return Order{
		Salt:         salt,
		Maker:        common.HexToAddress(p.Maker),
		Receiver:     common.HexToAddress(p.Receiver),
		MakerAsset:   common.HexToAddress(p.MakerAsset),
		TakerAsset:   common.HexToAddress(p.TakerAsset),
		MakingAmount: making,
		TakingAmount: taking,
		Expiration:   expiration,
	}, nil
}

// Serialize converts a SignedOrder payload to JSON bytes.
func (s *SignedOrder) Serialize() ([]byte, error) {
	return json.Marshal(s.ToPayload())
}
