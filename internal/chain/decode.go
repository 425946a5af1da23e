package chain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrUnexpectedTopic is returned when a log is decoded as the wrong event.
var ErrUnexpectedTopic = errors.New("unexpected event topic")

// SwapDelta is the pool-side signed change of each reserve caused by a swap:
// positive when the pool received the token, negative when it paid it out.
type SwapDelta struct {
	Amount0 *big.Int
	Amount1 *big.Int
}

// MintAmounts are the token amounts added to a pool by a Mint event.
type MintAmounts struct {
	Amount0 *big.Int
	Amount1 *big.Int
}

// DecodeSwapV2 decodes a V2 pair Swap log. The in/out legs are folded into
// one signed delta per token (in - out).
func DecodeSwapV2(log types.Log) (SwapDelta, error) {
	values, err := unpackEvent(PairV2ABI, "Swap", SwapV2Topic, log)
	if err != nil {
		return SwapDelta{}, err
	}
	amount0In, err := bigAt(values, 0)
	if err != nil {
		return SwapDelta{}, err
	}
	amount1In, err := bigAt(values, 1)
	if err != nil {
		return SwapDelta{}, err
	}
	amount0Out, err := bigAt(values, 2)
	if err != nil {
		return SwapDelta{}, err
	}
	amount1Out, err := bigAt(values, 3)
	if err != nil {
		return SwapDelta{}, err
	}
	return SwapDelta{
		Amount0: new(big.Int).Sub(amount0In, amount0Out),
		Amount1: new(big.Int).Sub(amount1In, amount1Out),
	}, nil
}

// DecodeSwapV3 decodes a V3 pool Swap log. V3 already reports signed deltas.
func DecodeSwapV3(log types.Log) (SwapDelta, error) {
	values, err := unpackEvent(PoolV3ABI, "Swap", SwapV3Topic, log)
	if err != nil {
		return SwapDelta{}, err
	}
	amount0, err := bigAt(values, 0)
	if err != nil {
		return SwapDelta{}, err
	}
	amount1, err := bigAt(values, 1)
	if err != nil {
		return SwapDelta{}, err
	}
	return SwapDelta{Amount0: amount0, Amount1: amount1}, nil
}

// DecodeMintV2 decodes a V2 pair Mint log.
func DecodeMintV2(log types.Log) (MintAmounts, error) {
	values, err := unpackEvent(PairV2ABI, "Mint", MintV2Topic, log)
	if err != nil {
		return MintAmounts{}, err
	}
	return mintFrom(values, 0)
}

// DecodeMintV3 decodes a V3 pool Mint log. The non-indexed fields are
// (sender, amount, amount0, amount1).
func DecodeMintV3(log types.Log) (MintAmounts, error) {
	values, err := unpackEvent(PoolV3ABI, "Mint", MintV3Topic, log)
	if err != nil {
		return MintAmounts{}, err
	}
	return mintFrom(values, 2)
}

func mintFrom(values []interface{}, offset int) (MintAmounts, error) {
	amount0, err := bigAt(values, offset)
	if err != nil {
		return MintAmounts{}, err
	}
	amount1, err := bigAt(values, offset+1)
	if err != nil {
		return MintAmounts{}, err
	}
	return MintAmounts{Amount0: amount0, Amount1: amount1}, nil
}

func unpackEvent(contract abi.ABI, name string, topic common.Hash, log types.Log) ([]interface{}, error) {
	if len(log.Topics) == 0 || log.Topics[0] != topic {
		return nil, fmt.Errorf("decode %s: %w", name, ErrUnexpectedTopic)
	}
	values, err := contract.Unpack(name, log.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return values, nil
}

func bigAt(values []interface{}, i int) (*big.Int, error) {
	if i >= len(values) {
		return nil, fmt.Errorf("missing field %d", i)
	}
	v, ok := values[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("field %d: unexpected type %T", i, values[i])
	}
	return v, nil
}

// PoolCreation is a factory event announcing a new pair or pool.
type PoolCreation struct {
	V3     bool
	Token0 common.Address
	Token1 common.Address
	Pool   common.Address
}

// DecodePoolCreation decodes a V2 PairCreated or V3 PoolCreated log.
func DecodePoolCreation(log types.Log) (PoolCreation, error) {
	if len(log.Topics) < 3 {
		return PoolCreation{}, fmt.Errorf("decode pool creation: %w", ErrUnexpectedTopic)
	}

	var (
		name string
		v3   bool
	)
	switch log.Topics[0] {
	case PairCreatedTopic:
		name = "PairCreated"
	case PoolCreatedTopic:
		name, v3 = "PoolCreated", true
	default:
		return PoolCreation{}, fmt.Errorf("decode pool creation: %w", ErrUnexpectedTopic)
	}

	values, err := FactoryABI.Unpack(name, log.Data)
	if err != nil {
		return PoolCreation{}, fmt.Errorf("decode %s: %w", name, err)
	}
	// pair is the first data field of PairCreated, pool the second of PoolCreated
	idx := 0
	if v3 {
		idx = 1
	}
	if idx >= len(values) {
		return PoolCreation{}, fmt.Errorf("decode %s: missing field %d", name, idx)
	}
	addr, ok := values[idx].(common.Address)
	if !ok {
		return PoolCreation{}, fmt.Errorf("decode %s: unexpected type %T", name, values[idx])
	}

	return PoolCreation{
		V3:     v3,
		Token0: common.BytesToAddress(log.Topics[1].Bytes()),
		Token1: common.BytesToAddress(log.Topics[2].Bytes()),
		Pool:   addr,
	}, nil
}
