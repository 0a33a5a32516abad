package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/yolodolo42/starkacct/internal/stark"
)

// Fee tokens use 18 decimals on every network.
const feeTokenDecimals = 18

var balanceOfSelector = stark.SelectorFromName("balanceOf")

// FeeBalance returns address's balance of the network's fee token.
// An undeployed account can already hold a balance; deploy fees are paid from it.
func (c *Client) FeeBalance(ctx context.Context, name string, address *felt.Felt) (*big.Int, error) {
	network, err := c.GetNetwork(name)
	if err != nil {
		return nil, err
	}
	token := network.FeeToken
	if token == nil {
		token = StrkToken
	}

	result, err := c.Call(ctx, name, FunctionCall{
		ContractAddress:    token,
		EntryPointSelector: balanceOfSelector,
		Calldata:           []*felt.Felt{address},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get fee balance: %w", err)
	}
	// balanceOf returns a u256 as (low, high)
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected balanceOf result length %d", len(result))
	}
	return stark.JoinUint256(result[0], result[1]), nil
}

// FormatBalance formats a balance with decimals as a human-readable string
func FormatBalance(balance *big.Int, decimals uint8) string {
	if balance == nil {
		return "0"
	}

	divisor := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	balFloat := new(big.Float).SetInt(balance)
	result := new(big.Float).Quo(balFloat, divisor)

	if decimals > 6 {
		return result.Text('f', 6)
	}
	return result.Text('f', int(decimals))
}

// FormatFee formats a fee-token amount.
func FormatFee(amount *big.Int) string {
	return FormatBalance(amount, feeTokenDecimals)
}
