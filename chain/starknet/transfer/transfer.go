package transfer

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/NethermindEth/juno/core/felt"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/logger"
)

// Entrypoints of the token interface.
const (
	EntrypointBalanceOf = "balance_of"
	EntrypointTransfer  = "transfer"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSameAccount         = errors.New("source and destination are the same account")
)

// Executor is the subset of starknet.MultiClient a Transferer depends on.
type Executor interface {
	Read(ctx context.Context, call starknet.Call) ([]*felt.Felt, error)
	WriteAndConfirm(ctx context.Context, calls ...starknet.Call) (*starknet.PendingOperation, error)
	SignerAddress() *felt.Felt
}

var _ Executor = (*starknet.MultiClient)(nil)

// Intent describes a token transfer.
type Intent struct {
	Token *felt.Felt
	// From defaults to the signer of the executor. The transfer is always signed by that signer,
	// so a different From only works for accounts it controls.
	From   *felt.Felt
	To     *felt.Felt
	Amount starknet.Uint256
}

// Balances of both accounts at one point in time.
type Balances struct {
	From *big.Int
	To   *big.Int
}

// Result of a confirmed transfer.
type Result struct {
	Operation *starknet.PendingOperation
	Amount    *big.Int
	Before    Balances
	After     Balances
	// Verified is false when the balances observed after confirmation do not account exactly
	// for the transferred amount. The transfer itself is confirmed either way.
	Verified  bool
	Anomalies []string
}

// Transferer moves tokens after checking the source holds enough of them.
type Transferer struct {
	client Executor
	lggr   logger.Logger
}

// New creates a Transferer submitting through client.
func New(lggr logger.Logger, client Executor) *Transferer {
	return &Transferer{
		client: client,
		lggr:   lggr.Named("Transfer"),
	}
}

// Transfer submits the transfer described by intent and waits for its confirmation. Nothing is
// submitted when the source balance is lower than the amount.
func (t *Transferer) Transfer(ctx context.Context, intent Intent) (Result, error) {
	if intent.From == nil {
		intent.From = t.client.SignerAddress()
	}
	if intent.Token == nil || intent.From == nil || intent.To == nil {
		return Result{}, errors.New("token, from and to are required")
	}
	if starknet.FeltsEqual(intent.From, intent.To) {
		return Result{}, fmt.Errorf("%w: %s", ErrSameAccount, intent.From)
	}

	if _, err := starknet.Uint256FromLimbs(intent.Amount.Low, intent.Amount.High); err != nil {
		return Result{}, fmt.Errorf("invalid amount: %w", err)
	}

	amount := intent.Amount.BigInt()
	lggr := t.lggr.With("token", intent.Token.String(), "from", intent.From.String(),
		"to", intent.To.String(), "amount", amount.String())

	before, err := t.balances(ctx, intent)
	if err != nil {
		return Result{}, err
	}
	if amount.Cmp(before.From) > 0 {
		return Result{}, fmt.Errorf("%w: %s holds %s, transfer needs %s",
			ErrInsufficientBalance, intent.From, before.From, amount)
	}

	lggr.Infow("Submitting transfer", "balance", before.From.String())
	calldata := append([]*felt.Felt{intent.To}, intent.Amount.Calldata()...)
	op, err := t.client.WriteAndConfirm(ctx, starknet.Call{
		ContractAddress: intent.Token,
		Entrypoint:      EntrypointTransfer,
		Calldata:        calldata,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to transfer %s of %s: %w", amount, intent.Token, err)
	}

	res := Result{Operation: op, Amount: amount, Before: before}

	after, err := t.balances(ctx, intent)
	if err != nil {
		// The transfer is confirmed, only its verification failed.
		res.Anomalies = append(res.Anomalies, fmt.Sprintf("failed to read balances after transfer: %v", err))
		lggr.Errorw("Transfer confirmed but balances could not be verified", "txHash", op.TxHash.String(), "err", err)

		return res, nil
	}
	res.After = after
	res.Anomalies = verify(amount, before, after)
	res.Verified = len(res.Anomalies) == 0

	if !res.Verified {
		lggr.Errorw("Transfer confirmed with unexpected balances", "txHash", op.TxHash.String(),
			"anomalies", res.Anomalies)
	} else {
		lggr.Infow("Transfer confirmed", "txHash", op.TxHash.String())
	}

	return res, nil
}

// BalanceOf reads the token balance of account.
func (t *Transferer) BalanceOf(ctx context.Context, token, account *felt.Felt) (*big.Int, error) {
	res, err := t.client.Read(ctx, starknet.Call{
		ContractAddress: token,
		Entrypoint:      EntrypointBalanceOf,
		Calldata:        []*felt.Felt{account},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read balance of %s: %w", account, err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("%w: balance of %s has %d fields, want 2",
			starknet.ErrMalformedResponse, account, len(res))
	}

	u, err := starknet.Uint256FromLimbs(res[0], res[1])
	if err != nil {
		return nil, fmt.Errorf("%w: balance of %s: %w", starknet.ErrMalformedResponse, account, err)
	}

	return u.BigInt(), nil
}

func (t *Transferer) balances(ctx context.Context, intent Intent) (Balances, error) {
	from, err := t.BalanceOf(ctx, intent.Token, intent.From)
	if err != nil {
		return Balances{}, err
	}
	to, err := t.BalanceOf(ctx, intent.Token, intent.To)
	if err != nil {
		return Balances{}, err
	}

	return Balances{From: from, To: to}, nil
}

// verify checks newFrom == oldFrom - amount and newTo == oldTo + amount.
func verify(amount *big.Int, before, after Balances) []string {
	var anomalies []string

	wantFrom := new(big.Int).Sub(before.From, amount)
	if after.From.Cmp(wantFrom) != 0 {
		anomalies = append(anomalies, fmt.Sprintf("source balance is %s, want %s", after.From, wantFrom))
	}
	wantTo := new(big.Int).Add(before.To, amount)
	if after.To.Cmp(wantTo) != 0 {
		anomalies = append(anomalies, fmt.Sprintf("destination balance is %s, want %s", after.To, wantTo))
	}

	return anomalies
}
