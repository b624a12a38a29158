package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var ErrInvalidAddress = errors.New("invalid address")

// Chain is the part of Client the artifact toolkit needs.
type Chain interface {
	DeployContract(ctx context.Context, data []byte, gasLimit uint64) (DeployResult, error)
	WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// ArtifactToolkit resolves contract factories from Hardhat artifacts and
// deploys them through a Chain.
type ArtifactToolkit struct {
	chain    Chain
	dir      string
	gasLimit uint64
}

func NewArtifactToolkit(chain Chain, artifactsDir string, gasLimit uint64) *ArtifactToolkit {
	return &ArtifactToolkit{
		chain:    chain,
		dir:      artifactsDir,
		gasLimit: gasLimit,
	}
}

func (t *ArtifactToolkit) ContractFactory(_ context.Context, name string) (Factory, error) {
	artifact, err := LoadArtifact(t.dir, name)
	if err != nil {
		return nil, err
	}
	return NewArtifactFactory(t.chain, artifact, t.gasLimit), nil
}

type ArtifactFactory struct {
	chain    Chain
	artifact *Artifact
	gasLimit uint64
}

func NewArtifactFactory(chain Chain, artifact *Artifact, gasLimit uint64) *ArtifactFactory {
	return &ArtifactFactory{
		chain:    chain,
		artifact: artifact,
		gasLimit: gasLimit,
	}
}

// Deploy sends the creation transaction with args as constructor arguments
// and blocks until its receipt is available.
func (f *ArtifactFactory) Deploy(ctx context.Context, args ...any) (*DeployedContract, error) {
	name := f.artifact.ContractName

	data, err := f.CreationData(args...)
	if err != nil {
		return nil, err
	}

	result, err := f.chain.DeployContract(ctx, data, f.gasLimit)
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %w", name, err)
	}
	receipt, err := f.chain.WaitForReceipt(ctx, result.TxHash)
	if err != nil {
		return nil, fmt.Errorf("wait %s deployment: %w", name, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%s deployment failed: %s", name, result.TxHash.Hex())
	}

	return &DeployedContract{
		Address: result.ContractAddress.Hex(),
		TxHash:  result.TxHash.Hex(),
	}, nil
}

// CreationData returns the creation bytecode followed by the ABI-encoded
// constructor arguments.
func (f *ArtifactFactory) CreationData(args ...any) ([]byte, error) {
	name := f.artifact.ContractName
	inputs := f.artifact.ABI.Constructor.Inputs
	if len(args) != len(inputs) {
		return nil, fmt.Errorf("%s constructor takes %d arguments, got %d", name, len(inputs), len(args))
	}

	values := make([]any, len(args))
	for i, input := range inputs {
		v, err := convertArg(input.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("%s constructor argument %q: %w", name, input.Name, err)
		}
		values[i] = v
	}

	packed, err := f.artifact.ABI.Pack("", values...)
	if err != nil {
		return nil, fmt.Errorf("encode %s constructor: %w", name, err)
	}

	data := make([]byte, 0, len(f.artifact.Bytecode)+len(packed))
	data = append(data, f.artifact.Bytecode...)
	return append(data, packed...), nil
}

func convertArg(t abi.Type, v any) (any, error) {
	if t.T != abi.AddressTy {
		return v, nil
	}
	switch a := v.(type) {
	case common.Address:
		return a, nil
	case string:
		if !common.IsHexAddress(a) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, a)
		}
		return common.HexToAddress(a), nil
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidAddress, v)
	}
}
