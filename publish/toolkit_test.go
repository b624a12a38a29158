package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testArtifact = `{
  "_format": "hh-sol-artifact-1",
  "contractName": "NFTCollection",
  "sourceName": "contracts/NFTCollection.sol",
  "abi": [
    {
      "inputs": [
        {"internalType": "string", "name": "baseURI", "type": "string"},
        {"internalType": "address", "name": "whitelistContract", "type": "address"}
      ],
      "stateMutability": "nonpayable",
      "type": "constructor"
    },
    {
      "inputs": [],
      "name": "presaleStarted",
      "outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
      "stateMutability": "view",
      "type": "function"
    }
  ],
  "bytecode": "0x6080604052",
  "deployedBytecode": "0x6080"
}`

var (
	testWhitelist = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testContract  = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testTxHash    = common.HexToHash("0xabcdef")
)

type fakeChain struct {
	data       []byte
	gasLimit   uint64
	deployErr  error
	receipt    *types.Receipt
	receiptErr error
	waitedFor  common.Hash
}

func (c *fakeChain) DeployContract(_ context.Context, data []byte, gasLimit uint64) (DeployResult, error) {
	c.data = data
	c.gasLimit = gasLimit
	if c.deployErr != nil {
		return DeployResult{}, c.deployErr
	}
	return DeployResult{TxHash: testTxHash, ContractAddress: testContract}, nil
}

func (c *fakeChain) WaitForReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	c.waitedFor = txHash
	return c.receipt, c.receiptErr
}

func successReceipt() *types.Receipt {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: testTxHash}
}

func writeArtifact(t *testing.T, dir, name, body string) {
	t.Helper()
	path := ArtifactPath(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func mustParseArtifact(t *testing.T) *Artifact {
	t.Helper()
	artifact, err := ParseArtifact([]byte(testArtifact))
	require.NoError(t, err)
	return artifact
}

func expectedConstructorArgs(t *testing.T, url string, whitelist common.Address) []byte {
	t.Helper()
	stringT, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	addressT, err := abi.NewType("address", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: stringT}, {Type: addressT}}.Pack(url, whitelist)
	require.NoError(t, err)
	return packed
}

func TestArtifactPath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("artifacts", "contracts", "NFTCollection.sol", "NFTCollection.json"),
		ArtifactPath("artifacts", "NFTCollection"),
	)
}

func TestParseArtifact(t *testing.T) {
	artifact := mustParseArtifact(t)
	assert.Equal(t, "NFTCollection", artifact.ContractName)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, artifact.Bytecode)
	require.Len(t, artifact.ABI.Constructor.Inputs, 2)
	assert.Equal(t, "baseURI", artifact.ABI.Constructor.Inputs[0].Name)
	assert.Contains(t, artifact.ABI.Methods, "presaleStarted")
}

func TestParseArtifactErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{name: "not json", body: "{"},
		{name: "bad abi", body: `{"contractName":"X","abi":{"type":1},"bytecode":"0x60"}`},
		{name: "interface", body: `{"contractName":"X","abi":[],"bytecode":"0x"}`, want: ErrNoBytecode},
		{name: "no bytecode", body: `{"contractName":"X","abi":[]}`, want: ErrNoBytecode},
		{name: "unlinked library", body: `{"contractName":"X","abi":[],"bytecode":"0x60__$abc$__"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArtifact([]byte(tt.body))
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestCreationData(t *testing.T) {
	f := NewArtifactFactory(&fakeChain{}, mustParseArtifact(t), 1_000)

	data, err := f.CreationData("ipfs://meta", testWhitelist.Hex())
	require.NoError(t, err)

	want := append([]byte{0x60, 0x80, 0x60, 0x40, 0x52}, expectedConstructorArgs(t, "ipfs://meta", testWhitelist)...)
	assert.Equal(t, want, data)

	// common.Address is accepted as is.
	data2, err := f.CreationData("ipfs://meta", testWhitelist)
	require.NoError(t, err)
	assert.Equal(t, data, data2)
}

func TestCreationDataRejectsArguments(t *testing.T) {
	f := NewArtifactFactory(&fakeChain{}, mustParseArtifact(t), 1_000)

	tests := []struct {
		name string
		args []any
		want error
	}{
		{name: "malformed address", args: []any{"ipfs://meta", "0xABC"}, want: ErrInvalidAddress},
		{name: "empty address", args: []any{"ipfs://meta", ""}, want: ErrInvalidAddress},
		{name: "address wrong type", args: []any{"ipfs://meta", 42}, want: ErrInvalidAddress},
		{name: "string wrong type", args: []any{42, testWhitelist.Hex()}},
		{name: "too few", args: []any{"ipfs://meta"}},
		{name: "too many", args: []any{"ipfs://meta", testWhitelist.Hex(), "extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.CreationData(tt.args...)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestArtifactFactoryDeploy(t *testing.T) {
	chain := &fakeChain{receipt: successReceipt()}
	f := NewArtifactFactory(chain, mustParseArtifact(t), 5_000_000)

	contract, err := f.Deploy(context.Background(), "ipfs://meta", testWhitelist.Hex())
	require.NoError(t, err)

	assert.Equal(t, testContract.Hex(), contract.Address)
	assert.Equal(t, testTxHash.Hex(), contract.TxHash)
	assert.Equal(t, uint64(5_000_000), chain.gasLimit)
	assert.Equal(t, testTxHash, chain.waitedFor)

	want, err := f.CreationData("ipfs://meta", testWhitelist)
	require.NoError(t, err)
	assert.Equal(t, want, chain.data)
}

func TestArtifactFactoryDeployFailures(t *testing.T) {
	sendErr := errors.New("insufficient funds for gas * price + value")
	waitErr := context.DeadlineExceeded

	tests := []struct {
		name  string
		chain *fakeChain
		args  []any
		want  error
	}{
		{
			name:  "invalid whitelist never reaches chain",
			chain: &fakeChain{receipt: successReceipt()},
			args:  []any{"ipfs://meta", "not-an-address"},
			want:  ErrInvalidAddress,
		},
		{
			name:  "send fails",
			chain: &fakeChain{deployErr: sendErr},
			args:  []any{"ipfs://meta", testWhitelist.Hex()},
			want:  sendErr,
		},
		{
			name:  "wait fails",
			chain: &fakeChain{receiptErr: waitErr},
			args:  []any{"ipfs://meta", testWhitelist.Hex()},
			want:  waitErr,
		},
		{
			name:  "reverted",
			chain: &fakeChain{receipt: &types.Receipt{Status: types.ReceiptStatusFailed}},
			args:  []any{"ipfs://meta", testWhitelist.Hex()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewArtifactFactory(tt.chain, mustParseArtifact(t), 1_000)
			contract, err := f.Deploy(context.Background(), tt.args...)
			assert.Nil(t, contract)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestArtifactToolkitContractFactory(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "NFTCollection", testArtifact)

	chain := &fakeChain{receipt: successReceipt()}
	toolkit := NewArtifactToolkit(chain, dir, 3_000_000)

	factory, err := toolkit.ContractFactory(context.Background(), "NFTCollection")
	require.NoError(t, err)

	contract, err := factory.Deploy(context.Background(), "ipfs://meta", testWhitelist.Hex())
	require.NoError(t, err)
	assert.Equal(t, testContract.Hex(), contract.Address)
	assert.Equal(t, uint64(3_000_000), chain.gasLimit)
}

func TestArtifactToolkitMissingArtifact(t *testing.T) {
	toolkit := NewArtifactToolkit(&fakeChain{}, t.TempDir(), 1_000)

	_, err := toolkit.ContractFactory(context.Background(), "NFTCollection")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDeployerWithArtifactToolkit(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, ContractName, testArtifact)
	chain := &fakeChain{receipt: successReceipt()}

	var out strings.Builder
	d := NewDeployer(
		NewArtifactToolkit(chain, dir, 1_000),
		Config{WhitelistAddress: testWhitelist.Hex(), MetadataURL: "ipfs://meta"},
		&out,
		quietLog(),
	)

	_, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Raya Apes Contract Address: "+testContract.Hex()+"\n", out.String())
}
