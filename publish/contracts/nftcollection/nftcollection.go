package nftcollection

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"
)

const (
	name            = "NFTCollection"
	symbol          = "RA"
	license         = "MIT"
	solidityVersion = "0.8.4"
	GasLimit        = 5_000_000
)

// constructor(string baseURI, address whitelistContract)
var funcConstructor = w3.MustNewFunc(
	"constructor(string,address)", "",
)

type ConstructorArgs struct {
	MetadataURL string
	Whitelist   common.Address
}

func Name() string            { return name }
func Symbol() string          { return symbol }
func License() string         { return license }
func SolidityVersion() string { return solidityVersion }
func MaxGasLimit() uint64     { return GasLimit }

// EncodeConstructor returns the ABI encoding of the constructor arguments
// without a selector, as block explorers expect for source verification.
func EncodeConstructor(args ConstructorArgs) ([]byte, error) {
	input, err := funcConstructor.EncodeArgs(args.MetadataURL, args.Whitelist)
	if err != nil {
		return nil, err
	}
	return input[4:], nil
}
