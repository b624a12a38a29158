package publish

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var ErrNoBytecode = errors.New("artifact has no creation bytecode")

// Artifact is the subset of a Hardhat compilation artifact needed to deploy
// a contract.
type Artifact struct {
	ContractName string
	ABI          abi.ABI
	Bytecode     []byte
}

type hardhatArtifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

// ArtifactPath returns the Hardhat artifact location for a contract declared
// in contracts/<name>.sol.
func ArtifactPath(dir, name string) string {
	return filepath.Join(dir, "contracts", name+".sol", name+".json")
}

func LoadArtifact(dir, name string) (*Artifact, error) {
	path := ArtifactPath(dir, name)
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	return ParseArtifact(blob)
}

func ParseArtifact(blob []byte) (*Artifact, error) {
	var raw hardhatArtifact
	if err := json.Unmarshal(blob, &raw); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}

	parsed, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return nil, fmt.Errorf("parse %s abi: %w", raw.ContractName, err)
	}

	if raw.Bytecode == "" || raw.Bytecode == "0x" {
		return nil, fmt.Errorf("%s: %w", raw.ContractName, ErrNoBytecode)
	}
	code, err := hexutil.Decode(raw.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("decode %s bytecode: %w", raw.ContractName, err)
	}

	return &Artifact{
		ContractName: raw.ContractName,
		ABI:          parsed,
		Bytecode:     code,
	}, nil
}
