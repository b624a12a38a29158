package main

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ryzncodes/nft-collection-page/publish"
	"github.com/ryzncodes/nft-collection-page/publish/contracts/nftcollection"
)

// Viper keys. Each is bound to the upper-case environment variable of the
// same name.
const (
	keyWhitelistAddress = "whitelist_contract_address"
	keyMetadataURL      = "metadata_url"
	keyRPCURL           = "rpc_url"
	keyChainID          = "chain_id"
	keyPrivateKey       = "private_key"
	keyPublicAddress    = "public_address"
	keyGasFeeCap        = "gas_fee_cap"
	keyGasTipCap        = "gas_tip_cap"
	keyGasLimit         = "gas_limit"
	keyArtifactsDir     = "artifacts_dir"
	keyTimeoutSeconds   = "timeout_seconds"
	keyLogLevel         = "log_level"
)

type config struct {
	WhitelistAddress string
	MetadataURL      string
	RPCURL           string
	ChainID          int64
	PrivateKey       string
	PublicAddress    string
	GasFeeCap        int64
	GasTipCap        int64
	GasLimit         uint64
	ArtifactsDir     string
	TimeoutSeconds   int
}

func (c config) deployerConfig() publish.Config {
	return publish.Config{
		WhitelistAddress: c.WhitelistAddress,
		MetadataURL:      c.MetadataURL,
	}
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	fs := cmd.PersistentFlags()
	fs.String("whitelist-address", "", "whitelist contract address (WHITELIST_CONTRACT_ADDRESS)")
	fs.String("metadata-url", "", "collection metadata URL (METADATA_URL)")
	fs.String("rpc-url", "", "RPC URL (RPC_URL)")
	fs.Int64("chain-id", 0, "chain id (CHAIN_ID)")
	fs.String("private-key", "", "deployer private key hex (PRIVATE_KEY)")
	fs.String("public-address", "", "public address for validation (PUBLIC_ADDRESS)")
	fs.Int64("gas-fee-cap", 2_000_000_000, "EIP-1559 fee cap (GAS_FEE_CAP)")
	fs.Int64("gas-tip-cap", 1_000_000_000, "EIP-1559 tip cap (GAS_TIP_CAP)")
	fs.Uint64("gas-limit", nftcollection.GasLimit, "deployment gas limit (GAS_LIMIT)")
	fs.String("artifacts-dir", "artifacts", "Hardhat artifacts directory (ARTIFACTS_DIR)")
	fs.Int("timeout-seconds", 0, "overall timeout in seconds, 0 waits indefinitely (TIMEOUT_SECONDS)")
	fs.String("log-level", "info", "log level (LOG_LEVEL)")

	bindings := map[string]string{
		keyWhitelistAddress: "whitelist-address",
		keyMetadataURL:      "metadata-url",
		keyRPCURL:           "rpc-url",
		keyChainID:          "chain-id",
		keyPrivateKey:       "private-key",
		keyPublicAddress:    "public-address",
		keyGasFeeCap:        "gas-fee-cap",
		keyGasTipCap:        "gas-tip-cap",
		keyGasLimit:         "gas-limit",
		keyArtifactsDir:     "artifacts-dir",
		keyTimeoutSeconds:   "timeout-seconds",
		keyLogLevel:         "log-level",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// loadConfig reads the current configuration. Values are taken as they are;
// nothing is trimmed or defaulted beyond the flag defaults.
func loadConfig(v *viper.Viper) config {
	return config{
		WhitelistAddress: v.GetString(keyWhitelistAddress),
		MetadataURL:      v.GetString(keyMetadataURL),
		RPCURL:           v.GetString(keyRPCURL),
		ChainID:          v.GetInt64(keyChainID),
		PrivateKey:       v.GetString(keyPrivateKey),
		PublicAddress:    v.GetString(keyPublicAddress),
		GasFeeCap:        v.GetInt64(keyGasFeeCap),
		GasTipCap:        v.GetInt64(keyGasTipCap),
		GasLimit:         v.GetUint64(keyGasLimit),
		ArtifactsDir:     v.GetString(keyArtifactsDir),
		TimeoutSeconds:   v.GetInt(keyTimeoutSeconds),
	}
}

// dialChain connects to the configured RPC endpoint and returns a toolkit
// that deploys Hardhat artifacts through it.
func dialChain(cfg config, log *logrus.Entry) (publish.Toolkit, func() error, error) {
	if cfg.RPCURL == "" || cfg.ChainID == 0 || cfg.PrivateKey == "" {
		return nil, nil, errors.New("rpc-url, chain-id and private-key are required")
	}

	key, deployerAddr, err := parsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, nil, err
	}

	if cfg.PublicAddress != "" {
		pub, err := parseAddress(cfg.PublicAddress)
		if err != nil {
			return nil, nil, err
		}
		if !strings.EqualFold(pub.Hex(), deployerAddr.Hex()) {
			return nil, nil, fmt.Errorf("public-address %s does not match private key address %s", pub.Hex(), deployerAddr.Hex())
		}
	}

	client, err := publish.NewClient(cfg.RPCURL, cfg.ChainID, key, big.NewInt(cfg.GasFeeCap), big.NewInt(cfg.GasTipCap))
	if err != nil {
		return nil, nil, err
	}

	log.WithFields(logrus.Fields{
		"deployer":  client.Address().Hex(),
		"chain_id":  cfg.ChainID,
		"artifacts": cfg.ArtifactsDir,
	}).Debug("connected")

	return publish.NewArtifactToolkit(client, cfg.ArtifactsDir, cfg.GasLimit), client.Close, nil
}

func parsePrivateKey(v string) (*ecdsa.PrivateKey, common.Address, error) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "0x")
	key, err := crypto.HexToECDSA(v)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("parse private key: %w", err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey), nil
}

func parseAddress(v string) (common.Address, error) {
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("invalid address: %s", v)
	}
	return common.HexToAddress(v), nil
}
