package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ryzncodes/nft-collection-page/publish/contracts/nftcollection"
)

func newConstructorArgsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "constructor-args",
		Short: "Print the ABI-encoded constructor arguments",
		Long: `Print the hex ABI encoding of (metadata URL, whitelist address) as passed
to the NFTCollection constructor, for source verification on a block explorer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig(v)
			whitelist, err := parseAddress(cfg.WhitelistAddress)
			if err != nil {
				return fmt.Errorf("whitelist: %w", err)
			}
			encoded, err := nftcollection.EncodeConstructor(nftcollection.ConstructorArgs{
				MetadataURL: cfg.MetadataURL,
				Whitelist:   whitelist,
			})
			if err != nil {
				return fmt.Errorf("encode constructor: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(encoded))
			return nil
		},
	}
}
