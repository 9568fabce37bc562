package main

import (
	"errors"
	"fmt"
	"strconv"

	"abi_resolver/internal/domain/entity"
	"abi_resolver/internal/pkg/utils"

	"github.com/spf13/cobra"
)

var (
	abiFile   string
	decompile bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <address> <chainId>",
	Short: "Print the ABI of a contract",
	Long: `Resolves the ABI of a contract, following proxies to their implementation.

With --abi-file the given ABI is validated and stored instead. With --decompile
the decompiler is asked directly; use it when no source knows the contract.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		chainID, err := parseChainID(args[1])
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		var res *entity.Resolution
		switch {
		case abiFile != "":
			text, readErr := utils.ReadTextFile(abiFile)
			if readErr != nil {
				return readErr
			}
			res, err = a.resolver.Resolve(cmd.Context(), args[0], chainID, entity.ResolveOptions{UserAbi: text})
		case decompile:
			res, err = a.resolver.Decompile(cmd.Context(), args[0], chainID)
		default:
			res, err = a.resolver.Resolve(cmd.Context(), args[0], chainID, entity.ResolveOptions{})
		}
		if err != nil {
			var exhausted *entity.ExhaustedError
			if errors.As(err, &exhausted) {
				for _, at := range exhausted.Attempts {
					fmt.Printf("  %s: %s\n", at.Source, at.Reason())
				}
				if exhausted.IsContract && !decompile {
					fmt.Println("The address holds bytecode; provide an ABI with --abi-file or retry with --decompile.")
				}
			}
			return err
		}
		return printJSON(res)
	},
}

var proxyCmd = &cobra.Command{
	Use:   "proxy <address> <chainId>",
	Short: "Show the implementation behind a proxy contract",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		chainID, err := parseChainID(args[1])
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.resolver.DetectProxyTarget(cmd.Context(), args[0], chainID)
		if err != nil {
			return err
		}
		return printJSON(rec)
	},
}

func parseChainID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid chain id %q", raw)
	}
	return id, nil
}

func init() {
	resolveCmd.Flags().StringVar(&abiFile, "abi-file", "", "store the ABI from this file instead of fetching one")
	resolveCmd.Flags().BoolVar(&decompile, "decompile", false, "ask the decompiler instead of the regular sources")
	resolveCmd.MarkFlagsMutuallyExclusive("abi-file", "decompile")
}
