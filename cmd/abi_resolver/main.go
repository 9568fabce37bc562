package main

import (
	"fmt"
	"os"

	"abi_resolver/internal/pkg/utils"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "abi_resolver",
	Short: "Resolve contract ABIs across EVM chains",
	Long: `abi_resolver finds the ABI of a contract on any registered EVM chain.

It follows EIP-1967, EIP-1167 and legacy OpenZeppelin proxies to their
implementation, asks an ABI directory and then a block explorer, and caches
whatever it finds. User supplied ABIs always take precedence. Networks beyond
the builtin set can be added at runtime and survive restarts.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config-file", utils.GetEnv("CONFIG_PATH", "config/config.yaml"), "path to the YAML configuration")
	rootCmd.AddCommand(serveCmd, networksCmd, resolveCmd, proxyCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
