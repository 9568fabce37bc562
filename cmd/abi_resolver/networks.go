package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"abi_resolver/internal/pkg/utils"

	"github.com/spf13/cobra"
)

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List, add or remove networks",
}

var listNetworksCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every registered network, builtins first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSYMBOL\tORIGIN\tTESTNET\tRPC")
		for _, n := range a.registry.ListNetworks() {
			rpc := ""
			if len(n.RPCURLs) > 0 {
				rpc = n.RPCURLs[0]
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%s\n", n.ID, n.Name, n.NativeCurrency.Symbol, n.Origin, n.IsTestnet, rpc)
		}
		return w.Flush()
	},
}

var addNetworkCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a custom network",
	Long: `--config takes a JSON object or a path to a JSON file in the following format:
	{
		"id": 31337,
		"name": "Anvil",
		"nativeCurrency": {"name": "Ether", "symbol": "ETH", "decimals": 18},
		"rpcUrls": ["http://127.0.0.1:8545"],
		"isTestnet": true,
		"blockExplorerUrl": ""
	}`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := cmd.Flags().GetString("config")
		if err != nil {
			return err
		}
		if raw == "" {
			return fmt.Errorf("--config is required")
		}
		def, err := utils.LoadNetworkDefinition(raw)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.registry.AddCustomNetwork(cmd.Context(), def); err != nil {
			return err
		}
		fmt.Printf("Network %s (%d) added.\n", def.Name, def.ID)
		return nil
	},
}

var removeNetworkCmd = &cobra.Command{
	Use:   "remove <chainId>",
	Short: "Remove a custom network and its cached ABIs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid chain id %q: %w", args[0], err)
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.registry.RemoveCustomNetwork(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Network %d removed.\n", id)
		return nil
	},
}

func init() {
	addNetworkCmd.Flags().String("config", "", "network definition as a JSON object or a path to a JSON file")
	networksCmd.AddCommand(listNetworksCmd, addNetworkCmd, removeNetworkCmd)
}
