// cmd/client is the CLI entry-point built with Cobra, retargeted at the
// raw binary wire protocol every ringkv node speaks — there is no HTTP
// layer in the replicated core to talk to (see internal/admin for the
// separate, read-only operator sidecar).
//
// Usage:
//
//	ringkv-cli write 7 "alpha"         --server 10.0.0.12:52525
//	ringkv-cli read 7                  --server 10.0.0.12:52525
//	ringkv-cli nodes                   --server 10.0.0.12:52525
//	ringkv-cli announce 9001           --server 10.0.0.12:52525
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"ringkv/internal/client"
)

var (
	serverAddr string
	timeout    time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "ringkv-cli",
		Short: "CLI client for a ringkv cluster",
	}

	root.PersistentFlags().StringVarP(&serverAddr, "server", "s",
		"127.0.0.1:52525", "address of any node in the cluster (host:port)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second,
		"per-call dial and round-trip timeout")

	root.AddCommand(readCmd(), writeCmd(), nodesCmd(), joinCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ─── read ─────────────────────────────────────────────────────────────────────

func readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <key>",
		Short: "Read a key's value; any node forwards to the leader",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args[0])
			if err != nil {
				return err
			}
			c := client.New(serverAddr, timeout)
			value, err := c.Get(key)
			if err == client.ErrNotFound {
				fmt.Printf("key %d not found\n", key)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Println(string(value))
			return nil
		},
	}
}

// ─── write ────────────────────────────────────────────────────────────────────

func writeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write <key> <value>",
		Short: "Write a key, driving the leader's permission/commit handshake",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args[0])
			if err != nil {
				return err
			}
			c := client.New(serverAddr, timeout)
			previous, err := c.Put(key, []byte(args[1]))
			if err != nil {
				return err
			}
			if len(previous) == 0 {
				fmt.Printf("wrote key %d (no prior value)\n", key)
			} else {
				fmt.Printf("wrote key %d (previous value: %q)\n", key, previous)
			}
			return nil
		},
	}
}

// ─── nodes ────────────────────────────────────────────────────────────────────

func nodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "List the cluster's node list, as known to --server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			payload, err := c.Nodes()
			if err != nil {
				return err
			}
			peers, err := client.ParseNodes(payload)
			if err != nil {
				return err
			}
			for _, p := range peers {
				fmt.Printf("%d\t%s\n", p.ID, p.IPv4)
			}
			return nil
		},
	}
}

// ─── announce ─────────────────────────────────────────────────────────────────

func joinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "announce <id>",
		Short: "Send a raw join announcement for id to --server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseKey(args[0])
			if err != nil {
				return err
			}
			c := client.New(serverAddr, timeout)
			if err := c.Announce(id); err != nil {
				return err
			}
			fmt.Printf("%s acknowledged announcement of %d\n", serverAddr, id)
			return nil
		},
	}
}

func parseKey(s string) (uint64, error) {
	key, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid key %q: must be a u64: %w", s, err)
	}
	return key, nil
}
