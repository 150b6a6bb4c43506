// Package main is ansiloctl, the admin client for a running
// ansilo-connectord node: entity discovery, base-query EXPLAIN, session
// token minting, and query log inspection.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ansilo/internal/auth"
	"ansilo/internal/ipcserver"
	"ansilo/internal/querylog"
)

type connFlags struct {
	socket     string
	token      string
	dataSource string
}

func addConnFlags(cmd *cobra.Command, f *connFlags) {
	cmd.Flags().StringVar(&f.socket, "socket", "/run/ansilo/node.sock", "Path to the node's IPC socket")
	cmd.Flags().StringVar(&f.token, "token", "", "Session token (see 'ansiloctl token issue')")
	cmd.Flags().StringVar(&f.dataSource, "data-source", "", "Data source id to authenticate against")
}

func dialAndAuth(ctx context.Context, f *connFlags) (*ipcserver.Client, error) {
	if f.token == "" {
		return nil, fmt.Errorf("--token is required")
	}
	if f.dataSource == "" {
		return nil, fmt.Errorf("--data-source is required")
	}
	c, err := ipcserver.Dial(ctx, f.socket)
	if err != nil {
		return nil, err
	}
	if err := c.Auth(f.token, f.dataSource); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("authenticating: %w", err)
	}
	return c, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "ansiloctl",
		Short: "Admin client for an ansilo-connectord node",
	}

	rootCmd.AddCommand(discoverCmd())
	rootCmd.AddCommand(explainCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(queryLogCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func discoverCmd() *cobra.Command {
	f := &connFlags{}
	var filter string
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List entity ids a data source exposes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := dialAndAuth(cmd.Context(), f)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			ids, err := c.Discover(filter)
			if err != nil {
				return fmt.Errorf("discover: %w", err)
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
	addConnFlags(cmd, f)
	cmd.Flags().StringVar(&filter, "filter", "", "Connector-specific filter (e.g. a schema/table glob)")
	return cmd
}

func explainCmd() *cobra.Command {
	f := &connFlags{}
	cmd := &cobra.Command{
		Use:   "explain <entity-id>",
		Short: "Show the base-select pushdown cost estimate for an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dialAndAuth(cmd.Context(), f)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			lines, err := c.ExplainSelect(args[0])
			if err != nil {
				return fmt.Errorf("explain: %w", err)
			}
			for _, l := range lines {
				fmt.Println(l)
			}
			return nil
		},
	}
	addConnFlags(cmd, f)
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Session token utilities",
	}
	cmd.AddCommand(tokenIssueCmd())
	return cmd
}

func tokenIssueCmd() *cobra.Command {
	var (
		keyFile  string
		username string
		provider string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Mint a session token signed with the node's session key",
		RunE: func(*cobra.Command, []string) error {
			if keyFile == "" {
				return fmt.Errorf("--key-file is required")
			}
			if username == "" {
				return fmt.Errorf("--username is required")
			}
			key, err := os.ReadFile(keyFile)
			if err != nil {
				return fmt.Errorf("reading session key: %w", err)
			}
			tok, err := auth.NewTokenIssuer(key).Issue(username, auth.Provider(provider), ttl)
			if err != nil {
				return fmt.Errorf("issuing token: %w", err)
			}
			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyFile, "key-file", "", "Path to the node's session signing key (required)")
	cmd.Flags().StringVar(&username, "username", "", "Username to embed in the token (required)")
	cmd.Flags().StringVar(&provider, "provider", string(auth.ProviderPassword), "Auth provider: password, jwt, saml, custom")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token validity duration")
	return cmd
}

func queryLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query-log",
		Short: "Inspect the node's query log",
	}
	cmd.AddCommand(queryLogTailCmd())
	return cmd
}

func queryLogTailCmd() *cobra.Command {
	var (
		path  string
		lines int
	)
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print the most recent entries from a query log file",
		RunE: func(*cobra.Command, []string) error {
			if path == "" {
				return fmt.Errorf("--path is required")
			}
			entries, err := readLastEntries(path, lines)
			if err != nil {
				return err
			}
			for _, e := range entries {
				printEntry(e)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "Path to the query log file (required)")
	cmd.Flags().IntVar(&lines, "lines", 20, "Number of most recent entries to print")
	return cmd
}

// readLastEntries reads the whole file and keeps the last n decoded
// entries; a rotated query log file is expected to stay small enough
// (FileSink rotates well before this becomes a concern) that streaming a
// true ring buffer isn't worth the complexity here.
func readLastEntries(path string, n int) ([]querylog.Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	rawLines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if len(rawLines) > n {
		rawLines = rawLines[len(rawLines)-n:]
	}

	entries := make([]querylog.Entry, 0, len(rawLines))
	for _, line := range rawLines {
		if line == "" {
			continue
		}
		var e querylog.Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, fmt.Errorf("decoding query log entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func printEntry(e querylog.Entry) {
	status := "ok"
	if e.Error != "" {
		status = "error: " + e.Error
	}
	fmt.Printf("%s  %-20s %-6s  %s\n", e.Time.Format(time.RFC3339), e.DataSource, status, e.Query)
}
