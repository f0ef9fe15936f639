// Command testc queries a running check service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/usher2/u2dumpsync/internal/check"
	"github.com/usher2/u2dumpsync/internal/index"
)

const requestTimeout = 10 * time.Second

func main() {
	var addr string

	var client *check.Client

	root := &cobra.Command{
		Use:           "testc",
		Short:         "Check service client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("dial: %w", err)
			}

			client = check.NewClient(conn)

			return nil
		},
	}

	root.PersistentFlags().StringVarP(&addr, "addr", "a", "localhost:50001", "check service address")

	search := func(use, short string, fn func(ctx context.Context, q string) (*check.SearchResponse, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " QUERY...",
			Short: short,
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				for _, q := range args {
					fmt.Fprintf(cmd.OutOrStdout(), "Looking for %s\n", q)

					ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
					r, err := fn(ctx, q)

					cancel()

					if err != nil {
						return err
					}

					printResponse(cmd, r)
				}

				return nil
			},
		}
	}

	root.AddCommand(
		search("id", "Search by content id", func(ctx context.Context, q string) (*check.SearchResponse, error) {
			id, err := strconv.ParseInt(q, 10, 64)
			if err != nil {
				return nil, err
			}

			return client.SearchID(ctx, &check.IDRequest{Query: id})
		}),
		search("ip", "Search by IPv4 or IPv6", func(ctx context.Context, q string) (*check.SearchResponse, error) {
			if ip := index.IPv4StrToInt(q); ip != index.BadIPv4 {
				return client.SearchIP4(ctx, &check.IP4Request{Query: ip})
			}

			ip := net.ParseIP(q)
			if ip == nil {
				return nil, fmt.Errorf("bad address: %s", q)
			}

			return client.SearchIP6(ctx, &check.IP6Request{Query: ip})
		}),
		search("url", "Search by URL", func(ctx context.Context, q string) (*check.SearchResponse, error) {
			return client.SearchURL(ctx, &check.URLRequest{Query: q})
		}),
		search("domain", "Search by domain", func(ctx context.Context, q string) (*check.SearchResponse, error) {
			return client.SearchDomain(ctx, &check.DomainRequest{Query: q})
		}),
		search("decision", "Search by decision number", func(ctx context.Context, q string) (*check.SearchResponse, error) {
			return client.SearchDecision(ctx, &check.DecisionRequest{Query: q})
		}),
		&cobra.Command{
			Use:   "ping",
			Short: "Ping the service",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
				defer cancel()

				r, err := client.Ping(ctx, &check.PingRequest{Ping: "ping"})
				if err != nil {
					return err
				}

				if r.Error != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "ERROR: %s\n", r.Error)

					return nil
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s, registry time %s\n", r.Pong,
					time.Unix(r.RegistryUpdateTime, 0).UTC().Format(time.RFC3339))

				return nil
			},
		},
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printResponse(cmd *cobra.Command, r *check.SearchResponse) {
	switch {
	case r.Error != "":
		fmt.Fprintf(cmd.OutOrStdout(), "ERROR: %s\n", r.Error)
	case len(r.Results) == 0:
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing...")
	default:
		for _, c := range r.Results {
			b, _ := json.MarshalIndent(c, "    ", "    ")
			fmt.Fprintf(cmd.OutOrStdout(), "    %s\n    pack: %s\n", b, c.Pack)
		}
	}
}
