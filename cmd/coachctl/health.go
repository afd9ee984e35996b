package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/ashureev/commcoach/internal/probe"
	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var errNotServing = errors.New("server is not serving")

func newHealthCmd() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check a running server over gRPC health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := probe.Dial(cmd.Context(), probe.ClientConfig{
				Address:        addr,
				ConnectTimeout: timeout,
			}, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			status, err := client.Check(cmd.Context(), probe.ServiceName)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", addr, status)
			if status != healthpb.HealthCheckResponse_SERVING {
				return errNotServing
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", probe.DefaultClientConfig().Address, "gRPC health address")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "connect timeout")
	return cmd
}
