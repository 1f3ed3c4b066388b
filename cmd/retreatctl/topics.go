package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"retreat/internal/audit"
	"retreat/internal/platform/config"
)

func newTopicsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Manage Kafka topics",
	}
	cmd.AddCommand(newTopicsCreateCmd())
	return cmd
}

func newTopicsCreateCmd() *cobra.Command {
	var (
		partitions  int32
		replication int16
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the audit topic if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			if len(cfg.Kafka.Brokers) == 0 {
				return errors.New("KAFKA_BROKERS is required")
			}
			if err := audit.CreateTopic(cmd.Context(), cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, partitions, replication); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "topic ready:", cfg.Kafka.AuditTopic)
			return nil
		},
	}
	cmd.Flags().Int32Var(&partitions, "partitions", 3, "partition count")
	cmd.Flags().Int16Var(&replication, "replication", 1, "replication factor")
	return cmd
}
