package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"solsub-admin/internal/clusters"
	"solsub-admin/internal/database"
)

var clusterInput struct {
	name         string
	clusterID    string
	price        string
	timelineDays int
	trialPeriod  int
}

func newClusterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Manage cluster configurations",
	}
	cmd.AddCommand(newClusterCreateCommand())
	return cmd
}

func newClusterCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a cluster configuration and print its API key",
		RunE:  runClusterCreate,
	}

	cmd.Flags().StringVar(&clusterInput.name, "name", "", "Cluster name (required)")
	cmd.Flags().StringVar(&clusterInput.clusterID, "cluster-id", "", "External cluster identifier (required)")
	cmd.Flags().StringVar(&clusterInput.price, "price", "", "Subscription price, e.g. 49.99 (required)")
	cmd.Flags().IntVar(&clusterInput.timelineDays, "timeline-days", 30, "Subscription length in days")
	cmd.Flags().IntVar(&clusterInput.trialPeriod, "trial-period", 0, "Trial length in days")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("cluster-id")
	cmd.MarkFlagRequired("price")

	return cmd
}

func runClusterCreate(cmd *cobra.Command, args []string) error {
	price, err := decimal.NewFromString(clusterInput.price)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", clusterInput.price, err)
	}

	if err := openDatabase(); err != nil {
		return err
	}
	defer closeDatabase()

	cluster, err := clusters.Create(database.DB, clusters.Input{
		Name:         clusterInput.name,
		ClusterID:    clusterInput.clusterID,
		Price:        price,
		TimelineDays: clusterInput.timelineDays,
		TrialPeriod:  clusterInput.trialPeriod,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	color.New(color.FgGreen, color.Bold).Fprintf(out, "✅ Cluster %s created (id %d)\n", cluster.Name, cluster.ID)
	fmt.Fprintf(out, "  Cluster ID: %s\n", cluster.ClusterID)
	fmt.Fprintf(out, "  Price:      %s\n", cluster.Price.StringFixed(2))
	fmt.Fprintf(out, "  API key:    %s\n", cluster.APIKey)
	return nil
}
