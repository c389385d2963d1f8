package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply relational migrations and document-store indexes",
		Long:  `Bring the relational schema up to date and create the MongoDB indexes the dashboard queries rely on.`,
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := initRelational(cfg); err != nil {
		return err
	}
	defer closeDatabase()
	color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✅ Relational migrations applied")

	store, err := initDocumentStore(cfg)
	if err != nil {
		return err
	}
	defer closeDocumentStore(store)
	color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✅ Document store indexes ensured")

	return nil
}
