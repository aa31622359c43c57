package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chartzngrafs/streamtrack/internal/logging"
	"github.com/chartzngrafs/streamtrack/internal/store"
)

func newRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Delete and re-initialise the local database",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, err := defaultDBPath()
			if err != nil {
				return err
			}

			logger := logging.New(logLevel)
			st, err := store.Open(dbPath, logging.Component(logger, "store"))
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()

			if err := st.RefreshDatabase(); err != nil {
				return fmt.Errorf("refreshing database: %w", err)
			}
			fmt.Println("database refreshed")
			return nil
		},
	}
}
