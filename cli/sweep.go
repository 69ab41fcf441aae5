package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tablekit/tablekit/server/aggregate"
	"github.com/tablekit/tablekit/server/config"
	"github.com/tablekit/tablekit/server/query"
	"github.com/tablekit/tablekit/server/repository"
	"github.com/tablekit/tablekit/server/schema"
	"github.com/tablekit/tablekit/server/storage"
)

var sweepPrune bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Report relationship rows whose entities no longer exist",
	Long: `The entity tree silently skips relationship rows that point at
deleted entities. This command makes those rows visible, and removes them
when run with --prune.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := config.SetupLogger(cfg)
		if err != nil {
			return err
		}

		schemas, err := schema.LoadRegistry(cfg)
		if err != nil {
			return err
		}
		aggregates, err := aggregate.LoadRegistry(cfg, schemas)
		if err != nil {
			return err
		}
		store, err := storage.Open(&cfg.Storage, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		engine := query.NewEngine(store, schemas, logger)
		repo := repository.New(store, engine, schemas, aggregates, cfg.Entities, logger)

		ctx := cmd.Context()
		orphans, err := repo.FindOrphanedRelationships(ctx)
		if err != nil {
			return err
		}
		if len(orphans) == 0 {
			fmt.Println("No orphaned relationships found")
			return nil
		}

		for _, orphan := range orphans {
			fmt.Printf("%s  ancestor=%s child=%s (%s)\n",
				orphan.UID, orphan.AncestorUID, orphan.ChildUID, orphan.Reason)
		}
		fmt.Printf("%d orphaned relationship(s)\n", len(orphans))

		if sweepPrune {
			pruned, err := repo.PruneOrphanedRelationships(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Pruned %d row(s)\n", pruned)
		}
		return nil
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepPrune, "prune", false, "delete the orphaned rows")
	rootCmd.AddCommand(sweepCmd)
}
