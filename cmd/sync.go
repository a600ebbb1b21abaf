package main

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/callsight/config"
	"github.com/mohammad-safakhou/callsight/internal/ingest"
	"github.com/mohammad-safakhou/callsight/internal/search"
	"github.com/mohammad-safakhou/callsight/internal/store"
	"github.com/mohammad-safakhou/callsight/provider"
	"github.com/spf13/cobra"
)

// syncCMD runs a single ingestion pass from the command line, useful for
// initial backfills and cron-less deployments.
func syncCMD() *cobra.Command {
	var cfgPath string
	var withIndex bool

	var sync = &cobra.Command{
		Use:   "sync",
		Short: "Run one ingestion pass against the conversation platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			if cfg.Sync.Endpoint == "" {
				return fmt.Errorf("sync.endpoint not configured")
			}

			ctx := context.Background()
			st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
			if err != nil {
				return err
			}
			defer st.Close()

			llm, err := provider.NewLLMProvider(cfg.Providers)
			if err != nil {
				return err
			}
			platform, err := ingest.NewHTTPPlatform(cfg.Sync)
			if err != nil {
				return err
			}

			var syncer *ingest.Syncer
			if withIndex && cfg.Search.IndexPath != "" {
				idx, err := search.Open(cfg.Search.IndexPath)
				if err != nil {
					return fmt.Errorf("open keyword index: %w", err)
				}
				defer idx.Close()
				syncer = ingest.NewSyncer(platform, st, llm, idx, cfg.Providers.OpenAI.EmbeddingModel, cfg.Sync.BatchSize, nil)
			} else {
				syncer = ingest.NewSyncer(platform, st, llm, nil, cfg.Providers.OpenAI.EmbeddingModel, cfg.Sync.BatchSize, nil)
			}

			report, err := syncer.Sync(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("sync %s: checked=%d added=%d updated=%d skipped=%d failed=%d\n",
				report.JobID, report.TotalChecked, report.Added, report.Updated, report.Skipped, report.Failed)
			return nil
		},
	}
	sync.Flags().BoolVar(&withIndex, "index", true, "also feed the keyword transcript index")
	sync.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return sync
}
