package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/cache"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/fetcher"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/objstore"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/orchestrate"
	"github.com/antoniotavarescjr/kritikos-sub000/internal/source"
	"github.com/antoniotavarescjr/kritikos-sub000/pkg/camara"
	"github.com/antoniotavarescjr/kritikos-sub000/pkg/transparencia"
)

var collectCmd = &cobra.Command{
	Use:   "collect [targets]",
	Short: "Collect records from upstream sources",
	Long: `Collect records into Postgres. Targets run in dependency order;
legislators must exist before expenses, amendments, bills, or votes can be
attributed.

Targets: legislators, expenditures, amendments, bills, votes.
With no arguments (or "all"), every target runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "collect"))

		if year, _ := cmd.Flags().GetInt("year"); year > 0 {
			cfg.Collect.Year = year
		}
		if cfg.Collect.Year == 0 {
			cfg.Collect.Year = time.Now().Year() - 1
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "collect: migrate")
		}

		if err := os.MkdirAll(cfg.Collect.TempDir, 0o755); err != nil {
			return eris.Wrapf(err, "collect: create temp dir %s", cfg.Collect.TempDir)
		}

		objects, err := objstore.NewFS(cfg.ObjectStore.RootDir, cfg.ObjectStore.Compress)
		if err != nil {
			return eris.Wrap(err, "collect: open object store")
		}

		var remote cache.Remote
		if cfg.Cache.WriteThrough {
			remote = objects
		}
		respCache, err := cache.Open(cfg.Cache.Dir, remote)
		if err != nil {
			return eris.Wrap(err, "collect: open cache")
		}
		respCache.MaxPayloadBytes = cfg.Cache.MaxPayloadBytes
		defer respCache.Close() //nolint:errcheck

		f := fetcher.New(fetcher.Options{
			UserAgent:        cfg.Fetch.UserAgent,
			Timeout:          time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MinInterval:      cfg.Fetch.MinInterval,
			MaxRetries:       cfg.Fetch.MaxRetries,
			RateLimitCooloff: cfg.Fetch.RateLimitCooloff,
			DefaultTTL:       cfg.Cache.DefaultTTL,
		}, respCache)

		deps := source.Deps{
			Store:   st,
			Fetcher: f,
			Camara: camara.New(f, camara.Config{
				BaseURL:      cfg.Camara.BaseURL,
				ArchiveURL:   cfg.Camara.ArchiveURL,
				ItemsPerPage: cfg.Camara.ItemsPerPage,
			}),
			Transparencia: transparencia.New(f, transparencia.Config{
				DownloadURL: cfg.Transparencia.DownloadURL,
				APIURL:      cfg.Transparencia.APIURL,
				APIKey:      cfg.Transparencia.APIKey,
				BulkTTL:     cfg.Cache.BulkTTL,
			}),
			Objects: objects,
			Cfg:     cfg,
		}

		reg := source.BuildRegistry(deps)

		targets := args
		if len(targets) == 0 || (len(targets) == 1 && targets[0] == "all") {
			targets = reg.AllNames()
		}

		log.Info("starting collection",
			zap.Strings("targets", targets),
			zap.Int("year", cfg.Collect.Year),
		)

		orch := orchestrate.New(st, reg)
		if err := orch.Run(ctx, targets); err != nil {
			return eris.Wrap(err, "collect")
		}

		fmt.Printf("Collection complete: %s\n", strings.Join(targets, ", "))
		return nil
	},
}

func init() {
	collectCmd.Flags().Int("year", 0, "collection year (default: previous year)")
	rootCmd.AddCommand(collectCmd)
}
