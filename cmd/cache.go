package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local response cache",
}

var cacheGCCmd = &cobra.Command{
	Use:   "gc",
	Short: "Evict expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		c, err := cache.Open(cfg.Cache.Dir, nil)
		if err != nil {
			return eris.Wrap(err, "cache gc: open cache")
		}
		defer c.Close() //nolint:errcheck

		evicted, err := c.Sweep(ctx)
		if err != nil {
			return eris.Wrap(err, "cache gc")
		}

		zap.L().Info("cache swept", zap.Int("evicted", evicted))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheGCCmd)
	rootCmd.AddCommand(cacheCmd)
}
