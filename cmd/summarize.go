package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/antoniotavarescjr/kritikos-sub000/pkg/insight"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Generate plain-language summaries for collected bills",
	Long: `Summarizes bills that have an official abstract but no summary yet,
using the configured language model. Bills without an abstract are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "summarize"))

		if cfg.Insight.APIKey == "" {
			return eris.New("summarize: no api key configured (set insight.api_key or KRITIKOS_INSIGHT_API_KEY)")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		bills, err := st.ListBillsWithoutSummary(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "summarize: list bills")
		}
		if len(bills) == 0 {
			log.Info("nothing to summarize")
			return nil
		}

		summarizer := insight.NewSummarizer(insight.NewClient(cfg.Insight.APIKey), insight.Config{
			APIKey:    cfg.Insight.APIKey,
			Model:     cfg.Insight.Model,
			MaxTokens: int64(cfg.Insight.MaxTokens),
		})

		var done, failed int
		for i := range bills {
			bill := &bills[i]

			summary, err := summarizer.SummarizeBill(ctx, bill)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warn("summarize failed",
					zap.Int64("bill", bill.ExternalID), zap.Error(err))
				failed++
				continue
			}

			if err := st.SetBillSummary(ctx, bill.ExternalID, summary.Text); err != nil {
				return eris.Wrapf(err, "summarize: save bill %d", bill.ExternalID)
			}
			done++
			log.Info("bill summarized",
				zap.Int64("bill", bill.ExternalID),
				zap.Int("relevance", summary.Relevance),
			)
		}

		fmt.Printf("Summarized %d bills (%d failed)\n", done, failed)
		return nil
	},
}

func init() {
	summarizeCmd.Flags().Int("limit", 50, "maximum bills to summarize in one run")
	rootCmd.AddCommand(summarizeCmd)
}
