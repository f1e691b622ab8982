package cmd

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"waveger/config"
	"waveger/core/applemusic"
	"waveger/core/billboard"
	"waveger/core/charts"
	"waveger/core/enrich"

	"github.com/spf13/cobra"
)

var (
	enrichChartID string
	enrichWeek    string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fetch a chart and enrich it with Apple Music metadata",
	Long: `Fetches one chart from the upstream API, then looks up each song in the
Apple Music catalog one request at a time and prints the enriched entries as
JSON. Requires the Apple Music key configuration.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		client := billboard.NewClient(cfg.RapidAPIHost, cfg.RapidAPIKey)
		minter := applemusic.NewTokenMinter(cfg.AppleMusicTeamID, cfg.AppleMusicKeyID, cfg.AppleMusicKeyPath)
		enricher := enrich.NewEnricher(applemusic.NewSearchClient(minter), cfg.EnrichDelay)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		week := enrichWeek
		if week == "" {
			week = charts.AlignToChartWeek(time.Now())
		}

		payload, err := client.FetchChart(ctx, enrichChartID, week)
		if err != nil {
			log.Fatalf("Failed to fetch chart: %v", err)
		}
		log.Printf("Enriching %s (%s), %d songs", payload.Title, payload.Week, len(payload.Songs))

		enricher.Enrich(ctx, payload.Title, payload.Week, payload.Songs)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		for _, song := range payload.Songs {
			meta, ok := enricher.Metadata(song.Position)
			if !ok {
				continue
			}
			if err := enc.Encode(map[string]interface{}{
				"position":    song.Position,
				"name":        song.Name,
				"artist":      song.Artist,
				"apple_music": meta,
			}); err != nil {
				log.Fatalf("Failed to encode result: %v", err)
			}
		}
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichChartID, "id", "hot-100", "chart id to fetch")
	enrichCmd.Flags().StringVar(&enrichWeek, "week", "", "chart week (YYYY-MM-DD, defaults to the current week)")
	rootCmd.AddCommand(enrichCmd)
}
