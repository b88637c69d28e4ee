package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"github.com/scanlytics/scanlytics-server/internal/auth"
	"github.com/scanlytics/scanlytics-server/internal/config"
	"github.com/scanlytics/scanlytics-server/internal/domain"
	"github.com/scanlytics/scanlytics-server/internal/qrimage"
	"github.com/scanlytics/scanlytics-server/internal/service"
	"github.com/scanlytics/scanlytics-server/internal/store/sqlite"
	"github.com/scanlytics/scanlytics-server/internal/validation"
)

type globalFlags struct {
	dataPath string
	database string
	envFile  string
}

func newRootCmd() *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:           "qrctl",
		Short:         "Scanlytics operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.dataPath, "data-path", "", "Data directory (default: $DATA_PATH or ~/Scanlytics)")
	root.PersistentFlags().StringVar(&g.database, "database", "", "SQLite file (default: {data-path}/scanlytics.db)")
	root.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "Path to .env file")

	root.AddCommand(newTokenCmd(&g), newSeedCmd(&g), newDashboardCmd(&g), newScansCmd(&g))
	return root
}

// load resolves configuration the same way the server does.
func (g *globalFlags) load() (*config.Config, error) {
	args := []string{"-env-file", g.envFile}
	if g.dataPath != "" {
		args = append(args, "-data-path", g.dataPath)
	}
	if g.database != "" {
		args = append(args, "-database", g.database)
	}
	return config.Load(flag.NewFlagSet("qrctl", flag.ContinueOnError), args)
}

func (g *globalFlags) openStore() (*sqlite.Store, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, err
	}
	return sqlite.Open(cfg.Storage.Database, slog.New(slog.DiscardHandler))
}

func newTokenCmd(g *globalFlags) *cobra.Command {
	token := &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens",
	}

	var userID string
	var ttl time.Duration
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue an access token signed with the server key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			key, err := auth.LoadOrGenerateKey(cfg.Storage.DataPath)
			if err != nil {
				return err
			}
			if ttl == 0 {
				ttl = cfg.Auth.AccessTokenDuration
			}
			tokens, err := auth.NewTokenServiceFromKey(key, ttl)
			if err != nil {
				return err
			}
			tok, err := tokens.GenerateAccessToken(userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	issue.Flags().StringVar(&userID, "user", "", "User id carried by the token")
	issue.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default: ACCESS_TOKEN_DURATION)")
	_ = issue.MarkFlagRequired("user")

	token.AddCommand(issue)
	return token
}

func newDashboardCmd(g *globalFlags) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Print a user's dashboard stats",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := g.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := service.NewAnalyticsService(db, db, nil).Dashboard(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"stats": stats})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Owner id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newScansCmd(g *globalFlags) *cobra.Command {
	var userID, period, qrCodeID string
	cmd := &cobra.Command{
		Use:   "scans",
		Short: "Print scan analytics for a user's codes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := g.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			analytics, err := service.NewAnalyticsService(db, db, nil).ScanAnalytics(cmd.Context(), userID, period, qrCodeID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"analytics": analytics})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Owner id")
	cmd.Flags().StringVar(&period, "period", "30d", "7d, 30d or 90d")
	cmd.Flags().StringVar(&qrCodeID, "qr", "", "Restrict to one code")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// Sample user agents for seeded scans.
var seedAgents = []string{
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
	"Mozilla/5.0 (iPad; CPU OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Tablet Safari/604.1",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

func newSeedCmd(g *globalFlags) *cobra.Command {
	var userID string
	var codes, scans int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create demo codes and scans for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := g.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			return seed(cmd.Context(), cmd.OutOrStdout(), db, userID, codes, scans)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Owner id")
	cmd.Flags().IntVar(&codes, "codes", 3, "Codes to create")
	cmd.Flags().IntVar(&scans, "scans", 50, "Scans to spread across the codes")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func seed(ctx context.Context, out io.Writer, db *sqlite.Store, userID string, codes, scans int) error {
	qrcodes := service.NewQRCodeService(db, qrimage.NewRenderer(), validation.New(), nil, "", nil)
	tracker := service.NewScanTracker(db, db, nil, nil, nil)

	created := make([]*domain.QRCode, 0, codes)
	for n := range codes {
		content, err := json.Marshal(map[string]string{"url": fmt.Sprintf("https://example.com/demo/%d", n+1)})
		if err != nil {
			return err
		}
		code, err := qrcodes.Generate(ctx, userID, service.GenerateRequest{
			Title:   fmt.Sprintf("Demo %d", n+1),
			Type:    domain.ContentURL,
			Content: content,
		})
		if err != nil {
			return fmt.Errorf("generate code %d: %w", n+1, err)
		}
		created = append(created, code)
	}
	if len(created) == 0 {
		return nil
	}

	for range scans {
		code := created[rand.IntN(len(created))]
		src := service.ScanSource{
			IP:        fmt.Sprintf("198.51.100.%d", rand.IntN(254)+1),
			UserAgent: seedAgents[rand.IntN(len(seedAgents))],
		}
		if _, err := tracker.Track(ctx, code.ID, src); err != nil {
			return fmt.Errorf("track scan: %w", err)
		}
	}

	fmt.Fprintf(out, "Created %d codes and %d scans for %s\n", len(created), scans, userID)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
