package main

import (
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brightpath/studycoach/internal/doctext"
	"github.com/brightpath/studycoach/internal/monitoring"
	"github.com/brightpath/studycoach/internal/quizgen"
	"github.com/brightpath/studycoach/internal/recommend"
	"github.com/brightpath/studycoach/internal/server"
	"github.com/brightpath/studycoach/internal/store"
	"github.com/brightpath/studycoach/internal/tutor"
	"github.com/brightpath/studycoach/pkg/anthropic"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := store.New(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "connect store")
		}
		defer st.Close()

		extractor, err := doctext.NewExtractor(cfg.Doctext)
		if err != nil {
			return eris.Wrap(err, "init extractor")
		}

		client := anthropic.NewClient(cfg.Anthropic.Key)

		srv := server.New(
			extractor,
			quizgen.New(client, cfg.Anthropic, cfg.Quiz),
			recommend.New(st),
			tutor.New(client, st, cfg.Anthropic),
		)

		if cfg.Monitoring.Enabled {
			prober := monitoring.NewProber(st, time.Duration(cfg.Monitoring.ProbeTimeoutSecs)*time.Second)
			checker := monitoring.NewChecker(prober, monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
			go checker.Run(ctx)
		}

		serverCfg := cfg.Server
		if servePort != 0 {
			serverCfg.Port = servePort
		}

		zap.L().Info("starting server", zap.Int("port", serverCfg.Port))
		if err := srv.Run(ctx, serverCfg); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
