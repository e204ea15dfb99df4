package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"baseparts.ai/internal/persistence/indexdb"
	"baseparts.ai/internal/persistence/journal"
	"baseparts.ai/internal/sim/baseparts"
	"baseparts.ai/internal/transport/admin"
	"baseparts.ai/internal/transport/ws"
)

func newServeCommand(g *globalFlags) *cobra.Command {
	var (
		listen     string
		dbPath     string
		journalDir string
		noIndex    bool
		adminHTTP  bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over websocket and reload it on demand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(g)
			if err != nil {
				return err
			}
			defer a.close()
			logger := a.log

			if listen == "" {
				listen = a.tuning.Listen
			}
			if dbPath == "" {
				dbPath = a.tuning.IndexDB
			}
			if journalDir == "" {
				journalDir = a.tuning.JournalDir
			}

			var idx *indexdb.SQLiteIndex
			if !noIndex && dbPath != "" {
				idx, err = indexdb.OpenSQLite(dbPath)
				if err != nil {
					return err
				}
				defer idx.Close()
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			load := a.loader.Load
			if journalDir != "" {
				j := journal.NewReloadJournal(journalDir)
				defer j.Close()
				logger.Info("journaling reloads", zap.String("path", j.Path(time.Now())))
				load = j.Wrap(load, func(err error) {
					logger.Warn("journal write failed", zap.Error(err))
				})
			}

			holder := baseparts.NewHolder(nil)
			writeIndex := func(reg *baseparts.Registry) error {
				if idx == nil {
					return nil
				}
				ctx2, cancel2 := context.WithTimeout(ctx, 10*time.Second)
				defer cancel2()
				return idx.UpsertRegistry(ctx2, reg, a.content)
			}

			// The first load must succeed; later failures keep the old catalog.
			reg, err := holder.Reload(load)
			if err != nil {
				return err
			}
			if err := writeIndex(reg); err != nil {
				logger.Warn("index write failed", zap.Error(err))
			}

			adminSrv := admin.NewServer(holder, load, logger)
			adminSrv.AfterReload = writeIndex

			mux := http.NewServeMux()
			adminSrv.Register(mux, adminHTTP)
			mux.HandleFunc("/v1/ws", ws.NewServer(holder, logger).Handler())

			srv := &http.Server{
				Addr:              listen,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}

			go func() {
				<-ctx.Done()
				ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel2()
				_ = srv.Shutdown(ctx2)
			}()

			logger.Info("listening", zap.String("addr", listen), zap.Bool("admin", adminHTTP), zap.Bool("index", idx != nil))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (default listen from tuning)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite read-model refreshed after every reload (default index_db from tuning)")
	cmd.Flags().StringVar(&journalDir, "journal", "", "Directory for the compressed reload journal (default journal_dir from tuning)")
	cmd.Flags().BoolVar(&noIndex, "no-index", false, "Do not maintain the sqlite read-model")
	cmd.Flags().BoolVar(&adminHTTP, "admin", envBool("BASEPARTS_ENABLE_ADMIN_HTTP", true), "Mount the loopback-only /admin/v1 endpoints")
	return cmd
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(ch)
	}()
	return ctx, cancel
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
