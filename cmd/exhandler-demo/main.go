// Command exhandler-demo serves a small widget API whose failures are
// answered with problem responses. Configuration comes from flags, the
// environment (`EXHANDLER_*`) or a config file.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/danielgtaylor/exhandler"
	_ "github.com/danielgtaylor/exhandler/formats/cbor"
	_ "github.com/danielgtaylor/exhandler/formats/msgpack"
	_ "github.com/danielgtaylor/exhandler/formats/protobuf"
	_ "github.com/danielgtaylor/exhandler/formats/toml"
	_ "github.com/danielgtaylor/exhandler/formats/yaml"
	"github.com/danielgtaylor/exhandler/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	if err := newCommand(viper.New()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand(v *viper.Viper) *cobra.Command {
	v.SetEnvPrefix("EXHANDLER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   filepath.Base(os.Args[0]),
		Short: "Serve a demo API with problem responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file := v.GetString("config"); file != "" {
				v.SetConfigFile(file)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("unable to read config: %w", err)
				}
			}

			logger, err := middleware.NewLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()
			zap.ReplaceGlobals(logger)

			resolver, err := newResolver(v, logger)
			if err != nil {
				return err
			}
			return serve(v, newRouter(resolver), logger)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Config file path")
	flags.String("host", "", "Hostname")
	flags.IntP("port", "p", 8888, "Port")
	flags.Duration("grace-period", 20*time.Second, "Graceful shutdown wait duration")
	flags.String("default-content-type", exhandler.DefaultContentType, "Content type when the client accepts nothing available")
	flags.String("unmatched", exhandler.UnmatchedSkip.String(), "Policy for errors without a handler: skip or internal-error")
	flags.Bool("unwrap-causes", false, "Handle errors by their first cause with a handler")
	flags.Bool("verbose-logging", false, "Log client errors at debug level with the error")
	flags.String("messages-file", "", "YAML message catalog")

	for _, name := range []string{"config", "host", "port", "grace-period"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}
	for _, name := range []string{"default-content-type", "unmatched", "unwrap-causes", "verbose-logging", "messages-file"} {
		// Config keys use underscores.
		_ = v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name))
	}
	middleware.AddLoggerOptions(root, v)

	return root
}

func newResolver(v *viper.Viper, logger *zap.Logger) (*exhandler.Resolver, error) {
	cfg, err := exhandler.LoadConfig(v)
	if err != nil {
		return nil, err
	}

	// The configured catalog goes in front of the demo messages.
	file := cfg.MessagesFile
	cfg.MessagesFile = ""

	b := exhandler.NewBuilder().
		Logger(logger).
		AddMessageHandler(ClassWidgetGone, http.StatusGone)
	if err := cfg.Apply(b); err != nil {
		return nil, err
	}

	var messages exhandler.MessageSource = demoMessages
	if file != "" {
		catalog, err := exhandler.LoadCatalogFile(file)
		if err != nil {
			return nil, err
		}
		messages = exhandler.Chain{catalog, demoMessages}
	}
	b.MessageSource(messages)

	return b.Metrics(registry).Build()
}

func serve(v *viper.Viper, handler http.Handler, logger *zap.Logger) error {
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", v.GetString("host"), v.GetInt("port")),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// Handle graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case <-quit:
	}

	logger.Info("Gracefully shutting down the server...")
	ctx, cancel := context.WithTimeout(context.Background(), v.GetDuration("grace-period"))
	defer cancel()
	return server.Shutdown(ctx)
}
