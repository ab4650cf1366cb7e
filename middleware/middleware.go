// Package middleware provides `net/http` middleware which logs requests and
// turns panics into problem responses.
package middleware

import (
	"net/http"

	"github.com/danielgtaylor/exhandler"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// DefaultChain sets up the default middlewares chained together into a
// single handler.
func DefaultChain(resolver *exhandler.Resolver) func(http.Handler) http.Handler {
	// Note: logger goes before recovery so that recovery can use it. We don't
	// expect the logger to cause panics.
	return func(next http.Handler) http.Handler {
		return chi.Chain(
			Logger,
			Recoverer(resolver),
		).Handler(next)
	}
}

// AddLoggerOptions adds a `--debug` flag to the command, bound to the
// `debug` key of v, which enables debug logs before the command runs.
func AddLoggerOptions(cmd *cobra.Command, v *viper.Viper) {
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logs")
	_ = v.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug"))

	prev := cmd.PersistentPreRunE
	cmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		if v.GetBool("debug") {
			if LogLevel == nil {
				// Sets up the shared config and level.
				if _, err := NewDefaultLogger(); err != nil {
					return err
				}
			}
			LogLevel.SetLevel(zapcore.DebugLevel)
		}
		if prev != nil {
			return prev(c, args)
		}
		return nil
	}
}
