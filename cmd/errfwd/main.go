// Command errfwd collects browser error reports over HTTP and WebSocket and
// forwards the ones that pass the configured filters to a sink.
//
// Usage:
//
//	errfwd --config errfwd.yaml --listen :8090
package main

import (
	"context"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/subosito/gotenv"

	"github.com/strongdm/ai-cxdb-errfwd/pkg/errfwd"
	"github.com/strongdm/ai-cxdb-errfwd/pkg/errfwd/metrics"
	"github.com/strongdm/ai-cxdb-errfwd/pkg/errfwd/sources/httpsource"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("errfwd exited")
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("errfwd", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "path to the YAML configuration file")
	listen := flags.StringP("listen", "l", "", "listen address (default "+defaultListen+")")
	logLevel := flags.String("log-level", "", "log level: trace, debug, info, warn, error")
	envFile := flags.String("env-file", ".env", "dotenv file loaded before reading the environment")
	if err := flags.Parse(args); err != nil {
		return err
	}

	configureLogging(defaultLogLevel)
	loadEnvFile(*envFile)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if flags.Changed("listen") {
		cfg.Listen = *listen
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	configureLogging(cfg.LogLevel)

	reg, cleanup, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup(); err != nil {
			log.Warn().Err(err).Msg("cleanup failed")
		}
	}()

	opts, err := cfg.Options(reg)
	if err != nil {
		return errors.Wrap(err, "resolve coordinator options")
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	observer, err := metrics.NewObserver(promReg)
	if err != nil {
		return errors.Wrap(err, "register metrics")
	}
	opts = append(opts, errfwd.WithObserver(observer))

	src := httpsource.New()
	coord, err := errfwd.RegisterElement(src, opts...)
	if err != nil {
		return errors.Wrap(err, "register event source")
	}
	log.Info().
		Str("forwarder", cfg.Forwarder).
		Int("ignore_filters", len(coord.IgnoreFilters())).
		Int("force_forward_filters", len(coord.ForceForwardFilters())).
		Msg("coordinator ready")

	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Mount("/", src.Handler())

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Listen).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return errors.Wrap(err, "serve")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	if err := coord.Flush(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("flush sink")
	}
	return coord.Close()
}

func configureLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	writer := zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
		w.TimeFormat = time.RFC3339
	})
	log.Logger = zerolog.New(writer).With().Timestamp().Logger()
}

// loadEnvFile loads name into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile(name string) {
	if name == "" {
		return
	}
	if err := gotenv.Load(name); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("method", "loadEnvFile").Str("file", name).Msg("couldn't load env file")
		}
		return
	}
	log.Debug().Str("file", name).Msg("loaded env file")
}
