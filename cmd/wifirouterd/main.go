package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"wifirouterd/internal/common/fsutil"
	"wifirouterd/internal/config"
	"wifirouterd/internal/httpapi"
	"wifirouterd/internal/remote"
	"wifirouterd/internal/router"
)

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	addr := flag.String("addr", envDefault("WIFIROUTERD_ADDR", ":8619"), "HTTP listen address, e.g. :8619")
	configPath := flag.String("config", envDefault("WIFIROUTERD_CONFIG", ""), "Session config file (.yaml/.json/.toml)")
	routerAddr := flag.String("router", envDefault("WIFIROUTERD_ROUTER", ""), "Router host SSH address, host:port")
	routerUser := flag.String("user", envDefault("WIFIROUTERD_USER", "root"), "Router host SSH user")
	keyFile := flag.String("key", envDefault("WIFIROUTERD_KEY", ""), "Router host SSH private key file")
	session := flag.String("session", envDefault("WIFIROUTERD_SESSION", "wifirouterd"), "Session name; seeds derived SSIDs")
	resultsDir := flag.String("results-dir", envDefault("WIFIROUTERD_RESULTS", "~/results/wifi"), "Directory collected daemon logs land in")
	local := flag.Bool("local", false, "Run commands through the local shell instead of SSH")
	logLevel := flag.String("log-level", envDefault("WIFIROUTERD_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")
	corsOrigins := flag.String("cors-origins", envDefault("WIFIROUTERD_CORS_ORIGINS", ""), "Comma-separated CORS origins; empty disables CORS")
	maxBodyBytes := flag.Int64("max-body-bytes", 0, "Maximum JSON request body size in bytes (0 = default 1MiB)")
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	var cfg config.Config
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
		}
	}
	// Flags override the file.
	if *routerAddr != "" {
		cfg.RouterAddr = *routerAddr
	}
	if cfg.RouterUser == "" {
		cfg.RouterUser = *routerUser
	}
	if *keyFile != "" {
		cfg.RouterKeyFile = *keyFile
	}
	if cfg.SessionName == "" {
		cfg.SessionName = *session
	}
	if cfg.ResultsDir == "" {
		cfg.ResultsDir = *resultsDir
	}
	cfg.ResultsDir, err = fsutil.ExpandHome(cfg.ResultsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve results dir")
	}

	var executor remote.Executor
	if *local {
		executor = &remote.LocalExecutor{}
	} else {
		if cfg.RouterAddr == "" {
			log.Fatal().Msg("no router host configured (set -router or the config file)")
		}
		executor, err = remote.DialSSH(remote.SSHConfig{
			Addr:     cfg.RouterAddr,
			User:     cfg.RouterUser,
			Password: cfg.RouterPassword,
			KeyFile:  cfg.RouterKeyFile,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to reach router host")
		}
	}

	alloc := router.NewStaticAllocator(ifaceSpecs(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	rt, err := router.New(ctx, router.Config{
		Executor:    executor,
		Ifaces:      alloc,
		SessionName: cfg.SessionName,
		ResultsDir:  cfg.ResultsDir,
		Logger:      log.With().Str("component", "router").Logger(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize router session")
	}

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetBaseContext(ctx)
	httpapi.SetMaxBodyBytes(*maxBodyBytes)
	if *corsOrigins != "" {
		httpapi.SetCORSOptions(true,
			strings.Split(*corsOrigins, ","),
			[]string{http.MethodGet, http.MethodPost, http.MethodDelete},
			[]string{"Content-Type"})
	}
	srv := &http.Server{Addr: *addr, Handler: httpapi.NewMux(rt)}

	go func() {
		log.Info().Str("addr", *addr).Str("router", cfg.RouterAddr).Msg("wifirouterd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM): stop serving, then deconfigure
	// the session so no daemons outlive us on the router host.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	if err := rt.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("session teardown error")
	}
}

// ifaceSpecs converts the configured inventory, defaulting to a two-radio
// test router when the config names none.
func ifaceSpecs(cfg config.Config) []router.IfaceSpec {
	if len(cfg.Interfaces) == 0 {
		return []router.IfaceSpec{
			{Name: "managed0", Phy: "phy0", Modes: []router.IfaceMode{router.IfaceManaged, router.IfaceIBSS, router.IfaceMonitor}, SupportsHighBand: true},
			{Name: "managed1", Phy: "phy1", Modes: []router.IfaceMode{router.IfaceManaged, router.IfaceIBSS, router.IfaceMonitor}, SupportsHighBand: true},
		}
	}
	specs := make([]router.IfaceSpec, 0, len(cfg.Interfaces))
	for _, ic := range cfg.Interfaces {
		spec := router.IfaceSpec{
			Name:             ic.Name,
			Phy:              ic.Phy,
			SupportsHighBand: ic.HighBand,
		}
		for _, m := range ic.Modes {
			spec.Modes = append(spec.Modes, router.IfaceMode(m))
		}
		if len(spec.Modes) == 0 {
			spec.Modes = []router.IfaceMode{router.IfaceManaged}
		}
		specs = append(specs, spec)
	}
	return specs
}
