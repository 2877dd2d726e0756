package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/amoylab/contentd/internal/apiserver"
	"github.com/amoylab/contentd/internal/apiserver/database"
	"github.com/amoylab/contentd/internal/auth/jwt"
	"github.com/amoylab/contentd/internal/common/config"
	"github.com/amoylab/contentd/internal/events"
	"github.com/amoylab/contentd/internal/hedgedoc"
	"github.com/amoylab/contentd/internal/notelock"
	"github.com/amoylab/contentd/internal/notes"
	"github.com/amoylab/contentd/pkg/helper"
	"github.com/amoylab/contentd/pkg/logger"
	"github.com/amoylab/contentd/pkg/metrics"
	"github.com/amoylab/contentd/pkg/trace"
	"github.com/amoylab/contentd/pkg/version"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultConfig = "contentd.yaml"

var (
	configPath string

	pushFile   string
	pushAppend bool
	pushServer string

	tailFrom  string
	tailCount int

	tokenRole string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of contentd",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String("contentd"))
		},
	}

	testCmd = &cobra.Command{
		Use:   "test",
		Short: "Test the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfgPath, err := loadConfig()
			if err != nil {
				return fmt.Errorf("configuration file %s test failed: %w", cfgPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration file %s test is successful\n", cfgPath)
			return nil
		},
	}

	pushCmd = &cobra.Command{
		Use:   "push <noteId>",
		Short: "Write content into a HedgeDoc note",
		Long:  "Write content into a HedgeDoc note, replacing it unless --append is given. Content is read from --file or stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return push(cmd, args[0])
		},
	}

	eventsCmd = &cobra.Command{
		Use:   "events",
		Short: "Inspect note push events",
	}

	eventsTailCmd = &cobra.Command{
		Use:   "tail",
		Short: "Print note push events from the Redis stream",
		Long:  "Print note push events from the configured Redis stream as JSON lines. Requires events.type redis.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return tail(ctx, cmd)
		},
	}

	tokenCmd = &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue a Bearer token for the mutating routes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return issueToken(cmd, args[0])
		},
	}

	rootCmd = &cobra.Command{
		Use:           "contentd",
		Short:         "Content management backend",
		Long:          `contentd serves social posts and pushes content into HedgeDoc notes`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "conf", "c", defaultConfig, "path to configuration file")
	pushCmd.Flags().StringVarP(&pushFile, "file", "f", "-", "file to read content from, - for stdin")
	pushCmd.Flags().BoolVar(&pushAppend, "append", false, "append instead of replacing the note")
	pushCmd.Flags().StringVar(&pushServer, "server", "", "HedgeDoc host[:port], overrides the configuration")
	eventsTailCmd.Flags().StringVar(&tailFrom, "from", "$", "stream id to read after, $ for new events only, 0 for the whole stream")
	eventsTailCmd.Flags().IntVarP(&tailCount, "count", "n", 0, "stop after this many events, 0 to follow until interrupted")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "", "role claim stored in the token")
	eventsCmd.AddCommand(eventsTailCmd)
	rootCmd.AddCommand(versionCmd, testCmd, pushCmd, eventsCmd, tokenCmd)
}

func loadConfig() (*config.ContentdConfig, string, error) {
	cfg, cfgPath, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, cfgPath, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, cfgPath, err
	}
	return cfg, cfgPath, nil
}

func push(cmd *cobra.Command, noteID string) error {
	cfg, _, err := config.LoadConfig(configPath)
	if err != nil {
		if configPath != defaultConfig {
			return err
		}
		// no config file; the hedgedoc defaults are enough for a one-off push
		cfg, err = config.Parse(nil)
		if err != nil {
			return err
		}
	}
	if pushServer != "" {
		cfg.HedgeDoc.Server = pushServer
	}

	var in io.Reader = cmd.InOrStdin()
	if pushFile != "-" {
		f, err := os.Open(pushFile)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	content, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}

	lg, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		return err
	}
	defer lg.Sync()

	client := hedgedoc.NewClient(lg, hedgedoc.OptionsFromConfig(cfg.HedgeDoc))
	err = client.Apply(cmd.Context(), hedgedoc.ApplyRequest{
		NoteID:  noteID,
		Content: string(content),
		Mode:    hedgedoc.ModeFromAppend(pushAppend),
	})

	res := notes.Result{Success: err == nil, Slug: noteID, Append: pushAppend}
	if err != nil {
		res.Error = err.Error()
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(res); encErr != nil {
		return encErr
	}
	return err
}

func tail(ctx context.Context, cmd *cobra.Command) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if events.Type(cfg.Events.Type) != events.TypeRedis {
		return fmt.Errorf("events tail needs events.type %s, got %q", events.TypeRedis, cfg.Events.Type)
	}

	lg, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		return err
	}
	defer lg.Sync()

	pub, err := events.NewRedisPublisher(lg, cfg.Events.Redis)
	if err != nil {
		return err
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	enc := json.NewEncoder(cmd.OutOrStdout())
	seen := 0
	for ev := range pub.Watch(ctx, tailFrom) {
		if err := enc.Encode(ev); err != nil {
			return err
		}
		seen++
		if tailCount > 0 && seen >= tailCount {
			break
		}
	}
	return nil
}

func issueToken(cmd *cobra.Command, subject string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.JWT.SecretKey == "" {
		return errors.New("jwt.secret_key is not set, the mutating routes accept requests without a token")
	}
	svc, err := jwt.NewService(jwt.Config{
		SecretKey: cfg.JWT.SecretKey,
		Duration:  cfg.JWT.Duration,
		Issuer:    cfg.JWT.Issuer,
	})
	if err != nil {
		return err
	}
	tok, err := svc.GenerateToken(subject, tokenRole)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}

func run(ctx context.Context) error {
	cfg, cfgPath, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration %s: %w", cfgPath, err)
	}

	lg, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer lg.Sync()

	lg.Info("Starting contentd",
		zap.String("version", version.Get()),
		zap.String("config", cfgPath))

	return serve(ctx, cfg, lg)
}

// serve wires every component and blocks until ctx is done
func serve(ctx context.Context, cfg *config.ContentdConfig, lg *zap.Logger) error {
	shutdownTracing, err := trace.InitTracing(ctx, &cfg.Tracing, lg)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			lg.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	locker, err := notelock.NewLocker(lg, &cfg.Lock)
	if err != nil {
		return fmt.Errorf("failed to initialize note lock: %w", err)
	}
	defer locker.Close()

	publisher, err := events.NewPublisher(lg, &cfg.Events)
	if err != nil {
		return fmt.Errorf("failed to initialize event publisher: %w", err)
	}
	defer publisher.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics)
	}

	var jwtService *jwt.Service
	if cfg.JWT.SecretKey != "" {
		jwtService, err = jwt.NewService(jwt.Config{
			SecretKey: cfg.JWT.SecretKey,
			Duration:  cfg.JWT.Duration,
			Issuer:    cfg.JWT.Issuer,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize jwt: %w", err)
		}
	} else {
		lg.Warn("jwt.secret_key is empty, mutating routes are unauthenticated")
	}

	client := hedgedoc.NewClient(lg, hedgedoc.OptionsFromConfig(cfg.HedgeDoc))
	svc := notes.NewService(lg, client, locker, publisher, m)

	serviceName := ""
	if cfg.Tracing.Enabled {
		serviceName = cfg.Tracing.ServiceName
	}
	gin.SetMode(gin.ReleaseMode)
	router := apiserver.NewRouter(apiserver.Deps{
		Logger:      lg,
		DB:          db,
		Notes:       svc,
		JWT:         jwtService,
		Metrics:     m,
		MetricsPath: cfg.Metrics.Path,
		CORS:        cfg.CORS,
		ServiceName: serviceName,
	})

	pidFile := helper.NewPIDFile(cfg.Server.PID)
	if cfg.Server.PID != "" {
		if err := pidFile.Write(); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = pidFile.Remove() }()
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	srv := &http.Server{Handler: router}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("Server is running", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	lg.Info("Shutting down server...")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	lg.Info("Server exited")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
