package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meinhoongagan/carenest/config"
	"github.com/meinhoongagan/carenest/controllers/caregiver"
	jobs "github.com/meinhoongagan/carenest/cron"
	"github.com/meinhoongagan/carenest/db"
	"github.com/meinhoongagan/carenest/realtime"
	"github.com/meinhoongagan/carenest/redis"
	"github.com/meinhoongagan/carenest/routes"
	"github.com/meinhoongagan/carenest/services"
	"github.com/meinhoongagan/carenest/socket"
	"github.com/meinhoongagan/carenest/utils"
)

const shutdownTimeout = 10 * time.Second

var (
	serveMigrate bool
	serveNoCron  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, chat socket and background jobs",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "Run migrations before serving")
	serveCmd.Flags().BoolVar(&serveNoCron, "no-cron", false, "Do not schedule reminder and expiry jobs")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, flush, err := bootstrap()
	if err != nil {
		return err
	}
	defer flush()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serveMigrate {
		if err := db.Migrate(db.GetDB()); err != nil {
			return err
		}
	}

	if cfg.SMTPHost != "" {
		services.SetMailer(utils.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.EmailUser, cfg.EmailPass))
	} else {
		zap.L().Info("SMTP not configured, outbound email disabled")
	}

	uploader, uerr := utils.NewCloudinaryUploader(utils.CloudinaryConfig{
		CloudName:    cfg.CloudinaryCloudName,
		APIKey:       cfg.CloudinaryAPIKey,
		APISecret:    cfg.CloudinaryAPISecret,
		UploadPreset: cfg.CloudinaryUploadPreset,
	})
	if uerr != nil {
		zap.L().Info("file uploads disabled", zap.Error(uerr))
	} else {
		caregiver.SetUploader(uploader)
	}

	startBroker(ctx, cfg)

	if !serveNoCron {
		scheduler, err := jobs.StartCronJobs(cfg)
		if err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	app := routes.NewApp(cfg)
	chat := &http.Server{
		Addr:              ":" + cfg.SocketPort,
		Handler:           socket.NewServer(db.GetDB(), realtime.Default, cfg.JWTSecret).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		zap.L().Info("API listening", zap.String("port", cfg.Port))
		errCh <- app.Listen(":" + cfg.Port)
	}()
	go func() {
		zap.L().Info("chat socket listening", zap.String("port", cfg.SocketPort))
		if err := chat.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		zap.L().Info("shutting down")
	case err = <-errCh:
		zap.L().Error("server stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := chat.Shutdown(shutdownCtx); serr != nil {
		zap.L().Warn("chat socket shutdown", zap.Error(serr))
	}
	if serr := app.ShutdownWithTimeout(shutdownTimeout); serr != nil {
		zap.L().Warn("API shutdown", zap.Error(serr))
	}
	return err
}

// startBroker relays realtime events through Redis when REDIS_ADDR is set.
// Without it, fan-out stays within this process.
func startBroker(ctx context.Context, cfg *config.Config) {
	if cfg.RedisAddr == "" {
		zap.L().Info("REDIS_ADDR not set, realtime fan-out is local only")
		return
	}
	client, err := redis.InitRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		zap.L().Warn("redis unavailable, realtime fan-out is local only", zap.Error(err))
		return
	}

	broker := realtime.NewRedisBroker(client, realtime.DefaultChannel)
	runErr := make(chan error, 1)
	go func() {
		runErr <- broker.Run(ctx, realtime.Default)
		_ = client.Close()
	}()

	select {
	case <-broker.Ready():
		realtime.Default.SetBroker(broker)
		zap.L().Info("realtime fan-out via redis", zap.String("channel", realtime.DefaultChannel))
	case err := <-runErr:
		zap.L().Warn("redis broker failed to start", zap.Error(err))
	case <-time.After(5 * time.Second):
		zap.L().Warn("redis broker subscribe timed out")
	}
}
