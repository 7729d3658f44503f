package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Daskott/safecircle/server/auth"
	"github.com/Daskott/safecircle/server/auth/key"
	"github.com/Daskott/safecircle/server/broadcast"
	"github.com/Daskott/safecircle/server/gstorage"
	"github.com/Daskott/safecircle/server/logger"
	"github.com/Daskott/safecircle/server/models"
	"github.com/Daskott/safecircle/server/twilio"
	"github.com/Daskott/safecircle/server/whatsapp"
	"github.com/Daskott/safecircle/server/work"
	"github.com/Daskott/safecircle/shared"
	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	logg     = logger.NewLogger()
	validate = validator.New()

	authKeyPair   *key.KeyPair
	tokenValidity = auth.DefaultTokenValidity
	broadcaster   *broadcast.Broadcaster
	authLimiter   *ipRateLimiter
)

func init() {
	fatalOnError(registerValidators(validate))
}

func Start(config shared.ServerConfig, devMode bool) {
	var err error
	configDir := configDirectory(devMode)

	authKeyPair, err = key.NewKeyPairFromRSAPrivateKeyPem(config.SafeCircle.PrivateKeyPem)
	fatalOnError(err)

	if days := config.SafeCircle.Auth.TokenValidityInDays; days > 0 {
		tokenValidity = time.Duration(days) * 24 * time.Hour
	}
	authLimiter = newIPRateLimiter(config.SafeCircle.Auth.AttemptsPerMinute)

	var backup *sqliteBackup
	if config.Google.Storage.EnableSqliteBackupAndSync {
		gStorage, err := gstorage.NewGStorage(context.Background(), config.Google.ApplicationCredentials)
		fatalOnError(err)
		defer gStorage.Close()

		backup = &sqliteBackup{
			store:     gStorage,
			bucket:    config.Google.Storage.Bucket,
			prefix:    config.Google.Storage.Prefix,
			dbRootDir: configDir,
		}
		fatalOnError(backup.restore())
	}

	fatalOnError(models.AutoMigrate(config.Sqlite.PassPhrase, configDir))

	metrics, err := broadcast.NewMetrics(prometheus.DefaultRegisterer)
	fatalOnError(err)

	broadcaster = broadcast.NewBroadcaster(
		newSender(config),
		broadcast.WithTimeout(time.Duration(config.SafeCircle.Broadcast.TimeoutInSeconds)*time.Second),
		broadcast.WithMetrics(metrics),
		broadcast.WithLogger(logg),
	)

	workerPool := work.NewWorkerAdapter(config.SafeCircle.Cron.TimeZone)
	registerJobHandlers(workerPool, backup)
	enqueueJobs(workerPool, config.Google.Storage.SqliteBackupSchedule, backup)
	workerPool.Start()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%v", config.SafeCircle.Listener.Port),
		Handler:           newRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go serve(server)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	cleanup(workerPool, server, backup)
}

func newRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware, initialContextMiddleware)

	router.HandleFunc("/health", health).Methods("GET")
	router.HandleFunc("/jwks", jwks).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.Handle("/auth/register", rateLimitMiddleware(http.HandlerFunc(register))).Methods("POST")
	router.Handle("/auth/login", rateLimitMiddleware(http.HandlerFunc(login))).Methods("POST")

	protectedRouter := router.NewRoute().Subrouter()
	protectedRouter.Use(protectedRouteMiddleware)

	protectedRouter.HandleFunc("/auth/profile", getProfile).Methods("GET")
	protectedRouter.HandleFunc("/auth/profile", updateProfile).Methods("PUT")
	protectedRouter.HandleFunc("/auth/profile", deleteProfile).Methods("DELETE")

	protectedRouter.HandleFunc("/auth/history", addHistoryEntry).Methods("POST")
	protectedRouter.HandleFunc("/auth/history", getHistory).Methods("GET")
	protectedRouter.HandleFunc("/auth/history/{id}", deleteHistoryEntry).Methods("DELETE")

	protectedRouter.HandleFunc("/contact/report-options", getReportOptions).Methods("GET")
	protectedRouter.HandleFunc("/contact/report-options", updateReportOption).Methods("PUT")
	protectedRouter.HandleFunc("/contact/report-options/{name}/send-whatsapp-messages", sendReportOptionMessages).Methods("POST")
	protectedRouter.HandleFunc("/contact/send-whatsapp-messages", sendWhatsAppMessages).Methods("POST")

	return router
}

// newSender returns the sender for the configured WhatsApp provider
func newSender(config shared.ServerConfig) broadcast.Sender {
	switch config.WhatsApp.Provider {
	case "cloud":
		logg.Info("Sending WhatsApp messages through the WhatsApp Cloud API")
		return whatsapp.NewCloudClient(config.WhatsApp)
	case "twilio":
		logg.Info("Sending WhatsApp messages through Twilio")
		return twilio.NewClient(config.Twilio)
	default:
		logg.Warn("WhatsApp messages will only be logged, not sent")
		return broadcast.LogSender{Logg: logg}
	}
}
