package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Daskott/phonebook/server/auth/key"
	"github.com/Daskott/phonebook/server/gstorage"
	"github.com/Daskott/phonebook/server/logger"
	"github.com/Daskott/phonebook/server/models"
	"github.com/Daskott/phonebook/server/session"
	"github.com/Daskott/phonebook/server/work"
	"github.com/Daskott/phonebook/shared"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

const DEV_KEY_BITS = 2048

var logg = logger.NewLogger()

// Start boots the phonebook server & blocks until it receives SIGINT or SIGTERM.
func Start(config *viper.Viper, devMode bool) {
	serverConfig, err := LoadConfig(config)
	fatalOnError(err)

	configDir := configDirectory(devMode)

	keyPair, err := loadKeyPair(serverConfig.Phonebook.PrivateKeyPem, devMode)
	fatalOnError(err)

	var backup *sqliteBackup
	storageConfig := serverConfig.Google.Storage
	backupEnabled := serverConfig.Database.Driver == "sqlite" && storageConfig.EnableSqliteBackupAndSync

	var gStorage *gstorage.GStorage
	var dbFilePath string
	if backupEnabled {
		gStorage, err = gstorage.NewGStorage(serverConfig.Google.ApplicationCredentials)
		fatalOnError(err)
		defer gStorage.Close()

		dbFilePath, err = models.SqliteFilePath(configDir)
		fatalOnError(err)

		err = syncSqliteDb(context.Background(), gStorage, dbFilePath, storageConfig.Bucket, storageConfig.Prefix)
		fatalOnError(err)
	}

	db, err := models.Open(*serverConfig, configDir)
	fatalOnError(err)

	if backupEnabled {
		backup = newSqliteBackup(db, gStorage, dbFilePath, storageConfig.Bucket, storageConfig.Prefix)
	}

	sessionStore, err := newSessionStore(serverConfig)
	fatalOnError(err)

	sessions := session.NewManager(sessionStore, time.Duration(serverConfig.Session.TTLMinutes)*time.Minute)
	sessions.Secure = !devMode

	workerPool := work.NewWorkerAdapter(serverConfig.Phonebook.Cron.TimeZone)
	err = registerJobs(workerPool, sessions, backup, storageConfig.SqliteBackupSchedule)
	fatalOnError(err)

	handler, err := New(db, sessions, keyPair, Options{
		TokenTTL:      time.Duration(serverConfig.Phonebook.TokenTTLHours) * time.Hour,
		SecureCookies: !devMode,
	})
	fatalOnError(err)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%v", serverConfig.Phonebook.Listener.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go serve(httpServer)

	workerPool.Start()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cleanup(workerPool, httpServer, backup)
}

// loadKeyPair parses the configured signing key. In dev mode a throwaway key
// is generated when none is configured, so tokens do not survive a restart.
func loadKeyPair(privateKeyPem string, devMode bool) (*key.KeyPair, error) {
	if privateKeyPem != "" {
		return key.NewKeyPairFromRSAPrivateKeyPem([]byte(privateKeyPem))
	}

	if !devMode {
		return nil, fmt.Errorf("phonebook.privateKeyPem is required")
	}

	logg.Warn("No phonebook.privateKeyPem configured, generating a dev signing key")
	return key.GenerateKeyPair(DEV_KEY_BITS)
}

func newSessionStore(serverConfig *shared.ServerConfig) (session.Store, error) {
	if serverConfig.Session.Backend != "redis" {
		return session.NewMemoryStore(), nil
	}

	return session.NewRedisStore(&redis.Options{
		Addr:     serverConfig.Redis.Addr,
		Password: serverConfig.Redis.Password,
		DB:       serverConfig.Redis.DB,
	})
}
