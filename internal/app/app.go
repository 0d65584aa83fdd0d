package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/Yepoleb/gogdb/internal/config"
	"github.com/Yepoleb/gogdb/internal/gog"
	"github.com/Yepoleb/gogdb/internal/indexdb"
	"github.com/Yepoleb/gogdb/internal/storage"
	"github.com/Yepoleb/gogdb/internal/updater"
)

// App is the application layer between the CLI and the sync machinery.
// It constructs all dependencies from config and identifies every run
// with a fresh id in the logs.
type App struct {
	cfg     *config.Config
	store   *storage.Store
	logger  gog.Logger
	logFile *os.File
}

// NewApp creates a fully wired App from the given config.
// The caller must call Close when done.
func NewApp(cfg *config.Config) (*App, error) {
	runID := uuid.New().String()[:8]
	logger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	return &App{
		cfg:     cfg,
		store:   storage.New(cfg.StoragePath),
		logger:  &slogAdapter{l: logger},
		logFile: logFile,
	}, nil
}

// Close releases the log file.
func (a *App) Close() error {
	if a.logFile != nil {
		return a.logFile.Close()
	}
	return nil
}

func (a *App) newSession() (*gog.Session, error) {
	return gog.NewSession(a.store, gog.SessionOptions{
		UserAgent: a.cfg.Session.UserAgent,
		Retries:   a.cfg.Session.Retries,
		Timeout:   time.Duration(a.cfg.Session.TimeoutSeconds) * time.Second,
		Locale:    a.cfg.Session.Locale,
		Logger:    a.logger,
	})
}

// Update runs a full catalog sync.
func (a *App) Update(ctx context.Context) error {
	session, err := a.newSession()
	if err != nil {
		return err
	}
	u := updater.New(a.store, session, updater.Options{
		Workers:     a.cfg.Updater.ProductWorkers,
		Country:     a.cfg.Updater.Country,
		Currency:    a.cfg.Updater.Currency,
		PriceWindow: time.Duration(a.cfg.Updater.PriceJitterWindowHours) * time.Hour,
		Logger:      a.logger,
	})
	return u.Run(ctx)
}

// Index rebuilds the sqlite search index and the derived summary
// documents from the stored snapshots.
func (a *App) Index(ctx context.Context) error {
	builder := indexdb.NewBuilder(a.store, a.logger)
	counts, err := builder.Build(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d products, %d changelog entries, %d changelog summaries\n",
		counts.Products, counts.Changelog, counts.Summaries)

	procs := []updater.Processor{
		updater.NewDependenciesProcessor(a.store),
		updater.NewBackrefProcessor(a.store),
		updater.NewIDMappingProcessor(a.store, a.logger),
		updater.NewVersionsProcessor(a.store),
		updater.NewStartpageProcessor(a.store),
	}
	return updater.RunProcessors(a.store, a.logger, procs)
}

var loginCodeRe = regexp.MustCompile(`code=([\w\-]+)`)

// AuthURL returns the login URL the user has to open in a browser.
func (a *App) AuthURL() string {
	return gog.AuthCodeURL(gog.GalaxyClientID)
}

// Auth exchanges the pasted login redirect URL for a token pair and
// persists it, so following runs can authenticate unattended.
func (a *App) Auth(ctx context.Context, loginURL string) error {
	m := loginCodeRe.FindStringSubmatch(loginURL)
	if m == nil {
		return fmt.Errorf("could not find a login code in the provided URL")
	}
	token, err := gog.TokenFromCode(ctx, &http.Client{}, gog.RealClock{}, m[1])
	if err != nil {
		return err
	}
	data := token.Data()
	if err := a.store.SaveToken(&data); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}
