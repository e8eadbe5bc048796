package main

import (
	"context"
	"log/syslog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/inkpot/inkpot/account"
	"github.com/inkpot/inkpot/config"
	"github.com/inkpot/inkpot/media"
	"github.com/inkpot/inkpot/persistent"
	"github.com/inkpot/inkpot/transport/rest"
	"github.com/sirupsen/logrus"
	logrusys "github.com/sirupsen/logrus/hooks/syslog"
	"github.com/tidwall/buntdb"
	"github.com/uptrace/bun"
)

func newApp(cfg config.Config, bdb *buntdb.DB, db *bun.DB, images *media.DiskStore) (*fiber.App, error) {
	userStore := &persistent.UserStore{DB: db}
	postStore := &persistent.PostStore{DB: db}
	activityStore := &persistent.ActivityStore{DB: db}
	sessionStore, err := persistent.NewSessionStore(bdb, activityStore)
	if err != nil {
		return nil, err
	}

	accounts := &account.Service{
		Users:      userStore,
		Images:     images,
		Activities: activityStore,
	}
	auth := &rest.Authenticator{
		Sessions:     sessionStore,
		Users:        userStore,
		CookieSecure: cfg.CookieSecure,
	}

	authController := rest.AuthController{Accounts: accounts, Auth: auth}
	postController := rest.PostController{Posts: postStore, Users: userStore, Activities: activityStore}
	sessionController := rest.SessionController{Store: sessionStore}
	activityController := rest.ActivityController{Store: activityStore}

	fiberCfg := rest.Config()
	fiberCfg.ReadTimeout = cfg.ReadTimeout
	fiberCfg.WriteTimeout = cfg.WriteTimeout
	fiberCfg.BodyLimit = cfg.BodyLimit
	app := fiber.New(fiberCfg)

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.AllowOrigins, AllowCredentials: cfg.AllowOrigins != "*"}))
	app.Use(auth.CurrentUser())
	// after CurrentUser so that request lines carry user_id
	app.Use(rest.LogHandler())
	app.Static(rest.MediaUrl, images.Root, fiber.Static{Browse: false})
	if cfg.Debug {
		app.Get("/status", monitor.New())
	}

	authController.InstallTo(app)
	postController.InstallTo(app)
	sessionController.InstallTo(app)
	activityController.InstallTo(app)

	app.Use(rest.NotFoundHandler)
	return app, nil
}

func setupLogger(debug bool, useSyslog bool) {
	logrus.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.Stamp,
		FullTimestamp:   true,
	})
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if !useSyslog {
		return
	}

	syslogHook, err := logrusys.NewSyslogHook("", "", syslog.LOG_USER, "inkpot")
	if err != nil {
		logrus.WithError(err).Fatalln("Could not create syslog hook.")
		return
	}
	logrus.AddHook(syslogHook)
}

func awaitInterruption() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatalln("Invalid configuration.")
	}
	setupLogger(cfg.Debug, cfg.Syslog)
	logrus.Infoln("Starting blog.")
	ctx := context.Background()

	bdb, err := buntdb.Open(cfg.SessionDb)
	if err != nil {
		logrus.WithError(err).Fatalln("Could not open buntdb.")
	}
	defer bdb.Close()

	logrus.WithField("driver", cfg.DbDriver).Infoln("Opening database.")
	db, err := persistent.Open(ctx, persistent.Driver(cfg.DbDriver), cfg.DbDsn, cfg.DbVerbose || cfg.Debug)
	if err != nil {
		logrus.WithError(err).Fatalln("Could not open database.")
	}
	defer db.Close()
	if err := persistent.Migrate(ctx, db); err != nil {
		logrus.WithError(err).Fatalln("Could not migrate database.")
	}

	images, err := media.NewDiskStore(cfg.MediaRoot)
	if err != nil {
		logrus.WithError(err).Fatalln("Could not prepare media root.")
	}

	app, err := newApp(cfg, bdb, db, images)
	if err != nil {
		logrus.WithError(err).Fatalln("Could not set up server.")
	}

	logrus.WithField("addr", cfg.HttpAddr).Infoln("Starting listening... To shut down use ^C")
	go func() {
		if err := app.Listen(cfg.HttpAddr); err != nil {
			logrus.WithError(err).Fatalln("Could not listen.")
		}
	}()

	awaitInterruption()

	logrus.Infoln("Shutting down...")
	if err := app.Shutdown(); err != nil {
		logrus.WithError(err).Warningln("Fiber shutdown failed.")
	}
}
