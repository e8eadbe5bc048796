package main

import (
	"context"
	"fmt"
	"os"

	"github.com/inkpot/inkpot"
	"github.com/inkpot/inkpot/account"
	"github.com/inkpot/inkpot/config"
	"github.com/inkpot/inkpot/media"
	"github.com/inkpot/inkpot/persistent"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/urfave/cli"
)

type env struct {
	cfg config.Config
	db  *bun.DB
}

// withDB opens the configured database around action.
func withDB(action func(c *cli.Context, e env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		db, err := persistent.Open(context.Background(), persistent.Driver(cfg.DbDriver), cfg.DbDsn, cfg.DbVerbose)
		if err != nil {
			return err
		}
		defer db.Close()
		return action(c, env{cfg: cfg, db: db})
	}
}

func accounts(e env) (*account.Service, error) {
	images, err := media.NewDiskStore(e.cfg.MediaRoot)
	if err != nil {
		return nil, err
	}
	return &account.Service{
		Users:      &persistent.UserStore{DB: e.db},
		Images:     images,
		Activities: &persistent.ActivityStore{DB: e.db},
	}, nil
}

func migrate(c *cli.Context, e env) error {
	return persistent.Migrate(context.Background(), e.db)
}

func createUser(c *cli.Context, e env) error {
	username := c.String("username")
	password := c.String("password")
	if username == "" || password == "" {
		return cli.NewExitError("--username and --password are required", 2)
	}
	service, err := accounts(e)
	if err != nil {
		return err
	}
	user, err := service.Register(context.Background(), account.Registration{
		Username: username,
		Email:    inkpot.Email(c.String("email")),
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Created user %s (id %d).\n", user.Username, user.Id)
	return nil
}

func deleteUser(c *cli.Context, e env) error {
	username := c.Args().First()
	if username == "" {
		return cli.NewExitError("username argument is required", 2)
	}
	service, err := accounts(e)
	if err != nil {
		return err
	}
	return service.DeleteUser(context.Background(), username)
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "manage"
	app.Usage = "blog management commands"
	app.Commands = []cli.Command{
		{
			Name:   "migrate",
			Usage:  "apply pending database migrations",
			Action: withDB(migrate),
		},
		{
			Name:  "createuser",
			Usage: "register a user with a default profile",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "username"},
				cli.StringFlag{Name: "email"},
				cli.StringFlag{Name: "password", EnvVar: "INKPOT_PASSWORD"},
			},
			Action: withDB(createUser),
		},
		{
			Name:      "deleteuser",
			Usage:     "delete a user together with profile and posts",
			ArgsUsage: "<username>",
			Action:    withDB(deleteUser),
		},
	}
	return app
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if err := newApp().Run(os.Args); err != nil {
		logrus.WithError(err).Fatalln("Command failed.")
	}
}
