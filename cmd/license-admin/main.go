package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"licensecloud/internal/api"
	"licensecloud/internal/app/config"
	"licensecloud/internal/app/dsn"
	"licensecloud/internal/app/license"
	"licensecloud/internal/app/repository"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "license-admin",
		Usage: "выпуск и отзыв лицензий без HTTP API",
		Commands: []*cli.Command{
			generateCommand(),
			revokeCommand(),
			keysCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// newService сервис лицензий поверх Postgres с теми же настройками, что у сервера.
func newService() (*license.Service, func(), error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, err
	}
	cfg.SetupLogger()

	dsnStr := dsn.FromEnv()
	if dsnStr == "" {
		return nil, nil, errors.New("DSN string is empty, check DB_* variables")
	}
	db, err := repository.Open(dsnStr)
	if err != nil {
		return nil, nil, err
	}
	repo := repository.NewWithDB(db)

	signer, err := api.NewSigner(cfg.License)
	if err != nil {
		_ = repo.Close()
		return nil, nil, err
	}

	closeFn := func() {
		if err := repo.Close(); err != nil {
			logrus.WithError(err).Warn("failed to close database")
		}
	}
	return license.NewService(repo, license.NewCodec(signer)), closeFn, nil
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "выпустить лицензию для организации",
		Flags: []cli.Flag{
			&cli.UintFlag{Name: "org", Usage: "ID организации", Required: true},
			&cli.StringFlag{Name: "type", Usage: "trial, education или permanent", Value: string(license.TypeTrial)},
		},
		Action: func(c *cli.Context) error {
			t, err := license.ParseType(c.String("type"))
			if err != nil {
				return err
			}

			svc, closeFn, err := newService()
			if err != nil {
				return err
			}
			defer closeFn()

			l, err := svc.Create(context.Background(), c.Uint("org"), t)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%d\t%s\t%s\n", l.ID, l.LicenseKey, l.LicenseType)
			return nil
		},
	}
}

func revokeCommand() *cli.Command {
	return &cli.Command{
		Name:  "revoke",
		Usage: "отозвать лицензию",
		Flags: []cli.Flag{
			&cli.UintFlag{Name: "id", Usage: "ID лицензии", Required: true},
		},
		Action: func(c *cli.Context) error {
			svc, closeFn, err := newService()
			if err != nil {
				return err
			}
			defer closeFn()

			l, err := svc.Revoke(context.Background(), c.Uint("id"))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%d\t%s\trevoked\n", l.ID, l.LicenseKey)
			return nil
		},
	}
}

func keysCommand() *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "напечатать новые ключи, ничего не сохраняя",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "n", Usage: "сколько ключей", Value: 1},
		},
		Action: func(c *cli.Context) error {
			n := c.Int("n")
			if n <= 0 {
				return fmt.Errorf("n must be positive, got %d", n)
			}
			for i := 0; i < n; i++ {
				key, err := license.GenerateKey()
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, key)
			}
			return nil
		},
	}
}
