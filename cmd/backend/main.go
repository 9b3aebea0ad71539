package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "licensecloud/docs"
	"licensecloud/internal/api"

	"github.com/sirupsen/logrus"
)

// @title License Cloud API
// @version 1.0
// @description Выпуск, активация и проверка лицензий, администрирование организаций.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logrus.Info("App start")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := api.StartServer(ctx); err != nil {
		logrus.Fatal(err)
	}

	logrus.Info("App terminated")
}
