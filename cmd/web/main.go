// Command web serves the churn dashboard API and its WebSocket stream.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/davallejo/telco-churn-dashboard/internal/app"
	"github.com/davallejo/telco-churn-dashboard/internal/infrastructure"
)

func main() {
	application, err := app.New()
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	if err := application.Run(context.Background()); err != nil {
		application.Logger.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
