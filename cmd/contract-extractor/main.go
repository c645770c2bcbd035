package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/contractextraction/internal/services"
)

var (
	uploadInstance *services.UploadService
	once           sync.Once
	initErr        error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// "HandleExtractContract" is the entry point name we'll see in GCP.
	functions.HTTP("HandleExtractContract", handleExtractContract)
}

// main is required by the Go Functions Framework.
func main() {}

func handleExtractContract(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		cfg := services.LoadConfig()
		var rt *services.Runtime
		rt, initErr = services.NewRuntime(context.Background(), cfg, slog.Default())
		if initErr != nil {
			return
		}
		uploadInstance = services.NewUploadService(rt.Pipeline, cfg.UploadDir, cfg.StrictPDFValidation)
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	uploadInstance.ServeHTTP(w, r)
}
