// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ecomlisting/go-listing-batch/internal/core/commands"
	"github.com/ecomlisting/go-listing-batch/internal/core/cor"
	"github.com/ecomlisting/go-listing-batch/internal/core/model"
	"github.com/ecomlisting/go-listing-batch/internal/core/services"
	"github.com/ecomlisting/go-listing-batch/internal/telemetry"
)

func main() {
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := GetConfig()

	_, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	InitState(ctx)
	slog.Info("Initialized State")

	r := gin.Default()
	r.Use(otelgin.Middleware("listing-batch-server"))
	r.Use(cors.Default())

	apiV1 := r.Group("/api/v1")
	{
		BatchRouter(apiV1)
	}

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen", "error", err)
		}
	}()
	slog.Info("Server Ready on port 8080")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutdown Server ...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed", "error", err)
	}

	log.Println("Server exiting")
}

// BatchRouter sets up the batch submission and status routes.
func BatchRouter(r *gin.RouterGroup) {
	batches := r.Group("/batches")
	{
		// Submit a batch. The multipart form carries the product CSV under
		// "products_csv" and the optional image manifest under "images_json".
		// The run executes synchronously and returns the full report.
		batches.POST("", func(c *gin.Context) {
			csvData, err := readFormFile(c, "products_csv")
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "products_csv file is required"})
				return
			}

			imagesData, err := readFormFile(c, "images_json")
			if err != nil {
				// The manifest is optional; only a present-but-unreadable
				// file is an error.
				imagesData = nil
			}

			batchID := uuid.NewString()
			chainCtx := cor.NewBaseContext()
			chainCtx.SetContext(c.Request.Context())
			chainCtx.Add(commands.GetBatchIDParamName(), batchID)
			chainCtx.Add(cor.CtxIn, &model.BatchSource{CSV: csvData, ImagesJSON: imagesData})

			state.batchWorkflow.Execute(chainCtx)

			if chainCtx.HasErrors() {
				status := http.StatusInternalServerError
				errs := make([]string, 0)
				for _, e := range chainCtx.GetErrors() {
					if model.IsAuthError(e) {
						status = http.StatusUnauthorized
					}
					errs = append(errs, e.Error())
				}
				slog.Error("batch run failed", "batch_id", batchID, "errors", errs)
				c.JSON(status, gin.H{"batch_id": batchID, "errors": errs})
				return
			}

			report := chainCtx.Get(cor.CtxIn).(*model.BatchReport)
			c.JSON(http.StatusOK, report)
		})

		// Fetch the persisted outcome rows for a past run.
		batches.GET("/:id", func(c *gin.Context) {
			rows, err := state.reportService.GetOutcomes(c, c.Param("id"))
			if err == services.ErrBatchNotFound {
				c.Status(http.StatusNotFound)
				return
			}
			if err != nil {
				slog.Error("failed to query batch outcomes", "batch_id", c.Param("id"), "error", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, gin.H{"batch_id": c.Param("id"), "outcomes": rows})
		})
	}
}

// readFormFile reads one uploaded file from the multipart form.
func readFormFile(c *gin.Context, field string) ([]byte, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	return io.ReadAll(file)
}
