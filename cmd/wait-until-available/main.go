package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"gitlab.com/dirk.krummacker/phonebook-service/internal/logging"
	"go.uber.org/zap"
)

// Usage example on the command line:
// > go run main.go --url=http://localhost:8080/healthz --interval=2s
func main() {
	var url string
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "wait-until-available",
		Short: "Blocks until the phonebook service reports that it is healthy",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.NewLogger(false)
			if err != nil {
				return err
			}
			defer log.Sync()

			var totalWaitTime time.Duration
			for {
				res, err := http.Get(url)
				if err == nil {
					res.Body.Close()
					if res.StatusCode == http.StatusOK {
						log.Info("Service is available", zap.String("url", url))
						return nil
					}
					log.Info("Service is not healthy yet", zap.Int("status", res.StatusCode))
				} else {
					log.Info("Service is not reachable yet", zap.Error(err))
				}
				totalWaitTime += interval
				log.Info("Waiting", zap.Duration("total", totalWaitTime))
				time.Sleep(interval)
			}
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://localhost:8080/healthz", "Health endpoint to poll")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Time between two attempts")
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}
