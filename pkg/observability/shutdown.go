package observability

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// ShutdownFunc is a function to call during shutdown
type ShutdownFunc func(context.Context) error

// GracefulShutdown blocks until SIGINT or SIGTERM, drains the given servers
// and then runs the shutdown functions in order. In-flight requests get until
// the timeout to finish.
func GracefulShutdown(logger *Logger, timeout time.Duration, servers []*http.Server, shutdownFuncs ...ShutdownFunc) error {
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Infof("received signal %s, starting graceful shutdown", sig)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var failed int
	for _, server := range servers {
		if err := server.Shutdown(ctx); err != nil {
			logger.WithError(err).Errorf("failed to shut down listener %s", server.Addr)
			failed++
		}
	}

	for i, fn := range shutdownFuncs {
		if err := fn(ctx); err != nil {
			logger.WithError(err).Errorf("shutdown step %d failed", i)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("shutdown completed with %d errors", failed)
	}
	logger.Info("graceful shutdown complete")
	return nil
}

// RecoverMiddleware converts handler panics into 500 responses instead of
// tearing down the connection.
func RecoverMiddleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.WithRequest(r.Context()).
						WithField("panic", fmt.Sprintf("%v", rec)).
						WithField("path", r.URL.Path).
						Error("panic recovered")
					http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
