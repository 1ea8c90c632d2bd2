package metrics

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorLog:      errorLog{c.logger},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

type errorLog struct {
	logger *slog.Logger
}

func (l errorLog) Println(v ...interface{}) {
	l.logger.Error("Metrics exposition failed", slog.String("err", fmt.Sprint(v...)))
}
