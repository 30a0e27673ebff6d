package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

func recordCall(tool, connection, status string, start time.Time) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`querybridge_tool_calls_total{tool=%q,connection=%q,status=%q}`, tool, connection, status)).Inc()
	metrics.GetOrCreateHistogram(fmt.Sprintf(`querybridge_tool_call_duration_seconds{tool=%q}`, tool)).UpdateDuration(start)
}

func recordRejection(kind string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`querybridge_rejections_total{kind=%q}`, kind)).Inc()
}

func handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	metrics.WritePrometheus(w, true)
}
