package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"

	"github.com/chaosduck/chaos-agents/internal/domain"
	"github.com/chaosduck/chaos-agents/internal/event"
	"github.com/chaosduck/chaos-agents/internal/observability"
	"github.com/chaosduck/chaos-agents/internal/orchestrator"
	"github.com/chaosduck/chaos-agents/internal/wiring"
)

// ChaosHandler exposes the orchestrator's RunExperiment over HTTP. There is
// no experiment-persistence layer (spec Non-goal on cross-restart state),
// so every endpoint here runs an experiment and returns its outcome
// directly rather than polling a stored record.
type ChaosHandler struct {
	orch    *orchestrator.Orchestrator
	metrics *observability.Metrics
}

func NewChaosHandler(orch *orchestrator.Orchestrator, metrics *observability.Metrics) *ChaosHandler {
	return &ChaosHandler{orch: orch, metrics: metrics}
}

func readExperimentConfig(c *gin.Context) (domain.ExperimentConfig, error) {
	var cfg domain.ExperimentConfig
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// CreateExperiment runs one experiment to completion (execute, soak,
// rollback) and returns the resulting report. The body is the
// ExperimentConfig shape from spec §6, YAML- or JSON-encoded (YAML is a
// JSON superset).
func (h *ChaosHandler) CreateExperiment(c *gin.Context) {
	cfg, err := readExperimentConfig(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := wiring.Register(h.orch, cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.metrics.RecordExperimentStart()
	start := time.Now()

	report, err := h.orch.RunExperiment(c.Request.Context(), cfg, nil)
	duration := time.Since(start).Seconds()

	if err != nil {
		h.metrics.RecordExperimentEnd(string(cfg.Target), "error", duration)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	h.metrics.RecordExperimentEnd(string(cfg.Target), string(report.Status), duration)
	c.JSON(http.StatusOK, report)
}

// sendSSE writes one Server-Sent Event frame (event + json data + blank
// line, flushed immediately).
func sendSSE(c *gin.Context, eventName string, data any) bool {
	j, err := json.Marshal(data)
	if err != nil {
		log.Printf("SSE marshal error: %v", err)
		return false
	}
	if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", eventName, j); err != nil {
		return false
	}
	if f, ok := c.Writer.(http.Flusher); ok {
		f.Flush()
	}
	return true
}

// StreamExperiment runs one experiment while streaming its lifecycle events
// over SSE as they're emitted, per spec §6's event stream (Started,
// SkillExecuted*, DurationWaitBegin?, RollbackStarted, RollbackStepCompleted*,
// Failed?, Completed). The final frame carries the full ExperimentReport.
func (h *ChaosHandler) StreamExperiment(c *gin.Context) {
	cfg, err := readExperimentConfig(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := wiring.Register(h.orch, cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	sink := event.NewChannelSink()
	ctx := orchestrator.WithSink(c.Request.Context(), sink)

	h.metrics.RecordExperimentStart()
	start := time.Now()

	done := make(chan struct{})
	var report *domain.ExperimentReport
	var runErr error
	go func() {
		defer close(done)
		report, runErr = h.orch.RunExperiment(ctx, cfg, nil)
	}()

	for {
		select {
		case e, ok := <-sink.Events():
			if !ok {
				return
			}
			if !sendSSE(c, string(e.Kind), e) {
				return
			}
		case <-done:
			// RunExperiment only closes done after its final emit; drain
			// whatever is left in the buffer so the terminal event always
			// precedes the report frame.
			for drained := false; !drained; {
				select {
				case e, ok := <-sink.Events():
					if !ok {
						drained = true
						break
					}
					sendSSE(c, string(e.Kind), e)
				default:
					drained = true
				}
			}
			duration := time.Since(start).Seconds()
			if runErr != nil {
				h.metrics.RecordExperimentEnd(string(cfg.Target), "error", duration)
				sendSSE(c, "error", gin.H{"error": runErr.Error()})
				return
			}
			h.metrics.RecordExperimentEnd(string(cfg.Target), string(report.Status), duration)
			sendSSE(c, "report", report)
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
