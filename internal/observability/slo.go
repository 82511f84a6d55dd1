package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/yungbote/knowledge-backend/internal/platform/envutil"
	"github.com/yungbote/knowledge-backend/internal/platform/httpx"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
)

// window keeps the last len(buckets) per-interval deltas of a monotonic
// tally and their running sum.
type window struct {
	buckets []float64
	next    int
	sum     float64
	last    float64
}

func newWindow(size int) *window {
	return &window{buckets: make([]float64, max(size, 1))}
}

// observe records the growth of the tally since the previous call. A tally
// that went backwards was reset, so its whole value counts.
func (w *window) observe(current float64) {
	d := current - w.last
	if d < 0 {
		d = current
	}
	w.last = current
	w.sum += d - w.buckets[w.next]
	w.buckets[w.next] = d
	w.next = (w.next + 1) % len(w.buckets)
}

// objective is one SLO: good events are total minus bad.
type objective struct {
	name   string
	target float64
	total  *window
	bad    *window
	sample func(m *Metrics) (total, bad float64)
}

type alertConfig struct {
	webhook     string
	owner       string
	runbook     string
	minInterval time.Duration
	burnWarn    float64
	burnCrit    float64
}

func (a alertConfig) enabled() bool { return a.webhook != "" && a.owner != "" }

func (a alertConfig) severity(burn float64) string {
	switch {
	case burn >= a.burnCrit:
		return "critical"
	case burn >= a.burnWarn:
		return "warning"
	}
	return ""
}

type SLOEvaluator struct {
	metrics     *Metrics
	log         *logger.Logger
	interval    time.Duration
	windowLabel string
	objectives  []*objective

	alerts     alertConfig
	httpClient *http.Client
	mu         sync.Mutex
	lastAlert  map[string]time.Time
}

// StartSLOEvaluator samples the API and resolve tallies every
// SLO_EVAL_INTERVAL_SECONDS until ctx is done. Off unless SLO_ENABLED is set.
func (m *Metrics) StartSLOEvaluator(ctx context.Context, log *logger.Logger) {
	if m == nil || !envutil.Bool("SLO_ENABLED", false) {
		return
	}
	e := newSLOEvaluator(m, log)
	go e.run(ctx)
	e.log.Info("SLO evaluator started", "window", e.windowLabel, "interval", e.interval.String())
}

func newSLOEvaluator(m *Metrics, log *logger.Logger) *SLOEvaluator {
	if log == nil {
		log = logger.Nop()
	}
	interval := envutil.Seconds("SLO_EVAL_INTERVAL_SECONDS", time.Minute)
	if interval <= 0 {
		interval = time.Minute
	}
	hours := envutil.Float("SLO_WINDOW_HOURS", 720)
	if hours < 1 {
		hours = 24
	}
	span := time.Duration(hours * float64(time.Hour))
	size := int(span / interval)

	mk := func(name, targetEnv string, def float64, sample func(*Metrics) (float64, float64)) *objective {
		return &objective{
			name:   name,
			target: clamp01(envutil.Float(targetEnv, def)),
			total:  newWindow(size),
			bad:    newWindow(size),
			sample: sample,
		}
	}
	return &SLOEvaluator{
		metrics:     m,
		log:         log.With("component", "slo"),
		interval:    interval,
		windowLabel: windowLabel(span),
		objectives: []*objective{
			mk("api_availability", "SLO_API_AVAIL_TARGET", 0.995, func(m *Metrics) (float64, float64) {
				return m.apiTotal.Value(), m.apiErrors.Value()
			}),
			mk("api_latency", "SLO_API_LATENCY_TARGET", 0.95, func(m *Metrics) (float64, float64) {
				total := m.apiTotal.Value()
				return total, total - m.apiFast.Value()
			}),
			mk("resolve_success", "SLO_RESOLVE_SUCCESS_TARGET", 0.98, func(m *Metrics) (float64, float64) {
				return m.resolveTotal.Value(), m.resolveErrors.Value()
			}),
		},
		alerts: alertConfig{
			webhook:     envutil.String("SLO_ALERT_WEBHOOK_URL", ""),
			owner:       envutil.String("SLO_ALERT_OWNER", ""),
			runbook:     envutil.String("SLO_ALERT_RUNBOOK_URL", ""),
			minInterval: envutil.Seconds("SLO_ALERT_MIN_INTERVAL_SECONDS", 15*time.Minute),
			burnWarn:    envutil.Float("SLO_ALERT_BURN_RATE_WARN", 2),
			burnCrit:    envutil.Float("SLO_ALERT_BURN_RATE_CRIT", 10),
		},
		httpClient: &http.Client{Timeout: 5 * time.Second},
		lastAlert:  map[string]time.Time{},
	}
}

func (e *SLOEvaluator) run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.evaluate()
		}
	}
}

func (e *SLOEvaluator) evaluate() {
	for _, o := range e.objectives {
		total, bad := o.sample(e.metrics)
		o.total.observe(total)
		o.bad.observe(bad)

		sli, burn := 1.0, 0.0
		if o.total.sum > 0 {
			sli = clamp01(1 - o.bad.sum/o.total.sum)
			if o.target < 1 {
				burn = (1 - sli) / (1 - o.target)
			}
		}
		budget := clamp01(1 - burn)
		e.metrics.sloCompliance.WithLabelValues(o.name, e.windowLabel).Set(sli)
		e.metrics.sloBudget.WithLabelValues(o.name, e.windowLabel).Set(budget)
		e.metrics.sloBurn.WithLabelValues(o.name, e.windowLabel).Set(burn)

		if sev := e.alerts.severity(burn); sev != "" && e.alerts.enabled() && e.shouldAlert(o.name+":"+sev) {
			e.sendAlert(map[string]any{
				"title":                  "SLO burn rate alert",
				"severity":               sev,
				"owner":                  e.alerts.owner,
				"slo":                    o.name,
				"window":                 e.windowLabel,
				"sli":                    sli,
				"target":                 o.target,
				"burn_rate":              burn,
				"error_budget_remaining": budget,
				"runbook":                e.alerts.runbook,
				"timestamp":              time.Now().UTC().Format(time.RFC3339),
			})
		}
	}
}

func (e *SLOEvaluator) shouldAlert(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if last, ok := e.lastAlert[key]; ok && time.Since(last) < e.alerts.minInterval {
		return false
	}
	e.lastAlert[key] = time.Now()
	return true
}

func (e *SLOEvaluator) sendAlert(payload map[string]any) {
	body, err := json.Marshal(payload)
	if err != nil {
		e.log.Warn("slo alert encode failed", "error", err)
		return
	}
	resp, err := e.httpClient.Post(e.alerts.webhook, "application/json", bytes.NewReader(body))
	if err != nil {
		e.log.Warn("slo alert post failed", "slo", payload["slo"], "error", err)
		return
	}
	_ = resp.Body.Close()
	if !httpx.IsSuccess(resp.StatusCode) {
		e.log.Warn("slo alert rejected", "slo", payload["slo"], "status", resp.StatusCode)
		return
	}
	e.log.Info("slo alert sent", "slo", payload["slo"], "severity", payload["severity"])
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

// windowLabel renders whole days as "30d", otherwise hours or minutes.
func windowLabel(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	case d >= time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dm", int(d.Minutes()))
}
