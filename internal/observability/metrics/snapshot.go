package metrics

import (
	"math"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const (
	repliesFamily = "lakeside_chat_replies_total"
	rejectFamily  = "lakeside_chat_rejected_total"
	gatewayFamily = "lakeside_chat_gateway_total"
	latencyFamily = "lakeside_chat_gateway_latency_seconds"
)

// ChatSnapshot summarizes chat traffic since process start.
type ChatSnapshot struct {
	RepliesByStage   map[string]int64 `json:"replies_by_stage"`
	RepliesBySource  map[string]int64 `json:"replies_by_source"`
	Rejected         map[string]int64 `json:"rejected"`
	GatewayOutcomes  map[string]int64 `json:"gateway_outcomes"`
	GatewayLatencyMs LatencySummary   `json:"gateway_latency_ms"`
}

type LatencySummary struct {
	Total int64   `json:"total"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
}

// SnapshotChat reads the chat families from gatherer. A nil gatherer uses
// the default registry.
func SnapshotChat(gatherer prometheus.Gatherer) ChatSnapshot {
	snap := ChatSnapshot{
		RepliesByStage:  map[string]int64{},
		RepliesBySource: map[string]int64{},
		Rejected:        map[string]int64{},
		GatewayOutcomes: map[string]int64{},
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return snap
	}

	for _, mf := range mfs {
		if mf == nil {
			continue
		}
		switch mf.GetName() {
		case repliesFamily:
			sumCounter(mf, "stage", snap.RepliesByStage)
			sumCounter(mf, "source", snap.RepliesBySource)
		case rejectFamily:
			sumCounter(mf, "reason", snap.Rejected)
		case gatewayFamily:
			sumCounter(mf, "outcome", snap.GatewayOutcomes)
		case latencyFamily:
			snap.GatewayLatencyMs = summarizeLatency(mf)
		}
	}
	return snap
}

func sumCounter(mf *dto.MetricFamily, label string, into map[string]int64) {
	for _, metric := range mf.Metric {
		if metric == nil || metric.GetCounter() == nil {
			continue
		}
		value, ok := labelValue(metric, label)
		if !ok {
			continue
		}
		into[value] += int64(metric.GetCounter().GetValue())
	}
}

// summarizeLatency aggregates successful gateway calls only.
func summarizeLatency(mf *dto.MetricFamily) LatencySummary {
	cumulativeByUpper := map[float64]uint64{}
	var sampleCount uint64

	for _, metric := range mf.Metric {
		if metric == nil {
			continue
		}
		if v, _ := labelValue(metric, "outcome"); v != "ok" {
			continue
		}
		h := metric.GetHistogram()
		if h == nil {
			continue
		}
		sampleCount += h.GetSampleCount()
		for _, b := range h.Bucket {
			if b == nil {
				continue
			}
			cumulativeByUpper[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}
	if sampleCount == 0 || len(cumulativeByUpper) == 0 {
		return LatencySummary{}
	}

	uppers := make([]float64, 0, len(cumulativeByUpper))
	for upper := range cumulativeByUpper {
		uppers = append(uppers, upper)
	}
	sort.Float64s(uppers)

	return LatencySummary{
		Total: int64(sampleCount),
		P50:   histogramQuantile(0.50, sampleCount, uppers, cumulativeByUpper) * 1000.0,
		P95:   histogramQuantile(0.95, sampleCount, uppers, cumulativeByUpper) * 1000.0,
	}
}

func labelValue(metric *dto.Metric, name string) (string, bool) {
	for _, lp := range metric.Label {
		if lp != nil && lp.GetName() == name {
			return lp.GetValue(), true
		}
	}
	return "", false
}

// histogramQuantile interpolates linearly inside the bucket holding q.
// The +Inf bucket is not counted, so the value is bounded by the largest finite bucket.
func histogramQuantile(q float64, total uint64, uppers []float64, cumulativeByUpper map[float64]uint64) float64 {
	if total == 0 || q <= 0 {
		return 0
	}
	target := q * float64(total)
	var prevUpper, prevCum float64

	for _, upper := range uppers {
		cum := float64(cumulativeByUpper[upper])
		if cum < target {
			prevUpper = upper
			prevCum = cum
			continue
		}
		if math.IsInf(upper, 1) {
			return prevUpper
		}
		bucketCount := cum - prevCum
		if bucketCount <= 0 || upper == prevUpper {
			return upper
		}
		fraction := math.Min(math.Max((target-prevCum)/bucketCount, 0), 1)
		return prevUpper + fraction*(upper-prevUpper)
	}

	last := uppers[len(uppers)-1]
	if math.IsInf(last, 1) {
		return prevUpper
	}
	return last
}
