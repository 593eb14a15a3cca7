// Package divergence executes the integrity-check family and aggregates the
// outcome into a severity-bucketed report.
package divergence

import (
	"context"
	"sort"
	"sync"
	"time"

	stderrors "avalia-integrity/internal/common/errors"
	"avalia-integrity/internal/common/logger"
	"avalia-integrity/internal/common/metrics"
	"avalia-integrity/internal/common/observability"
	"avalia-integrity/internal/divergence/catalog"
	"avalia-integrity/internal/divergence/checks"
	"avalia-integrity/internal/models"
)

type Detector struct {
	env    *checks.Env
	obs    *observability.Observability
	logger logger.Logger
}

func NewDetector(env *checks.Env, obs *observability.Observability, log logger.Logger) *Detector {
	return &Detector{
		env:    env,
		obs:    obs,
		logger: log.WithFields(map[string]interface{}{"component": "detector"}),
	}
}

// Run executes a single check and returns its divergence.
func (d *Detector) Run(ctx context.Context, t models.DivergenceType) (*models.Divergence, error) {
	info, ok := catalog.Get(t)
	if !ok {
		return nil, stderrors.NewUnknownDivergenceTypeError(string(t))
	}
	div := d.runOne(ctx, t, info)
	return &div, nil
}

// RunAll executes every cataloged check concurrently. Checks are isolated
// queries with no shared mutable state; one check failing must not abort the
// others, and a failed check is reported with the Failed flag rather than as
// a false clean result.
func (d *Detector) RunAll(ctx context.Context) *models.DetectionReport {
	started := time.Now()
	all := catalog.All()

	divergences := make([]models.Divergence, 0, len(all))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for t, info := range all {
		wg.Add(1)
		go func(t models.DivergenceType, info catalog.Info) {
			defer wg.Done()
			div := d.runOne(ctx, t, info)
			mu.Lock()
			divergences = append(divergences, div)
			mu.Unlock()
		}(t, info)
	}
	wg.Wait()

	sort.Slice(divergences, func(i, j int) bool {
		ri, rj := severityRank(divergences[i].Severity), severityRank(divergences[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return divergences[i].Type < divergences[j].Type
	})

	report := &models.DetectionReport{
		Divergences: divergences,
		RanAt:       started.UTC(),
	}
	for _, div := range divergences {
		if div.Failed {
			report.Summary.FailedChecks++
			continue
		}
		report.Summary.Total += div.Total
		switch div.Severity {
		case models.SeverityCritical:
			report.Summary.Critical += div.Total
		case models.SeverityImportant:
			report.Summary.Important += div.Total
		case models.SeverityWarning:
			report.Summary.Warning += div.Total
		case models.SeverityInformational:
			report.Summary.Informational += div.Total
		}
	}

	metrics.DetectionDuration.Observe(time.Since(started).Seconds())
	if d.obs != nil {
		status := "ok"
		if report.Summary.FailedChecks > 0 {
			status = "partial"
		}
		d.obs.RecordDetectionRun(ctx, status, time.Since(started))
	}
	d.logger.Info("detection run finished", map[string]interface{}{
		"total":        report.Summary.Total,
		"failedChecks": report.Summary.FailedChecks,
		"durationMs":   time.Since(started).Milliseconds(),
	})
	return report
}

func (d *Detector) runOne(ctx context.Context, t models.DivergenceType, info catalog.Info) models.Divergence {
	div := models.Divergence{
		Type:           t,
		Severity:       info.Severity,
		Title:          info.Title,
		Description:    info.Description,
		Icon:           info.Icon,
		Fixable:        info.Fixable,
		AutoFixable:    info.AutoFixable,
		FixActionLabel: info.FixActionLabel,
		Details:        []models.DivergenceDetail{},
	}

	metrics.ChecksRun.WithLabelValues(string(t)).Inc()

	res, err := checks.Run(ctx, d.env, t)
	if err != nil {
		stdErr := stderrors.NewCheckExecutionFailedError(string(t), err)
		d.logger.Error(stdErr.Message, map[string]interface{}{"details": stdErr.Details})
		metrics.CheckFailures.WithLabelValues(string(t)).Inc()
		div.Failed = true
		div.Error = stdErr.Message
		return div
	}

	div.Total = res.Total
	div.Truncated = res.Truncated
	if res.Details != nil {
		div.Details = res.Details
	}
	metrics.DivergencesFound.WithLabelValues(string(t), string(info.Severity)).Set(float64(res.Total))
	return div
}

func severityRank(s models.Severity) int {
	switch s {
	case models.SeverityCritical:
		return 0
	case models.SeverityImportant:
		return 1
	case models.SeverityWarning:
		return 2
	default:
		return 3
	}
}
