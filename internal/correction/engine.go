// Package correction applies the repair for a divergence type to a set of
// targets, with per-target outcomes and an audit entry for every change.
package correction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"avalia-integrity/internal/common/cache"
	stderrors "avalia-integrity/internal/common/errors"
	"avalia-integrity/internal/common/logger"
	"avalia-integrity/internal/common/metrics"
	"avalia-integrity/internal/common/observability"
	"avalia-integrity/internal/divergence/catalog"
	"avalia-integrity/internal/divergence/checks"
	"avalia-integrity/internal/gradeconfig"
	"avalia-integrity/internal/history"
	"avalia-integrity/internal/learninglevel"
	"avalia-integrity/internal/models"
)

// HistoryAppender records applied fixes. Implemented by history.Store.
type HistoryAppender interface {
	Append(ctx context.Context, e *models.HistoryEntry) error
}

var _ HistoryAppender = (*history.Store)(nil)

type Engine struct {
	db         *sql.DB
	configs    *gradeconfig.Resolver
	classifier *learninglevel.Classifier
	checkEnv   *checks.Env
	history    HistoryAppender
	cache      cache.Invalidator
	obs        *observability.Observability
	logger     logger.Logger

	tolerance    float64
	messageLimit int
}

type Config struct {
	DB            *sql.DB
	Configs       *gradeconfig.Resolver
	Classifier    *learninglevel.Classifier
	CheckEnv      *checks.Env
	History       HistoryAppender
	Cache         cache.Invalidator
	Observability *observability.Observability
	Logger        logger.Logger
	Tolerance     float64
	MessageLimit  int
}

func NewEngine(cfg Config) *Engine {
	if cfg.Cache == nil {
		cfg.Cache = cache.NoOpInvalidator{}
	}
	if cfg.MessageLimit <= 0 {
		cfg.MessageLimit = 50
	}
	return &Engine{
		db:           cfg.DB,
		configs:      cfg.Configs,
		classifier:   cfg.Classifier,
		checkEnv:     cfg.CheckEnv,
		history:      cfg.History,
		cache:        cfg.Cache,
		obs:          cfg.Observability,
		logger:       cfg.Logger.WithFields(map[string]interface{}{"component": "correction"}),
		tolerance:    cfg.Tolerance,
		messageLimit: cfg.MessageLimit,
	}
}

// Apply runs the correction batch. Authorization, parameter validation and
// target resolution happen before the first write; after that, each target is
// an independent outcome and one failure never aborts the rest.
func (e *Engine) Apply(ctx context.Context, req *models.CorrectionRequest) (*models.CorrectionResult, error) {
	info, ok := catalog.Get(req.Type)
	if !ok {
		return nil, stderrors.NewUnknownDivergenceTypeError(string(req.Type))
	}
	fx, ok := fixers[req.Type]
	if !ok || !info.Fixable {
		return nil, stderrors.NewFixNotAvailableError(string(req.Type))
	}
	if !info.AutoFixable && req.Unattended() {
		return nil, stderrors.NewFixNotAuthorizedError(string(req.Type))
	}
	if err := validateParams(fx, req); err != nil {
		return nil, err
	}
	if !req.FixAll && len(req.IDs) == 0 {
		return nil, stderrors.NewInvalidRequestError("no correction targets: provide ids or set fixAll")
	}

	result := &models.CorrectionResult{Messages: []string{}}

	// fixAll re-detects between rounds: one detection pass only surfaces the
	// first page of offenders (the detail list is capped), so rounds continue
	// until detection drains or stops yielding unseen targets. A dataset with
	// zero current offenders is a clean no-op batch, not an error.
	processed := make(map[int64]struct{})
	stopped := false
	for !stopped {
		targets, truncated, err := e.resolveTargets(ctx, req)
		if err != nil {
			return nil, err
		}

		fresh := make([]int64, 0, len(targets))
		for _, id := range targets {
			if _, seen := processed[id]; !seen {
				fresh = append(fresh, id)
			}
		}
		if len(fresh) == 0 {
			break
		}

		for _, id := range fresh {
			if err := ctx.Err(); err != nil {
				e.addMessage(result, fmt.Sprintf("interrompido: %v", err))
				result.Errors++
				stopped = true
				break
			}
			processed[id] = struct{}{}
			e.applyOne(ctx, req, info, fx, id, result)
		}
		if !req.FixAll || !truncated {
			break
		}
	}

	result.Success = result.Errors == 0
	if result.Corrected > 0 {
		if err := e.cache.Invalidate(ctx); err != nil {
			e.logger.Warn("report cache invalidation failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	e.logger.Info("correction batch finished", map[string]interface{}{
		"type":      string(req.Type),
		"corrected": result.Corrected,
		"skipped":   result.Skipped,
		"errors":    result.Errors,
		"user":      req.User,
	})
	return result, nil
}

func (e *Engine) applyOne(ctx context.Context, req *models.CorrectionRequest, info catalog.Info, fx fixer, id int64, result *models.CorrectionResult) {
	out, err := fx.apply(ctx, e, req, id)

	var stdErr *stderrors.StandardError
	switch {
	case errors.As(err, &stdErr) && stdErr.Code == stderrors.ErrCodeTargetNotFound:
		result.Skipped++
		e.record(ctx, req, "noop")
		e.addMessage(result, fmt.Sprintf("alvo %d não encontrado, ignorado", id))

	case err != nil:
		result.Errors++
		e.record(ctx, req, "error")
		writeErr := stderrors.NewCorrectionWriteFailedError(string(req.Type), id, err)
		e.logger.Error(writeErr.Message, map[string]interface{}{"details": writeErr.Details})
		e.addMessage(result, fmt.Sprintf("alvo %d: %s", id, err.Error()))

	case out.status == statusNoop:
		result.Skipped++
		e.record(ctx, req, "noop")

	default:
		result.Corrected++
		e.record(ctx, req, "ok")
		e.addMessage(result, out.message)

		entry := &models.HistoryEntry{
			Type:       req.Type,
			Severity:   info.Severity,
			EntityKind: out.entityKind,
			EntityID:   id,
			Before:     out.before,
			After:      out.after,
			Action:     fx.action,
			Automatic:  req.Unattended(),
			User:       req.User,
		}
		if err := e.history.Append(ctx, entry); err != nil {
			// the fix is applied; a lost audit row is reported, not rolled back
			e.logger.Error("history append failed", map[string]interface{}{
				"type":  string(req.Type),
				"id":    id,
				"error": err.Error(),
			})
			e.addMessage(result, fmt.Sprintf("alvo %d corrigido, mas o histórico falhou", id))
		}
	}
}

func (e *Engine) record(ctx context.Context, req *models.CorrectionRequest, outcome string) {
	metrics.CorrectionsApplied.WithLabelValues(string(req.Type), outcome).Inc()
	if e.obs != nil {
		e.obs.RecordCorrection(ctx, string(req.Type), outcome)
	}
}

func (e *Engine) addMessage(result *models.CorrectionResult, msg string) {
	if len(result.Messages) < e.messageLimit {
		result.Messages = append(result.Messages, msg)
	}
}

// resolveTargets returns the explicit id list, or re-detects the current
// offenders when fixAll is set so the batch never acts on a stale snapshot.
// The second return reports whether detection had more offenders than the
// detail page it returned; the caller keeps re-resolving until it drains.
func (e *Engine) resolveTargets(ctx context.Context, req *models.CorrectionRequest) ([]int64, bool, error) {
	if !req.FixAll {
		return dedupe(req.IDs), false, nil
	}

	res, err := checks.Run(ctx, e.checkEnv, req.Type)
	if err != nil {
		return nil, false, stderrors.NewCheckExecutionFailedError(string(req.Type), err)
	}
	ids := make([]int64, 0, len(res.Details))
	for _, d := range res.Details {
		if d.EntityID != 0 {
			ids = append(ids, d.EntityID)
		}
	}
	return dedupe(ids), res.Truncated, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func validateParams(fx fixer, req *models.CorrectionRequest) error {
	if fx.paramsSchema == "" {
		return nil
	}
	params := req.Params
	if params == nil {
		params = map[string]interface{}{}
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(fx.paramsSchema),
		gojsonschema.NewGoLoader(params))
	if err != nil {
		return stderrors.NewInvalidRequestError(err.Error())
	}
	if !result.Valid() {
		details := ""
		for _, desc := range result.Errors() {
			if details != "" {
				details += "; "
			}
			details += desc.String()
		}
		return stderrors.NewInvalidRequestError(details)
	}
	return nil
}
