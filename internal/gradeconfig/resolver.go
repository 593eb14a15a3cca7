// Package gradeconfig resolves a free-form grade label to its assessment
// structure. The active configuration set and the learning-level bands are
// loaded from the datastore in one pass and cached with a short TTL; they are
// administrator-managed, read extremely frequently and edited rarely.
package gradeconfig

import (
	"context"
	"database/sql"
	"regexp"
	"sync"
	"time"

	stderrors "avalia-integrity/internal/common/errors"
	"avalia-integrity/internal/common/logger"
	"avalia-integrity/internal/models"
)

var gradeNumberRe = regexp.MustCompile(`\d+`)

// GradeNumber extracts the leading integer from a grade label, e.g.
// "8º Ano" -> "8". Returns "" when the label carries no digits.
func GradeNumber(label string) string {
	return gradeNumberRe.FindString(label)
}

type Resolver struct {
	db     *sql.DB
	ttl    time.Duration
	logger logger.Logger

	mu        sync.RWMutex
	configs   map[string]*models.GradeConfiguration
	bands     []models.LearningLevelBand
	expiresAt time.Time
}

func NewResolver(db *sql.DB, ttl time.Duration, log logger.Logger) *Resolver {
	return &Resolver{
		db:     db,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "gradeconfig"}),
	}
}

// Resolve returns the configuration for the grade label, or nil when the label
// has no digits or no active configuration covers that grade.
func (r *Resolver) Resolve(ctx context.Context, gradeLabel string) *models.GradeConfiguration {
	number := GradeNumber(gradeLabel)
	if number == "" {
		return nil
	}
	configs, _ := r.snapshot(ctx)
	return configs[number]
}

// ResolveOrDefault never returns nil: dependent score computations must not
// hard-fail on a missing configuration.
func (r *Resolver) ResolveOrDefault(ctx context.Context, gradeLabel string) *models.GradeConfiguration {
	if cfg := r.Resolve(ctx, gradeLabel); cfg != nil {
		return cfg
	}
	return Default(GradeNumber(gradeLabel))
}

// Bands returns the configured learning-level bands, falling back to the
// built-in global defaults when none are configured or the load failed.
func (r *Resolver) Bands(ctx context.Context) []models.LearningLevelBand {
	_, bands := r.snapshot(ctx)
	if len(bands) == 0 {
		return DefaultBands()
	}
	return bands
}

// Invalidate clears the cache immediately. Called after configuration edits.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.expiresAt = time.Time{}
	r.mu.Unlock()
}

// snapshot returns the cached maps, refreshing first when the TTL expired.
// Readers never observe a partially-built map: the refresh builds aside and
// swaps under the write lock, last refresh wins.
func (r *Resolver) snapshot(ctx context.Context) (map[string]*models.GradeConfiguration, []models.LearningLevelBand) {
	r.mu.RLock()
	if time.Now().Before(r.expiresAt) {
		configs, bands := r.configs, r.bands
		r.mu.RUnlock()
		return configs, bands
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Now().Before(r.expiresAt) {
		return r.configs, r.bands
	}

	configs, err := loadConfigurations(ctx, r.db)
	if err != nil {
		stdErr := stderrors.NewConfigurationUnavailableError(err)
		r.logger.Warn(stdErr.Message, map[string]interface{}{"details": stdErr.Details})
		if r.configs == nil {
			r.configs = defaultConfigurations()
		}
		// keep the stale set otherwise; retry on the next expiry
	} else {
		r.configs = configs
	}

	bands, err := loadBands(ctx, r.db)
	if err != nil {
		r.logger.Warn("learning-level bands could not be loaded", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		r.bands = bands
	}

	r.expiresAt = time.Now().Add(r.ttl)
	return r.configs, r.bands
}

func loadConfigurations(ctx context.Context, db *sql.DB) (map[string]*models.GradeConfiguration, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT serie,
		       lp_avaliada, lp_itens, lp_peso,
		       mat_avaliada, mat_itens, mat_peso,
		       ch_avaliada, ch_itens, ch_peso,
		       cn_avaliada, cn_itens, cn_peso,
		       producao_ativa, producao_itens, producao_peso
		FROM serie_configuracoes
		WHERE ativa = true`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	configs := make(map[string]*models.GradeConfiguration)
	for rows.Next() {
		var (
			serie                                      string
			lpOn, matOn, chOn, cnOn, essayOn           bool
			lpItems, matItems, chItems, cnItems        int
			essayItems                                 int
			lpWeight, matWeight, chWeight, cnWeight    float64
			essayWeight                                float64
		)
		if err := rows.Scan(&serie,
			&lpOn, &lpItems, &lpWeight,
			&matOn, &matItems, &matWeight,
			&chOn, &chItems, &chWeight,
			&cnOn, &cnItems, &cnWeight,
			&essayOn, &essayItems, &essayWeight); err != nil {
			return nil, err
		}
		configs[serie] = &models.GradeConfiguration{
			Grade: serie,
			Subjects: map[models.Subject]models.SubjectConfig{
				models.SubjectLP:  {Evaluated: lpOn, Items: lpItems, Weight: lpWeight},
				models.SubjectMAT: {Evaluated: matOn, Items: matItems, Weight: matWeight},
				models.SubjectCH:  {Evaluated: chOn, Items: chItems, Weight: chWeight},
				models.SubjectCN:  {Evaluated: cnOn, Items: cnItems, Weight: cnWeight},
			},
			EssayEnabled: essayOn,
			EssayItems:   essayItems,
			EssayWeight:  essayWeight,
		}
	}
	return configs, rows.Err()
}

func loadBands(ctx context.Context, db *sql.DB) ([]models.LearningLevelBand, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT codigo, nome, cor, nota_minima, nota_maxima, COALESCE(serie, '')
		FROM niveis_aprendizagem
		ORDER BY serie NULLS FIRST, nota_minima`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bands []models.LearningLevelBand
	for rows.Next() {
		var b models.LearningLevelBand
		if err := rows.Scan(&b.Code, &b.Name, &b.Color, &b.Lower, &b.Upper, &b.Grade); err != nil {
			return nil, err
		}
		bands = append(bands, b)
	}
	return bands, rows.Err()
}
