// Package checks implements the family of integrity checks. Each divergence
// type maps to one independent, side-effect-free check over the datastore.
package checks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"avalia-integrity/internal/gradeconfig"
	"avalia-integrity/internal/learninglevel"
	"avalia-integrity/internal/models"
)

var ErrUnknownCheck = errors.New("unknown check type")

// Env carries the shared read-only dependencies of every check.
type Env struct {
	DB             *sql.DB
	Configs        *gradeconfig.Resolver
	Classifier     *learninglevel.Classifier
	DetailLimit    int
	Tolerance      float64
	StaleImportAge time.Duration
}

// Result is one check's outcome: an exact total plus a bounded detail list.
type Result struct {
	Total     int
	Details   []models.DivergenceDetail
	Truncated bool
}

type CheckFunc func(ctx context.Context, env *Env) (*Result, error)

var Registry = map[models.DivergenceType]CheckFunc{
	models.TypeAlunosDuplicados: AlunosDuplicados,
	models.TypeResultadosOrfaos: ResultadosOrfaos,
	models.TypeEscolasSemRegiao: EscolasSemRegiao,
	models.TypeTurmasSemEscola:  TurmasSemEscola,

	models.TypeMediasInconsistentes:  MediasInconsistentes,
	models.TypeAcertosInconsistentes: AcertosInconsistentes,
	models.TypeNotasForaIntervalo:    NotasForaIntervalo,
	models.TypeNiveisInconsistentes:  NiveisInconsistentes,
	models.TypeGabaritosAusentes:     GabaritosAusentes,
	models.TypeSeriesSemConfiguracao: SeriesSemConfiguracao,

	models.TypeAnoLetivoInvalido:       AnoLetivoInvalido,
	models.TypeAusentesComRespostas:    AusentesComRespostas,
	models.TypeCodigosConflitantes:     CodigosConflitantes,
	models.TypeEscolasInativasComDados: EscolasInativasComDados,
	models.TypeSerieDivergenteTurma:    SerieDivergenteTurma,
	models.TypeImportacoesTravadas:     ImportacoesTravadas,

	models.TypeAlunosSemResultados:   AlunosSemResultados,
	models.TypeEscolasSemAlunos:      EscolasSemAlunos,
	models.TypeRegioesSemEscolas:     RegioesSemEscolas,
	models.TypeQuestoesNaoUtilizadas: QuestoesNaoUtilizadas,
	models.TypeTurmasVazias:          TurmasVazias,
}

// Run executes one check by type.
func Run(ctx context.Context, env *Env, t models.DivergenceType) (*Result, error) {
	fn, ok := Registry[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCheck, t)
	}
	return fn(ctx, env)
}

// countAndList runs the exact-count query and then the bounded detail query.
// The count stays exact even when the detail list is truncated at the cap.
func countAndList(
	ctx context.Context,
	env *Env,
	countSQL string,
	countArgs []interface{},
	detailSQL string,
	detailArgs []interface{},
	scan func(rows *sql.Rows) (models.DivergenceDetail, error),
) (*Result, error) {
	var total int
	if err := env.DB.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count query: %w", err)
	}
	if total == 0 {
		return &Result{}, nil
	}

	rows, err := env.DB.QueryContext(ctx, detailSQL, detailArgs...)
	if err != nil {
		return nil, fmt.Errorf("detail query: %w", err)
	}
	defer rows.Close()

	details := make([]models.DivergenceDetail, 0, env.DetailLimit)
	for rows.Next() {
		d, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("detail scan: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &Result{
		Total:     total,
		Details:   details,
		Truncated: total > len(details),
	}, nil
}
