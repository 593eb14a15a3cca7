// internal/divergence/checks/plausibility.go
//
// Cross-field checks: individually valid records whose combination is
// suspicious.
package checks

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"avalia-integrity/internal/models"
)

// AnoLetivoInvalido flags school-year values outside the four-digit format.
func AnoLetivoInvalido(ctx context.Context, env *Env) (*Result, error) {
	const countSQL = `
		SELECT COUNT(*) FROM resultados_consolidados r
		WHERE r.ano_letivo IS NULL OR r.ano_letivo !~ '^[0-9]{4}$'`
	const detailSQL = `
		SELECT r.id, COALESCE(a.nome, ''), COALESCE(a.codigo, ''), COALESCE(r.ano_letivo, '')
		FROM resultados_consolidados r
		LEFT JOIN alunos a ON r.aluno_id = a.id
		WHERE r.ano_letivo IS NULL OR r.ano_letivo !~ '^[0-9]{4}$'
		ORDER BY r.id
		LIMIT $1`

	return countAndList(ctx, env, countSQL, nil, detailSQL, []interface{}{env.DetailLimit},
		func(rows *sql.Rows) (models.DivergenceDetail, error) {
			var d models.DivergenceDetail
			if err := rows.Scan(&d.EntityID, &d.Name, &d.Code, &d.Year); err != nil {
				return d, err
			}
			d.EntityKind = "resultado"
			d.Problem = "ano letivo fora do formato de quatro dígitos"
			d.Current = d.Year
			d.Suggestion = "Normalizar o ano letivo para o formato AAAA"
			return d, nil
		})
}

// AusentesComRespostas flags students marked absent who nevertheless hold
// response data.
func AusentesComRespostas(ctx context.Context, env *Env) (*Result, error) {
	const countSQL = `
		SELECT COUNT(*) FROM resultados_consolidados r
		WHERE r.presenca = 'ausente'
		  AND EXISTS (SELECT 1 FROM respostas re WHERE re.resultado_id = r.id)`
	const detailSQL = `
		SELECT r.id, COALESCE(a.nome, ''), COALESCE(a.codigo, ''), COALESCE(r.ano_letivo, '')
		FROM resultados_consolidados r
		LEFT JOIN alunos a ON r.aluno_id = a.id
		WHERE r.presenca = 'ausente'
		  AND EXISTS (SELECT 1 FROM respostas re WHERE re.resultado_id = r.id)
		ORDER BY r.id
		LIMIT $1`

	return countAndList(ctx, env, countSQL, nil, detailSQL, []interface{}{env.DetailLimit},
		func(rows *sql.Rows) (models.DivergenceDetail, error) {
			var d models.DivergenceDetail
			if err := rows.Scan(&d.EntityID, &d.Name, &d.Code, &d.Year); err != nil {
				return d, err
			}
			d.EntityKind = "resultado"
			d.Problem = "aluno marcado como ausente possui respostas registradas"
			d.Suggestion = "Conferir a presença ou as respostas importadas"
			return d, nil
		})
}

// EscolasInativasComDados flags deactivated schools holding current-year
// results.
func EscolasInativasComDados(ctx context.Context, env *Env) (*Result, error) {
	year := fmt.Sprintf("%d", time.Now().Year())

	const exists = `
		EXISTS (
			SELECT 1
			FROM resultados_consolidados r
			JOIN alunos a ON r.aluno_id = a.id
			JOIN turmas t ON a.turma_id = t.id
			WHERE t.escola_id = e.id AND r.ano_letivo = $1
		)`

	countSQL := `SELECT COUNT(*) FROM escolas e WHERE e.ativa = false AND ` + exists
	detailSQL := `
		SELECT e.id, e.nome FROM escolas e
		WHERE e.ativa = false AND ` + exists + `
		ORDER BY e.nome
		LIMIT $2`

	return countAndList(ctx, env, countSQL, []interface{}{year}, detailSQL, []interface{}{year, env.DetailLimit},
		func(rows *sql.Rows) (models.DivergenceDetail, error) {
			var d models.DivergenceDetail
			if err := rows.Scan(&d.EntityID, &d.Name); err != nil {
				return d, err
			}
			d.EntityKind = "escola"
			d.School = d.Name
			d.Year = year
			d.Problem = "escola inativa com resultados no ano corrente"
			d.Suggestion = "Reativar a escola ou revisar os dados importados"
			return d, nil
		})
}

// SerieDivergenteTurma flags students whose recorded grade differs from
// their class's grade.
func SerieDivergenteTurma(ctx context.Context, env *Env) (*Result, error) {
	const countSQL = `
		SELECT COUNT(*)
		FROM alunos a
		JOIN turmas t ON a.turma_id = t.id
		WHERE a.ativo = true AND a.serie <> t.serie`
	const detailSQL = `
		SELECT a.id, a.nome, a.codigo, a.serie, t.serie, t.nome
		FROM alunos a
		JOIN turmas t ON a.turma_id = t.id
		WHERE a.ativo = true AND a.serie <> t.serie
		ORDER BY a.id
		LIMIT $1`

	return countAndList(ctx, env, countSQL, nil, detailSQL, []interface{}{env.DetailLimit},
		func(rows *sql.Rows) (models.DivergenceDetail, error) {
			var d models.DivergenceDetail
			var classGrade string
			if err := rows.Scan(&d.EntityID, &d.Name, &d.Code, &d.Grade, &classGrade, &d.Class); err != nil {
				return d, err
			}
			d.EntityKind = "aluno"
			d.Problem = "série do aluno difere da série da turma"
			d.Current = d.Grade
			d.Expected = classGrade
			d.Suggestion = "Alinhar a série do aluno com a da turma"
			return d, nil
		})
}

// ImportacoesTravadas flags imports stuck in processing or error beyond the
// staleness threshold.
func ImportacoesTravadas(ctx context.Context, env *Env) (*Result, error) {
	cutoff := time.Now().Add(-env.StaleImportAge)

	const countSQL = `
		SELECT COUNT(*) FROM importacoes i
		WHERE i.status IN ('processando', 'erro') AND i.atualizado_em < $1`
	const detailSQL = `
		SELECT i.id, i.arquivo, i.status, i.atualizado_em
		FROM importacoes i
		WHERE i.status IN ('processando', 'erro') AND i.atualizado_em < $1
		ORDER BY i.atualizado_em
		LIMIT $2`

	return countAndList(ctx, env, countSQL, []interface{}{cutoff}, detailSQL, []interface{}{cutoff, env.DetailLimit},
		func(rows *sql.Rows) (models.DivergenceDetail, error) {
			var d models.DivergenceDetail
			var status string
			var updatedAt time.Time
			if err := rows.Scan(&d.EntityID, &d.Name, &status, &updatedAt); err != nil {
				return d, err
			}
			d.EntityKind = "importacao"
			d.Problem = fmt.Sprintf("importação parada em %q desde %s", status, updatedAt.Format("2006-01-02 15:04"))
			d.Current = status
			d.Suggestion = "Reprocessar ou descartar a importação"
			return d, nil
		})
}
