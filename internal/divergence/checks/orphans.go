// internal/divergence/checks/orphans.go
package checks

import (
	"context"
	"database/sql"

	"avalia-integrity/internal/models"
)

// ResultadosOrfaos finds consolidated results whose student reference no
// longer resolves.
func ResultadosOrfaos(ctx context.Context, env *Env) (*Result, error) {
	const countSQL = `
		SELECT COUNT(*)
		FROM resultados_consolidados r
		LEFT JOIN alunos a ON r.aluno_id = a.id
		WHERE a.id IS NULL`
	const detailSQL = `
		SELECT r.id, r.aluno_id, COALESCE(r.ano_letivo, '')
		FROM resultados_consolidados r
		LEFT JOIN alunos a ON r.aluno_id = a.id
		WHERE a.id IS NULL
		ORDER BY r.id
		LIMIT $1`

	return countAndList(ctx, env, countSQL, nil, detailSQL, []interface{}{env.DetailLimit},
		func(rows *sql.Rows) (models.DivergenceDetail, error) {
			var d models.DivergenceDetail
			var alunoID sql.NullInt64
			if err := rows.Scan(&d.EntityID, &alunoID, &d.Year); err != nil {
				return d, err
			}
			d.EntityKind = "resultado"
			d.Problem = "resultado consolidado sem aluno correspondente"
			d.Suggestion = "Excluir o resultado órfão"
			return d, nil
		})
}

// EscolasSemRegiao finds active schools whose region reference is null or
// does not resolve.
func EscolasSemRegiao(ctx context.Context, env *Env) (*Result, error) {
	const countSQL = `
		SELECT COUNT(*)
		FROM escolas e
		LEFT JOIN regioes rg ON e.regiao_id = rg.id
		WHERE e.ativa = true AND (e.regiao_id IS NULL OR rg.id IS NULL)`
	const detailSQL = `
		SELECT e.id, e.nome
		FROM escolas e
		LEFT JOIN regioes rg ON e.regiao_id = rg.id
		WHERE e.ativa = true AND (e.regiao_id IS NULL OR rg.id IS NULL)
		ORDER BY e.nome
		LIMIT $1`

	return countAndList(ctx, env, countSQL, nil, detailSQL, []interface{}{env.DetailLimit},
		func(rows *sql.Rows) (models.DivergenceDetail, error) {
			var d models.DivergenceDetail
			if err := rows.Scan(&d.EntityID, &d.Name); err != nil {
				return d, err
			}
			d.EntityKind = "escola"
			d.School = d.Name
			d.Problem = "escola sem região administrativa válida"
			d.Suggestion = "Vincular a escola a uma região"
			return d, nil
		})
}

// TurmasSemEscola finds active classes whose school reference is null or does
// not resolve.
func TurmasSemEscola(ctx context.Context, env *Env) (*Result, error) {
	const countSQL = `
		SELECT COUNT(*)
		FROM turmas t
		LEFT JOIN escolas e ON t.escola_id = e.id
		WHERE t.ativa = true AND (t.escola_id IS NULL OR e.id IS NULL)`
	const detailSQL = `
		SELECT t.id, t.nome, COALESCE(t.serie, '')
		FROM turmas t
		LEFT JOIN escolas e ON t.escola_id = e.id
		WHERE t.ativa = true AND (t.escola_id IS NULL OR e.id IS NULL)
		ORDER BY t.nome
		LIMIT $1`

	return countAndList(ctx, env, countSQL, nil, detailSQL, []interface{}{env.DetailLimit},
		func(rows *sql.Rows) (models.DivergenceDetail, error) {
			var d models.DivergenceDetail
			if err := rows.Scan(&d.EntityID, &d.Class, &d.Grade); err != nil {
				return d, err
			}
			d.EntityKind = "turma"
			d.Name = d.Class
			d.Problem = "turma sem escola válida"
			d.Suggestion = "Vincular a turma a uma escola"
			return d, nil
		})
}
