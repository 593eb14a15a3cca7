// internal/divergence/checks/emptiness.go
//
// Benign-emptiness checks: aggregate counts of zero against an otherwise
// active parent entity.
package checks

import (
	"context"
	"database/sql"

	"avalia-integrity/internal/models"
)

// emptiness runs a NOT EXISTS-style check producing one detail per parent.
func emptiness(ctx context.Context, env *Env, where, detailSelect, entityKind, problem, suggestion string) (*Result, error) {
	countSQL := `SELECT COUNT(*) ` + where
	detailSQL := detailSelect + ` ` + where + ` ORDER BY 2 LIMIT $1`

	return countAndList(ctx, env, countSQL, nil, detailSQL, []interface{}{env.DetailLimit},
		func(rows *sql.Rows) (models.DivergenceDetail, error) {
			var d models.DivergenceDetail
			if err := rows.Scan(&d.EntityID, &d.Name); err != nil {
				return d, err
			}
			d.EntityKind = entityKind
			d.Problem = problem
			d.Suggestion = suggestion
			return d, nil
		})
}

// AlunosSemResultados lists active students with no consolidated result.
func AlunosSemResultados(ctx context.Context, env *Env) (*Result, error) {
	return emptiness(ctx, env,
		`FROM alunos a
		 WHERE a.ativo = true
		   AND NOT EXISTS (SELECT 1 FROM resultados_consolidados r WHERE r.aluno_id = a.id)`,
		`SELECT a.id, a.nome`,
		"aluno",
		"aluno ativo sem resultados consolidados",
		"Conferir se o aluno participou da avaliação")
}

// EscolasSemAlunos lists active schools with no enrolled students.
func EscolasSemAlunos(ctx context.Context, env *Env) (*Result, error) {
	return emptiness(ctx, env,
		`FROM escolas e
		 WHERE e.ativa = true
		   AND NOT EXISTS (
		       SELECT 1 FROM alunos a
		       JOIN turmas t ON a.turma_id = t.id
		       WHERE t.escola_id = e.id AND a.ativo = true)`,
		`SELECT e.id, e.nome`,
		"escola",
		"escola ativa sem alunos matriculados",
		"Conferir o cadastro da escola")
}

// RegioesSemEscolas lists regions with no registered schools.
func RegioesSemEscolas(ctx context.Context, env *Env) (*Result, error) {
	return emptiness(ctx, env,
		`FROM regioes rg
		 WHERE NOT EXISTS (SELECT 1 FROM escolas e WHERE e.regiao_id = rg.id)`,
		`SELECT rg.id, rg.nome`,
		"regiao",
		"região administrativa sem escolas",
		"Conferir o cadastro da região")
}

// QuestoesNaoUtilizadas lists question bank entries with no associated
// response.
func QuestoesNaoUtilizadas(ctx context.Context, env *Env) (*Result, error) {
	return emptiness(ctx, env,
		`FROM questoes q
		 WHERE NOT EXISTS (SELECT 1 FROM respostas re WHERE re.questao_id = q.id)`,
		`SELECT q.id, q.descricao`,
		"questao",
		"questão do banco sem respostas associadas",
		"Remover ou arquivar a questão se não for mais usada")
}

// TurmasVazias lists active classes with no students.
func TurmasVazias(ctx context.Context, env *Env) (*Result, error) {
	return emptiness(ctx, env,
		`FROM turmas t
		 WHERE t.ativa = true
		   AND NOT EXISTS (SELECT 1 FROM alunos a WHERE a.turma_id = t.id AND a.ativo = true)`,
		`SELECT t.id, t.nome`,
		"turma",
		"turma ativa sem alunos",
		"Desativar a turma vazia")
}
