// internal/divergence/checks/duplicates.go
package checks

import (
	"context"
	"database/sql"
	"fmt"

	"avalia-integrity/internal/models"
)

// AlunosDuplicados groups active students by their natural key (the student
// code); any group with more than one live member is a violation and every
// member appears in the detail list.
func AlunosDuplicados(ctx context.Context, env *Env) (*Result, error) {
	const dup = `
		SELECT codigo FROM alunos
		WHERE ativo = true AND codigo <> ''
		GROUP BY codigo HAVING COUNT(*) > 1`

	countSQL := fmt.Sprintf(`SELECT COUNT(*) FROM alunos a JOIN (%s) d ON a.codigo = d.codigo WHERE a.ativo = true`, dup)
	detailSQL := fmt.Sprintf(`
		SELECT a.id, a.nome, a.codigo, COALESCE(e.nome, ''), COALESCE(t.nome, ''), COALESCE(t.serie, '')
		FROM alunos a
		JOIN (%s) d ON a.codigo = d.codigo
		LEFT JOIN turmas t ON a.turma_id = t.id
		LEFT JOIN escolas e ON t.escola_id = e.id
		WHERE a.ativo = true
		ORDER BY a.codigo, a.id
		LIMIT $1`, dup)

	return countAndList(ctx, env, countSQL, nil, detailSQL, []interface{}{env.DetailLimit},
		func(rows *sql.Rows) (models.DivergenceDetail, error) {
			var d models.DivergenceDetail
			if err := rows.Scan(&d.EntityID, &d.Name, &d.Code, &d.School, &d.Class, &d.Grade); err != nil {
				return d, err
			}
			d.EntityKind = "aluno"
			d.Problem = fmt.Sprintf("código %s compartilhado por mais de um aluno ativo", d.Code)
			d.Suggestion = "Mesclar os registros duplicados em um aluno canônico"
			return d, nil
		})
}

// CodigosConflitantes flags a student code resolving to different names,
// typically the same code reused across import years.
func CodigosConflitantes(ctx context.Context, env *Env) (*Result, error) {
	const conflicting = `
		SELECT codigo FROM alunos
		WHERE codigo <> ''
		GROUP BY codigo HAVING COUNT(DISTINCT nome) > 1`

	countSQL := fmt.Sprintf(`SELECT COUNT(*) FROM alunos a JOIN (%s) c ON a.codigo = c.codigo`, conflicting)
	detailSQL := fmt.Sprintf(`
		SELECT a.id, a.nome, a.codigo
		FROM alunos a
		JOIN (%s) c ON a.codigo = c.codigo
		ORDER BY a.codigo, a.id
		LIMIT $1`, conflicting)

	return countAndList(ctx, env, countSQL, nil, detailSQL, []interface{}{env.DetailLimit},
		func(rows *sql.Rows) (models.DivergenceDetail, error) {
			var d models.DivergenceDetail
			if err := rows.Scan(&d.EntityID, &d.Name, &d.Code); err != nil {
				return d, err
			}
			d.EntityKind = "aluno"
			d.Problem = fmt.Sprintf("código %s resolve para nomes diferentes", d.Code)
			d.Suggestion = "Revincular o código ao aluno correto"
			return d, nil
		})
}
