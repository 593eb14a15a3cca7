// internal/divergence/checks/range.go
package checks

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"avalia-integrity/internal/models"
)

var scoreColumns = []string{"nota_lp", "nota_mat", "nota_ch", "nota_cn", "nota_producao", "media"}

// NotasForaIntervalo flags any score outside the valid [0, 10] range.
// NULL scores mean "not scored" and are never out of range.
func NotasForaIntervalo(ctx context.Context, env *Env) (*Result, error) {
	conds := make([]string, 0, len(scoreColumns))
	for _, col := range scoreColumns {
		conds = append(conds, fmt.Sprintf("r.%s < 0 OR r.%s > 10", col, col))
	}
	where := "WHERE " + strings.Join(conds, " OR ")

	countSQL := `SELECT COUNT(*) FROM resultados_consolidados r ` + where
	detailSQL := `
		SELECT r.id, COALESCE(a.nome, ''), COALESCE(a.codigo, ''), COALESCE(r.ano_letivo, ''),
		       r.nota_lp, r.nota_mat, r.nota_ch, r.nota_cn, r.nota_producao, r.media
		FROM resultados_consolidados r
		LEFT JOIN alunos a ON r.aluno_id = a.id ` + where + `
		ORDER BY r.id
		LIMIT $1`

	return countAndList(ctx, env, countSQL, nil, detailSQL, []interface{}{env.DetailLimit},
		func(rows *sql.Rows) (models.DivergenceDetail, error) {
			var d models.DivergenceDetail
			scores := make([]sql.NullFloat64, len(scoreColumns))
			if err := rows.Scan(&d.EntityID, &d.Name, &d.Code, &d.Year,
				&scores[0], &scores[1], &scores[2], &scores[3], &scores[4], &scores[5]); err != nil {
				return d, err
			}
			d.EntityKind = "resultado"
			d.Problem = "nota fora do intervalo válido de 0 a 10"

			offending := make([]string, 0, 1)
			for i, s := range scores {
				if s.Valid && (s.Float64 < 0 || s.Float64 > 10) {
					offending = append(offending, fmt.Sprintf("%s=%.2f", scoreColumns[i], s.Float64))
				}
			}
			d.Current = strings.Join(offending, ", ")
			d.Expected = "entre 0 e 10"
			d.Suggestion = "Normalizar as notas para o intervalo válido e recalcular a média"
			return d, nil
		})
}
