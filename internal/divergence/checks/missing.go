// internal/divergence/checks/missing.go
package checks

import (
	"context"
	"database/sql"
	"fmt"

	"avalia-integrity/internal/models"
)

// GabaritosAusentes finds (school-year, grade) pairs with imported results
// and no answer key on file.
func GabaritosAusentes(ctx context.Context, env *Env) (*Result, error) {
	const missing = `
		SELECT DISTINCT r.ano_letivo, t.serie
		FROM resultados_consolidados r
		JOIN alunos a ON r.aluno_id = a.id
		JOIN turmas t ON a.turma_id = t.id
		LEFT JOIN gabaritos g ON g.ano_letivo = r.ano_letivo AND g.serie = t.serie
		WHERE g.id IS NULL AND r.ano_letivo IS NOT NULL AND t.serie IS NOT NULL`

	countSQL := fmt.Sprintf(`SELECT COUNT(*) FROM (%s) q`, missing)
	detailSQL := fmt.Sprintf(`SELECT q.ano_letivo, q.serie FROM (%s) q ORDER BY q.ano_letivo, q.serie LIMIT $1`, missing)

	return countAndList(ctx, env, countSQL, nil, detailSQL, []interface{}{env.DetailLimit},
		func(rows *sql.Rows) (models.DivergenceDetail, error) {
			var d models.DivergenceDetail
			if err := rows.Scan(&d.Year, &d.Grade); err != nil {
				return d, err
			}
			d.EntityKind = "gabarito"
			d.Problem = fmt.Sprintf("nenhum gabarito cadastrado para a série %s em %s", d.Grade, d.Year)
			d.Suggestion = "Cadastrar o gabarito da série para o ano letivo"
			return d, nil
		})
}

// SeriesSemConfiguracao finds grades with active classes and no active
// assessment configuration. Class labels ("8º Ano", "8A") and configuration
// keys ("8") both reduce to their grade number before comparing, the same
// normalization the configuration resolver applies. Labels with no digits
// always fall back to the default structure and are not flagged.
func SeriesSemConfiguracao(ctx context.Context, env *Env) (*Result, error) {
	const missing = `
		SELECT DISTINCT t.serie
		FROM turmas t
		WHERE t.ativa = true AND t.serie IS NOT NULL
		  AND substring(t.serie FROM '[0-9]+') IS NOT NULL
		  AND substring(t.serie FROM '[0-9]+') NOT IN (
		      SELECT substring(serie FROM '[0-9]+')
		      FROM serie_configuracoes
		      WHERE ativa = true AND substring(serie FROM '[0-9]+') IS NOT NULL)`

	countSQL := fmt.Sprintf(`SELECT COUNT(*) FROM (%s) q`, missing)
	detailSQL := fmt.Sprintf(`SELECT q.serie FROM (%s) q ORDER BY q.serie LIMIT $1`, missing)

	return countAndList(ctx, env, countSQL, nil, detailSQL, []interface{}{env.DetailLimit},
		func(rows *sql.Rows) (models.DivergenceDetail, error) {
			var d models.DivergenceDetail
			if err := rows.Scan(&d.Grade); err != nil {
				return d, err
			}
			d.EntityKind = "serie"
			d.Problem = fmt.Sprintf("série %s sem configuração de avaliação ativa", d.Grade)
			d.Suggestion = "Cadastrar a configuração da série; a estrutura padrão está sendo usada"
			return d, nil
		})
}
