// internal/divergence/checks/computed.go
package checks

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"avalia-integrity/internal/models"
	"avalia-integrity/internal/scoring"
)

const resultScanSQL = `
	SELECT r.id, r.aluno_id,
	       COALESCE(a.nome, ''), COALESCE(a.codigo, ''),
	       COALESCE(e.nome, ''), COALESCE(t.nome, ''), COALESCE(t.serie, ''),
	       COALESCE(r.ano_letivo, ''),
	       r.nota_lp, r.nota_mat, r.nota_ch, r.nota_cn, r.nota_producao,
	       COALESCE(r.presenca, ''), r.media, r.nivel_aprendizagem
	FROM resultados_consolidados r
	LEFT JOIN alunos a ON r.aluno_id = a.id
	LEFT JOIN turmas t ON a.turma_id = t.id
	LEFT JOIN escolas e ON t.escola_id = e.id
	ORDER BY r.id`

// eachResult streams every consolidated result through fn. Computed-value
// checks are full-table scans by nature; streaming keeps memory bounded.
func eachResult(ctx context.Context, env *Env, fn func(r *models.ConsolidatedResult)) error {
	rows, err := env.DB.QueryContext(ctx, resultScanSQL)
	if err != nil {
		return fmt.Errorf("result scan query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.ConsolidatedResult
		if err := rows.Scan(&r.ID, &r.StudentID,
			&r.StudentName, &r.StudentCode,
			&r.School, &r.Class, &r.Grade,
			&r.SchoolYear,
			&r.LP, &r.MAT, &r.CH, &r.CN, &r.Essay,
			&r.Attendance, &r.StoredAvg, &r.StoredLevel); err != nil {
			return fmt.Errorf("result scan: %w", err)
		}
		fn(&r)
	}
	return rows.Err()
}

func baseDetail(r *models.ConsolidatedResult) models.DivergenceDetail {
	return models.DivergenceDetail{
		EntityKind: "resultado",
		EntityID:   r.ID,
		Name:       r.StudentName,
		Code:       r.StudentCode,
		School:     r.School,
		Class:      r.Class,
		Grade:      r.Grade,
		Year:       r.SchoolYear,
	}
}

// MediasInconsistentes recomputes every stored composite average with the
// current grade configuration and flags disagreements beyond the tolerance.
func MediasInconsistentes(ctx context.Context, env *Env) (*Result, error) {
	res := &Result{}

	err := eachResult(ctx, env, func(r *models.ConsolidatedResult) {
		cfg := env.Configs.ResolveOrDefault(ctx, r.Grade)
		expected, usable := scoring.Composite(r.SubjectScores(), r.EssayScore(), cfg)

		var diverged bool
		switch {
		case usable && !r.StoredAvg.Valid:
			diverged = true
		case usable && !scoring.WithinTolerance(r.StoredAvg.Float64, expected, env.Tolerance):
			diverged = true
		case !usable && r.StoredAvg.Valid && r.StoredAvg.Float64 > 0:
			// stored average with no usable subject score behind it
			diverged = true
		}
		if !diverged {
			return
		}

		res.Total++
		if len(res.Details) >= env.DetailLimit {
			res.Truncated = true
			return
		}
		d := baseDetail(r)
		d.Problem = "média armazenada difere da média recalculada"
		if r.StoredAvg.Valid {
			d.Current = fmt.Sprintf("%.2f", r.StoredAvg.Float64)
		}
		if usable {
			d.Expected = fmt.Sprintf("%.2f", scoring.Round2(expected))
		} else {
			d.Expected = "0.00"
		}
		d.Suggestion = "Recalcular a média a partir das notas por disciplina"
		res.Details = append(res.Details, d)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// NiveisInconsistentes reclassifies the recomputed average and flags stored
// learning levels that disagree with the containing band.
func NiveisInconsistentes(ctx context.Context, env *Env) (*Result, error) {
	res := &Result{}

	err := eachResult(ctx, env, func(r *models.ConsolidatedResult) {
		cfg := env.Configs.ResolveOrDefault(ctx, r.Grade)
		avg, usable := scoring.Composite(r.SubjectScores(), r.EssayScore(), cfg)

		var expected *models.LearningLevel
		if usable {
			expected = env.Classifier.Classify(ctx, scoring.Round2(avg), r.Grade)
		}

		stored := strings.TrimSpace(r.StoredLevel.String)
		var diverged bool
		switch {
		case expected == nil:
			diverged = stored != ""
		case stored == "":
			diverged = true
		default:
			diverged = !strings.EqualFold(stored, expected.Code) && !strings.EqualFold(stored, expected.Name)
		}
		if !diverged {
			return
		}

		res.Total++
		if len(res.Details) >= env.DetailLimit {
			res.Truncated = true
			return
		}
		d := baseDetail(r)
		d.Problem = "nível de aprendizagem não corresponde à faixa da média"
		d.Current = stored
		if expected != nil {
			d.Expected = expected.Name
		}
		d.Suggestion = "Reclassificar o nível a partir da média recalculada"
		res.Details = append(res.Details, d)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// AcertosInconsistentes compares the reported correct-answer total against
// the raw response rows.
func AcertosInconsistentes(ctx context.Context, env *Env) (*Result, error) {
	const mismatch = `
		FROM resultados_consolidados r
		JOIN (
			SELECT resultado_id, COUNT(*) FILTER (WHERE correta) AS acertos
			FROM respostas
			GROUP BY resultado_id
		) x ON x.resultado_id = r.id
		LEFT JOIN alunos a ON r.aluno_id = a.id
		WHERE COALESCE(r.total_acertos, 0) <> x.acertos`

	countSQL := `SELECT COUNT(*) ` + mismatch
	detailSQL := `
		SELECT r.id, COALESCE(a.nome, ''), COALESCE(a.codigo, ''), COALESCE(r.ano_letivo, ''),
		       COALESCE(r.total_acertos, 0), x.acertos ` + mismatch + `
		ORDER BY r.id
		LIMIT $1`

	return countAndList(ctx, env, countSQL, nil, detailSQL, []interface{}{env.DetailLimit},
		func(rows *sql.Rows) (models.DivergenceDetail, error) {
			var d models.DivergenceDetail
			var stored, counted int
			if err := rows.Scan(&d.EntityID, &d.Name, &d.Code, &d.Year, &stored, &counted); err != nil {
				return d, err
			}
			d.EntityKind = "resultado"
			d.Problem = "total de acertos difere das respostas registradas"
			d.Current = fmt.Sprintf("%d", stored)
			d.Expected = fmt.Sprintf("%d", counted)
			d.Suggestion = "Recontar os acertos a partir das respostas"
			return d, nil
		})
}
