// internal/correction/fixers.go
package correction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	stderrors "avalia-integrity/internal/common/errors"
	"avalia-integrity/internal/models"
	"avalia-integrity/internal/scoring"
)

type fixStatus int

const (
	statusFixed fixStatus = iota
	statusNoop
)

// fixOutcome is one target's result: what changed, for the audit trail.
type fixOutcome struct {
	status     fixStatus
	entityKind string
	before     map[string]interface{}
	after      map[string]interface{}
	message    string
}

// fixer binds a divergence type to its repair. paramsSchema, when set, is a
// JSON schema the request params must satisfy before any target is touched.
type fixer struct {
	action       string
	paramsSchema string
	apply        func(ctx context.Context, e *Engine, req *models.CorrectionRequest, id int64) (*fixOutcome, error)
}

var fixers = map[models.DivergenceType]fixer{
	models.TypeMediasInconsistentes: {
		action: "média recalculada",
		apply:  fixMedia,
	},
	models.TypeNiveisInconsistentes: {
		action: "nível reclassificado",
		apply:  fixNivel,
	},
	models.TypeAcertosInconsistentes: {
		action: "acertos recontados",
		apply:  fixAcertos,
	},
	models.TypeResultadosOrfaos: {
		action: "resultado órfão excluído",
		apply:  fixOrfao,
	},
	models.TypeAnoLetivoInvalido: {
		action: "ano letivo normalizado",
		apply:  fixAnoLetivo,
	},
	models.TypeNotasForaIntervalo: {
		action: "notas normalizadas",
		apply:  fixNotas,
	},
	models.TypeTurmasVazias: {
		action: "turma vazia desativada",
		apply:  fixTurmaVazia,
	},
	models.TypeAlunosDuplicados: {
		action: "registros mesclados",
		paramsSchema: `{
			"type": "object",
			"properties": {"winnerId": {"type": "integer", "minimum": 1}},
			"required": ["winnerId"]
		}`,
		apply: fixMerge,
	},
	models.TypeCodigosConflitantes: {
		action: "código revinculado",
		paramsSchema: `{
			"type": "object",
			"properties": {"codigo": {"type": "string", "minLength": 1}},
			"required": ["codigo"]
		}`,
		apply: fixRelink,
	},
}

const loadResultSQL = `
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
	WHERE r.id = $1`

func (e *Engine) loadResult(ctx context.Context, id int64) (*models.ConsolidatedResult, error) {
	var r models.ConsolidatedResult
	err := e.db.QueryRowContext(ctx, loadResultSQL, id).Scan(&r.ID, &r.StudentID,
		&r.StudentName, &r.StudentCode,
		&r.School, &r.Class, &r.Grade,
		&r.SchoolYear,
		&r.LP, &r.MAT, &r.CH, &r.CN, &r.Essay,
		&r.Attendance, &r.StoredAvg, &r.StoredLevel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, stderrors.NewTargetNotFoundError("resultado", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load result %d: %w", id, err)
	}
	return &r, nil
}

// recompute derives the current composite average and level for a result.
func (e *Engine) recompute(ctx context.Context, r *models.ConsolidatedResult) (avg float64, usable bool, level *models.LearningLevel) {
	cfg := e.configs.ResolveOrDefault(ctx, r.Grade)
	avg, usable = scoring.Composite(r.SubjectScores(), r.EssayScore(), cfg)
	if usable {
		avg = scoring.Round2(avg)
		level = e.classifier.Classify(ctx, avg, r.Grade)
	}
	return avg, usable, level
}

func fixMedia(ctx context.Context, e *Engine, _ *models.CorrectionRequest, id int64) (*fixOutcome, error) {
	r, err := e.loadResult(ctx, id)
	if err != nil {
		return nil, err
	}

	avg, usable, _ := e.recompute(ctx, r)
	if usable && r.StoredAvg.Valid && scoring.WithinTolerance(r.StoredAvg.Float64, avg, e.tolerance) {
		return &fixOutcome{status: statusNoop, entityKind: "resultado"}, nil
	}
	if !usable && !r.StoredAvg.Valid {
		return &fixOutcome{status: statusNoop, entityKind: "resultado"}, nil
	}

	var stored interface{}
	var after map[string]interface{}
	if usable {
		stored = avg
		after = map[string]interface{}{"media": avg}
	} else {
		after = map[string]interface{}{"media": nil}
	}

	if _, err := e.db.ExecContext(ctx,
		`UPDATE resultados_consolidados SET media = $1 WHERE id = $2`, stored, id); err != nil {
		return nil, fmt.Errorf("update media: %w", err)
	}

	before := map[string]interface{}{"media": nil}
	if r.StoredAvg.Valid {
		before["media"] = r.StoredAvg.Float64
	}
	return &fixOutcome{
		status:     statusFixed,
		entityKind: "resultado",
		before:     before,
		after:      after,
		message:    fmt.Sprintf("resultado %d: média recalculada", id),
	}, nil
}

func fixNivel(ctx context.Context, e *Engine, _ *models.CorrectionRequest, id int64) (*fixOutcome, error) {
	r, err := e.loadResult(ctx, id)
	if err != nil {
		return nil, err
	}

	_, _, level := e.recompute(ctx, r)

	// a stored label matching the band's code or name (case-insensitively)
	// is already correct; the same predicate the detection check applies
	stored := ""
	if r.StoredLevel.Valid {
		stored = strings.TrimSpace(r.StoredLevel.String)
	}
	consistent := false
	switch {
	case level == nil:
		consistent = stored == ""
	case stored != "":
		consistent = strings.EqualFold(stored, level.Code) || strings.EqualFold(stored, level.Name)
	}
	if consistent {
		return &fixOutcome{status: statusNoop, entityKind: "resultado"}, nil
	}

	var expected interface{}
	if level != nil {
		expected = level.Code
	}

	if _, err := e.db.ExecContext(ctx,
		`UPDATE resultados_consolidados SET nivel_aprendizagem = $1 WHERE id = $2`, expected, id); err != nil {
		return nil, fmt.Errorf("update nivel: %w", err)
	}

	before := map[string]interface{}{"nivel": nil}
	if r.StoredLevel.Valid {
		before["nivel"] = r.StoredLevel.String
	}
	return &fixOutcome{
		status:     statusFixed,
		entityKind: "resultado",
		before:     before,
		after:      map[string]interface{}{"nivel": expected},
		message:    fmt.Sprintf("resultado %d: nível reclassificado", id),
	}, nil
}

func fixAcertos(ctx context.Context, e *Engine, _ *models.CorrectionRequest, id int64) (*fixOutcome, error) {
	// revalidating update: only rewrites while the stored total still
	// disagrees with the response rows
	res, err := e.db.ExecContext(ctx, `
		UPDATE resultados_consolidados r
		SET total_acertos = x.acertos
		FROM (
			SELECT resultado_id, COUNT(*) FILTER (WHERE correta) AS acertos
			FROM respostas
			WHERE resultado_id = $1
			GROUP BY resultado_id
		) x
		WHERE r.id = $1 AND COALESCE(r.total_acertos, 0) <> x.acertos`, id)
	if err != nil {
		return nil, fmt.Errorf("recount acertos: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return &fixOutcome{status: statusNoop, entityKind: "resultado"}, nil
	}
	return &fixOutcome{
		status:     statusFixed,
		entityKind: "resultado",
		after:      map[string]interface{}{"recontado": true},
		message:    fmt.Sprintf("resultado %d: acertos recontados", id),
	}, nil
}

func fixOrfao(ctx context.Context, e *Engine, _ *models.CorrectionRequest, id int64) (*fixOutcome, error) {
	// revalidating delete: a result whose student reappeared is left alone
	res, err := e.db.ExecContext(ctx, `
		DELETE FROM resultados_consolidados r
		WHERE r.id = $1
		  AND NOT EXISTS (SELECT 1 FROM alunos a WHERE a.id = r.aluno_id)`, id)
	if err != nil {
		return nil, fmt.Errorf("delete orphan result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return &fixOutcome{status: statusNoop, entityKind: "resultado"}, nil
	}
	return &fixOutcome{
		status:     statusFixed,
		entityKind: "resultado",
		before:     map[string]interface{}{"resultado_id": id},
		message:    fmt.Sprintf("resultado órfão %d excluído", id),
	}, nil
}

var yearRe = regexp.MustCompile(`[0-9]{4}`)

func fixAnoLetivo(ctx context.Context, e *Engine, _ *models.CorrectionRequest, id int64) (*fixOutcome, error) {
	var current sql.NullString
	err := e.db.QueryRowContext(ctx,
		`SELECT ano_letivo FROM resultados_consolidados WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, stderrors.NewTargetNotFoundError("resultado", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load ano letivo: %w", err)
	}

	if current.Valid && yearOK(current.String) {
		return &fixOutcome{status: statusNoop, entityKind: "resultado"}, nil
	}

	normalized := yearRe.FindString(current.String)
	if normalized == "" {
		return nil, fmt.Errorf("ano letivo %q has no recoverable year", current.String)
	}

	if _, err := e.db.ExecContext(ctx,
		`UPDATE resultados_consolidados SET ano_letivo = $1 WHERE id = $2`, normalized, id); err != nil {
		return nil, fmt.Errorf("update ano letivo: %w", err)
	}
	return &fixOutcome{
		status:     statusFixed,
		entityKind: "resultado",
		before:     map[string]interface{}{"ano_letivo": current.String},
		after:      map[string]interface{}{"ano_letivo": normalized},
		message:    fmt.Sprintf("resultado %d: ano letivo %q normalizado para %s", id, current.String, normalized),
	}, nil
}

var fullYearRe = regexp.MustCompile(`^[0-9]{4}$`)

func yearOK(s string) bool { return fullYearRe.MatchString(s) }

func fixNotas(ctx context.Context, e *Engine, req *models.CorrectionRequest, id int64) (*fixOutcome, error) {
	// CASE keeps NULL ("not scored") intact; GREATEST/LEAST would coerce it to 0
	res, err := e.db.ExecContext(ctx, `
		UPDATE resultados_consolidados
		SET nota_lp       = CASE WHEN nota_lp < 0 THEN 0 WHEN nota_lp > 10 THEN 10 ELSE nota_lp END,
		    nota_mat      = CASE WHEN nota_mat < 0 THEN 0 WHEN nota_mat > 10 THEN 10 ELSE nota_mat END,
		    nota_ch       = CASE WHEN nota_ch < 0 THEN 0 WHEN nota_ch > 10 THEN 10 ELSE nota_ch END,
		    nota_cn       = CASE WHEN nota_cn < 0 THEN 0 WHEN nota_cn > 10 THEN 10 ELSE nota_cn END,
		    nota_producao = CASE WHEN nota_producao < 0 THEN 0 WHEN nota_producao > 10 THEN 10 ELSE nota_producao END
		WHERE id = $1
		  AND (nota_lp NOT BETWEEN 0 AND 10 OR nota_mat NOT BETWEEN 0 AND 10
		    OR nota_ch NOT BETWEEN 0 AND 10 OR nota_cn NOT BETWEEN 0 AND 10
		    OR nota_producao NOT BETWEEN 0 AND 10)`, id)
	if err != nil {
		return nil, fmt.Errorf("clamp scores: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	// clamped scores change the composite, and a stored out-of-range media is
	// itself repaired by recomputation, so recompute unconditionally
	mediaOut, err := fixMedia(ctx, e, req, id)
	if err != nil {
		return nil, err
	}
	if mediaOut.status == statusFixed {
		if _, err := fixNivel(ctx, e, req, id); err != nil {
			return nil, err
		}
	}
	if n == 0 && mediaOut.status != statusFixed {
		return &fixOutcome{status: statusNoop, entityKind: "resultado"}, nil
	}

	return &fixOutcome{
		status:     statusFixed,
		entityKind: "resultado",
		after:      map[string]interface{}{"notas_normalizadas": true},
		message:    fmt.Sprintf("resultado %d: notas normalizadas para o intervalo 0-10", id),
	}, nil
}

func fixTurmaVazia(ctx context.Context, e *Engine, _ *models.CorrectionRequest, id int64) (*fixOutcome, error) {
	res, err := e.db.ExecContext(ctx, `
		UPDATE turmas t SET ativa = false
		WHERE t.id = $1 AND t.ativa = true
		  AND NOT EXISTS (SELECT 1 FROM alunos a WHERE a.turma_id = t.id AND a.ativo = true)`, id)
	if err != nil {
		return nil, fmt.Errorf("deactivate class: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return &fixOutcome{status: statusNoop, entityKind: "turma"}, nil
	}
	return &fixOutcome{
		status:     statusFixed,
		entityKind: "turma",
		before:     map[string]interface{}{"ativa": true},
		after:      map[string]interface{}{"ativa": false},
		message:    fmt.Sprintf("turma %d desativada", id),
	}, nil
}

// fixMerge folds the target (loser) record into params.winnerId: consolidated
// results move to the winner, the loser is deactivated. Runs in one short
// transaction so a partial merge is never observable.
func fixMerge(ctx context.Context, e *Engine, req *models.CorrectionRequest, id int64) (*fixOutcome, error) {
	winnerID := paramInt64(req.Params, "winnerId")
	if winnerID == id {
		return &fixOutcome{status: statusNoop, entityKind: "aluno"}, nil
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin merge: %w", err)
	}
	defer tx.Rollback()

	var loserCode, winnerCode string
	if err := tx.QueryRowContext(ctx,
		`SELECT codigo FROM alunos WHERE id = $1 AND ativo = true`, id).Scan(&loserCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, stderrors.NewTargetNotFoundError("aluno", id)
		}
		return nil, fmt.Errorf("load merge target: %w", err)
	}
	if err := tx.QueryRowContext(ctx,
		`SELECT codigo FROM alunos WHERE id = $1 AND ativo = true`, winnerID).Scan(&winnerCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("winner %d not found or inactive", winnerID)
		}
		return nil, fmt.Errorf("load merge winner: %w", err)
	}
	if loserCode != winnerCode {
		return nil, fmt.Errorf("aluno %d and %d do not share a code", id, winnerID)
	}

	var moved int64
	res, err := tx.ExecContext(ctx,
		`UPDATE resultados_consolidados SET aluno_id = $1 WHERE aluno_id = $2`, winnerID, id)
	if err != nil {
		return nil, fmt.Errorf("move results: %w", err)
	}
	if moved, err = res.RowsAffected(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE alunos SET ativo = false WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("deactivate merged student: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit merge: %w", err)
	}

	return &fixOutcome{
		status:     statusFixed,
		entityKind: "aluno",
		before:     map[string]interface{}{"aluno_id": id, "ativo": true},
		after:      map[string]interface{}{"mesclado_em": winnerID, "resultados_movidos": moved},
		message:    fmt.Sprintf("aluno %d mesclado no aluno %d (%d resultados movidos)", id, winnerID, moved),
	}, nil
}

func fixRelink(ctx context.Context, e *Engine, req *models.CorrectionRequest, id int64) (*fixOutcome, error) {
	newCode, _ := req.Params["codigo"].(string)

	var current string
	if err := e.db.QueryRowContext(ctx,
		`SELECT codigo FROM alunos WHERE id = $1`, id).Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, stderrors.NewTargetNotFoundError("aluno", id)
		}
		return nil, fmt.Errorf("load aluno: %w", err)
	}
	if current == newCode {
		return &fixOutcome{status: statusNoop, entityKind: "aluno"}, nil
	}

	if _, err := e.db.ExecContext(ctx,
		`UPDATE alunos SET codigo = $1 WHERE id = $2`, newCode, id); err != nil {
		return nil, fmt.Errorf("relink codigo: %w", err)
	}
	return &fixOutcome{
		status:     statusFixed,
		entityKind: "aluno",
		before:     map[string]interface{}{"codigo": current},
		after:      map[string]interface{}{"codigo": newCode},
		message:    fmt.Sprintf("aluno %d: código revinculado de %q para %q", id, current, newCode),
	}, nil
}

// paramInt64 reads an integer param that arrives as float64 from JSON decoding.
func paramInt64(params map[string]interface{}, key string) int64 {
	switch v := params[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}
