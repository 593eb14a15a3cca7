package checks

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avalia-integrity/internal/common/logger"
	"avalia-integrity/internal/gradeconfig"
	"avalia-integrity/internal/learninglevel"
)

// ==========================
// Test Helper Functions
// ==========================

func buildEnv(t *testing.T, db *sql.DB) *Env {
	t.Helper()
	resolver := gradeconfig.NewResolver(db, 5*time.Minute, logger.NewTestLogger(t))
	return &Env{
		DB:             db,
		Configs:        resolver,
		Classifier:     learninglevel.New(resolver),
		DetailLimit:    100,
		Tolerance:      0.02,
		StaleImportAge: 24 * time.Hour,
	}
}

// warmResolver primes the configuration cache so computed-value checks do not
// interleave resolver queries with the result scan.
func warmResolver(t *testing.T, env *Env, mock sqlmock.Sqlmock) {
	t.Helper()
	mock.ExpectQuery(`SELECT serie,`).WillReturnRows(sqlmock.NewRows([]string{
		"serie",
		"lp_avaliada", "lp_itens", "lp_peso",
		"mat_avaliada", "mat_itens", "mat_peso",
		"ch_avaliada", "ch_itens", "ch_peso",
		"cn_avaliada", "cn_itens", "cn_peso",
		"producao_ativa", "producao_itens", "producao_peso",
	}).AddRow("8", true, 22, 1.0, true, 22, 1.0, true, 11, 1.0, true, 11, 1.0, false, 0, 0.0))
	mock.ExpectQuery(`SELECT codigo, nome, cor`).WillReturnRows(
		sqlmock.NewRows([]string{"codigo", "nome", "cor", "nota_minima", "nota_maxima", "serie"}))

	require.NotNil(t, env.Configs.Resolve(context.Background(), "8"))
}

func resultRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "aluno_id", "nome", "codigo", "escola", "turma", "serie", "ano_letivo",
		"nota_lp", "nota_mat", "nota_ch", "nota_cn", "nota_producao",
		"presenca", "media", "nivel_aprendizagem",
	})
}

// ==========================
// Duplicate detection
// ==========================

func TestAlunosDuplicados_AllMembersListed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	env := buildEnv(t, db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM alunos a JOIN`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT a\.id, a\.nome, a\.codigo`).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "nome", "codigo", "escola", "turma", "serie"}).
			AddRow(1, "Ana Souza", "A123", "EM Central", "8A", "8").
			AddRow(7, "Ana S.", "A123", "EM Central", "8B", "8"))

	res, err := AlunosDuplicados(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Details, 2)
	assert.Equal(t, int64(1), res.Details[0].EntityID)
	assert.Equal(t, int64(7), res.Details[1].EntityID)
	assert.False(t, res.Truncated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlunosDuplicados_CleanDatasetSkipsDetailQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	env := buildEnv(t, db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM alunos a JOIN`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	res, err := AlunosDuplicados(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
	assert.Empty(t, res.Details)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Computed-value detection
// ==========================

func TestMediasInconsistentes_FlagsStoredDisagreement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	env := buildEnv(t, db)
	warmResolver(t, env, mock)

	// stored 5.00, recomputed (8+7+7)/3 = 7.33; MAT=0 means "not scored"
	mock.ExpectQuery(`FROM resultados_consolidados r`).WillReturnRows(resultRows().
		AddRow(10, 1, "Ana Souza", "A123", "EM Central", "8A", "8", "2025",
			8.0, 0.0, 7.0, 7.0, nil, "presente", 5.00, "adequado").
		AddRow(11, 2, "Bruno Lima", "B456", "EM Central", "8A", "8", "2025",
			6.0, 6.0, 6.0, 6.0, nil, "presente", 6.00, "adequado"))

	res, err := MediasInconsistentes(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Details, 1)
	assert.Equal(t, int64(10), res.Details[0].EntityID)
	assert.Equal(t, "5.00", res.Details[0].Current)
	assert.Equal(t, "7.33", res.Details[0].Expected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMediasInconsistentes_ToleratesRounding(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	env := buildEnv(t, db)
	warmResolver(t, env, mock)

	// stored 7.33 vs exact 22/3: inside the 0.02 tolerance
	mock.ExpectQuery(`FROM resultados_consolidados r`).WillReturnRows(resultRows().
		AddRow(10, 1, "Ana Souza", "A123", "EM Central", "8A", "8", "2025",
			8.0, nil, 7.0, 7.0, nil, "presente", 7.33, "adequado"))

	res, err := MediasInconsistentes(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNiveisInconsistentes_FlagsWrongBand(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	env := buildEnv(t, db)
	warmResolver(t, env, mock)

	// average (8+8+8)/3 = 8.0 -> Avançado, stored says básico
	mock.ExpectQuery(`FROM resultados_consolidados r`).WillReturnRows(resultRows().
		AddRow(10, 1, "Ana Souza", "A123", "EM Central", "8A", "8", "2025",
			8.0, nil, 8.0, 8.0, nil, "presente", 8.0, "basico").
		AddRow(11, 2, "Bruno Lima", "B456", "EM Central", "8A", "8", "2025",
			8.0, nil, 8.0, 8.0, nil, "presente", 8.0, "avancado"))

	res, err := NiveisInconsistentes(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Details, 1)
	assert.Equal(t, "basico", res.Details[0].Current)
	assert.Equal(t, "Avançado", res.Details[0].Expected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Emptiness detection
// ==========================

func TestTurmasVazias(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	env := buildEnv(t, db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM turmas t`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT t\.id, t\.nome FROM turmas t`).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "nome"}).AddRow(3, "9C"))

	res, err := TurmasVazias(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Details, 1)
	assert.Equal(t, "turma", res.Details[0].EntityKind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Missing-configuration detection
// ==========================

// Class labels carry suffixes ("10º Ano") while configuration keys are bare
// grade numbers; the check compares extracted grade numbers, so a configured
// grade is never flagged just because the label styles differ.
func TestSeriesSemConfiguracao_ComparesGradeNumbers(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	env := buildEnv(t, db)

	mock.ExpectQuery(`substring\(t\.serie`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT q\.serie FROM`).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"serie"}).AddRow("10º Ano"))

	res, err := SeriesSemConfiguracao(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Details, 1)
	assert.Equal(t, "serie", res.Details[0].EntityKind)
	assert.Equal(t, "10º Ano", res.Details[0].Grade)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_UnknownTypeFails(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	env := buildEnv(t, db)
	_, err = Run(context.Background(), env, "tipo_inexistente")
	assert.ErrorIs(t, err, ErrUnknownCheck)
}
