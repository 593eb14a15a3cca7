package gradeconfig

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avalia-integrity/internal/common/logger"
	"avalia-integrity/internal/models"
)

func configRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"serie",
		"lp_avaliada", "lp_itens", "lp_peso",
		"mat_avaliada", "mat_itens", "mat_peso",
		"ch_avaliada", "ch_itens", "ch_peso",
		"cn_avaliada", "cn_itens", "cn_peso",
		"producao_ativa", "producao_itens", "producao_peso",
	})
}

func bandRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"codigo", "nome", "cor", "nota_minima", "nota_maxima", "serie"})
}

func TestGradeNumber(t *testing.T) {
	assert.Equal(t, "8", GradeNumber("8º Ano"))
	assert.Equal(t, "8", GradeNumber("8th Grade"))
	assert.Equal(t, "5", GradeNumber("Série 5 - Manhã"))
	assert.Equal(t, "", GradeNumber("Ano desconhecido"))
}

func TestResolver_ResolveFromDatastore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT serie,`).WillReturnRows(configRows().
		AddRow("8", true, 22, 1.0, true, 22, 1.0, true, 11, 1.0, true, 11, 1.0, true, 1, 2.0))
	mock.ExpectQuery(`SELECT codigo, nome, cor`).WillReturnRows(bandRows().
		AddRow("adequado", "Adequado", "#2ecc71", 5.0, 7.5, ""))

	r := NewResolver(db, 5*time.Minute, logger.NewTestLogger(t))

	cfg := r.Resolve(context.Background(), "8º Ano")
	require.NotNil(t, cfg)
	assert.Equal(t, "8", cfg.Grade)
	assert.True(t, cfg.EssayEnabled)
	assert.Equal(t, 2.0, cfg.EssayWeight)
	assert.Equal(t, 66, cfg.TotalItems())

	// second lookup is served from cache, no further queries expected
	assert.Nil(t, r.Resolve(context.Background(), "3º Ano"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolver_LabelWithoutDigitsIsNil(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := NewResolver(db, 5*time.Minute, logger.NewTestLogger(t))
	assert.Nil(t, r.Resolve(context.Background(), "sem série"))
}

func TestResolver_FallsBackToDefaultOnReadFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT serie,`).WillReturnError(assert.AnError)
	mock.ExpectQuery(`SELECT codigo, nome, cor`).WillReturnError(assert.AnError)

	r := NewResolver(db, 5*time.Minute, logger.NewTestLogger(t))

	cfg := r.Resolve(context.Background(), "5º Ano")
	require.NotNil(t, cfg)
	assert.False(t, cfg.EssayEnabled)
	for _, s := range models.Subjects {
		assert.True(t, cfg.Subjects[s].Evaluated)
		assert.Equal(t, 1.0, cfg.Subjects[s].Weight)
	}

	bands := r.Bands(context.Background())
	require.Len(t, bands, 4)
	assert.Equal(t, "insuficiente", bands[0].Code)
}

func TestResolver_InvalidateForcesReload(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT serie,`).WillReturnRows(configRows().
		AddRow("8", true, 22, 1.0, true, 22, 1.0, true, 11, 1.0, true, 11, 1.0, false, 0, 0.0))
	mock.ExpectQuery(`SELECT codigo, nome, cor`).WillReturnRows(bandRows())

	mock.ExpectQuery(`SELECT serie,`).WillReturnRows(configRows().
		AddRow("8", true, 26, 1.0, true, 26, 1.0, false, 0, 0.0, false, 0, 0.0, false, 0, 0.0))
	mock.ExpectQuery(`SELECT codigo, nome, cor`).WillReturnRows(bandRows())

	r := NewResolver(db, 5*time.Minute, logger.NewTestLogger(t))

	cfg := r.Resolve(context.Background(), "8")
	require.NotNil(t, cfg)
	assert.Equal(t, 66, cfg.TotalItems())

	r.Invalidate()

	cfg = r.Resolve(context.Background(), "8")
	require.NotNil(t, cfg)
	assert.Equal(t, 52, cfg.TotalItems())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveOrDefault_NeverNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT serie,`).WillReturnRows(configRows())
	mock.ExpectQuery(`SELECT codigo, nome, cor`).WillReturnRows(bandRows())

	r := NewResolver(db, 5*time.Minute, logger.NewTestLogger(t))
	cfg := r.ResolveOrDefault(context.Background(), "9º Ano")
	require.NotNil(t, cfg)
	assert.Equal(t, "9", cfg.Grade)
}
