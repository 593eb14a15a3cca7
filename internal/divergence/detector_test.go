package divergence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avalia-integrity/internal/common/logger"
	"avalia-integrity/internal/common/observability"
	"avalia-integrity/internal/divergence/catalog"
	"avalia-integrity/internal/divergence/checks"
	"avalia-integrity/internal/gradeconfig"
	"avalia-integrity/internal/learninglevel"
	"avalia-integrity/internal/models"
)

func newDetector(t *testing.T, mock func(sqlmock.Sqlmock)) *Detector {
	t.Helper()
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	if mock != nil {
		mock(m)
	}

	log := logger.NewNoOpLogger()
	resolver := gradeconfig.NewResolver(db, 5*time.Minute, log)
	env := &checks.Env{
		DB:             db,
		Configs:        resolver,
		Classifier:     learninglevel.New(resolver),
		DetailLimit:    100,
		Tolerance:      0.02,
		StaleImportAge: 24 * time.Hour,
	}
	return NewDetector(env, nil, log)
}

func TestRun_UnknownType(t *testing.T) {
	d := newDetector(t, nil)
	_, err := d.Run(context.Background(), "tipo_inexistente")
	require.Error(t, err)
}

func TestRun_SingleCheck(t *testing.T) {
	d := newDetector(t, func(m sqlmock.Sqlmock) {
		m.ExpectQuery(`SELECT COUNT\(\*\) FROM turmas t`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		m.ExpectQuery(`SELECT t\.id, t\.nome FROM turmas t`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "nome"}).AddRow(3, "9C"))
	})

	div, err := d.Run(context.Background(), models.TypeTurmasVazias)
	require.NoError(t, err)
	assert.Equal(t, models.TypeTurmasVazias, div.Type)
	assert.Equal(t, models.SeverityInformational, div.Severity)
	assert.Equal(t, 1, div.Total)
	assert.False(t, div.Failed)
	assert.True(t, div.Fixable)
}

// With no expectations every query errors, so every check must come back as an
// individual failure: no panic, no lost checks, no failure counted as clean.
func TestRunAll_FailuresAreIsolated(t *testing.T) {
	d := newDetector(t, nil)

	report := d.RunAll(context.Background())
	require.NotNil(t, report)
	assert.Len(t, report.Divergences, len(catalog.All()))

	for _, div := range report.Divergences {
		assert.True(t, div.Failed, "check %s should have failed", div.Type)
		assert.NotEmpty(t, div.Error)
		assert.Zero(t, div.Total)
	}
	assert.Equal(t, len(catalog.All()), report.Summary.FailedChecks)
	assert.Zero(t, report.Summary.Total)
	assert.Zero(t, report.Summary.Critical)
}

// A run with failed checks is recorded as "partial" on the otel side; this
// exercises the recording path end to end with a live meter provider.
func TestRunAll_RecordsRunOutcome(t *testing.T) {
	d := newDetector(t, nil)
	d.obs = observability.New("integrity-detector-test")
	t.Cleanup(d.obs.Shutdown)

	report := d.RunAll(context.Background())
	require.NotNil(t, report)
	assert.Equal(t, len(catalog.All()), report.Summary.FailedChecks)
}

func TestRunAll_SortsCriticalFirst(t *testing.T) {
	d := newDetector(t, nil)
	report := d.RunAll(context.Background())

	lastRank := -1
	for _, div := range report.Divergences {
		rank := severityRank(div.Severity)
		assert.GreaterOrEqual(t, rank, lastRank)
		lastRank = rank
	}
}
