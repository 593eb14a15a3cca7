package cache

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"

	"avalia-integrity/internal/common/logger"
)

func TestInvalidator_DeletesAllReportKeys(t *testing.T) {
	client, mock := redismock.NewClientMock()
	inv := NewInvalidator(client, "relatorios:", logger.NewTestLogger(t))

	mock.ExpectScan(0, "relatorios:*", 100).SetVal([]string{
		"relatorios:resumo:2025",
		"relatorios:escola:42",
	}, 0)
	mock.ExpectDel("relatorios:resumo:2025").SetVal(1)
	mock.ExpectDel("relatorios:escola:42").SetVal(1)

	err := inv.Invalidate(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidator_EmptyCacheIsNoop(t *testing.T) {
	client, mock := redismock.NewClientMock()
	inv := NewInvalidator(client, "relatorios:", logger.NewTestLogger(t))

	mock.ExpectScan(0, "relatorios:*", 100).SetVal([]string{}, 0)

	err := inv.Invalidate(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
