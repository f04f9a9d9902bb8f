package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"milorg-admin/models"
)

func TestRoleCreateRollsBackOnInsertFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	boom := errors.New("deadlock found")
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `roles`").WillReturnError(boom)
	mock.ExpectRollback()

	err = NewRoleRepository(db).Create(context.Background(), &models.Role{Name: "Operador", Acronym: "OP"}, RoleLinks{})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
