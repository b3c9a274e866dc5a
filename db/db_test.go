package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/meinhoongagan/carenest/models"
)

func TestInitRequiresURL(t *testing.T) {
	assert.Error(t, Init(""))
}

func TestMigrateAndTranslateDuplicates(t *testing.T) {
	conn, err := Open(sqlite.Open("file:db_migrate?mode=memory&cache=shared"))
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	require.NoError(t, Migrate(conn))

	for _, m := range models.All() {
		assert.True(t, conn.Migrator().HasTable(m), "%T table missing", m)
	}

	first := models.User{Email: "dup@example.com", Password: "x", Role: models.RoleClient}
	require.NoError(t, conn.Create(&first).Error)
	second := models.User{Email: "DUP@example.com", Password: "x", Role: models.RoleClient}
	err = conn.Create(&second).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
