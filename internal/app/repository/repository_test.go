package repository

import (
	"testing"

	"licensecloud/internal/app/ds"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// dryRunDB строит SQL без подключения к базе.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=test dbname=test sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func TestLockedLicenseQueryUsesRowLock(t *testing.T) {
	db := dryRunDB(t)

	stmt := lockedLicenseQuery(db, "license_key", "ABCD-0123-4567-89EF").Take(&ds.License{}).Statement
	sql := stmt.SQL.String()

	assert.Contains(t, sql, `FROM "licenses"`)
	assert.Contains(t, sql, "license_key = $1")
	assert.Contains(t, sql, "FOR UPDATE")
	assert.Contains(t, stmt.Vars, "ABCD-0123-4567-89EF")
}

func TestLicenseStateUpdateTouchesOnlyStateColumns(t *testing.T) {
	db := dryRunDB(t)
	machine := "m1"
	row := ds.License{ID: 5, LicenseKey: "ABCD-0123-4567-89EF", OrgID: 2, LicenseType: "trial", MachineID: &machine, IsActive: false}

	sql := db.Model(&row).Select(licenseStateColumns).Updates(&row).Statement.SQL.String()

	assert.Contains(t, sql, `UPDATE "licenses" SET`)
	assert.Contains(t, sql, `"machine_id"=`)
	assert.Contains(t, sql, `"is_active"=`)
	assert.NotContains(t, sql, `"license_key"=`)
	assert.NotContains(t, sql, `"org_id"=`)
	assert.Contains(t, sql, `WHERE "id" = `)
}

func TestPage(t *testing.T) {
	p := Page{Page: 3, PageSize: 10}
	assert.Equal(t, 20, p.Offset())
	assert.Equal(t, 1, p.Pages(0))
	assert.Equal(t, 1, p.Pages(10))
	assert.Equal(t, 3, p.Pages(21))
}
