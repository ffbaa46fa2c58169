package seeder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toylytics/internal/config"
	"toylytics/internal/datasets"
	"toylytics/internal/retail"
	"toylytics/internal/seeder"
	"toylytics/internal/testsupport"
	"toylytics/internal/traffic"
)

// The seeder's output must round-trip through the importer unchanged.
func TestSeededDatasetsImport(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{DataDirectory: dir}

	s := seeder.NewSeeder(testsupport.GetLogger(), cfg, 200)
	require.NoError(t, s.Run())

	db := testsupport.SetupTestDB(t)
	dbManager := testsupport.NewTestDBManager(db)
	importer := datasets.NewImporter(dbManager, testsupport.GetLogger(), cfg)
	require.NoError(t, importer.ImportAll())

	var sessionCount int64
	require.NoError(t, db.Model(&traffic.WebsiteSession{}).Count(&sessionCount).Error)
	assert.Equal(t, int64(200), sessionCount)

	var pageviewCount int64
	require.NoError(t, db.Model(&traffic.Pageview{}).Count(&pageviewCount).Error)
	assert.Greater(t, pageviewCount, sessionCount)

	var productCount int64
	require.NoError(t, db.Model(&retail.Product{}).Count(&productCount).Error)
	assert.Equal(t, int64(4), productCount)

	// every order references a seeded session
	var orphaned int64
	require.NoError(t, db.Raw(`
		SELECT COUNT(*) FROM orders o
		LEFT JOIN website_sessions s ON s.website_session_id = o.website_session_id
		WHERE s.website_session_id IS NULL
	`).Scan(&orphaned).Error)
	assert.Zero(t, orphaned)
}
