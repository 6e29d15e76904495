package cli

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestCollectionsCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "collections")

	require.NoError(t, err)
	assert.Contains(t, out, "documents")
	assert.Contains(t, out, "12 points")
	assert.Contains(t, out, "Total: 1 collections")
}

func TestCollectionsCmd_GroupsLargeCounts(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()
	svc.system.collections[0].PointCount = 1234567

	out, err := execute(t, "collections")

	require.NoError(t, err)
	assert.Contains(t, out, "1,234,567 points")
}

func TestCollectionsCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "collections", "--json")

	require.NoError(t, err)
	var got []domain.Collection
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, 768, got[0].Dimension)
}

func TestCollectionsCmd_Empty(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.system.collections = nil

	out, err := execute(t, "collections")

	require.NoError(t, err)
	assert.Contains(t, out, "No collections.")
}

func TestCacheCmds(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Search cache: 2 / 100 entries")

	out, err = execute(t, "cache", "clear")
	require.NoError(t, err)
	assert.True(t, ts.system.cleared)
	assert.Contains(t, out, "Search cache cleared.")

	ts.system.stats = domain.CacheStats{}
	out, err = execute(t, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Search cache is disabled.")
}

func TestHealthCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "health")

	require.NoError(t, err)
	assert.Contains(t, out, "Status: healthy")
	assert.Regexp(t, `(?s)embedding.*vector_store`, out, "components are sorted")
}

func TestHealthCmd_Degraded(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.system.health = &domain.HealthStatus{
		Status:     domain.HealthDegraded,
		Components: map[string]string{"llm": "unreachable"},
	}

	out, err := execute(t, "health")

	assert.ErrorIs(t, err, errUnhealthy)
	assert.Contains(t, out, "llm")
}

func TestRepairCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "repair", "hr")

	require.NoError(t, err)
	assert.Equal(t, "hr", ts.system.repairColl)
	assert.Contains(t, out, "Repaired 4 chunks.")
}

func TestRepairCmd_DefaultCollection(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.system.repairColl = "unset"

	_, err := execute(t, "repair")

	require.NoError(t, err)
	assert.Empty(t, ts.system.repairColl)
}

func TestSystemCmds_ServiceError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.system.err = errors.New("store down")

	for _, args := range [][]string{{"collections"}, {"cache", "clear"}, {"health"}, {"repair"}} {
		_, err := execute(t, args...)
		assert.EqualError(t, err, "store down", args)
	}
}

func TestSystemCmds_ServiceNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	SetServices(Services{})

	for _, args := range [][]string{{"collections"}, {"cache", "clear"}, {"cache", "stats"}, {"health"}, {"repair"}} {
		_, err := execute(t, args...)
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "system service not configured")
	}
}
