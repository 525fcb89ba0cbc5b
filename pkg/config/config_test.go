package config

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	table map[string]string
	calls int
	err   error
}

func (f *fakeLoader) LoadConfig(_ context.Context) (map[string]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]string, len(f.table))
	for k, v := range f.table {
		out[k] = v
	}
	return out, nil
}

func TestStoreLoadsLazilyAndOnce(t *testing.T) {
	loader := &fakeLoader{table: map[string]string{"EXT_PAGES": "5"}}
	store := NewStore(loader)
	ctx := context.Background()

	assert.Equal(t, 0, loader.calls, "nothing read before first access")

	n, err := store.GetInt(ctx, "EXT_PAGES", 3)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = store.Get(ctx, "EXT_VS_CURRENCY", "usd")
	require.NoError(t, err)
	assert.Equal(t, 1, loader.calls, "cache populated exactly once")
}

func TestStoreTypedGetterFallbacks(t *testing.T) {
	loader := &fakeLoader{table: map[string]string{
		"EXT_PAGES":      "not-a-number",
		"EXT_SLEEP_PAGE": " 1.5 ",
	}}
	store := NewStore(loader)
	ctx := context.Background()

	n, err := store.GetInt(ctx, "EXT_PAGES", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "unparsable value falls back to default")

	f, err := store.GetFloat(ctx, "EXT_SLEEP_PAGE", 1.2)
	require.NoError(t, err)
	assert.Equal(t, 1.5, f, "values are trimmed before parsing")

	v, err := store.Get(ctx, "MISSING_KEY", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)
}

func TestStoreReloadRepopulates(t *testing.T) {
	loader := &fakeLoader{table: map[string]string{"SNAPSHOT_MODE": "replace"}}
	store := NewStore(loader)
	ctx := context.Background()

	v, err := store.Get(ctx, "SNAPSHOT_MODE", "")
	require.NoError(t, err)
	assert.Equal(t, "replace", v)

	loader.table["SNAPSHOT_MODE"] = "append"
	v, _ = store.Get(ctx, "SNAPSHOT_MODE", "")
	assert.Equal(t, "replace", v, "cache is immutable between reloads")

	require.NoError(t, store.Reload(ctx))
	v, _ = store.Get(ctx, "SNAPSHOT_MODE", "")
	assert.Equal(t, "append", v)
	assert.Equal(t, 2, loader.calls)
}

func TestStoreSurfacesLoaderErrors(t *testing.T) {
	loader := &fakeLoader{err: errors.New("control store unreachable")}
	store := NewStore(loader)

	_, err := store.Get(context.Background(), "ANY", "")
	require.Error(t, err)
	assert.ErrorContains(t, err, "control store unreachable")
}

func TestBundlesCarryDefaults(t *testing.T) {
	loader := &fakeLoader{table: map[string]string{
		"DB_HOST":       "db.internal",
		"STG_TABLE":     "crypto_eur_snapshot",
		"SNAPSHOT_MODE": "APPEND",
	}}
	store := NewStore(loader)
	ctx := context.Background()

	dbCfg, err := store.DB(ctx)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", dbCfg.Host)
	assert.Equal(t, 3306, dbCfg.Port)
	assert.Equal(t, "crypto_eur_snapshot", dbCfg.StgTable)
	assert.Equal(t, "stg", dbCfg.StgSchema)
	assert.Equal(t, "data_mart", dbCfg.MartSchema)

	stgCfg, err := store.Staging(ctx)
	require.NoError(t, err)
	assert.Equal(t, "append", stgCfg.SnapshotMode, "mode is lowercased")

	extCfg, err := store.Extract(ctx)
	require.NoError(t, err)
	assert.Equal(t, "usd", extCfg.VsCurrency)
	assert.Equal(t, 3, extCfg.Pages)
	assert.Equal(t, 100, extCfg.PerPage)
	assert.Equal(t, "https://api.coingecko.com/api/v3", extCfg.BaseURL)
}
