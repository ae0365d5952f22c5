package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/healthguard/internal/model"
	"github.com/crimson-sun/healthguard/internal/store"
	"github.com/crimson-sun/healthguard/internal/store/storetest"
)

func TestRepositoryContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Repository {
		s, err := New(t.TempDir())
		require.NoError(t, err)
		return s
	})
}

func TestOneFilePerObject(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, model.Incident{ID: "INC-00000001", Module: "FI"}))
	require.NoError(t, s.PutEscalation(ctx, model.EscalationRecord{ID: "ESC-00000001"}))

	assert.FileExists(t, filepath.Join(dir, "incidents", "INC-00000001.json"))
	assert.FileExists(t, filepath.Join(dir, "escalations", "ESC-00000001.json"))
	assert.NoFileExists(t, filepath.Join(dir, "incidents", "INC-00000001.json.tmp"))
}

func TestSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), model.Incident{ID: "INC-00000001", Module: "FI"}))

	reopened, err := New(dir)
	require.NoError(t, err)
	got, err := reopened.Get(context.Background(), "INC-00000001")
	require.NoError(t, err)
	assert.Equal(t, "FI", got.Module)
}

func TestRejectsPathIDs(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, s.Put(context.Background(), model.Incident{ID: "../escape"}))
	_, err = s.Get(context.Background(), "")
	assert.Error(t, err)
}

func TestCorruptFileSurfaces(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "incidents", "INC-BAD00000.json"), []byte("{"), 0644))

	_, err = s.List(context.Background(), store.ListOptions{})
	assert.Error(t, err)
}

func TestNewRejectsEmptyDir(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
