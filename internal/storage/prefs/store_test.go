package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeConfirmer struct {
	answer  bool
	prompts []string
}

func (f *fakeConfirmer) Confirm(prompt string) (bool, error) {
	f.prompts = append(f.prompts, prompt)
	return f.answer, nil
}

func prefsPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "preferences.yaml")
}

func TestOpenMissingFileYieldsDefaults(t *testing.T) {
	store, err := Open(prefsPath(t), nil)
	require.NoError(t, err)
	require.Empty(t, store.Blacklist())
	require.True(t, store.IsIncluded("ADABTC"))
}

func TestOpenCorruptFileYieldsDefaults(t *testing.T) {
	path := prefsPath(t)
	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0o644))

	store, err := Open(path, nil)
	require.NoError(t, err)
	require.Empty(t, store.Blacklist())
}

func TestExcludeIncludePersist(t *testing.T) {
	path := prefsPath(t)

	store, err := Open(path, nil)
	require.NoError(t, err)

	require.NoError(t, store.Exclude([]string{"XRPBTC", "DOGEBTC"}))
	require.False(t, store.IsIncluded("XRPBTC"))
	require.True(t, store.IsIncluded("ADABTC"))

	// A second Exclude of the same symbol must not duplicate it.
	require.NoError(t, store.Exclude([]string{"XRPBTC"}))
	require.Equal(t, []string{"DOGEBTC", "XRPBTC"}, store.Blacklist())

	reloaded, err := Open(path, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"DOGEBTC", "XRPBTC"}, reloaded.Blacklist())

	require.NoError(t, reloaded.Include([]string{"DOGEBTC"}))
	require.Equal(t, []string{"XRPBTC"}, reloaded.Blacklist())

	again, err := Open(path, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"XRPBTC"}, again.Blacklist())
}

func TestSetBlacklistAndClear(t *testing.T) {
	store, err := Open(prefsPath(t), nil)
	require.NoError(t, err)

	require.NoError(t, store.SetBlacklist([]string{"A", "B"}))
	require.Equal(t, []string{"A", "B"}, store.Blacklist())

	require.NoError(t, store.Clear())
	require.Empty(t, store.Blacklist())
}

func TestReconcileRemovesConfirmedStaleEntries(t *testing.T) {
	store, err := Open(prefsPath(t), nil)
	require.NoError(t, err)
	require.NoError(t, store.SetBlacklist([]string{"XYZBTC"}))

	confirmer := &fakeConfirmer{answer: true}
	removed, err := store.Reconcile([]string{"XYZBTC", "ADABTC"}, confirmer)
	require.NoError(t, err)

	require.Equal(t, []string{"XYZBTC"}, removed)
	require.Empty(t, store.Blacklist())
	require.Len(t, confirmer.prompts, 1)
}

func TestReconcileKeepsEntriesWhenDeclined(t *testing.T) {
	store, err := Open(prefsPath(t), nil)
	require.NoError(t, err)
	require.NoError(t, store.SetBlacklist([]string{"XYZBTC"}))

	confirmer := &fakeConfirmer{answer: false}
	removed, err := store.Reconcile([]string{"XYZBTC"}, confirmer)
	require.NoError(t, err)

	require.Empty(t, removed)
	require.Equal(t, []string{"XYZBTC"}, store.Blacklist())
}

func TestReconcileWithoutOverlapDoesNotPrompt(t *testing.T) {
	store, err := Open(prefsPath(t), nil)
	require.NoError(t, err)
	require.NoError(t, store.SetBlacklist([]string{"XYZBTC"}))

	confirmer := &fakeConfirmer{answer: true}
	removed, err := store.Reconcile([]string{"ADABTC"}, confirmer)
	require.NoError(t, err)

	require.Empty(t, removed)
	require.Empty(t, confirmer.prompts)
}
