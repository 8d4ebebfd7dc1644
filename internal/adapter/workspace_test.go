package adapter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "zkmutant.dev/pkg/zkmutant/internal/model"
)

func fixtureProject(t *testing.T) *m.Project {
	t.Helper()

	root := writeTree(t, map[string]string{
		"Nargo.toml":  manifest,
		"src/main.nr": "fn f(a: u8) -> bool { a > 0 }\n",
		"src/lib.nr":  "fn g() {}\n",
	})

	loader := NewLocalProjectLoader()

	project, err := loader.Load(m.Path(root))
	require.NoError(t, err)

	return project
}

func TestWithWorkspace_CopiesTreeAndAppliesPatch(t *testing.T) {
	project := fixtureProject(t)
	manager := NewTempWorkspaceManager()

	patched := []byte("fn f(a: u8) -> bool { a <= 0 }\n")

	var workspaceRoot string

	err := manager.WithWorkspace(context.Background(), project, "src/main.nr", patched, func(root m.Path) error {
		workspaceRoot = string(root)

		// The whole tree is present.
		assert.FileExists(t, filepath.Join(workspaceRoot, "Nargo.toml"))
		assert.FileExists(t, filepath.Join(workspaceRoot, "src", "lib.nr"))

		data, err := os.ReadFile(filepath.Join(workspaceRoot, "src", "main.nr"))
		require.NoError(t, err)
		assert.Equal(t, patched, data)

		return nil
	})
	require.NoError(t, err)

	// Deleted after the body returns; the original tree is untouched.
	assert.NoDirExists(t, workspaceRoot)

	data, err := os.ReadFile(filepath.Join(string(project.Root), "src", "main.nr"))
	require.NoError(t, err)
	assert.Equal(t, "fn f(a: u8) -> bool { a > 0 }\n", string(data))
}

func TestWithWorkspace_CleansUpOnBodyError(t *testing.T) {
	project := fixtureProject(t)
	manager := NewTempWorkspaceManager()

	var workspaceRoot string

	bodyErr := errors.New("test run exploded")
	err := manager.WithWorkspace(context.Background(), project, "src/main.nr", []byte("x"), func(root m.Path) error {
		workspaceRoot = string(root)
		return bodyErr
	})

	assert.ErrorIs(t, err, bodyErr)
	assert.NoDirExists(t, workspaceRoot)
}

func TestWithWorkspace_CleansUpOnPanic(t *testing.T) {
	project := fixtureProject(t)
	manager := NewTempWorkspaceManager()

	var workspaceRoot string

	require.Panics(t, func() {
		_ = manager.WithWorkspace(context.Background(), project, "src/main.nr", []byte("x"), func(root m.Path) error {
			workspaceRoot = string(root)
			panic("abort")
		})
	})

	assert.NoDirExists(t, workspaceRoot)
}

func TestWithWorkspace_CanceledContext(t *testing.T) {
	project := fixtureProject(t)
	manager := NewTempWorkspaceManager()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := manager.WithWorkspace(ctx, project, "src/main.nr", []byte("x"), func(m.Path) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestWithWorkspace_PreservesExecutableBits(t *testing.T) {
	project := fixtureProject(t)

	script := filepath.Join(string(project.Root), "prove.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"), 0o755))

	manager := NewTempWorkspaceManager()

	err := manager.WithWorkspace(context.Background(), project, "src/main.nr", []byte("x"), func(root m.Path) error {
		info, err := os.Stat(filepath.Join(string(root), "prove.sh"))
		require.NoError(t, err)
		assert.NotZero(t, info.Mode()&0o111)

		return nil
	})
	require.NoError(t, err)
}

func TestWithWorkspace_SkipsSymlinksAndArtifactDirs(t *testing.T) {
	project := fixtureProject(t)
	root := string(project.Root)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "mutants.out"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "mutants.out", "run.json"), []byte("{}"), 0o644))
	require.NoError(t, os.Symlink("/etc/hostname", filepath.Join(root, "outside-link")))

	manager := NewTempWorkspaceManager()

	err := manager.WithWorkspace(context.Background(), project, "src/main.nr", []byte("x"), func(wsRoot m.Path) error {
		assert.NoDirExists(t, filepath.Join(string(wsRoot), "mutants.out"))
		assert.NoFileExists(t, filepath.Join(string(wsRoot), "outside-link"))

		return nil
	})
	require.NoError(t, err)
}

func TestWithWorkspace_ExtraSkipNames(t *testing.T) {
	project := fixtureProject(t)
	root := string(project.Root)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "custom-out"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "custom-out", "x"), []byte("x"), 0o644))

	manager := NewTempWorkspaceManager("custom-out")

	err := manager.WithWorkspace(context.Background(), project, "src/main.nr", []byte("x"), func(wsRoot m.Path) error {
		assert.NoDirExists(t, filepath.Join(string(wsRoot), "custom-out"))
		return nil
	})
	require.NoError(t, err)
}
