package adapter

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	m "zkmutant.dev/pkg/zkmutant/internal/model"
)

// WorkspaceManager stages an isolated copy of the project per mutant.
type WorkspaceManager interface {
	// WithWorkspace copies the project tree into a fresh temporary
	// directory, overwrites the mutated file with patched bytes, and
	// invokes body with the workspace root. The workspace is deleted on
	// every exit path, including panic.
	WithWorkspace(ctx context.Context, project *m.Project, mutatedRel string, patched []byte, body func(root m.Path) error) error
}

// TempWorkspaceManager is the os.MkdirTemp-backed WorkspaceManager.
type TempWorkspaceManager struct {
	// extraSkips are additional directory base names excluded from the
	// copy (the artifact directory, when it lives inside the project).
	extraSkips map[string]bool
}

// NewTempWorkspaceManager constructs a TempWorkspaceManager. skipNames
// lists directory base names to exclude beyond the standard set.
func NewTempWorkspaceManager(skipNames ...string) *TempWorkspaceManager {
	skips := make(map[string]bool, len(skipNames))
	for _, name := range skipNames {
		skips[name] = true
	}

	return &TempWorkspaceManager{extraSkips: skips}
}

// WithWorkspace implements WorkspaceManager.
func (w *TempWorkspaceManager) WithWorkspace(ctx context.Context, project *m.Project, mutatedRel string, patched []byte, body func(root m.Path) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmpDir, err := os.MkdirTemp("", "zk-mutant-*")
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}

	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			slog.Error("failed to remove workspace", "dir", tmpDir, "error", rmErr)
		}
	}()

	if err := w.copyTree(string(project.Root), tmpDir); err != nil {
		return fmt.Errorf("copy project tree: %w", err)
	}

	target := filepath.Join(tmpDir, filepath.FromSlash(mutatedRel))

	// The mutated file is written fresh so it never shares storage with
	// the original tree.
	if err := os.WriteFile(target, patched, 0o644); err != nil {
		return fmt.Errorf("write mutated file %s: %w", mutatedRel, err)
	}

	return body(m.Path(tmpDir))
}

// copyTree copies src into dst preserving permission bits. Symlinks are
// skipped outright: a link reaching outside the project root must not be
// followed, and nothing inside a Noir tree depends on links.
func (w *TempWorkspaceManager) copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		if entry.IsDir() {
			if path != src && (skippedDirs[entry.Name()] || w.extraSkips[entry.Name()]) {
				return filepath.SkipDir
			}

			info, err := entry.Info()
			if err != nil {
				return err
			}

			return os.MkdirAll(filepath.Join(dst, rel), info.Mode().Perm())
		}

		if entry.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		return copyFile(path, filepath.Join(dst, rel), info.Mode().Perm())
	})
}

// copyFile copies one regular file, keeping its permission bits so
// executable helpers survive the copy.
func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}

	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}
