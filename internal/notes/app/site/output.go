package site

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Константы для сообщений об ошибках вывода.
const (
	ErrPrepareOutput = "failed to prepare output directory"
	ErrWriteFile     = "failed to write file"
	ErrCommitOutput  = "failed to replace output directory"
)

// ErrUnsafeOutputDir - каталог вывода не может быть корнем, домашним или текущим каталогом.
var ErrUnsafeOutputDir = errors.New("refusing to use this directory as site output")

// staging собирает сайт во временном каталоге рядом с итоговым
// и подменяет итоговый каталог целиком после успешной сборки.
type staging struct {
	final string
	dir   string
}

func newStaging(outputDir string) (*staging, error) {
	final, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrPrepareOutput, err)
	}
	if err := checkOutputDir(final); err != nil {
		return nil, err
	}

	parent := filepath.Dir(final)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrPrepareOutput, err)
	}

	dir, err := os.MkdirTemp(parent, "."+filepath.Base(final)+"-build-")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrPrepareOutput, err)
	}
	if err := os.Chmod(dir, 0o755); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("%s: %w", ErrPrepareOutput, err)
	}

	return &staging{final: final, dir: dir}, nil
}

func checkOutputDir(final string) error {
	if final == filepath.Dir(final) {
		return fmt.Errorf("%w: %s", ErrUnsafeOutputDir, final)
	}
	if cwd, err := os.Getwd(); err == nil && sameDir(cwd, final) {
		return fmt.Errorf("%w: %s", ErrUnsafeOutputDir, final)
	}
	if home, err := os.UserHomeDir(); err == nil && sameDir(home, final) {
		return fmt.Errorf("%w: %s", ErrUnsafeOutputDir, final)
	}
	return nil
}

func sameDir(a, b string) bool {
	a, errA := filepath.Abs(a)
	b, errB := filepath.Abs(b)
	return errA == nil && errB == nil && a == b
}

// write атомарно пишет файл: во временный файл того же каталога и затем rename.
func (s *staging) write(rel string, data []byte) error {
	target := filepath.Join(s.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("%s %s: %w", ErrWriteFile, rel, err)
	}
	if err := writeFileAtomic(target, data); err != nil {
		return fmt.Errorf("%s %s: %w", ErrWriteFile, rel, err)
	}
	return nil
}

func writeFileAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// commit заменяет итоговый каталог собранным.
func (s *staging) commit() error {
	old := s.dir + "-old"

	hadPrevious := true
	if err := os.Rename(s.final, old); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", ErrCommitOutput, err)
		}
		hadPrevious = false
	}

	if err := os.Rename(s.dir, s.final); err != nil {
		if hadPrevious {
			_ = os.Rename(old, s.final)
		}
		return fmt.Errorf("%s: %w", ErrCommitOutput, err)
	}

	if hadPrevious {
		_ = os.RemoveAll(old)
	}
	return nil
}

// discard удаляет незавершенную сборку. После commit ничего не делает.
func (s *staging) discard() {
	_ = os.RemoveAll(s.dir)
}
