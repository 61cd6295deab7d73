// Package report renders a run result into report files and writes the
// per-stage artifacts.
package report

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/hakim/reconx/internal/config"
	"github.com/hakim/reconx/internal/models"
	"github.com/hakim/reconx/internal/storage"
)

// SubdomainDisplayCap is the number of subdomains listed per target in the
// text report.
const SubdomainDisplayCap = 20

// Emitter writes reports into one output directory
type Emitter struct {
	dir string
	log logrus.FieldLogger
}

// NewEmitter creates an emitter rooted at dir
func NewEmitter(dir string, log logrus.FieldLogger) *Emitter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Emitter{dir: dir, log: log}
}

// Render writes one report per requested format and returns the paths
// written. Every format is rendered from the same run; a failing format does
// not stop the others.
func (e *Emitter) Render(run *models.RunResult, formats []string) ([]string, error) {
	if err := storage.EnsureDir(e.dir); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	ts := storage.FileTimestamp(run.Timestamp)
	var (
		paths []string
		errs  []error
	)

	for _, format := range formats {
		var (
			path string
			err  error
		)
		switch format {
		case config.FormatText:
			path = filepath.Join(e.dir, fmt.Sprintf("report_%s.txt", ts))
			err = writeFile(path, func(w io.Writer) error { return WriteText(w, run) })
		case config.FormatJSON:
			path = filepath.Join(e.dir, fmt.Sprintf("report_%s.json", ts))
			err = storage.WriteJSON(path, run)
		case config.FormatCSV:
			path = filepath.Join(e.dir, fmt.Sprintf("live_hosts_%s.csv", ts))
			err = writeFile(path, func(w io.Writer) error { return WriteCSV(w, run) })
		case config.FormatMarkdown:
			path = filepath.Join(e.dir, fmt.Sprintf("report_%s.md", ts))
			err = writeFile(path, func(w io.Writer) error { return WriteMarkdown(w, run) })
		default:
			err = fmt.Errorf("unsupported report format %q", format)
		}

		if err != nil {
			e.log.WithError(err).WithField("format", format).Error("report rendering failed")
			errs = append(errs, err)
			continue
		}
		e.log.WithField("path", path).Debug("report written")
		paths = append(paths, path)
	}

	return paths, errors.Join(errs...)
}

// WriteArtifacts writes the per-stage files for every stage that produced
// data.
func (e *Emitter) WriteArtifacts(run *models.RunResult) ([]string, error) {
	if err := storage.EnsureDir(e.dir); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var paths []string
	steps := []func(string, *models.RunResult) ([]string, error){
		writeSubdomainLists,
		writeLiveHostArtifacts,
		writePortArtifact,
		writeHeaderArtifacts,
	}
	for _, step := range steps {
		written, err := step(e.dir, run)
		paths = append(paths, written...)
		if err != nil {
			return paths, err
		}
	}

	return paths, nil
}

func writeSubdomainLists(dir string, run *models.RunResult) ([]string, error) {
	var paths []string
	for _, target := range run.Targets {
		subs := run.Subdomains[target]
		if len(subs) == 0 {
			continue
		}
		path := filepath.Join(dir, storage.SanitizeTarget(target)+"_subdomains.txt")
		if err := storage.WriteLines(path, subs); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, render func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := render(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// sortedKeys gives map output a stable order
func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
