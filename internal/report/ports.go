package report

import (
	"path/filepath"

	"github.com/hakim/reconx/internal/models"
	"github.com/hakim/reconx/internal/storage"
)

// writePortArtifact writes ports.json, a hostname -> open ports mapping
// across all targets.
func writePortArtifact(dir string, run *models.RunResult) ([]string, error) {
	merged := make(map[string][]models.Port)
	for _, target := range run.Targets {
		for host, ports := range run.Ports[target] {
			merged[host] = ports
		}
	}
	if len(merged) == 0 {
		return nil, nil
	}

	path := filepath.Join(dir, "ports.json")
	if err := storage.WriteJSON(path, merged); err != nil {
		return nil, err
	}
	return []string{path}, nil
}
