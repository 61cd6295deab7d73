package report

import (
	"path/filepath"

	"github.com/hakim/reconx/internal/models"
	"github.com/hakim/reconx/internal/storage"
)

// writeLiveHostArtifacts writes live_hosts.txt (one URL per line) and
// live_hosts.json (every live host record) across all targets.
func writeLiveHostArtifacts(dir string, run *models.RunResult) ([]string, error) {
	var (
		urls []string
		all  = []models.LiveHost{}
	)
	for _, target := range run.Targets {
		for _, h := range run.LiveHosts[target] {
			urls = append(urls, h.URL)
			all = append(all, h)
		}
	}
	if len(all) == 0 {
		return nil, nil
	}

	txt := filepath.Join(dir, "live_hosts.txt")
	if err := storage.WriteLines(txt, urls); err != nil {
		return nil, err
	}
	js := filepath.Join(dir, "live_hosts.json")
	if err := storage.WriteJSON(js, all); err != nil {
		return []string{txt}, err
	}

	return []string{txt, js}, nil
}
