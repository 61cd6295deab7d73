package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/hakim/reconx/internal/models"
)

var csvHeader = []string{"target", "url", "status_code", "title", "technologies"}

// WriteCSV renders one row per live host
func WriteCSV(w io.Writer, run *models.RunResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, target := range run.Targets {
		for _, host := range run.LiveHosts[target] {
			row := []string{
				target,
				host.URL,
				strconv.Itoa(host.StatusCode),
				host.Title,
				strings.Join(host.Technologies, ", "),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
