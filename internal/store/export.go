package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ExportCSV writes a series as one row per time point: time, then the real
// and imaginary part of each observable.
func ExportCSV(w io.Writer, series *Series) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"time"}
	for _, name := range series.Names {
		header = append(header, name+"_re", name+"_im")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for j, t := range series.Times {
		row := []string{strconv.FormatFloat(t, 'g', -1, 64)}
		for k := range series.Names {
			row = append(row,
				strconv.FormatFloat(series.Re[k][j], 'g', -1, 64),
				strconv.FormatFloat(series.Im[k][j], 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

type exportData struct {
	Meta   RunMeta `json:"meta"`
	Series *Series `json:"series"`
}

// ExportJSON writes a run with its series as indented JSON.
func ExportJSON(path string, meta RunMeta, series *Series) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(exportData{Meta: meta, Series: series}); err != nil {
		return fmt.Errorf("store: export %s: %w", path, err)
	}
	return nil
}
