// Package output renders qualifying-area tables as CSV and GeoJSON.
package output

import (
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
)

// WriteCSV writes the areas as a CSV table with a header row.
func WriteCSV(w io.Writer, areas []model.Area) error {
	b, err := csvutil.Marshal(areas)
	if err != nil {
		return eris.Wrap(err, "output: marshal csv")
	}
	if _, err := w.Write(b); err != nil {
		return eris.Wrap(err, "output: write csv")
	}
	return nil
}

// WriteCSVFile writes the areas to a CSV file at path.
func WriteCSVFile(path string, areas []model.Area) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "output: create %s", path)
	}
	if err := WriteCSV(f, areas); err != nil {
		f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "output: close %s", path)
}
