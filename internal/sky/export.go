package sky

import (
	"github.com/radiosky/gosky/internal/fitsio"
)

// WriteFITS exports the last generated map(s) as a HEALPix FITS binary
// table, one column per generated frequency, tagged with the data unit.
func (m *Model) WriteFITS(path string) error {
	if m.last == nil {
		return ErrNotGenerated
	}
	return fitsio.WriteHealpixMaps(path, m.last.Data, m.nside, string(m.last.Unit))
}
