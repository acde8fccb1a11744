// Package fitsio writes HEALPix maps as FITS binary tables in the
// conventional all-sky layout: an empty primary HDU followed by one
// BINTABLE extension with a float64 column per map and the standard
// PIXTYPE/ORDERING/NSIDE keywords. Write-only; the archive pipeline
// never reads FITS.
package fitsio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

const blockSize = 2880
const cardSize = 80

// WriteHealpixMaps writes one or more full-sky maps over the same RING
// grid to path. unit tags the column values (e.g. "K", "MJysr").
func WriteHealpixMaps(path string, maps [][]float64, nside int, unit string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fitsio: creating %s: %w", path, err)
	}
	w := bufio.NewWriterSize(f, 1<<20)
	if err := Write(w, maps, nside, unit); err != nil {
		f.Close()
		return fmt.Errorf("fitsio: writing %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write encodes the maps to w as a FITS file.
func Write(w io.Writer, maps [][]float64, nside int, unit string) error {
	if len(maps) == 0 {
		return fmt.Errorf("no maps to write")
	}
	npix := 12 * nside * nside
	for i, m := range maps {
		if len(m) != npix {
			return fmt.Errorf("map %d has %d pixels, nside %d implies %d", i, len(m), nside, npix)
		}
	}

	// Primary HDU: no data, extensions follow.
	primary := newHeader()
	primary.add("SIMPLE", "T", "conforms to FITS standard")
	primary.add("BITPIX", "8", "array data type")
	primary.add("NAXIS", "0", "number of array dimensions")
	primary.add("EXTEND", "T", "")
	if err := primary.write(w); err != nil {
		return err
	}

	ncol := len(maps)
	ext := newHeader()
	ext.add("XTENSION", quote("BINTABLE"), "binary table extension")
	ext.add("BITPIX", "8", "array data type")
	ext.add("NAXIS", "2", "number of array dimensions")
	ext.add("NAXIS1", fmt.Sprint(8*ncol), "length of dimension 1")
	ext.add("NAXIS2", fmt.Sprint(npix), "length of dimension 2")
	ext.add("PCOUNT", "0", "number of group parameters")
	ext.add("GCOUNT", "1", "number of groups")
	ext.add("TFIELDS", fmt.Sprint(ncol), "number of table fields")
	for i := 0; i < ncol; i++ {
		n := i + 1
		ext.add(fmt.Sprintf("TTYPE%d", n), quote(fmt.Sprintf("TEMPERATURE%d", n)), "")
		ext.add(fmt.Sprintf("TFORM%d", n), quote("1D"), "64-bit float")
		ext.add(fmt.Sprintf("TUNIT%d", n), quote(unit), "map data unit")
	}
	ext.add("PIXTYPE", quote("HEALPIX"), "HEALPIX pixelisation")
	ext.add("ORDERING", quote("RING"), "pixel ordering scheme")
	ext.add("NSIDE", fmt.Sprint(nside), "resolution parameter")
	ext.add("FIRSTPIX", "0", "first pixel index")
	ext.add("LASTPIX", fmt.Sprint(npix-1), "last pixel index")
	ext.add("INDXSCHM", quote("IMPLICIT"), "indexing: implicit or explicit")
	if err := ext.write(w); err != nil {
		return err
	}

	// Data: row-major, big-endian per the FITS standard.
	buf := make([]byte, 8*ncol)
	written := 0
	for p := 0; p < npix; p++ {
		for c, m := range maps {
			binary.BigEndian.PutUint64(buf[8*c:], math.Float64bits(m[p]))
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
		written += len(buf)
	}
	return pad(w, written)
}

type header struct {
	cards []string
}

func newHeader() *header {
	return &header{}
}

// add appends one 80-byte header card in fixed format.
func (h *header) add(key, value, comment string) {
	card := fmt.Sprintf("%-8s= %20s", key, value)
	if comment != "" {
		card += " / " + comment
	}
	if len(card) > cardSize {
		card = card[:cardSize]
	}
	h.cards = append(h.cards, fmt.Sprintf("%-80s", card))
}

// write emits the cards, the END card, and block padding.
func (h *header) write(w io.Writer) error {
	var sb strings.Builder
	for _, c := range h.cards {
		sb.WriteString(c)
	}
	sb.WriteString(fmt.Sprintf("%-80s", "END"))
	n, err := io.WriteString(w, sb.String())
	if err != nil {
		return err
	}
	return padWith(w, n, ' ')
}

// pad zero-fills a data unit to the next 2880-byte boundary.
func pad(w io.Writer, written int) error {
	return padWith(w, written, 0)
}

// padWith fills to the next block boundary; headers pad with spaces,
// data units with zero bytes, per the FITS standard.
func padWith(w io.Writer, written int, fill byte) error {
	rem := written % blockSize
	if rem == 0 {
		return nil
	}
	b := make([]byte, blockSize-rem)
	if fill != 0 {
		for i := range b {
			b[i] = fill
		}
	}
	_, err := w.Write(b)
	return err
}

func quote(s string) string {
	return fmt.Sprintf("'%s'", s)
}
