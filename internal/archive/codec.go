package archive

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"

	"github.com/radiosky/gosky/internal/healpix"
	"github.com/radiosky/gosky/internal/spectral"
)

// .skb container, version 1. All integers little-endian.
//
//	magic   [4]byte "SKYB"
//	version uint16
//	nsets   uint16
//	per set:
//	    nameLen uint16, name []byte
//	    nside   uint32
//	    ncomp   uint32
//	    maps    ncomp * 12*nside^2 float64
//	hasTable uint8
//	if hasTable:
//	    nrows uint32, ncomp uint32
//	    rows  nrows * (freq, scale, w_1..w_ncomp) float64
//	crc uint32  (IEEE, over everything before it)

var skbMagic = [4]byte{'S', 'K', 'Y', 'B'}

const skbVersion = 1

// maxSetPixels guards against absurd allocation from corrupt headers
// (nside 4096, 64 components is far beyond any published model).
const maxSetPixels = 64 * 12 * 4096 * 4096

// Open reads a .skb archive from disk.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("archive: opening %s: %w", path, err)
	}
	defer f.Close()

	a, err := Read(bufio.NewReaderSize(f, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("archive: reading %s: %w", path, err)
	}
	return a, nil
}

// Read decodes a .skb archive from r.
func Read(r io.Reader) (*Archive, error) {
	crc := crc32.NewIEEE()
	tr := io.TeeReader(r, crc)

	var magic [4]byte
	if _, err := io.ReadFull(tr, magic[:]); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if magic != skbMagic {
		return nil, fmt.Errorf("not a .skb archive (magic %q)", magic[:])
	}

	var version, nsets uint16
	if err := readLE(tr, &version, &nsets); err != nil {
		return nil, err
	}
	if version != skbVersion {
		return nil, fmt.Errorf("unsupported .skb version %d", version)
	}
	if nsets == 0 {
		return nil, fmt.Errorf("archive has no basis-map sets")
	}

	names := make([]string, 0, nsets)
	sets := make(map[string]*BasisSet, nsets)
	for i := 0; i < int(nsets); i++ {
		var nameLen uint16
		if err := readLE(tr, &nameLen); err != nil {
			return nil, err
		}
		nameBytes := make([]byte, nameLen)
		if _, err := io.ReadFull(tr, nameBytes); err != nil {
			return nil, fmt.Errorf("reading set name: %w", err)
		}
		name := string(nameBytes)

		var nside, ncomp uint32
		if err := readLE(tr, &nside, &ncomp); err != nil {
			return nil, err
		}
		if nside == 0 || nside > 4096 || ncomp == 0 || ncomp > 64 {
			return nil, fmt.Errorf("set %q: implausible size (nside %d, %d components)", name, nside, ncomp)
		}
		npix := healpix.Npix(int(nside))
		if int(ncomp)*npix > maxSetPixels {
			return nil, fmt.Errorf("set %q: implausible size (nside %d, %d components)", name, nside, ncomp)
		}

		maps := make([][]float64, ncomp)
		for c := range maps {
			m, err := readFloats(tr, npix)
			if err != nil {
				return nil, fmt.Errorf("set %q map %d: %w", name, c, err)
			}
			maps[c] = m
		}

		if _, dup := sets[name]; dup {
			return nil, fmt.Errorf("duplicate basis-map set %q", name)
		}
		names = append(names, name)
		sets[name] = &BasisSet{Nside: int(nside), Maps: maps}
	}

	var hasTable uint8
	if err := readLE(tr, &hasTable); err != nil {
		return nil, err
	}

	var table *spectral.Table
	if hasTable != 0 {
		var nrows, ncomp uint32
		if err := readLE(tr, &nrows, &ncomp); err != nil {
			return nil, err
		}
		freqs := make([]float64, nrows)
		scales := make([]float64, nrows)
		weights := make([][]float64, nrows)
		for i := range freqs {
			row, err := readFloats(tr, int(ncomp)+2)
			if err != nil {
				return nil, fmt.Errorf("spectral row %d: %w", i, err)
			}
			freqs[i], scales[i], weights[i] = row[0], row[1], row[2:]
		}
		var err error
		table, err = spectral.NewTable(freqs, scales, weights)
		if err != nil {
			return nil, err
		}
	}

	sum := crc.Sum32()
	var wantSum uint32
	if err := binary.Read(r, binary.LittleEndian, &wantSum); err != nil {
		return nil, fmt.Errorf("reading checksum: %w", err)
	}
	if sum != wantSum {
		return nil, fmt.Errorf("checksum mismatch: file %08x, computed %08x", wantSum, sum)
	}

	return New(names, sets, table)
}

// WriteFile encodes an archive to a .skb file. The converse of Open;
// used by the conversion tooling and by tests.
func WriteFile(path string, a *Archive) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("archive: creating %s: %w", path, err)
	}
	w := bufio.NewWriterSize(f, 1<<20)
	if err := Write(w, a); err != nil {
		f.Close()
		return fmt.Errorf("archive: writing %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write encodes an archive to w in .skb format.
func Write(w io.Writer, a *Archive) error {
	crc := crc32.NewIEEE()
	mw := io.MultiWriter(w, crc)

	if _, err := mw.Write(skbMagic[:]); err != nil {
		return err
	}
	if err := writeLE(mw, uint16(skbVersion), uint16(len(a.names))); err != nil {
		return err
	}

	for _, name := range a.names {
		set := a.sets[name]
		if err := writeLE(mw, uint16(len(name))); err != nil {
			return err
		}
		if _, err := mw.Write([]byte(name)); err != nil {
			return err
		}
		if err := writeLE(mw, uint32(set.Nside), uint32(len(set.Maps))); err != nil {
			return err
		}
		for _, m := range set.Maps {
			if err := writeFloats(mw, m); err != nil {
				return err
			}
		}
	}

	if a.table == nil {
		if err := writeLE(mw, uint8(0)); err != nil {
			return err
		}
	} else {
		if err := writeLE(mw, uint8(1), uint32(len(a.table.Freqs)), uint32(a.table.NComponents())); err != nil {
			return err
		}
		row := make([]float64, a.table.NComponents()+2)
		for i := range a.table.Freqs {
			row[0], row[1] = a.table.Freqs[i], a.table.Scales[i]
			copy(row[2:], a.table.Weights[i])
			if err := writeFloats(mw, row); err != nil {
				return err
			}
		}
	}

	return binary.Write(w, binary.LittleEndian, crc.Sum32())
}

func readLE(r io.Reader, vs ...any) error {
	for _, v := range vs {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("reading header field: %w", err)
		}
	}
	return nil
}

func writeLE(w io.Writer, vs ...any) error {
	for _, v := range vs {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func readFloats(r io.Reader, n int) ([]float64, error) {
	buf := make([]byte, 8*n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return out, nil
}

func writeFloats(w io.Writer, vs []float64) error {
	buf := make([]byte, 8*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	_, err := w.Write(buf)
	return err
}
