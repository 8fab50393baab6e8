package gen

import (
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/mkeeler/counter-rand/randbuf"
	"github.com/mkeeler/counter-rand/sampler"
)

type Format int

const (
	FormatBinary Format = iota
	FormatCSV
)

func (f Format) GoString() string { return f.String() }

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatCSV:
		return "csv"
	default:
		return ""
	}
}

// ParseFormat maps a format name from a flag or config file onto a
// Format. The empty string selects the binary format.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "", "binary":
		return FormatBinary, nil
	case "csv":
		return FormatCSV, nil
	default:
		return FormatBinary, fmt.Errorf("unknown output format %q", name)
	}
}

// writeBinary dumps the buffer's backing slice in its configured memory
// order as little endian machine words.
func writeBinary[E sampler.Element](w io.Writer, m *randbuf.Matrix[E]) error {
	return binary.Write(w, binary.LittleEndian, m.Data())
}

// writeCSV emits one record per lane with the lane's batch values in
// offset order, regardless of the buffer's memory layout.
func writeCSV[E sampler.Element](w io.Writer, m *randbuf.Matrix[E]) error {
	cw := csv.NewWriter(w)
	record := make([]string, m.Batch())
	for lane := 0; lane < m.Lanes(); lane++ {
		for offset := 0; offset < m.Batch(); offset++ {
			record[offset] = formatElement(m.At(offset, uint64(lane)))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatElement[E sampler.Element](v E) string {
	switch x := any(v).(type) {
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
