// Package export writes perceptron trajectories for external plotting tools.
//
// Three formats are supported: CSV (columns t, z1, z2), JSON (the same
// columns plus the unit's parameters, initial state and decision) and Arrow
// IPC stream (the columns as float64 arrays, parameters as schema metadata).
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/nvandessel/dbnn/internal/perceptron"
)

// Format names an export encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatArrow Format = "arrow"
)

// Formats lists the supported formats.
var Formats = []Format{FormatCSV, FormatJSON, FormatArrow}

// ParseFormat maps a format name to a Format (case-insensitive).
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q (valid: csv, json, arrow)", s)
}

// Series is one trajectory with the context needed to interpret it.
type Series struct {
	Unit       perceptron.Perceptron
	Z10, Z20   float64
	Span       perceptron.TimeSpan
	Trajectory *perceptron.Trajectory
}

// NewSeries bundles the trajectory of p integrated from (z10, z20) over span.
func NewSeries(p perceptron.Perceptron, z10, z20 float64, span perceptron.TimeSpan, tr *perceptron.Trajectory) Series {
	return Series{Unit: p, Z10: z10, Z20: z20, Span: span, Trajectory: tr}
}

// Output is the decision the unit takes on the series' final sample.
func (s Series) Output() int {
	if s.Trajectory.Len() == 0 {
		return 0
	}
	z1, _ := s.Trajectory.Final()
	return s.Unit.Activation(z1)
}

// Write encodes s to w in format f.
func Write(w io.Writer, f Format, s Series) error {
	if s.Trajectory == nil {
		return fmt.Errorf("export: nil trajectory")
	}
	switch f {
	case FormatCSV:
		return writeCSV(w, s)
	case FormatJSON:
		return writeJSON(w, s)
	case FormatArrow:
		return writeArrow(w, s)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeCSV(w io.Writer, s Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"t", "z1", "z2"}); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	z1, z2 := s.Trajectory.Z1(), s.Trajectory.Z2()
	for i, t := range s.Trajectory.T {
		if err := cw.Write([]string{formatFloat(t), formatFloat(z1[i]), formatFloat(z2[i])}); err != nil {
			return fmt.Errorf("writing csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Document is the JSON encoding of a Series.
type Document struct {
	Params   perceptron.Params   `json:"params"`
	Z10      float64             `json:"z1_0"`
	Z20      float64             `json:"z2_0"`
	TimeSpan perceptron.TimeSpan `json:"time_span"`
	Output   int                 `json:"output"`
	T        []float64           `json:"t"`
	Z1       []float64           `json:"z1"`
	Z2       []float64           `json:"z2"`
}

func writeJSON(w io.Writer, s Series) error {
	doc := Document{
		Params:   s.Unit.Params(),
		Z10:      s.Z10,
		Z20:      s.Z20,
		TimeSpan: s.Span,
		Output:   s.Output(),
		T:        s.Trajectory.T,
		Z1:       s.Trajectory.Z1(),
		Z2:       s.Trajectory.Z2(),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// Metadata keys stored on the Arrow schema.
const (
	MetaU         = "u"
	MetaV         = "v"
	MetaGamma     = "gamma"
	MetaPhi       = "phi"
	MetaThreshold = "threshold"
	MetaZ10       = "z1_0"
	MetaZ20       = "z2_0"
	MetaOutput    = "output"
)

// Schema returns the Arrow schema of s.
func Schema(s Series) *arrow.Schema {
	p := s.Unit.Params()
	md := arrow.NewMetadata(
		[]string{MetaU, MetaV, MetaGamma, MetaPhi, MetaThreshold, MetaZ10, MetaZ20, MetaOutput},
		[]string{
			formatFloat(p.U),
			formatFloat(p.V),
			formatFloat(p.Gamma),
			formatFloat(p.Phi),
			formatFloat(p.Threshold),
			formatFloat(s.Z10),
			formatFloat(s.Z20),
			strconv.Itoa(s.Output()),
		},
	)
	return arrow.NewSchema([]arrow.Field{
		{Name: "t", Type: arrow.PrimitiveTypes.Float64},
		{Name: "z1", Type: arrow.PrimitiveTypes.Float64},
		{Name: "z2", Type: arrow.PrimitiveTypes.Float64},
	}, &md)
}

func writeArrow(w io.Writer, s Series) error {
	mem := memory.NewGoAllocator()
	schema := Schema(s)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	b.Field(0).(*array.Float64Builder).AppendValues(s.Trajectory.T, nil)
	b.Field(1).(*array.Float64Builder).AppendValues(s.Trajectory.Z1(), nil)
	b.Field(2).(*array.Float64Builder).AppendValues(s.Trajectory.Z2(), nil)

	rec := b.NewRecord()
	defer rec.Release()

	iw := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err := iw.Write(rec); err != nil {
		iw.Close()
		return fmt.Errorf("writing arrow record: %w", err)
	}
	if err := iw.Close(); err != nil {
		return fmt.Errorf("closing arrow stream: %w", err)
	}
	return nil
}
