package cli

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property 1: Table columns line up
//
// For any rows of plain cells, every cell of a rendered row starts at the
// same offset as its header, and the separator spans all columns.
func TestProperty1_TableColumnsAlign(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("cells start at the header offset", prop.ForAll(
		func(a, b, c []string) bool {
			rows := len(a)
			if len(b) < rows {
				rows = len(b)
			}
			if len(c) < rows {
				rows = len(c)
			}

			var buf bytes.Buffer
			output := &Output{writer: &buf, format: FormatTable}
			headers := []string{"Exp", "Call Spread", "PoP%"}
			table := NewTable(output, headers...)
			for i := 0; i < rows; i++ {
				table.AddRow(a[i], b[i], c[i])
			}
			table.Render()

			widths := []int{len(headers[0]), len(headers[1]), len(headers[2])}
			for i := 0; i < rows; i++ {
				for j, cell := range []string{a[i], b[i], c[i]} {
					if len(cell) > widths[j] {
						widths[j] = len(cell)
					}
				}
			}
			offsets := []int{0, widths[0] + 2, widths[0] + widths[1] + 4}

			lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
			if len(lines) != rows+2 {
				t.Logf("expected %d lines, got %d", rows+2, len(lines))
				return false
			}
			if n := len([]rune(lines[1])); n != offsets[2]+widths[2] {
				t.Logf("separator width %d", n)
				return false
			}

			check := func(line string, cells []string) bool {
				padded := line + strings.Repeat(" ", offsets[2]+widths[2])
				for j, cell := range cells {
					if padded[offsets[j]:offsets[j]+len(cell)] != cell {
						return false
					}
				}
				return true
			}
			if !check(lines[0], headers) {
				return false
			}
			for i := 0; i < rows; i++ {
				if !check(lines[i+2], []string{a[i], b[i], c[i]}) {
					t.Logf("row %d misaligned: %q", i, lines[i+2])
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

// Property 2: Probability formatting round-trips to one decimal
//
// For any probability in [0, 1], FormatProbability prints a percentage
// with one decimal that parses back within half a tenth of a percent.
func TestProperty2_ProbabilityFormatting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("FormatProbability is a one-decimal percentage", prop.ForAll(
		func(p float64) bool {
			s := FormatProbability(p)
			if !strings.HasSuffix(s, "%") {
				return false
			}
			num := strings.TrimSuffix(s, "%")
			dot := strings.IndexByte(num, '.')
			if dot < 0 || len(num)-dot-1 != 1 {
				return false
			}
			v, err := strconv.ParseFloat(num, 64)
			if err != nil {
				return false
			}
			return v-p*100 <= 0.05+1e-9 && p*100-v <= 0.05+1e-9
		},
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}
