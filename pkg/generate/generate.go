// pkg/generate/generate.go
package generate

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/care-data/facility-audit/pkg/dataset"
	"github.com/care-data/facility-audit/pkg/model"
)

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
const lettersAndDigits = letters + "0123456789"
const specials = "!@#$%^&*"

// Generator corrupts a clean dataset so detection and correction can be
// benchmarked against a known ground truth. The same seed always produces
// the same corrupted dataset.
type Generator struct {
	rate   float64
	rng    *rand.Rand
	logger *zap.Logger
}

// NewGenerator creates a Generator that corrupts the given fraction of
// rows.
func NewGenerator(rate float64, seed int64, logger *zap.Logger) *Generator {
	return &Generator{
		rate:   rate,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger,
	}
}

// Apply returns a corrupted copy of the dataset and the 1-based numbers of
// the rows that were modified. Each chosen row gets errors in a random
// subset of its columns.
func (g *Generator) Apply(ds *dataset.Dataset) (*dataset.Dataset, []int) {
	corrupted := ds.Clone()

	injectors := g.injectors()
	fields := make([]string, 0, len(injectors))
	for field := range injectors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	rowsToModify := int(float64(len(ds.Rows)) * g.rate)
	indices := g.rng.Perm(len(ds.Rows))[:rowsToModify]
	sort.Ints(indices)

	modified := make([]int, 0, rowsToModify)
	for _, idx := range indices {
		row := corrupted.Rows[idx]

		count := 1 + g.rng.Intn(len(fields))
		order := g.rng.Perm(len(fields))
		for _, fi := range order[:count] {
			field := fields[fi]
			if _, ok := row[field]; !ok {
				continue
			}
			row[field] = injectors[field](row[field])
		}
		modified = append(modified, idx+1)
	}

	g.logger.Info("Introduced synthetic errors",
		zap.Int("totalRows", len(ds.Rows)),
		zap.Int("rowsModified", len(modified)),
		zap.Float64("errorRate", g.rate))

	return corrupted, modified
}

func (g *Generator) injectors() map[string]func(string) string {
	return map[string]func(string) string{
		model.FieldFacilityName: g.facilityNameError,
		model.FieldAddress:      g.addressError,
		model.FieldCity:         g.cityError,
		model.FieldState:        g.stateError,
		model.FieldZIP:          g.zipError,
		model.FieldCounty:       g.countyError,
		model.FieldPhone:        g.phoneError,
		model.FieldCondition:    g.conditionError,
		model.FieldMeasureID:    g.measureIDError,
		model.FieldMeasureName:  g.measureNameError,
		model.FieldScore:        g.scoreError,
		model.FieldSample:       g.sampleError,
		model.FieldFootnote:     g.footnoteError,
		model.FieldStartDate:    g.dateError,
		model.FieldEndDate:      g.dateError,
	}
}

func (g *Generator) pick(variants ...func(string) string) func(string) string {
	return variants[g.rng.Intn(len(variants))]
}

func (g *Generator) randomString(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		b.WriteByte(lettersAndDigits[g.rng.Intn(len(lettersAndDigits))])
	}
	return b.String()
}

func (g *Generator) introduceTypo(text string) string {
	if text == "" {
		return text
	}
	runes := []rune(text)
	pos := g.rng.Intn(len(runes))
	runes[pos] = rune(letters[g.rng.Intn(len(letters))])
	return string(runes)
}

func (g *Generator) special() string {
	return string(specials[g.rng.Intn(len(specials))])
}

func (g *Generator) facilityNameError(value string) string {
	return g.pick(
		g.introduceTypo,
		func(s string) string { return s + g.special() },
		func(string) string { return "" },
	)(value)
}

func (g *Generator) addressError(value string) string {
	return g.pick(
		g.introduceTypo,
		func(string) string { return g.randomString(30) },
		func(s string) string { return s + g.special() },
		func(string) string { return "" },
	)(value)
}

func (g *Generator) cityError(value string) string {
	fakes := []string{"NewCity", "OtherTown", "SomePlace"}
	return g.pick(
		g.introduceTypo,
		func(s string) string { return s + "%" },
		func(string) string { return fakes[g.rng.Intn(len(fakes))] },
		func(string) string { return "" },
	)(value)
}

func (g *Generator) stateError(value string) string {
	return g.pick(
		func(string) string { return "XY" },
		strings.ToLower,
		func(string) string {
			return string('A'+rune(g.rng.Intn(26))) + string('A'+rune(g.rng.Intn(26)))
		},
		func(string) string { return "" },
	)(value)
}

func (g *Generator) zipError(value string) string {
	return g.pick(
		func(string) string { return fmt.Sprintf("%dX", 10000+g.rng.Intn(90000)) },
		func(string) string { return fmt.Sprintf("%d-%d", 10000+g.rng.Intn(90000), 1000+g.rng.Intn(9000)) },
		func(string) string { return fmt.Sprintf("%d", 100000000+g.rng.Intn(900000000)) },
		func(string) string { return "" },
	)(value)
}

func (g *Generator) countyError(value string) string {
	return g.pick(
		g.introduceTypo,
		func(s string) string { return fmt.Sprintf("%s%d", s, 1+g.rng.Intn(99)) },
		func(string) string { return "" },
	)(value)
}

func (g *Generator) phoneError(value string) string {
	return g.pick(
		func(string) string {
			return fmt.Sprintf("%d%d%d", 100+g.rng.Intn(900), 100+g.rng.Intn(900), 1000+g.rng.Intn(9000))
		},
		func(string) string { return fmt.Sprintf("ABC%d", 10000000+g.rng.Intn(90000000)) },
		func(string) string { return "" },
	)(value)
}

func (g *Generator) conditionError(value string) string {
	return g.pick(
		g.introduceTypo,
		func(s string) string { return fmt.Sprintf("%s%d", s, g.rng.Intn(10)) },
		func(string) string { return "" },
	)(value)
}

func (g *Generator) measureIDError(value string) string {
	return g.pick(
		func(s string) string { return strings.ReplaceAll(s, "_", "-") },
		func(s string) string { return s + "#" },
		strings.ToLower,
		func(string) string { return "" },
		func(s string) string { return s + "!" },
	)(value)
}

func (g *Generator) measureNameError(value string) string {
	return g.pick(
		g.introduceTypo,
		func(s string) string { return s + g.special() },
		func(string) string { return "" },
	)(value)
}

func (g *Generator) scoreError(value string) string {
	words := []string{"high", "low", "medium"}
	return g.pick(
		func(string) string { return words[g.rng.Intn(len(words))] },
		func(string) string { return fmt.Sprintf("%d", -(1 + g.rng.Intn(100))) },
		func(string) string { return fmt.Sprintf("%d%%", g.rng.Intn(101)) },
		func(string) string { return "" },
		func(string) string { return fmt.Sprintf("Score: %d", g.rng.Intn(101)) },
	)(value)
}

func (g *Generator) sampleError(value string) string {
	return g.pick(
		func(string) string { return fmt.Sprintf("%d", -(1 + g.rng.Intn(1000))) },
		func(string) string { return "Not Available" },
		func(string) string { return fmt.Sprintf("%d", 1000000+g.rng.Intn(9000000)) },
		func(string) string {
			n := 1000 + g.rng.Intn(9000)
			return fmt.Sprintf("%d,%03d", n/1000, n%1000)
		},
		func(string) string { return "" },
	)(value)
}

func (g *Generator) footnoteError(value string) string {
	return g.pick(
		func(string) string { return string('A' + rune(g.rng.Intn(26))) },
		func(string) string { return fmt.Sprintf("%d", 100+g.rng.Intn(900)) },
		func(string) string { return "1,1,2" },
		func(string) string { return "" },
		func(string) string {
			return fmt.Sprintf("%d %d %d", 1+g.rng.Intn(9), 1+g.rng.Intn(9), 1+g.rng.Intn(9))
		},
	)(value)
}

func (g *Generator) dateError(value string) string {
	parsed, err := time.Parse("01/02/2006", value)
	if err != nil {
		parsed = time.Now()
	}
	return g.pick(
		func(string) string { return parsed.Format("2006/02/01") },
		func(string) string {
			days := 365*10 + g.rng.Intn(365*10)
			return time.Now().AddDate(0, 0, days).Format("2006-01-02")
		},
		func(string) string { return "Invalid Date" },
		func(string) string { return "" },
	)(value)
}
