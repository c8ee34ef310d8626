package parser

import (
	"math/rand"
	"time"

	"salesinsights/internal/dataset"
)

// SampleSourceName is the provenance recorded on the demo dataset.
const SampleSourceName = "sample"

// Sample builds the demo dataset: a fixed schema of 24 monthly sales
// records with randomized numeric content.
func Sample() *dataset.Dataset {
	return sampleAt(time.Now(), rand.New(rand.NewSource(time.Now().UnixNano())))
}

func sampleAt(now time.Time, rng *rand.Rand) *dataset.Dataset {
	const periods = 24

	columns := []dataset.Column{
		{Name: "Date", Kind: dataset.KindTime},
		{Name: "Category", Kind: dataset.KindText},
		{Name: "Branch", Kind: dataset.KindText},
		{Name: "Sales", Kind: dataset.KindNumber},
		{Name: "Quantity", Kind: dataset.KindNumber},
		{Name: "Profit", Kind: dataset.KindNumber},
	}

	categories := []string{"A", "B", "C"}
	branches := []string{"North", "South"}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	first := monthStart.AddDate(0, -(periods - 1), 0)

	rows := make([][]dataset.Cell, periods)
	for i := 0; i < periods; i++ {
		rows[i] = []dataset.Cell{
			dataset.Time(first.AddDate(0, i, 0)),
			dataset.Text(categories[i%len(categories)]),
			dataset.Text(branches[i%len(branches)]),
			dataset.Number(float64(100 + rng.Intn(900))),
			dataset.Number(float64(1 + rng.Intn(49))),
			dataset.Number(float64(-50 + rng.Intn(350))),
		}
	}

	ds, err := dataset.New(columns, rows, SampleSourceName)
	if err != nil {
		// The sample schema is static; construction cannot fail.
		panic(err)
	}
	return ds
}
