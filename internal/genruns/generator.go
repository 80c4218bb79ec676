package genruns

import (
	"context"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nayef/paceline/internal/adapters/ingest"
	"github.com/nayef/paceline/pkg/logger"
)

// Baseline generation ranges for synthetic categories.
const (
	firstTimeMinSeconds = 600.0
	firstTimeMaxSeconds = 7200.0
	asymptoteMinFrac    = 0.3
	asymptoteMaxFrac    = 0.7
	decayMin            = 0.002
	decayMax            = 0.02
	spanDaysMin         = 180
	spanDaysMax         = 2000
	noiseFrac           = 0.01
	daysPerYear         = 365
)

// Curve shape cases.
const (
	caseExponentialDecay = 0
	casePowerDecay       = 1
	caseHyperbolicDecay  = 2
	shapeCount           = 3
)

// Category is one synthetic category's worth of raw runs.
type Category struct {
	Game     string          `json:"game"`
	Category string          `json:"category"`
	Runs     []ingest.RawRun `json:"runs"`
}

// generateCategories creates synthetic categories whose record progressions
// follow a learning-curve shape with mild noise.
func generateCategories(ctx context.Context, config *Config, stats *Stats) []Category {
	logger.Get().Info(ctx, "generating synthetic categories",
		logger.Int("categories", config.NumCategories),
		logger.Int("runsPerCategory", config.RunsPerCat))

	cats := make([]Category, config.NumCategories)
	for i := range cats {
		cats[i] = generateSingleCategory(i, config.RunsPerCat)
		stats.RunsGenerated += len(cats[i].Runs)
	}
	stats.CategoriesGenerated = len(cats)
	return cats
}

// generateSingleCategory builds one category: times decay from a first
// record toward an asymptote along a randomly chosen curve shape, sampled
// at increasing dates. Only some samples set a new record; the rest sit
// above the current best, exercising the extraction path.
func generateSingleCategory(index, numRuns int) Category {
	shape := rand.Intn(shapeCount)
	first := firstTimeMinSeconds + rand.Float64()*(firstTimeMaxSeconds-firstTimeMinSeconds)
	floor := first * (asymptoteMinFrac + rand.Float64()*(asymptoteMaxFrac-asymptoteMinFrac))
	decay := decayMin + rand.Float64()*(decayMax-decayMin)
	spanDays := spanDaysMin + rand.Intn(spanDaysMax-spanDaysMin)

	start := time.Now().AddDate(-spanDays/daysPerYear-1, 0, 0)
	runs := make([]ingest.RawRun, 0, numRuns)
	for i := 0; i < numRuns; i++ {
		t := float64(i) / float64(numRuns-1) * float64(spanDays)
		ideal := idealTime(shape, first, floor, decay, t)
		noise := 1 + (rand.Float64()*2-1)*noiseFrac
		seconds := ideal * noise

		date := start.AddDate(0, 0, int(t))
		runs = append(runs, ingest.RawRun{
			ID:   uuid.NewString(),
			Date: date.Format("2006-01-02"),
			Times: ingest.RawTime{
				PrimaryT: seconds,
			},
		})
	}

	return Category{
		Game:     "Synthetic Game " + strconv.Itoa(index/4+1),
		Category: "Category " + strconv.Itoa(index%4+1),
		Runs:     runs,
	}
}

// idealTime evaluates the chosen decay shape at elapsed day t.
func idealTime(shape int, first, floor, decay, t float64) float64 {
	amplitude := first - floor
	switch shape {
	case caseExponentialDecay:
		return amplitude*math.Exp(-decay*t) + floor
	case casePowerDecay:
		return amplitude*math.Pow(t+1, -decay*20) + floor
	case caseHyperbolicDecay:
		return amplitude/(1+decay*t) + floor
	default:
		return amplitude*math.Exp(-decay*t) + floor
	}
}
