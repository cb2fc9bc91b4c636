package growth

import "sync"

// WHO Child Growth Standards (2006), birth to 24 months, monthly.
// Weight spread is the distance from the median to the -1 SD line of the
// weight-for-age tables; length spread is the published SD for length-for-age.
var (
	whoBoysWeightMedian = []float64{
		3.3, 4.5, 5.6, 6.4, 7.0, 7.5, 7.9, 8.3, 8.6, 8.9, 9.2, 9.4, 9.6,
		9.9, 10.1, 10.3, 10.5, 10.7, 10.9, 11.1, 11.3, 11.5, 11.8, 12.0, 12.2,
	}
	whoBoysWeightMinus1SD = []float64{
		2.9, 3.9, 4.9, 5.7, 6.2, 6.7, 7.1, 7.4, 7.7, 8.0, 8.2, 8.4, 8.6,
		8.8, 9.0, 9.2, 9.4, 9.6, 9.8, 10.0, 10.1, 10.3, 10.5, 10.7, 10.8,
	}
	whoGirlsWeightMedian = []float64{
		3.2, 4.2, 5.1, 5.8, 6.4, 6.9, 7.3, 7.6, 7.9, 8.2, 8.5, 8.7, 8.9,
		9.2, 9.4, 9.6, 9.8, 10.0, 10.2, 10.4, 10.6, 10.9, 11.1, 11.3, 11.5,
	}
	whoGirlsWeightMinus1SD = []float64{
		2.8, 3.6, 4.5, 5.2, 5.7, 6.1, 6.5, 6.8, 7.0, 7.3, 7.5, 7.7, 7.9,
		8.1, 8.3, 8.5, 8.7, 8.9, 9.1, 9.2, 9.4, 9.6, 9.8, 10.0, 10.2,
	}
	whoBoysLengthMedian = []float64{
		49.9, 54.7, 58.4, 61.4, 63.9, 65.9, 67.6, 69.2, 70.6, 72.0, 73.3, 74.5, 75.7,
		76.9, 78.0, 79.1, 80.2, 81.2, 82.3, 83.2, 84.2, 85.1, 86.0, 86.9, 87.8,
	}
	whoBoysLengthSD = []float64{
		1.8931, 1.9465, 2.0005, 2.0444, 2.0808, 2.1115, 2.1403, 2.1711, 2.2015, 2.2329, 2.2670, 2.3017, 2.3370,
		2.3725, 2.4079, 2.4432, 2.4781, 2.5126, 2.5468, 2.5806, 2.6141, 2.6472, 2.6799, 2.7122, 2.7442,
	}
	whoGirlsLengthMedian = []float64{
		49.1, 53.7, 57.1, 59.8, 62.1, 64.0, 65.7, 67.3, 68.7, 70.1, 71.5, 72.8, 74.0,
		75.2, 76.4, 77.5, 78.6, 79.7, 80.7, 81.7, 82.7, 83.7, 84.6, 85.5, 86.4,
	}
	whoGirlsLengthSD = []float64{
		1.8627, 1.9542, 2.0362, 2.1051, 2.1645, 2.2174, 2.2664, 2.3130, 2.3598, 2.4059, 2.4533, 2.5019, 2.5514,
		2.6019, 2.6527, 2.7039, 2.7558, 2.8074, 2.8584, 2.9092, 2.9596, 3.0096, 3.0590, 3.1080, 3.1565,
	}
)

// WHO2006Version labels assessments scored against the embedded WHO table.
const WHO2006Version = "who-2006"

var (
	whoOnce  sync.Once
	whoTable *SliceTable
)

// WHO2006Table returns the embedded WHO 2006 table (0-24 months, per sex).
// Unknown sex uses the mean of the boys and girls entries.
func WHO2006Table() *SliceTable {
	whoOnce.Do(func() {
		whoTable = MustSliceTable(WHO2006Version, map[Sex][]StandardEntry{
			SexMale:   whoEntries(whoBoysWeightMedian, whoBoysWeightMinus1SD, whoBoysLengthMedian, whoBoysLengthSD),
			SexFemale: whoEntries(whoGirlsWeightMedian, whoGirlsWeightMinus1SD, whoGirlsLengthMedian, whoGirlsLengthSD),
		})
	})
	return whoTable
}

func whoEntries(wMedian, wMinus1, hMedian, hSD []float64) []StandardEntry {
	entries := make([]StandardEntry, len(wMedian))
	for age := range wMedian {
		entries[age] = StandardEntry{
			AgeMonths:      age,
			WeightMedianKg: wMedian[age],
			WeightSpreadKg: wMedian[age] - wMinus1[age],
			HeightMedianCm: hMedian[age],
			HeightSpreadCm: hSD[age],
		}
	}
	return entries
}
