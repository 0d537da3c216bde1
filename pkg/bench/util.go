package bench

import (
	"fmt"
	"io"
	"time"

	"gonum.org/v1/gonum/stat"
)

// A helper object for timing events, the timer can be reused multiple times
// in order to derive averages or other statistics (Record() saves the
// current measurement and begins a new measurement).
type PerfTimer struct {
	Vals  []float64 // the stats module wants float64
	cur   time.Duration
	start time.Time
}

// Begin (or resume) the timer
func (self *PerfTimer) Start() {
	self.start = time.Now()
}

// Stop (or pause) the timer
func (self *PerfTimer) Stop() {
	self.cur += time.Since(self.start)
}

// Finalize the timer, adding it as a new datapoint and resetting the timer
// to 0.
func (self *PerfTimer) Record() {
	self.Stop()
	self.Vals = append(self.Vals, (float64)(self.cur))
	self.cur = 0
}

// Add the recorded values from other to the current object. Does not modify
// other.
func (self *PerfTimer) Update(other *PerfTimer) {
	self.Vals = append(self.Vals, other.Vals...)
}

// Collects statistics about a sort. Not all fields are applicable (or
// measurable) for all engine types.
type SortStats map[string]*PerfTimer

func ReportStats(stats SortStats, writer io.Writer) {
	for name, timer := range stats {
		mean, stdev := stat.MeanStdDev(timer.Vals, nil)
		fmt.Fprintf(writer, "%v (mean):\t%vs\n", name, mean/1e9)
		fmt.Fprintf(writer, "%v (std):\t%vs\n", name, stdev/1e9)
	}
}
