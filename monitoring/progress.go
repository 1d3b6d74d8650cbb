package monitoring

import (
	"sync"
	"time"

	"github.com/sarchlab/desim/sim/id"
)

var progressBarIDs = id.NewSequentialGenerator()

// A ProgressBar is a tracker of the progress.
type ProgressBar struct {
	sync.Mutex
	ID        string
	Name      string
	StartTime time.Time
	Total     uint64
	Finished  uint64
}

type progressBarRsp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
	Percent   float64   `json:"percent"`
}

func newProgressBar(name string, total uint64) *ProgressBar {
	return &ProgressBar{
		ID:        progressBarIDs.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}
}

// IncrementFinished adds a certain amount to the finished elements.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// Set sets the number of finished elements.
func (b *ProgressBar) Set(finished uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished = finished
}

// Percent returns the finished share, between 0 and 100.
func (b *ProgressBar) Percent() float64 {
	b.Lock()
	defer b.Unlock()

	return b.percentLocked()
}

func (b *ProgressBar) percentLocked() float64 {
	if b.Total == 0 {
		return 100
	}

	p := float64(b.Finished) / float64(b.Total) * 100
	if p > 100 {
		return 100
	}

	return p
}

func (b *ProgressBar) snapshot() progressBarRsp {
	b.Lock()
	defer b.Unlock()

	return progressBarRsp{
		ID:        b.ID,
		Name:      b.Name,
		StartTime: b.StartTime,
		Total:     b.Total,
		Finished:  b.Finished,
		Percent:   b.percentLocked(),
	}
}
