package indexer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// NoChangesMessage is the summary of a run that reconciled nothing
const NoChangesMessage = "No changes were made."

// Outcome is the result of reconciling one target. Every list holds index names.
type Outcome struct {
	Target           CollectionID `json:"-"`
	Created          []string     `json:"created,omitempty"`
	CreateFailed     []string     `json:"createFailed,omitempty"`
	Dropped          []string     `json:"dropped,omitempty"`
	DropFailed       []string     `json:"dropFailed,omitempty"`
	Skipped          []string     `json:"skipped,omitempty"`
	CollectionFailed []string     `json:"collectionFailed,omitempty"`
	Errors           []string     `json:"errors,omitempty"`
}

// Failed reports whether any operation on the target failed
func (o Outcome) Failed() bool {
	return len(o.CreateFailed) > 0 || len(o.DropFailed) > 0 || len(o.CollectionFailed) > 0 || len(o.Errors) > 0
}

func (o *Outcome) merge(other Outcome) {
	o.Created = append(o.Created, other.Created...)
	o.CreateFailed = append(o.CreateFailed, other.CreateFailed...)
	o.Dropped = append(o.Dropped, other.Dropped...)
	o.DropFailed = append(o.DropFailed, other.DropFailed...)
	o.Skipped = append(o.Skipped, other.Skipped...)
	o.CollectionFailed = append(o.CollectionFailed, other.CollectionFailed...)
	o.Errors = append(o.Errors, other.Errors...)
}

func (o Outcome) clone() Outcome {
	clone := Outcome{Target: o.Target}
	clone.merge(o)
	return clone
}

// Totals counts index names per result type over a whole run
type Totals struct {
	Created          int `json:"created"`
	CreateFailed     int `json:"createFailed"`
	Dropped          int `json:"dropped"`
	DropFailed       int `json:"dropFailed"`
	Skipped          int `json:"skipped"`
	CollectionFailed int `json:"collectionFailed"`
}

func (t *Totals) add(o Outcome) {
	t.Created += len(o.Created)
	t.CreateFailed += len(o.CreateFailed)
	t.Dropped += len(o.Dropped)
	t.DropFailed += len(o.DropFailed)
	t.Skipped += len(o.Skipped)
	t.CollectionFailed += len(o.CollectionFailed)
}

// Summary is the exported form of a report
type Summary struct {
	RunID       string             `json:"runId"`
	Targets     int                `json:"targets"`
	Totals      Totals             `json:"totals"`
	Collections map[string]Outcome `json:"collections"`
}

// Report accumulates the outcomes of one run. Merge is safe for concurrent use.
type Report struct {
	RunID string

	mu          sync.Mutex
	collections map[string]*Outcome
	merged      int
}

func NewReport() *Report {
	return &Report{
		RunID:       uuid.NewString(),
		collections: make(map[string]*Outcome),
	}
}

// Merge adds an outcome to the report. Outcomes of the same collection accumulate.
func (r *Report) Merge(outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := outcome.Target.String()
	current, ok := r.collections[key]
	if !ok {
		current = &Outcome{Target: outcome.Target}
		r.collections[key] = current
	}

	current.merge(outcome)
	r.merged++
}

// Outcome returns a copy of the accumulated outcome of a collection
func (r *Report) Outcome(id CollectionID) (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	outcome, ok := r.collections[id.String()]
	if !ok {
		return Outcome{}, false
	}
	return outcome.clone(), true
}

// Keys returns the sorted collection keys of the report
func (r *Report) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.collections))
	for key := range r.collections {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Empty reports whether nothing was merged
func (r *Report) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.merged == 0
}

// Summary returns a snapshot of the report
func (r *Report) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	summary := Summary{
		RunID:       r.RunID,
		Targets:     r.merged,
		Collections: make(map[string]Outcome, len(r.collections)),
	}

	for key, outcome := range r.collections {
		summary.Totals.add(*outcome)
		summary.Collections[key] = outcome.clone()
	}

	return summary
}

// Export renders the report as a human readable summary
func (r *Report) Export() string {
	if r.Empty() {
		return NoChangesMessage
	}

	data, err := sonic.ConfigStd.MarshalIndent(r.Summary(), "", "  ")
	if err != nil {
		return fmt.Sprintf("Changes summary unavailable: %v", err)
	}

	return "Changes summary:\n" + string(data)
}
