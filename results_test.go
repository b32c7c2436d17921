package indexer

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportMergeAccumulates(t *testing.T) {
	report := NewReport()
	id := CollectionID{DatabaseKey: "default", ClientCode: "acme", Role: RoleWrite, Collection: "Product"}

	report.Merge(Outcome{Target: id, Created: []string{"a"}})
	report.Merge(Outcome{Target: id, Created: []string{"b"}, Dropped: []string{"old"}})

	outcome, ok := report.Outcome(id)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, outcome.Created)
	assert.Equal(t, []string{"old"}, outcome.Dropped)
	assert.Equal(t, []string{"acme.default.write.Product"}, report.Keys())

	_, ok = report.Outcome(CollectionID{DatabaseKey: "core", Role: RoleWrite, Collection: "Product"})
	assert.False(t, ok)
}

func TestReportOutcomeIsACopy(t *testing.T) {
	report := NewReport()
	id := CollectionID{DatabaseKey: "core", Role: RoleWrite, Collection: "User"}
	report.Merge(Outcome{Target: id, Created: []string{"a"}})

	outcome, _ := report.Outcome(id)
	outcome.Created[0] = "changed"

	again, _ := report.Outcome(id)
	assert.Equal(t, []string{"a"}, again.Created)
}

func TestReportConcurrentMerge(t *testing.T) {
	report := NewReport()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			report.Merge(Outcome{
				Target:  CollectionID{DatabaseKey: "core", Role: RoleWrite, Collection: fmt.Sprintf("c%d", i%5)},
				Created: []string{fmt.Sprintf("idx%d", i)},
			})
		}(i)
	}
	wg.Wait()

	summary := report.Summary()
	assert.Equal(t, 50, summary.Targets)
	assert.Equal(t, 50, summary.Totals.Created)
	assert.Len(t, summary.Collections, 5)
	for _, outcome := range summary.Collections {
		assert.Len(t, outcome.Created, 10)
	}
}

func TestReportExportWithoutChanges(t *testing.T) {
	report := NewReport()

	assert.True(t, report.Empty())
	assert.Equal(t, NoChangesMessage, report.Export())
}

func TestReportExport(t *testing.T) {
	report := NewReport()
	report.Merge(Outcome{
		Target:  CollectionID{DatabaseKey: "core", Role: RoleWrite, Collection: "User"},
		Created: []string{"email"},
		Skipped: []string{"username"},
	})
	report.Merge(Outcome{
		Target:           CollectionID{DatabaseKey: "default", ClientCode: "acme", Role: RoleRead, Collection: "Product"},
		CollectionFailed: []string{"sku"},
		Errors:           []string{"not primary"},
	})

	export := report.Export()
	require.True(t, strings.HasPrefix(export, "Changes summary:\n"))

	var summary Summary
	require.NoError(t, sonic.UnmarshalString(strings.TrimPrefix(export, "Changes summary:\n"), &summary))

	assert.Equal(t, report.RunID, summary.RunID)
	assert.Equal(t, 2, summary.Targets)
	assert.Equal(t, Totals{Created: 1, Skipped: 1, CollectionFailed: 1}, summary.Totals)
	assert.Equal(t, []string{"email"}, summary.Collections["core.write.User"].Created)
	assert.Equal(t, []string{"not primary"}, summary.Collections["acme.default.read.Product"].Errors)
}

func TestOutcomeFailed(t *testing.T) {
	assert.False(t, Outcome{Created: []string{"a"}, Skipped: []string{"b"}}.Failed())
	assert.True(t, Outcome{CreateFailed: []string{"a"}}.Failed())
	assert.True(t, Outcome{DropFailed: []string{"a"}}.Failed())
	assert.True(t, Outcome{CollectionFailed: []string{"a"}}.Failed())
}

func TestCollectionIDString(t *testing.T) {
	assert.Equal(t, "core.write.User", CollectionID{DatabaseKey: "core", Role: RoleWrite, Collection: "User"}.String())
	assert.Equal(t, "acme.default.read.Product", CollectionID{DatabaseKey: "default", ClientCode: "acme", Role: RoleRead, Collection: "Product"}.String())
}
