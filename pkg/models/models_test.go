package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInventoryDedup(t *testing.T) {
	inv := NewInventory()

	assert.True(t, inv.Add(NewItem("Todo App", "/@u/Todo-App")))
	assert.False(t, inv.Add(NewItem("todo-app", "/@u/todo-app")))
	assert.True(t, inv.Add(NewItem("Chat", "/@u/Chat")))
	assert.False(t, inv.Add(NewItem("!!!", "/@u/x")))

	assert.Equal(t, 2, inv.Len())
	assert.True(t, inv.Contains("todoapp"))

	first, ok := inv.Get("todoapp")
	assert.True(t, ok)
	assert.Equal(t, "/@u/Todo-App", first.NavigationTarget)

	items := inv.Items()
	assert.Equal(t, "Todo App", items[0].DisplayName)
	assert.Equal(t, "Chat", items[1].DisplayName)
}

func TestInventoryItemsIsCopy(t *testing.T) {
	inv := NewInventory()
	inv.Add(NewItem("A", "/a"))

	items := inv.Items()
	items[0].DisplayName = "changed"
	assert.Equal(t, "A", inv.Items()[0].DisplayName)
}

func TestFetchReportCounts(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	r := &FetchReport{RunID: "r1", StartedAt: start}

	r.Record(FetchAttempt{Item: NewItem("a", ""), Outcome: OutcomeSuccess})
	r.Record(FetchAttempt{Item: NewItem("b", ""), Outcome: OutcomeFailure, RetryCount: 2, FaultReason: "export missing"})
	r.Record(FetchAttempt{Item: NewItem("c", ""), Outcome: OutcomeSkipped})
	r.Record(FetchAttempt{Item: NewItem("d", ""), Outcome: OutcomeSuccess})

	assert.Equal(t, 2, r.Succeeded())
	assert.Equal(t, 1, r.Failed())
	assert.Equal(t, 1, r.Skipped())
	assert.Equal(t, "b", r.Failures()[0].Item.DisplayName)

	assert.Zero(t, r.Elapsed())
	r.FinishedAt = start.Add(90 * time.Second)
	assert.Equal(t, 90*time.Second, r.Elapsed())
}
