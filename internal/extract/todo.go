package extract

import (
	"github.com/tidwall/gjson"

	"github.com/argus-dev/argus/internal/transcript"
)

// TodoStatus mirrors the three states a todo item can be in.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
)

// TodoItem is one entry of a TodoWrite call's todo list.
type TodoItem struct {
	Content    string
	Status     TodoStatus
	ActiveForm string
}

// TodoCounts summarizes a todo list by status.
type TodoCounts struct {
	Pending    int
	InProgress int
	Completed  int
}

// Todos implements §4.2.2: the most recent TodoWrite call wins in
// full — it is a snapshot, not a delta, so earlier TodoWrite calls
// are completely superseded rather than merged.
func Todos(entries []transcript.Entry) (items []TodoItem, counts TodoCounts, line int, ok bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Kind != transcript.KindAssistant {
			continue
		}
		for j := len(e.Blocks) - 1; j >= 0; j-- {
			b := e.Blocks[j]
			if b.Kind != transcript.BlockToolUse || b.ToolName != "TodoWrite" {
				continue
			}
			items, counts = parseTodos(b)
			return items, counts, e.Line, true
		}
	}
	return nil, TodoCounts{}, 0, false
}

func parseTodos(b transcript.Block) ([]TodoItem, TodoCounts) {
	input := toolInput(b)
	var items []TodoItem
	var counts TodoCounts
	input.Get("todos").ForEach(func(_, todo gjson.Result) bool {
		status := TodoStatus(todo.Get("status").Str)
		switch status {
		case TodoPending:
			counts.Pending++
		case TodoInProgress:
			counts.InProgress++
		case TodoCompleted:
			counts.Completed++
		}
		items = append(items, TodoItem{
			Content:    todo.Get("content").Str,
			Status:     status,
			ActiveForm: todo.Get("activeForm").Str,
		})
		return true
	})
	return items, counts
}
