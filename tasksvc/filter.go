package tasksvc

const (
	FilterAll       = "All"
	FilterCompleted = "Completed"
	FilterPending   = "Pending"
)

// Filter keeps the tasks matching both criteria, in input order.
// An empty or "All" priority matches every task; completed is "Completed",
// "Pending" or anything else for no completion filter.
func Filter(tasks []Task, priority, completed string) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if priority != "" && priority != FilterAll && string(t.Priority) != priority {
			continue
		}
		if completed == FilterCompleted && !t.Completed {
			continue
		}
		if completed == FilterPending && t.Completed {
			continue
		}
		out = append(out, t)
	}
	return out
}
