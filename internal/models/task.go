package models

// Task is a unit of work with a self-reported effort estimate measured in
// Focus intervals.
type Task struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Estimate int    `json:"estimate"`
	Done     bool   `json:"done"`
}

// TotalEstimate sums the estimates of all tasks, done or not.
func TotalEstimate(tasks []Task) int {
	total := 0
	for _, t := range tasks {
		if t.Estimate > 0 {
			total += t.Estimate
		}
	}
	return total
}
