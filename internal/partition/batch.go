package partition

// Batches groups partition ids into chunks of at most parallel entries.
// The external driver dispatches one chunk at a time; this core never runs
// the work concurrently itself.
func Batches(ids []string, parallel int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	if parallel <= 0 {
		parallel = 1
	}
	var out [][]string
	for start := 0; start < len(ids); start += parallel {
		end := start + parallel
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, append([]string{}, ids[start:end]...))
	}
	return out
}
