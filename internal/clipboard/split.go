package clipboard

// SplitRunes splits text into chunks of at most size runes. A chunk ends
// at a sentence boundary (。、.,) within its last 50 runes when one exists.
// Joining the chunks yields text unchanged.
func SplitRunes(text string, size int) []string {
	runes := []rune(text)
	if size <= 0 || len(runes) <= size {
		if len(runes) == 0 {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			searchStart := end - 50
			if searchStart < start {
				searchStart = start
			}
			for i := end - 1; i >= searchStart; i-- {
				ch := runes[i]
				if ch == '。' || ch == '、' || ch == '.' || ch == ',' {
					end = i + 1
					break
				}
			}
		}

		chunks = append(chunks, string(runes[start:end]))
		start = end
	}
	return chunks
}
