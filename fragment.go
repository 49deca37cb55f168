package codedoc

// FragmentWindow describes one sliding window produced by Fragment.
type FragmentWindow struct {
	Text      string
	StartByte int
	EndByte   int
}

// Fragment splits content into sliding windows of at most windowSize bytes,
// breaking on line boundaries where possible, with consecutive windows
// overlapping by roughly overlap bytes of trailing context. Every byte of
// content is covered by at least one window.
//
// A single line longer than windowSize becomes its own window rather than
// being split mid-line. When overlap >= windowSize the overlap is ignored
// (windows would never advance otherwise).
func Fragment(content string, windowSize, overlap int) []FragmentWindow {
	if content == "" {
		return nil
	}
	if windowSize <= 0 {
		return []FragmentWindow{{Text: content, StartByte: 0, EndByte: len(content)}}
	}
	if overlap >= windowSize {
		overlap = 0
	}

	lines := splitAfterLines(content)

	var windows []FragmentWindow
	start := 0 // byte offset of the first line in the current window
	cur := 0   // byte length accumulated in the current window
	offset := 0

	flush := func(end int) {
		windows = append(windows, FragmentWindow{
			Text:      content[start:end],
			StartByte: start,
			EndByte:   end,
		})
	}

	for _, line := range lines {
		if cur > 0 && cur+len(line) > windowSize {
			flush(offset)
			// Back up so the next window repeats the last overlap bytes,
			// aligned to the start of a line.
			start = overlapStart(content, offset, overlap)
			cur = offset - start
		}
		cur += len(line)
		offset += len(line)
	}
	if cur > 0 {
		flush(offset)
	}
	return windows
}

// splitAfterLines splits s after each newline, keeping the newline attached.
func splitAfterLines(s string) []string {
	var lines []string
	begin := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[begin:i+1])
			begin = i + 1
		}
	}
	if begin < len(s) {
		lines = append(lines, s[begin:])
	}
	return lines
}

// overlapStart returns the byte offset of the first line boundary at or after
// end-overlap, so that overlapping windows still start on whole lines.
func overlapStart(content string, end, overlap int) int {
	if overlap <= 0 {
		return end
	}
	pos := end - overlap
	if pos <= 0 {
		return 0
	}
	for pos < end && content[pos-1] != '\n' {
		pos++
	}
	return pos
}
