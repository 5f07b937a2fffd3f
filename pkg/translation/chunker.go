package translation

// Chunk 按顺序把 texts 切成最多 size 条的分块，size <= 0 时使用默认值
func Chunk(texts []string, size int) [][]string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if len(texts) == 0 {
		return nil
	}

	chunks := make([][]string, 0, (len(texts)+size-1)/size)
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		chunks = append(chunks, texts[start:end:end])
	}
	return chunks
}
