package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"knowledge-qa-api/internal/application/pipeline"
)

func TestBuildPromptContext(t *testing.T) {
	chunks := []pipeline.RetrievedChunk{
		{ID: "c1", Text: "IBM Watson is a question-answering system.\nIt was built by IBM."},
		{ID: "c2", Text: "  Watson competed   on Jeopardy. "},
		{ID: "c3", Text: "   "},
	}

	got := BuildPromptContext(chunks, 10, 400)

	lines := strings.Split(got, "\n")
	assert.Len(t, lines, 2)
	// 多行压成单行并编号
	assert.Equal(t, "[1] IBM Watson is a question-answering system. It was built by IBM.", lines[0])
	assert.Equal(t, "[2] Watson competed on Jeopardy.", lines[1])
}

func TestBuildPromptContextEmpty(t *testing.T) {
	assert.Empty(t, BuildPromptContext(nil, 10, 400))
	assert.Empty(t, BuildPromptContext([]pipeline.RetrievedChunk{}, 10, 400))
}

func TestBuildPromptContextCapsChunks(t *testing.T) {
	chunks := make([]pipeline.RetrievedChunk, 5)
	for i := range chunks {
		chunks[i] = pipeline.RetrievedChunk{Text: "some passage"}
	}

	got := BuildPromptContext(chunks, 2, 400)
	assert.Len(t, strings.Split(got, "\n"), 2)
}

func TestBuildPromptContextTruncatesLongChunks(t *testing.T) {
	chunks := []pipeline.RetrievedChunk{{Text: strings.Repeat("长", 500)}}

	got := BuildPromptContext(chunks, 10, 100)

	assert.True(t, strings.HasSuffix(got, "…"))
	// 前缀 "[1] " + 100 个 rune + 省略号
	assert.LessOrEqual(t, len([]rune(got)), 4+100+1)
}
