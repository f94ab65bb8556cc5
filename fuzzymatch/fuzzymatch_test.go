package fuzzymatch_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/effective-security/agenthub/fuzzymatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SearchExact(t *testing.T) {
	t.Parallel()

	text := "The Quick  Brown Fox jumps over the lazy dog."
	matches, err := fuzzymatch.Search(text, "quick brown fox")
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	best := matches[0]
	assert.InDelta(t, 1.0, best.Score, 0.001)
	assert.Equal(t, "Quick  Brown Fox", best.Text)
	assert.Equal(t, text[best.Start:best.End], best.Text)
}

func Test_SearchFuzzy(t *testing.T) {
	t.Parallel()

	text := "Payment is due within thrity days of the invoice date."
	matches, err := fuzzymatch.Search(text, "within thirty days")
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	best := matches[0]
	assert.Greater(t, best.Score, 0.8)
	assert.Less(t, best.Score, 1.0)
	assert.Contains(t, best.Text, "thrity days")
}

func Test_SearchThreshold(t *testing.T) {
	t.Parallel()

	matches, err := fuzzymatch.Search("completely unrelated content", "quarterly revenue report",
		fuzzymatch.WithThreshold(0.8))
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = fuzzymatch.Search("text", "query", fuzzymatch.WithThreshold(1.5))
	assert.EqualError(t, err, "invalid threshold")
}

func Test_SearchMaxMatches(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("the target phrase is here. some filler text goes between. ", 4)
	matches, err := fuzzymatch.Search(text, "target phrase", fuzzymatch.WithMaxMatches(2))
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func Test_SearchEmptyQuery(t *testing.T) {
	t.Parallel()

	_, err := fuzzymatch.Search("text", "   ")
	assert.EqualError(t, err, "empty query")

	matches, err := fuzzymatch.Search("", "query")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

const bookXML = `<?xml version="1.0"?>
<book>
  <title>Systems Design</title>
  <chapter>
    <title>Caching Strategies</title>
    <para>Write-through caching keeps the cache consistent with storage.</para>
    <para>Eviction uses a least recently used policy.</para>
  </chapter>
</book>`

func Test_ExtractXML(t *testing.T) {
	t.Parallel()

	nodes, err := fuzzymatch.ExtractXML(strings.NewReader(bookXML))
	require.NoError(t, err)
	require.Len(t, nodes, 4)

	assert.Equal(t, "/book/title", nodes[0].Path)
	assert.Equal(t, "Systems Design", nodes[0].Text)
	assert.Equal(t, "/book/chapter/title", nodes[1].Path)
	assert.Equal(t, "/book/chapter/para", nodes[2].Path)
	assert.Equal(t, "Write-through caching keeps the cache consistent with storage.", nodes[2].Text)
	assert.Equal(t, "/book/chapter/para", nodes[3].Path)
	assert.Equal(t, "Eviction uses a least recently used policy.", nodes[3].Text)
}

func Test_ExtractXMLInvalid(t *testing.T) {
	t.Parallel()

	_, err := fuzzymatch.ExtractXML(strings.NewReader("<a><b></a>"))
	require.Error(t, err)
}

func Test_SearchXML(t *testing.T) {
	t.Parallel()

	matches, err := fuzzymatch.SearchXML(strings.NewReader(bookXML), "least recently used policy")
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	best := matches[0]
	assert.Equal(t, "/book/chapter/para", best.Path)
	assert.Contains(t, best.Text, "least recently used policy")
}

func Test_ExtractPDFMissing(t *testing.T) {
	t.Parallel()

	_, err := fuzzymatch.ExtractPDF("testdata/does-not-exist.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open pdf")
}

func Test_ExtractPDFReaderInvalid(t *testing.T) {
	t.Parallel()

	data := []byte("not a pdf document")
	_, err := fuzzymatch.ExtractPDFReader(bytes.NewReader(data), int64(len(data)))
	require.Error(t, err)
}
