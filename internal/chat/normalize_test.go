package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeWords(t *testing.T) {
	assert.Equal(t, "what are your office hours", NormalizeWords("  What are your   OFFICE hours?! "))
	assert.Equal(t, "it s 9 00", NormalizeWords("It's 9:00"))
	assert.Equal(t, "", NormalizeWords("?!..."))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"can", "book", "cleaning"}, Tokenize("Can I book a cleaning?"))
	assert.Empty(t, Tokenize("a is ok"))
	assert.Empty(t, Tokenize(""))

	long := "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen"
	tokens := Tokenize(long)
	assert.Len(t, tokens, 16)
	assert.Equal(t, "sixteen", tokens[15])
}

func TestQueryMatchTerms(t *testing.T) {
	q := NewQuery("What is wrong with my tooth? Could it need surgery")
	assert.True(t, q.Has("surgery"))
	assert.False(t, q.Has("is"))
	assert.ElementsMatch(t, []string{"what is wrong", "surgery"}, q.matchTerms(medicalAdviceKeywords))
	assert.Equal(t, "What is wrong with my tooth? Could it need surgery", q.Raw())
}
