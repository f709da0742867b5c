package cohort

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuotedIDList(t *testing.T) {
	assert.Equal(t, "'a', 'b'", QuotedIDList([]string{"a", "b"}))
	assert.Equal(t, "'a'", QuotedIDList([]string{"a", ""}))
	assert.Equal(t, "", QuotedIDList(nil))
	assert.Equal(t, "", QuotedIDList([]string{}))
}

func TestQuotedIDList_EscapesQuotes(t *testing.T) {
	list := QuotedIDList([]string{"O'Brien"})
	assert.Equal(t, "'O''Brien'", list)
}
