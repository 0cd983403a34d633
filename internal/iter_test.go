package internal

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIterSeq2Concat(t *testing.T) {
	assert := assert.New(t)

	a := maps.All(map[string]int{"one": 1})
	b := maps.All(map[string]int{"two": 2})
	c := maps.All(map[string]int{"one": 3})

	var keys []string
	var values []int
	for key, value := range IterSeq2Concat(a, b, c) {
		keys = append(keys, key)
		values = append(values, value)
	}

	assert.Equal([]string{"one", "two", "one"}, keys)
	assert.Equal([]int{1, 2, 3}, values)
}

func TestIterSeq2Concat_EarlyStop(t *testing.T) {
	assert := assert.New(t)

	a := maps.All(map[string]string{"A": "1"})
	b := maps.All(map[string]string{"B": "2"})

	count := 0
	for range IterSeq2Concat(a, b) {
		count++
		break
	}
	assert.Equal(1, count)

	count = 0
	for range IterSeq2Concat[string, string]() {
		count++
	}
	assert.Equal(0, count)
}
