package utils

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRandString(t *testing.T) {
	var strLen int
	var randStr string
	var exists bool
	rand.Seed(time.Now().UnixNano())
	randStrings := make(map[string]struct{})
	for i := 0; i < 2000; i++ {
		strLen = rand.Intn(20) + 10
		randStr = RandString(strLen)
		assert.Len(t, randStr, strLen)
		_, exists = randStrings[randStr]
		assert.False(t, exists, fmt.Sprintf("not unique value %s on iteration %d", randStr, i))
		if exists {
			break
		}
		randStrings[randStr] = struct{}{}
	}
}

func TestIsLengthValid(t *testing.T) {
	var result bool
	result = IsLengthValid("test", 2, 10)
	assert.True(t, result)

	result = IsLengthValid("", 2, 10)
	assert.False(t, result)

	result = IsLengthValid("1234567891011", 2, 10)
	assert.False(t, result)

	result = IsLengthValid("разДваТри!", 2, 10)
	assert.True(t, result)
}
