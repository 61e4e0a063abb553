package benchbar

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBar(t *testing.T) {
	var buf bytes.Buffer
	bar := NewBar(&buf, "Inserting 10 users", 10)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bar.Inc()
		}()
	}
	wg.Wait()
	bar.Finish()

	assert.Contains(t, buf.String(), "Inserting 10 users")
	assert.Contains(t, buf.String(), "10/10")
}
