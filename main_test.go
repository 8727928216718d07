package parselet

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func Test_Language_ConcurrentUse(t *testing.T) {
	assert := assert.New(t)
	lang := calcLanguage()

	const workers = 8
	results := make([]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := lang.ParseValue(fmt.Sprintf("%d*(x+%d)-y", i, i))
			if err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = lang.Print(v)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if assert.NoError(errs[i]) {
			assert.Equal(fmt.Sprintf("%d * (x + %d) - y", i, i), results[i])
		}
	}
}
