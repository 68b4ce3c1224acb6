package concurrent

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPool(t *testing.T) {
	jobs := 100
	wp := NewWorkerPool[int, int](4, jobs)
	for i := 0; i < jobs; i++ {
		wp.AddJob(i)
	}
	wp.Close()
	wp.Start(func(job int) int { return job * job })
	wp.Wait()

	var got []int
	for r := range wp.CollectResults() {
		got = append(got, r)
	}
	sort.Ints(got)
	assert.Len(t, got, jobs)
	for i, v := range got {
		assert.Equal(t, i*i, v)
	}
}

func TestWorkerPoolNoJobs(t *testing.T) {
	wp := NewWorkerPool[string, string](0, 0)
	wp.Close()
	wp.Start(func(job string) string { return job })
	wp.Wait()

	_, ok := <-wp.CollectResults()
	assert.False(t, ok)
}
