package servicecache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gitService struct {
	calls int
}

func newGitService() *gitService { return &gitService{} }

type dockerService struct{}

func newDockerService() *dockerService { return &dockerService{} }

func TestGetOrCreate_MemoizesByConstructor(t *testing.T) {
	cache := New()

	created := 0
	first := cache.GetOrCreate(newGitService, func() any {
		created++
		return newGitService()
	})
	second := cache.GetOrCreate(newGitService, func() any {
		created++
		return newGitService()
	})

	assert.Equal(t, 1, created)
	assert.Same(t, first, second)
}

func TestGetOrCreate_DistinctConstructors(t *testing.T) {
	cache := New()

	git := cache.GetOrCreate(newGitService, func() any { return newGitService() })
	docker := cache.GetOrCreate(newDockerService, func() any { return newDockerService() })

	require.IsType(t, &gitService{}, git)
	require.IsType(t, &dockerService{}, docker)
	assert.Equal(t, 2, cache.Len())
}

func TestGetOrCreate_CachesAreIndependent(t *testing.T) {
	first := New()
	second := New()

	a := first.GetOrCreate(newGitService, func() any { return newGitService() })
	b := second.GetOrCreate(newGitService, func() any { return newGitService() })

	assert.NotSame(t, a.(*gitService), b.(*gitService))
}
