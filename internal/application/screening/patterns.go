package screening

import (
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/turtacn/KeyIP-Chem/internal/config"
	"github.com/turtacn/KeyIP-Chem/internal/domain/substructure"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/prometheus"
)

// patternCache holds compiled programs keyed by nesting limit and pattern
// text.  When full, an arbitrary entry is evicted.  Programs are immutable,
// so one entry is shared by every concurrent screen.
type patternCache struct {
	capacity int

	mu      sync.RWMutex
	entries map[string]*substructure.Program

	group singleflight.Group
}

func newPatternCache(capacity int) *patternCache {
	return &patternCache{
		capacity: capacity,
		entries:  make(map[string]*substructure.Program),
	}
}

func patternKey(depth int, pattern string) string {
	return strconv.Itoa(depth) + "\x00" + pattern
}

func (c *patternCache) get(key string) (*substructure.Program, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entries[key]
	return p, ok
}

func (c *patternCache) put(key string, p *substructure.Program) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.capacity {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[key] = p
}

// Len returns the number of cached programs.
func (c *patternCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset drops every cached program.
func (c *patternCache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]*substructure.Program)
	c.mu.Unlock()
}

// compile returns the program for pattern, compiling it at most once across
// concurrent callers.  Failed compilations are not cached.
func (s *serviceImpl) compile(pattern string, limits *config.MatcherConfig) (*substructure.Program, error) {
	key := patternKey(limits.MaxNestingDepth, pattern)
	if p, ok := s.patterns.get(key); ok {
		prometheus.RecordCacheAccess(s.metrics, "pattern", true)
		return p, nil
	}
	prometheus.RecordCacheAccess(s.metrics, "pattern", false)

	v, err, _ := s.patterns.group.Do(key, func() (interface{}, error) {
		c := substructure.NewCompiler(substructure.WithMaxNestingDepth(limits.MaxNestingDepth))
		p, err := c.Compile(pattern)
		prometheus.RecordCompile(s.metrics, err)
		if err != nil {
			return nil, err
		}
		s.patterns.put(key, p)
		return p, nil
	})
	if err != nil {
		return nil, wrapCompileError(err, pattern)
	}
	return v.(*substructure.Program), nil
}

//Personal.AI order the ending
