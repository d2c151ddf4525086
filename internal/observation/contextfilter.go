package observation

import (
	"container/list"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/smilemakc/noteflow/pkg/models"
)

// conditionCache is an LRU cache of compiled expr-lang programs, grounded
// on the teacher's pkg/engine/ConditionCache: the context_filter the
// Planner attaches is advisory and may repeat across turns (e.g. the same
// "len(context.notebook.cells) > 20" trimming rule), so compiling it once
// per distinct expression string avoids re-parsing on every call.
type conditionCache struct {
	capacity int
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List
}

type cacheEntry struct {
	key     string
	program *vm.Program
}

func newConditionCache(capacity int) *conditionCache {
	if capacity <= 0 {
		capacity = 100
	}
	return &conditionCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *conditionCache) compile(condition string, env any) (*vm.Program, error) {
	c.mu.Lock()
	if el, ok := c.entries[condition]; ok {
		c.order.MoveToFront(el)
		prog := el.Value.(*cacheEntry).program
		c.mu.Unlock()
		return prog, nil
	}
	c.mu.Unlock()

	program, err := expr.Compile(condition, expr.Env(env), expr.AsBool())
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	el := c.order.PushFront(&cacheEntry{key: condition, program: program})
	c.entries[condition] = el
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
	c.mu.Unlock()

	return program, nil
}

// ContextFilterEvaluator evaluates the Planner's advisory context_filter
// expressions against an observation before a Generator call, trimming
// sections whose predicate evaluates to false (spec §6.1: "advisory;
// implementers may honor it to trim the next Generator payload").
type ContextFilterEvaluator struct {
	cache *conditionCache
}

// NewContextFilterEvaluator returns an evaluator with its own compiled-
// program cache.
func NewContextFilterEvaluator() *ContextFilterEvaluator {
	return &ContextFilterEvaluator{cache: newConditionCache(100)}
}

// Apply evaluates every entry of filter against obs and zeroes the named
// section when its predicate evaluates to false. Unknown section names
// and evaluation errors are ignored: trimming is advisory, never fatal.
// Recognized sections: "context.variables", "context.effects",
// "context.notebook".
func (e *ContextFilterEvaluator) Apply(obs models.Observation, filter models.ContextFilter) models.Observation {
	for section, condition := range filter {
		env := map[string]any{"observation": obs}
		program, err := e.cache.compile(condition, env)
		if err != nil {
			continue
		}
		result, err := expr.Run(program, env)
		if err != nil {
			continue
		}
		keep, ok := result.(bool)
		if !ok || keep {
			continue
		}
		obs = clearSection(obs, section)
	}
	return obs
}

func clearSection(obs models.Observation, section string) models.Observation {
	switch section {
	case "context.variables":
		obs.Context.Variables = map[string]any{}
	case "context.effects":
		obs.Context.Effects = models.Effects{}
	case "context.notebook":
		obs.Context.Notebook = models.NotebookPayload{}
	}
	return obs
}
