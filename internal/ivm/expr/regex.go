package expr

import (
	"fmt"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

// regexCache is the compile cache keyed by (pattern, flags), per spec
// §4.3's "Regex compile cache keyed by (pattern, flags)". Backed by an
// LRU so a pipeline with many ad-hoc regex literals can't grow this
// unbounded.
var regexCache, _ = lru.New[string, *regexp.Regexp](1024)

// compileRegex returns the cached *regexp.Regexp for pattern+flags,
// compiling and caching it on first use. An invalid pattern yields a
// nil regexp and never panics — regexMatch treats a nil regexp as "no
// match", keeping with the never-surfaces coercion-failure discipline.
func compileRegex(pattern, flags string) *regexp.Regexp {
	key := fmt.Sprintf("%s\x1f%s", pattern, flags)
	if re, ok := regexCache.Get(key); ok {
		return re
	}
	goPattern := pattern
	if flags != "" {
		goPattern = "(?" + flags + ")" + pattern
	}
	re, err := regexp.Compile(goPattern)
	if err != nil {
		re = nil
	}
	regexCache.Add(key, re)
	return re
}
