// Package filter selects discovered devices by path pattern and size.
package filter

// Rule represents a single include or exclude filter rule.
type Rule struct {
	Pattern *pattern
	Include bool // true=include, false=exclude
}

// Chain holds an ordered list of filter rules plus size filters.
type Chain struct {
	rules    []Rule
	includes int
	minSize  int64
	maxSize  int64
}

// NewChain creates an empty filter chain.
func NewChain() *Chain {
	return &Chain{}
}

// AddExclude adds an exclude rule for the given pattern.
func (c *Chain) AddExclude(glob string) error {
	cp, err := compilePattern(glob)
	if err != nil {
		return err
	}
	c.rules = append(c.rules, Rule{Pattern: cp, Include: false})
	return nil
}

// AddInclude adds an include rule for the given pattern.
func (c *Chain) AddInclude(glob string) error {
	cp, err := compilePattern(glob)
	if err != nil {
		return err
	}
	c.rules = append(c.rules, Rule{Pattern: cp, Include: true})
	c.includes++
	return nil
}

// SetMinSize sets the minimum device size filter.
func (c *Chain) SetMinSize(n int64) {
	c.minSize = n
}

// SetMaxSize sets the maximum device size filter.
func (c *Chain) SetMaxSize(n int64) {
	c.maxSize = n
}

// Empty reports whether the chain has no rules and no size filters.
func (c *Chain) Empty() bool {
	return len(c.rules) == 0 && c.minSize == 0 && c.maxSize == 0
}

// Match returns true if the device at path should be selected. size is
// the device capacity in bytes.
//
// Rules are walked in order and the first match wins. A path no rule
// matches is selected unless the chain has include rules, in which case
// only explicitly included devices are.
func (c *Chain) Match(path string, size int64) bool {
	if c.minSize > 0 && size < c.minSize {
		return false
	}
	if c.maxSize > 0 && size > c.maxSize {
		return false
	}

	for _, rule := range c.rules {
		if rule.Pattern.match(path) {
			return rule.Include
		}
	}

	return c.includes == 0
}
