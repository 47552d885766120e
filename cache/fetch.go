package cache

// GetAs retrieves a typed value from the cache. It returns the zero value
// and false on a miss or when the stored value has a different type.
func GetAs[T any](c *Cache, key string) (T, bool) {
	val, ok := c.GetOK(key)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := val.(T)
	if !ok {
		var zero T
		return zero, false
	}
	return typed, true
}

// Fetch is a cache-aside helper. On a hit it returns the cached value. On a
// miss it calls produce; a successful result is stored with the given put
// options and returned. Errors from produce propagate unmodified and
// nothing is cached on failure.
func Fetch[T any](c *Cache, key string, produce func() (T, error), opts ...PutOption) (T, error) {
	if val, ok := GetAs[T](c, key); ok {
		return val, nil
	}
	val, err := produce()
	if err != nil {
		var zero T
		return zero, err
	}
	c.Put(key, val, opts...)
	return val, nil
}
