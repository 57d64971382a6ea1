// Package containing the records of a line-delimited JSON tree export: the
// metadata header, the mutation catalog, and the per-node records.
package schema

import (
	"errors"
	"fmt"

	"github.com/Jeffail/gabs"
)

var (
	ErrMissingField = errors.New("missing field")
	ErrNotObject    = errors.New("not a json object")
	ErrNoVariant    = errors.New("no matching variant")
)

// parses data and checks that it is an object carrying every listed field
// (null counts as missing)
func inspect(data []byte, what string, fields ...string) (*gabs.Container, error) {
	c, err := gabs.ParseJSON(data)
	if err != nil {
		return nil, err
	}
	if _, ok := c.Data().(map[string]interface{}); !ok {
		return nil, fmt.Errorf("%w, %s", ErrNotObject, what)
	}
	if missing := firstMissing(c, fields); missing != "" {
		return nil, fmt.Errorf("%w, %s has no %q", ErrMissingField, what, missing)
	}
	return c, nil
}

// returns the first field that is absent or null in c, or "" if there is none
func firstMissing(c *gabs.Container, fields []string) string {
	for _, f := range fields {
		if v := c.Search(f); v == nil || v.Data() == nil {
			return f
		}
	}
	return ""
}
