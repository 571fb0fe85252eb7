package firerest

import (
	"fmt"
	"maps"
	"slices"

	"github.com/kailas-cloud/firerest/internal/domain"
	"github.com/kailas-cloud/firerest/internal/domain/resource"
)

// SetOption configures a Set call.
type SetOption interface {
	applySet(*setConfig)
}

type setOptionFunc func(*setConfig)

func (f setOptionFunc) applySet(c *setConfig) { f(c) }

type setConfig struct {
	merge          bool
	mergeFields    []string
	hasMergeFields bool
}

// Merge limits the write to the top-level keys of the data, leaving other
// stored fields untouched. Data with no keys is rejected.
func Merge() SetOption {
	return setOptionFunc(func(c *setConfig) {
		c.merge = true
	})
}

// MergeFields limits the write to exactly the given field paths. It takes
// precedence over Merge regardless of order. A path listed here but absent
// from the data is removed from the stored document.
func MergeFields(paths ...string) SetOption {
	return setOptionFunc(func(c *setConfig) {
		c.mergeFields = paths
		c.hasMergeFields = true
	})
}

// updateMask returns the field paths to send, or nil for a full replace.
func updateMask(data map[string]any, opts []SetOption) ([]string, error) {
	var cfg setConfig
	for _, o := range opts {
		o.applySet(&cfg)
	}

	switch {
	case cfg.hasMergeFields:
		if len(cfg.mergeFields) == 0 {
			return nil, fmt.Errorf("merge fields needs at least one field path: %w", domain.ErrInvalidOperation)
		}
		for _, p := range cfg.mergeFields {
			if p == "" {
				return nil, fmt.Errorf("empty merge field path: %w", domain.ErrInvalidOperation)
			}
		}
		return slices.Clone(cfg.mergeFields), nil
	case cfg.merge:
		if len(data) == 0 {
			return nil, fmt.Errorf("merge needs at least one field to write: %w", domain.ErrInvalidOperation)
		}
		mask := make([]string, 0, len(data))
		for _, k := range slices.Sorted(maps.Keys(data)) {
			mask = append(mask, resource.FieldPath(k))
		}
		return mask, nil
	default:
		return nil, nil
	}
}
