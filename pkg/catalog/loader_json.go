package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadJSON reads a JSON star catalog (an array of star records) and applies
// the load-time filter. An empty catalog after filtering is an error; the
// scheduler cannot start without stars.
func LoadJSON(path string, filter Filter) ([]Star, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading catalog %s: %w", path, err)
	}

	var raw []Star
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error parsing catalog %s: %w", path, err)
	}

	stars := filter.apply(raw)
	if len(stars) == 0 {
		return nil, fmt.Errorf("catalog %s contains no usable stars after filtering", path)
	}
	return stars, nil
}
