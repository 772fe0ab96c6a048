package restfiretest

import (
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
)

type queryEntry struct {
	key   string
	value any
	order any
}

type queryFilters struct {
	orderBy string

	startAt    any
	hasStartAt bool
	endAt      any
	hasEndAt   bool

	limitFirst int
	limitLast  int
}

func decodeParam(query url.Values, name string) (any, bool, error) {
	raw, ok := query[name]
	if !ok || len(raw) == 0 {
		return nil, false, nil
	}
	var value any
	if err := json.Unmarshal([]byte(raw[0]), &value); err != nil {
		return nil, false, errors.New(name + " must be a valid JSON value")
	}
	return value, true, nil
}

func decodeLimit(query url.Values, name string) (int, error) {
	raw := query.Get(name)
	if len(raw) == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return n, nil
}

//revive:disable-next-line:cognitive-complexity,cyclomatic
func parseQueryFilters(query url.Values) (queryFilters, error) {
	var filters queryFilters

	orderBy, hasOrderBy, err := decodeParam(query, "orderBy")
	if err != nil {
		return filters, err
	}
	if !hasOrderBy {
		return filters, errors.New("orderBy must be defined when other query parameters are defined")
	}
	name, ok := orderBy.(string)
	if !ok || len(name) == 0 {
		return filters, errors.New("orderBy must be a non empty string")
	}
	filters.orderBy = name

	filters.startAt, filters.hasStartAt, err = decodeParam(query, "startAt")
	if err != nil {
		return filters, err
	}
	filters.endAt, filters.hasEndAt, err = decodeParam(query, "endAt")
	if err != nil {
		return filters, err
	}

	equalTo, hasEqualTo, err := decodeParam(query, "equalTo")
	if err != nil {
		return filters, err
	}
	if hasEqualTo {
		if filters.hasStartAt || filters.hasEndAt {
			return filters, errors.New("equalTo cannot be combined with startAt or endAt")
		}
		filters.startAt, filters.hasStartAt = equalTo, true
		filters.endAt, filters.hasEndAt = equalTo, true
	}

	if filters.limitFirst, err = decodeLimit(query, "limitToFirst"); err != nil {
		return filters, err
	}
	if filters.limitLast, err = decodeLimit(query, "limitToLast"); err != nil {
		return filters, err
	}
	if filters.limitFirst > 0 && filters.limitLast > 0 {
		return filters, errors.New("limitToFirst cannot be combined with limitToLast")
	}
	return filters, nil
}

func (s *FakeServer) orderValue(orderBy string, parentPath string, key string, value any) any {
	switch orderBy {
	case "$key":
		return key
	case "$value":
		return value
	case "$priority":
		return s.priorities[joinPath(parentPath, key)]
	default:
		return getAtPath(value, splitPath(orderBy))
	}
}

// applyQuery filters the children of value, must be called with the lock held.
func (s *FakeServer) applyQuery(path string, value any, query url.Values) (any, error) {
	filters, err := parseQueryFilters(query)
	if err != nil {
		return nil, err
	}

	object, ok := value.(map[string]any)
	if !ok {
		return value, nil
	}

	entries := make([]queryEntry, 0, len(object))
	for key, child := range object {
		entries = append(entries, queryEntry{
			key:   key,
			value: child,
			order: s.orderValue(filters.orderBy, path, key, child),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		cmp := compareValues(entries[i].order, entries[j].order)
		if cmp != 0 {
			return cmp < 0
		}
		return entries[i].key < entries[j].key
	})

	var selected []queryEntry
	for _, e := range entries {
		if filters.hasStartAt && compareValues(e.order, filters.startAt) < 0 {
			continue
		}
		if filters.hasEndAt && compareValues(e.order, filters.endAt) > 0 {
			continue
		}
		selected = append(selected, e)
	}

	if filters.limitFirst > 0 && len(selected) > filters.limitFirst {
		selected = selected[:filters.limitFirst]
	}
	if filters.limitLast > 0 && len(selected) > filters.limitLast {
		selected = selected[len(selected)-filters.limitLast:]
	}

	result := make(map[string]any, len(selected))
	for _, e := range selected {
		result[e.key] = e.value
	}
	return result, nil
}

// valueRank orders types: null, false, true, numbers, strings, objects.
func valueRank(v any) int {
	switch value := v.(type) {
	case nil:
		return 0
	case bool:
		if value {
			return 2
		}
		return 1
	case float64:
		return 3
	case string:
		return 4
	default:
		return 5
	}
}

func compareValues(a any, b any) int {
	rankA, rankB := valueRank(a), valueRank(b)
	if rankA != rankB {
		return rankA - rankB
	}

	switch va := a.(type) {
	case float64:
		vb := b.(float64)
		switch {
		case va < vb:
			return -1
		case va > vb:
			return 1
		default:
			return 0
		}
	case string:
		vb := b.(string)
		switch {
		case va < vb:
			return -1
		case va > vb:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}
