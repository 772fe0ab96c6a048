package restfire

import (
	"net/url"
	"strconv"
	"sync"
)

const (
	orderByParam      = "orderBy"
	startAtParam      = "startAt"
	endAtParam        = "endAt"
	equalToParam      = "equalTo"
	limitToFirstParam = "limitToFirst"
	limitToLastParam  = "limitToLast"
)

const (
	orderByKeyValue      = "$key"
	orderByValueValue    = "$value"
	orderByPriorityValue = "$priority"
)

// Query accumulates filter parameters for a filtered / sorted read of a reference.
// Each filter can be set at most once until Clear is called.
// A Query is safe for concurrent use and can be run many times.
type Query struct {
	ref *Reference

	// =================================
	// mutex protect following fields
	// =================================
	mut     sync.Mutex
	filters map[string]string
	// =================================
}

func newQuery(ref *Reference) *Query {
	return &Query{
		ref:     ref,
		filters: map[string]string{},
	}
}

// Reference ...
func (q *Query) Reference() *Reference {
	return q.ref
}

func (q *Query) setFilter(name string, value string) error {
	q.mut.Lock()
	defer q.mut.Unlock()

	if _, existed := q.filters[name]; existed {
		return ErrFilterAlreadySet
	}
	q.filters[name] = value
	return nil
}

func (q *Query) setEncoded(name string, value any) error {
	data, err := q.ref.db.codec.Marshal(value)
	if err != nil {
		return ErrInvalidArgument
	}
	return q.setFilter(name, string(data))
}

// OrderByKey sorts children by their keys.
func (q *Query) OrderByKey() error {
	return q.setEncoded(orderByParam, orderByKeyValue)
}

// OrderByChild sorts children by the value of their child named childName.
func (q *Query) OrderByChild(childName string) error {
	if err := ValidatePath(childName); err != nil || len(cleanPath(childName)) == 0 {
		return ErrInvalidArgument
	}
	return q.setEncoded(orderByParam, cleanPath(childName))
}

// OrderByPriority ...
func (q *Query) OrderByPriority() error {
	return q.setEncoded(orderByParam, orderByPriorityValue)
}

// OrderByValue ...
func (q *Query) OrderByValue() error {
	return q.setEncoded(orderByParam, orderByValueValue)
}

// StartAt keeps the children starting at value, in the current order.
func (q *Query) StartAt(value any) error {
	return q.setEncoded(startAtParam, value)
}

// EndAt keeps the children ending at value, in the current order.
func (q *Query) EndAt(value any) error {
	return q.setEncoded(endAtParam, value)
}

// EqualTo keeps the children equal to value, in the current order.
func (q *Query) EqualTo(value any) error {
	return q.setEncoded(equalToParam, value)
}

// LimitToFirst keeps the first n children, n must be positive.
func (q *Query) LimitToFirst(n int) error {
	if n <= 0 {
		return ErrInvalidArgument
	}
	return q.setFilter(limitToFirstParam, strconv.Itoa(n))
}

// LimitToLast keeps the last n children, n must be positive.
func (q *Query) LimitToLast(n int) error {
	if n <= 0 {
		return ErrInvalidArgument
	}
	return q.setFilter(limitToLastParam, strconv.Itoa(n))
}

// Clear removes every filter.
func (q *Query) Clear() {
	q.mut.Lock()
	defer q.mut.Unlock()
	q.filters = map[string]string{}
}

// Filters returns a copy of the filters, values are encoded as sent on the wire.
func (q *Query) Filters() map[string]string {
	q.mut.Lock()
	defer q.mut.Unlock()

	result := make(map[string]string, len(q.filters))
	for k, v := range q.filters {
		result[k] = v
	}
	return result
}

func (q *Query) queryParams() url.Values {
	q.mut.Lock()
	defer q.mut.Unlock()

	params := url.Values{}
	for k, v := range q.filters {
		params.Set(k, v)
	}
	return params
}

// RunQuery reads the reference with the filters of q. The result is classified like GetValue.
func RunQuery[T any](q *Query) *Future[T] {
	db := q.ref.db
	loc := q.ref.loc
	refURL := loc.ReferenceURL()

	params := q.queryParams()
	db.logger.Debugf("RunQuery() invoked for reference %s with %d filters", refURL, len(params))

	req := buildGet(loc.requestURL(), loc.credential).withQuery(params)
	return startRequest(db, refURL, req, func(resp *Response) (T, error) {
		return classify[T](db.classifier, refURL, resp)
	})
}
