package restfire

const priorityKey = ".priority"

// Reference is a path-addressed handle on one node of the remote tree.
// A Reference is immutable and safe for concurrent use.
type Reference struct {
	db  *Database
	loc Location
}

func newReference(db *Database, loc Location) *Reference {
	return &Reference{
		db:  db,
		loc: loc,
	}
}

// Location ...
func (r *Reference) Location() Location {
	return r.loc
}

// ReferenceURL returns the URL of the node, without document suffix and credential.
func (r *Reference) ReferenceURL() string {
	return r.loc.ReferenceURL()
}

// Path ...
func (r *Reference) Path() string {
	return r.loc.Path()
}

// Key returns the last segment of the path, empty for the root.
func (r *Reference) Key() string {
	return lastSegment(r.loc.Path())
}

// IsRoot ...
func (r *Reference) IsRoot() bool {
	return r.loc.IsRoot()
}

// Root ...
func (r *Reference) Root() *Reference {
	r.db.logger.Debugf("Root() invoked for reference %s", r.ReferenceURL())
	return newReference(r.db, r.loc.Root())
}

// Parent returns the parent reference, the parent of the root is the root itself.
func (r *Reference) Parent() *Reference {
	r.db.logger.Debugf("Parent() invoked for reference %s", r.ReferenceURL())
	return newReference(r.db, r.loc.Parent())
}

// Child returns the reference of a descendant, relativePath is validated with ValidatePath.
func (r *Reference) Child(relativePath string) (*Reference, error) {
	if err := ValidatePath(relativePath); err != nil {
		return nil, err
	}
	r.db.logger.Debugf("Child(%s) invoked for reference %s", relativePath, r.ReferenceURL())
	return newReference(r.db, r.loc.Child(relativePath)), nil
}

// Query returns a new, empty query builder on this reference.
func (r *Reference) Query() *Query {
	return newQuery(r)
}

// EventStream returns the event stream of the same location.
func (r *Reference) EventStream() *EventStream {
	return newEventStream(r.db, r.loc)
}

func (r *Reference) priorityLocation() Location {
	return r.loc.Child(priorityKey)
}

// startRequest runs req on a new goroutine, handle classifies the response.
// refURL is used in logs and errors, it never contains the credential.
func startRequest[T any](
	db *Database, refURL string, req *Request,
	handle func(resp *Response) (T, error),
) *Future[T] {
	f := newFuture[T](db.dispatcher)

	ok := db.goRun(func() {
		resp, err := db.transport.Do(db.ctx, req)
		if err != nil {
			db.logger.Warnf("Request %s to '%s' failed: %v", req.Method, refURL, err)
			f.reject(newError(ErrRequestFailed, refURL, 0, "", err))
			return
		}
		db.logger.Debugf("Request %s to '%s' completed with status %d", req.Method, refURL, resp.StatusCode)
		f.settle(handle(resp))
	})
	if !ok {
		db.logger.Infof("Database being accessed after Close()")
		f.reject(ErrDatabaseClosed)
	}
	return f
}

// getValue issues a GET on loc and decodes the body into T.
func getValue[T any](db *Database, loc Location) *Future[T] {
	refURL := loc.ReferenceURL()
	req := buildGet(loc.requestURL(), loc.credential)
	return startRequest(db, refURL, req, func(resp *Response) (T, error) {
		return classify[T](db.classifier, refURL, resp)
	})
}

// writeValue issues PUT / PATCH with value as the body and resolves with value itself.
func writeValue[T any](db *Database, loc Location, build func(url string, cred string, body []byte) *Request, value T) *Future[T] {
	refURL := loc.ReferenceURL()

	body, err := db.codec.Marshal(value)
	if err != nil {
		return rejectedFuture[T](db.dispatcher, newError(ErrInvalidArgument, refURL, 0, "", err))
	}

	req := build(loc.requestURL(), loc.credential, body)
	return startRequest(db, refURL, req, func(resp *Response) (T, error) {
		if err := db.classifier.classifyNone(refURL, resp); err != nil {
			var empty T
			return empty, err
		}
		return value, nil
	})
}

func removeValue(db *Database, loc Location) *Future[Empty] {
	refURL := loc.ReferenceURL()
	req := buildDelete(loc.requestURL(), loc.credential)
	return startRequest(db, refURL, req, func(resp *Response) (Empty, error) {
		return Empty{}, db.classifier.classifyNone(refURL, resp)
	})
}

// GetValue reads the node. A missing node resolves with the zero value if T is
// a pointer, map, slice or interface type, otherwise fails with ErrDeserialization.
func GetValue[T any](r *Reference) *Future[T] {
	r.db.logger.Debugf("GetValue() invoked for reference %s", r.ReferenceURL())
	return getValue[T](r.db, r.loc)
}

// SetValue overwrites the whole node, including its children. A nil value deletes the node.
// The future resolves with value itself.
func SetValue[T any](r *Reference, value T) *Future[T] {
	r.db.logger.Debugf("SetValue() invoked for reference %s", r.ReferenceURL())
	return writeValue(r.db, r.loc, buildPut, value)
}

// UpdateValue merges the top-level keys of value into the node, other children are untouched.
// The future resolves with value itself.
func UpdateValue[T any](r *Reference, value T) *Future[T] {
	r.db.logger.Debugf("UpdateValue() invoked for reference %s", r.ReferenceURL())
	return writeValue(r.db, r.loc, buildPatch, value)
}

// RemoveValue deletes the node, same as SetValue with nil.
func (r *Reference) RemoveValue() *Future[Empty] {
	r.db.logger.Debugf("RemoveValue() invoked for reference %s", r.ReferenceURL())
	return removeValue(r.db, r.loc)
}

type pushResponse struct {
	Name string `json:"name"`
}

// Push creates a child with a unique, server generated and ordered key.
// The future resolves with the reference of the new child.
func (r *Reference) Push() *Future[*Reference] {
	r.db.logger.Debugf("Push() invoked for reference %s", r.ReferenceURL())

	refURL := r.ReferenceURL()
	req := buildPost(r.loc.requestURL(), r.loc.credential, []byte("{}"))

	return startRequest(r.db, refURL, req, func(resp *Response) (*Reference, error) {
		result, err := classify[pushResponse](r.db.classifier, refURL, resp)
		if err != nil {
			return nil, err
		}
		if validateKey(result.Name) != nil {
			return nil, newError(ErrDeserialization, refURL, resp.StatusCode, string(resp.Body), nil)
		}
		return newReference(r.db, r.loc.Child(result.Name)), nil
	})
}

// GetPriority reads the priority of the node, nil if it has none.
func (r *Reference) GetPriority() *Future[any] {
	r.db.logger.Debugf("GetPriority() invoked for reference %s", r.ReferenceURL())
	return getValue[any](r.db, r.priorityLocation())
}

// SetPriority sets the priority used to order the node among its siblings.
func (r *Reference) SetPriority(priority any) *Future[any] {
	r.db.logger.Debugf("SetPriority() invoked for reference %s", r.ReferenceURL())
	return writeValue(r.db, r.priorityLocation(), buildPut, priority)
}

// RemovePriority ...
func (r *Reference) RemovePriority() *Future[Empty] {
	r.db.logger.Debugf("RemovePriority() invoked for reference %s", r.ReferenceURL())
	return removeValue(r.db, r.priorityLocation())
}
