package restfire

import (
	"context"
	"errors"
	"net/url"
	"sync"
)

const defaultEventBufferSize = 64

// Database is the root object scoping references, event streams and
// security rules to one remote base URL and one optional credential.
type Database struct {
	logger     Logger
	codec      Codec
	transport  Transport
	classifier *classifier

	baseURL         string
	credential      string
	eventBufferSize int

	parentCtx context.Context
	ctx       context.Context
	cancel    context.CancelFunc

	dispatcher *dispatcher

	// =================================
	// mutex protect following fields
	// =================================
	mut    sync.Mutex
	closed bool
	// =================================

	wg sync.WaitGroup
}

// Option ...
type Option func(d *Database)

// WithCredential sets the credential sent as the auth query parameter of every request.
func WithCredential(credential string) Option {
	return func(d *Database) {
		d.credential = credential
	}
}

func WithCodec(codec Codec) Option {
	return func(d *Database) {
		d.codec = codec
	}
}

func WithLogger(l Logger) Option {
	return func(d *Database) {
		d.logger = l
	}
}

// WithContext sets the parent context of every request and event stream.
func WithContext(ctx context.Context) Option {
	return func(d *Database) {
		d.parentCtx = ctx
	}
}

// WithEventBufferSize sets the capacity of Listener.Events channels.
func WithEventBufferSize(size int) Option {
	return func(d *Database) {
		d.eventBufferSize = size
	}
}

// NewDatabase creates a Database. The transport is owned by the caller, see NewHTTPTransport.
func NewDatabase(baseURL string, transport Transport, options ...Option) (*Database, error) {
	if len(baseURL) == 0 {
		return nil, errors.New("restfire: base url must not be empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || len(u.Host) == 0 {
		return nil, errors.New("restfire: base url must be an absolute http(s) url")
	}
	if transport == nil {
		return nil, errors.New("restfire: transport must not be nil")
	}

	d := &Database{
		logger:    &defaultLoggerImpl{},
		codec:     NewJSONCodec(),
		transport: transport,

		baseURL:         NormalizePath(baseURL),
		eventBufferSize: defaultEventBufferSize,

		parentCtx: context.Background(),
	}

	for _, option := range options {
		option(d)
	}

	if d.eventBufferSize < 0 {
		return nil, errors.New("restfire: event buffer size must not be negative")
	}

	d.classifier = &classifier{
		codec:  d.codec,
		logger: d.logger,
	}
	d.ctx, d.cancel = context.WithCancel(d.parentCtx)
	d.dispatcher = newDispatcher()

	credentialMode := "without"
	if len(d.credential) > 0 {
		credentialMode = "with"
	}
	d.logger.Infof("Creating database for url '%s' %s credential", d.baseURL, credentialMode)

	return d, nil
}

func (d *Database) location(path string) Location {
	return NewLocation(d.baseURL, path, d.credential)
}

// Reference returns the reference of a node, the path is validated with ValidatePath.
func (d *Database) Reference(path string) (*Reference, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	d.logger.Debugf("Creating reference for path '%s'", path)
	return newReference(d, d.location(path)), nil
}

// RootReference ...
func (d *Database) RootReference() *Reference {
	return newReference(d, d.location(""))
}

// EventStream returns the event stream of a node, the path is validated with ValidatePath.
func (d *Database) EventStream(path string) (*EventStream, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	d.logger.Debugf("Creating event stream for path '%s'", path)
	return newEventStream(d, d.location(path)), nil
}

// SecurityRules returns the reference of the security rules document.
func (d *Database) SecurityRules() *RulesReference {
	return newRulesReference(d)
}

// goRun runs fn on a new goroutine tracked by Close. It returns false after Close.
func (d *Database) goRun(fn func()) bool {
	d.mut.Lock()
	defer d.mut.Unlock()

	if d.closed {
		return false
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn()
	}()
	return true
}

// Close cancels in-flight requests and event streams, waits for them
// and for the already queued callbacks. It must not be called from a callback.
func (d *Database) Close() {
	d.mut.Lock()
	if d.closed {
		d.mut.Unlock()
		return
	}
	d.closed = true
	d.mut.Unlock()

	d.cancel()
	d.wg.Wait()
	d.dispatcher.shutdown()

	d.logger.Infof("Shutdown completed")
}
