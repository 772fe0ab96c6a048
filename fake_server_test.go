package restfire_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuangTung97/restfire"
	"github.com/QuangTung97/restfire/restfiretest"
)

const baseURL = "https://fake.example.com"

type user struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func newFakeDatabase(t *testing.T, options ...restfire.Option) (*restfire.Database, *restfiretest.FakeServer) {
	server := restfiretest.NewFakeServer(baseURL)

	options = append([]restfire.Option{restfire.WithLogger(restfire.NewNopLogger())}, options...)
	db, err := restfire.NewDatabase(baseURL, server, options...)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db, server
}

func mustReference(t *testing.T, db *restfire.Database, path string) *restfire.Reference {
	ref, err := db.Reference(path)
	require.NoError(t, err)
	return ref
}

func nextEvent(t *testing.T, l *restfire.Listener) restfire.StreamEvent {
	select {
	case ev, ok := <-l.Events():
		require.True(t, ok, "events closed, error: %v", l.Err())
		return ev
	case <-time.After(5 * time.Second):
		require.FailNow(t, "no event received")
		return restfire.StreamEvent{}
	}
}

func waitEnd(t *testing.T, l *restfire.Listener) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := l.Wait(ctx)
	require.NotEqual(t, context.DeadlineExceeded, err)
	return err
}

func TestFakeServer_EchoRoundTrip(t *testing.T) {
	db, _ := newFakeDatabase(t)
	ref := mustReference(t, db, "users/alice")

	alice := user{Name: "Alice", Age: 30}

	written, err := restfire.SetValue(ref, alice).Result()
	require.NoError(t, err)
	assert.Equal(t, alice, written)

	read, err := restfire.GetValue[user](ref).Result()
	require.NoError(t, err)
	assert.Equal(t, alice, read)
}

func TestFakeServer_UpdateAndRemove(t *testing.T) {
	db, server := newFakeDatabase(t)
	ref := mustReference(t, db, "users/bob")

	_, err := restfire.SetValue(ref, user{Name: "Bob", Age: 20}).Result()
	require.NoError(t, err)

	_, err = restfire.UpdateValue(ref, map[string]any{"age": 21}).Result()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Bob", "age": 21.0}, server.Value("users/bob"))

	_, err = ref.RemoveValue().Result()
	require.NoError(t, err)

	removed, err := restfire.GetValue[*user](ref).Result()
	require.NoError(t, err)
	assert.Nil(t, removed)

	// set nil is the same as remove
	_, err = restfire.SetValue(ref, user{Name: "Bob"}).Result()
	require.NoError(t, err)
	_, err = restfire.SetValue[any](ref, nil).Result()
	require.NoError(t, err)
	assert.Equal(t, nil, server.Value("users/bob"))
}

func TestFakeServer_Push(t *testing.T) {
	db, _ := newFakeDatabase(t)
	messages := mustReference(t, db, "messages")

	first, err := messages.Push().Result()
	require.NoError(t, err)
	second, err := messages.Push().Result()
	require.NoError(t, err)

	assert.Equal(t, "messages", first.Parent().Path())
	assert.NotEqual(t, first.Key(), second.Key())
	assert.True(t, first.Key() < second.Key())

	_, err = restfire.SetValue(second, "hello").Result()
	require.NoError(t, err)

	value, err := restfire.GetValue[string](second).Result()
	require.NoError(t, err)
	assert.Equal(t, "hello", value)
}

func TestFakeServer_Query(t *testing.T) {
	db, server := newFakeDatabase(t)
	server.Put("dinosaurs", map[string]any{
		"lambeosaurus":      map[string]any{"height": 2.1},
		"stegosaurus":       map[string]any{"height": 4},
		"bruhathkayosaurus": map[string]any{"height": 25},
	})

	q := mustReference(t, db, "dinosaurs").Query()
	require.NoError(t, q.OrderByChild("height"))
	require.NoError(t, q.StartAt(3))

	value, err := restfire.RunQuery[map[string]map[string]float64](q).Result()
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]float64{
		"stegosaurus":       {"height": 4},
		"bruhathkayosaurus": {"height": 25},
	}, value)

	q.Clear()
	require.NoError(t, q.OrderByKey())
	require.NoError(t, q.LimitToFirst(1))

	value, err = restfire.RunQuery[map[string]map[string]float64](q).Result()
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]float64{
		"bruhathkayosaurus": {"height": 25},
	}, value)
}

func TestFakeServer_Priority(t *testing.T) {
	db, server := newFakeDatabase(t)
	server.Put("users", map[string]any{"a": 1, "b": 2, "c": 3})

	for key, priority := range map[string]any{"a": 3, "b": 1, "c": 2} {
		_, err := mustReference(t, db, "users/"+key).SetPriority(priority).Result()
		require.NoError(t, err)
	}

	priority, err := mustReference(t, db, "users/a").GetPriority().Result()
	require.NoError(t, err)
	assert.Equal(t, 3.0, priority)

	q := mustReference(t, db, "users").Query()
	require.NoError(t, q.OrderByPriority())
	require.NoError(t, q.LimitToLast(1))

	value, err := restfire.RunQuery[map[string]int](q).Result()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 1}, value)

	_, err = mustReference(t, db, "users/a").RemovePriority().Result()
	require.NoError(t, err)

	priority, err = mustReference(t, db, "users/a").GetPriority().Result()
	require.NoError(t, err)
	assert.Nil(t, priority)
}

func TestFakeServer_Credential(t *testing.T) {
	t.Run("missing credential", func(t *testing.T) {
		db, server := newFakeDatabase(t)
		server.RequireCredential("secret")

		_, err := restfire.GetValue[any](db.RootReference()).Result()
		assert.True(t, errors.Is(err, restfire.ErrAccessDenied))
	})

	t.Run("with credential", func(t *testing.T) {
		db, server := newFakeDatabase(t, restfire.WithCredential("secret"))
		server.RequireCredential("secret")

		_, err := restfire.GetValue[any](db.RootReference()).Result()
		require.NoError(t, err)

		requests := server.Requests()
		require.Equal(t, 1, len(requests))
		assert.Equal(t, http.MethodGet, requests[0].Method)
		assert.Equal(t, "", requests[0].Path)
	})

	t.Run("denied path", func(t *testing.T) {
		db, server := newFakeDatabase(t)
		server.Deny("private")

		_, err := restfire.SetValue(mustReference(t, db, "private/a"), 1).Result()
		assert.True(t, errors.Is(err, restfire.ErrAccessDenied))

		_, err = restfire.SetValue(mustReference(t, db, "public/a"), 1).Result()
		require.NoError(t, err)
	})
}

func TestFakeServer_InjectedFailures(t *testing.T) {
	db, server := newFakeDatabase(t)

	cause := errors.New("connection reset by peer")
	server.InjectError(cause)
	_, err := restfire.GetValue[any](db.RootReference()).Result()
	assert.True(t, errors.Is(err, restfire.ErrRequestFailed))
	assert.True(t, errors.Is(err, cause))

	server.InjectResponse(http.StatusGatewayTimeout, "")
	_, err = restfire.GetValue[any](db.RootReference()).Result()
	assert.True(t, errors.Is(err, restfire.ErrUnexpectedStatus))

	server.InjectResponse(http.StatusOK, "not json")
	_, err = restfire.GetValue[any](db.RootReference()).Result()
	assert.True(t, errors.Is(err, restfire.ErrDeserialization))

	_, err = restfire.GetValue[any](db.RootReference()).Result()
	require.NoError(t, err)
}

func TestFakeServer_Rules(t *testing.T) {
	db, _ := newFakeDatabase(t)
	rulesRef := db.SecurityRules()

	rules, err := rulesRef.Get().Result()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{restfire.ReadKey: true, restfire.WriteKey: true}, rules.Rules())

	newRules := restfire.NewRules(map[string]any{
		restfire.ReadKey: "auth != null",
		"users": map[string]any{
			restfire.IndexKey: []any{"age"},
		},
	})
	_, err = rulesRef.Set(newRules).Result()
	require.NoError(t, err)

	rules, err = rulesRef.Get().Result()
	require.NoError(t, err)
	assert.Equal(t, newRules.Rules(), rules.Rules())
}

func TestFakeServer_Listen(t *testing.T) {
	db, server := newFakeDatabase(t)
	server.Put("rooms/r1", map[string]any{"topic": "go"})

	stream, err := db.EventStream("rooms")
	require.NoError(t, err)

	l, err := stream.StartListening()
	require.NoError(t, err)

	snapshot := restfire.NewSnapshot()

	ev := nextEvent(t, l)
	assert.Equal(t, restfire.EventValueSet, ev.Type)
	assert.Equal(t, "/", ev.Path)
	require.NoError(t, snapshot.Apply(ev))

	// a set below the listened location
	_, err = restfire.SetValue(mustReference(t, db, "rooms/r2"), map[string]any{"topic": "rust"}).Result()
	require.NoError(t, err)

	ev = nextEvent(t, l)
	assert.Equal(t, restfire.EventValueSet, ev.Type)
	assert.Equal(t, "/r2", ev.Path)
	require.NoError(t, snapshot.Apply(ev))

	// an update
	_, err = restfire.UpdateValue(mustReference(t, db, "rooms/r1"), map[string]any{"open": true}).Result()
	require.NoError(t, err)

	ev = nextEvent(t, l)
	assert.Equal(t, restfire.EventValueUpdated, ev.Type)
	assert.Equal(t, "/r1", ev.Path)
	require.NoError(t, snapshot.Apply(ev))

	// keep alive is not delivered
	server.SendKeepAlive("rooms")

	// a set above the listened location
	server.Put("", map[string]any{"rooms": map[string]any{"r3": map[string]any{"topic": "c"}}})

	ev = nextEvent(t, l)
	assert.Equal(t, restfire.EventValueSet, ev.Type)
	assert.Equal(t, "/", ev.Path)
	require.NoError(t, snapshot.Apply(ev))

	assert.Equal(t, map[string]any{
		"r3": map[string]any{"topic": "c"},
	}, snapshot.Value())

	assert.Equal(t, nil, stream.StopListening())
	assert.Equal(t, nil, waitEnd(t, l))
	assert.Equal(t, restfire.StreamIdle, stream.State())
}

func TestFakeServer_Listen_Termination(t *testing.T) {
	t.Run("cancelled", func(t *testing.T) {
		db, server := newFakeDatabase(t)

		stream, err := db.EventStream("rooms")
		require.NoError(t, err)

		l, err := stream.StartListening()
		require.NoError(t, err)
		nextEvent(t, l)

		server.CancelStreams("rooms")

		err = waitEnd(t, l)
		assert.True(t, errors.Is(err, restfire.ErrAccessDenied))
		assert.Equal(t, restfire.StreamIdle, stream.State())
	})

	t.Run("credential revoked", func(t *testing.T) {
		db, server := newFakeDatabase(t)

		stream, err := db.EventStream("rooms")
		require.NoError(t, err)

		l, err := stream.StartListening()
		require.NoError(t, err)
		nextEvent(t, l)

		server.RevokeCredential()

		err = waitEnd(t, l)
		assert.True(t, errors.Is(err, restfire.ErrCredentialExpired))
	})

	t.Run("closed by server", func(t *testing.T) {
		db, server := newFakeDatabase(t)

		stream, err := db.EventStream("rooms")
		require.NoError(t, err)

		l, err := stream.StartListening()
		require.NoError(t, err)
		nextEvent(t, l)

		server.CloseStreams("")

		assert.Equal(t, nil, waitEnd(t, l))
		assert.Equal(t, restfire.StreamIdle, stream.State())
	})

	t.Run("denied", func(t *testing.T) {
		db, server := newFakeDatabase(t)
		server.Deny("rooms")

		stream, err := db.EventStream("rooms/r1")
		require.NoError(t, err)

		l, err := stream.StartListening()
		require.NoError(t, err)

		err = waitEnd(t, l)
		assert.True(t, errors.Is(err, restfire.ErrAccessDenied))
	})

	t.Run("raw protocol error", func(t *testing.T) {
		db, server := newFakeDatabase(t)

		stream, err := db.EventStream("rooms")
		require.NoError(t, err)

		l, err := stream.StartListening()
		require.NoError(t, err)
		nextEvent(t, l)

		server.SendRaw("rooms", "event: unknown\ndata: 1\n\n")

		err = waitEnd(t, l)
		assert.True(t, errors.Is(err, restfire.ErrDeserialization))
	})
}

func TestFakeServer_ReservedCharactersInKeys(t *testing.T) {
	db, server := newFakeDatabase(t, restfire.WithCredential("tok"))

	_, err := restfire.SetValue(mustReference(t, db, "users/what"), "sibling").Result()
	require.NoError(t, err)

	for _, key := range []string{"what?x", "100%", "a b", "a&b"} {
		_, err := restfire.SetValue(mustReference(t, db, "users/"+key), key).Result()
		require.NoError(t, err, key)
	}

	assert.Equal(t, map[string]any{
		"what":   "sibling",
		"what?x": "what?x",
		"100%":   "100%",
		"a b":    "a b",
		"a&b":    "a&b",
	}, server.Value("users"))

	value, err := restfire.GetValue[string](mustReference(t, db, "users/100%")).Result()
	require.NoError(t, err)
	assert.Equal(t, "100%", value)
}
