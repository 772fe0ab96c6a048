package restfire

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReference_Navigation(t *testing.T) {
	db := newTestDatabase(t, &transportMock{})

	ref, err := db.Reference("users/alice")
	require.NoError(t, err)

	child, err := ref.Child("profile/name")
	require.NoError(t, err)
	assert.Equal(t, testBaseURL+"/users/alice/profile/name", child.ReferenceURL())
	assert.Equal(t, "name", child.Key())

	assert.Equal(t, ref.ReferenceURL(), child.Parent().Parent().ReferenceURL())
	assert.Equal(t, testBaseURL+"/", child.Root().ReferenceURL())
	assert.Equal(t, true, child.Root().IsRoot())
	assert.Equal(t, true, child.Root().Parent().IsRoot())

	_, err = ref.Child("a/.b")
	assert.Equal(t, ErrInvalidArgument, err)

	assert.Equal(t, ref.Location(), ref.EventStream().Reference().Location())
}

func TestReference_SetValue(t *testing.T) {
	m := &transportMock{doFunc: respondWith(200, `{"a":1}`)}
	db := newTestDatabase(t, m, WithCredential("token"))

	ref, err := db.Reference("sample")
	require.NoError(t, err)

	value, err := SetValue(ref, sampleValue{A: 1}).Result()
	require.NoError(t, err)
	assert.Equal(t, sampleValue{A: 1}, value)

	requests := m.getRequests()
	require.Equal(t, 1, len(requests))
	assert.Equal(t, http.MethodPut, requests[0].Method)
	assert.Equal(t, testBaseURL+"/sample.json?auth=token", requests[0].URL)
	assert.Equal(t, `{"a":1}`, string(requests[0].Body))
}

func TestReference_UpdateValue(t *testing.T) {
	m := &transportMock{doFunc: respondWith(200, `{"b":2}`)}
	db := newTestDatabase(t, m)

	ref := db.RootReference()
	value, err := UpdateValue(ref, map[string]int{"b": 2}).Result()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"b": 2}, value)

	requests := m.getRequests()
	assert.Equal(t, http.MethodPatch, requests[0].Method)
	assert.Equal(t, testBaseURL+"/.json", requests[0].URL)
}

func TestReference_GetValue_Errors(t *testing.T) {
	t.Run("access denied", func(t *testing.T) {
		m := &transportMock{doFunc: respondWith(401, `{"error":"Permission denied"}`)}
		db := newTestDatabase(t, m)

		_, err := GetValue[sampleValue](db.RootReference()).Result()
		assert.True(t, errors.Is(err, ErrAccessDenied))
	})

	t.Run("transport failure hides credential", func(t *testing.T) {
		cause := errors.New("connection refused")
		m := &transportMock{doFunc: func(req *Request) (*Response, error) {
			return nil, cause
		}}
		db := newTestDatabase(t, m, WithCredential("secret"))

		ref, err := db.Reference("users")
		require.NoError(t, err)

		_, err = GetValue[any](ref).Result()
		assert.Equal(t, &Error{
			Kind:  ErrRequestFailed,
			URL:   testBaseURL + "/users",
			Cause: cause,
		}, err)
		assert.True(t, errors.Is(err, cause))
	})

	t.Run("marshal failure", func(t *testing.T) {
		m := &transportMock{}
		db := newTestDatabase(t, m)

		_, err := SetValue[any](db.RootReference(), make(chan int)).Result()
		assert.True(t, errors.Is(err, ErrInvalidArgument))
		assert.Equal(t, 0, len(m.getRequests()))
	})
}

func TestReference_Push(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		m := &transportMock{doFunc: respondWith(200, `{"name":"abc"}`)}
		db := newTestDatabase(t, m)

		ref, err := db.Reference("messages")
		require.NoError(t, err)

		child, err := ref.Push().Result()
		require.NoError(t, err)
		assert.Equal(t, "messages/abc", child.Path())
		assert.Equal(t, "abc", child.Key())

		requests := m.getRequests()
		assert.Equal(t, http.MethodPost, requests[0].Method)
		assert.Equal(t, "{}", string(requests[0].Body))
	})

	t.Run("invalid name", func(t *testing.T) {
		m := &transportMock{doFunc: respondWith(200, `{"name":""}`)}
		db := newTestDatabase(t, m)

		child, err := db.RootReference().Push().Result()
		assert.True(t, errors.Is(err, ErrDeserialization))
		assert.Nil(t, child)
	})

	t.Run("unexpected status", func(t *testing.T) {
		m := &transportMock{doFunc: respondWith(500, `oops`)}
		db := newTestDatabase(t, m)

		_, err := db.RootReference().Push().Result()
		assert.True(t, errors.Is(err, ErrUnexpectedStatus))
	})
}

func TestReference_Priority(t *testing.T) {
	m := &transportMock{doFunc: respondWith(200, `3`)}
	db := newTestDatabase(t, m, WithCredential("token"))

	ref, err := db.Reference("users/alice")
	require.NoError(t, err)

	priority, err := ref.GetPriority().Result()
	require.NoError(t, err)
	assert.Equal(t, 3.0, priority)

	_, err = ref.SetPriority(3).Result()
	require.NoError(t, err)

	_, err = ref.RemovePriority().Result()
	require.NoError(t, err)

	requests := m.getRequests()
	require.Equal(t, 3, len(requests))
	for _, req := range requests {
		assert.Equal(t, testBaseURL+"/users/alice/.priority.json?auth=token", req.URL)
	}
	assert.Equal(t, http.MethodGet, requests[0].Method)
	assert.Equal(t, http.MethodPut, requests[1].Method)
	assert.Equal(t, "3", string(requests[1].Body))
	assert.Equal(t, http.MethodDelete, requests[2].Method)
}

func TestReference_OnComplete(t *testing.T) {
	m := &transportMock{doFunc: respondWith(200, `"hello"`)}
	db, err := NewDatabase(testBaseURL, m, WithLogger(NewNopLogger()))
	require.NoError(t, err)

	result := make(chan string, 1)
	GetValue[string](db.RootReference()).OnComplete(func(value string, err error) {
		result <- value
	})

	assert.Equal(t, "hello", <-result)
	db.Close()
}

func TestReference_ReservedCharactersInKeys(t *testing.T) {
	keys := []string{"what?x", "100%", "a b", "a&b", "a+b", "x=1;y"}

	assertWireURL := func(t *testing.T, rawURL string, key string, extra url.Values) {
		u, err := url.Parse(rawURL)
		require.NoError(t, err)
		assert.Equal(t, "/users/"+key+".json", u.Path)

		query := url.Values{"auth": []string{"tok"}}
		for name, values := range extra {
			query[name] = values
		}
		assert.Equal(t, query, u.Query())
	}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			m := &transportMock{}
			db := newTestDatabase(t, m, WithCredential("tok"))

			ref, err := db.Reference("users/" + key)
			require.NoError(t, err)
			assert.Equal(t, key, ref.Key())

			_, err = SetValue[any](ref, 1).Result()
			require.NoError(t, err)

			_, err = GetValue[any](ref).Result()
			require.NoError(t, err)

			q := ref.Query()
			require.NoError(t, q.OrderByKey())
			_, err = RunQuery[any](q).Result()
			require.NoError(t, err)

			l, err := ref.EventStream().StartListening()
			require.NoError(t, err)
			assert.Equal(t, nil, waitListener(t, l))

			requests := m.getRequests()
			require.Equal(t, 4, len(requests))

			assert.Equal(t, http.MethodPut, requests[0].Method)
			assertWireURL(t, requests[0].URL, key, nil)
			assertWireURL(t, requests[1].URL, key, nil)
			assertWireURL(t, requests[2].URL, key, url.Values{"orderBy": []string{`"$key"`}})
			assertWireURL(t, requests[3].URL, key, nil)
			assert.Equal(t, "text/event-stream", requests[3].Header.Get("Accept"))
		})
	}

	t.Run("exact wire url", func(t *testing.T) {
		m := &transportMock{}
		db := newTestDatabase(t, m, WithCredential("tok"))

		ref, err := db.Reference("users/what?x")
		require.NoError(t, err)
		_, err = SetValue[any](ref, 1).Result()
		require.NoError(t, err)

		assert.Equal(t, testBaseURL+"/users/what%3Fx.json?auth=tok", m.getRequests()[0].URL)
		assert.Equal(t, testBaseURL+"/users/what%3Fx", ref.ReferenceURL())
	})
}
