package geonames

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okBody = `{"sunrise":"2019-07-03 05:19","lng":8.57,"countryCode":"DE","gmtOffset":1,"rawOffset":1,
"timezoneId":"Europe/Berlin","dstOffset":2,"dates":[{"date":"2019-07-03","offsetToGmt":2},{"date":"2019-07-03","offsetToGmt":2}],
"lat":50.03}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		Username:     "demo",
		BaseURL:      srv.URL,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 2 * time.Millisecond,
	})
	require.NoError(t, err)
	return c, &calls
}

func TestFindTimezoneSuccess(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "50.03", q.Get("lat"))
		assert.Equal(t, "8.57", q.Get("lng"))
		assert.Equal(t, "2019-07-03", q.Get("date"))
		assert.Equal(t, "demo", q.Get("username"))
		fmt.Fprint(w, okBody)
	})

	res, err := c.FindTimezone(context.Background(), 50.03, 8.57, "2019-07-03", 3*time.Second, 5)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", res.TZID)
	assert.Equal(t, 2.0, res.GMTOffset)
	assert.Equal(t, "2019-07-03", res.Date)
	assert.InDelta(t, 50.03, res.Latitude, 1e-9)
	assert.True(t, res.Complete())
}

func TestFindTimezoneStatusEnvelope(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		kind  Kind
		fatal bool
	}{
		{"insufficient privileges", `{"status":{"message":"user account not enabled to use the free webservice. Please enable it on your account page","value":10}}`, Authentication, true},
		{"bad credentials", `{"status":{"message":"invalid user","value":10}}`, Authentication, true},
		{"invalid date", `{"status":{"message":"invalid date","value":14}}`, InvalidDate, false},
		{"daily limit", `{"status":{"message":"the daily limit of 20000 credits has been exceeded","value":18}}`, CreditLimit, true},
		{"hourly limit", `{"status":{"message":"hourly limit","value":19}}`, CreditLimit, true},
		{"weekly limit", `{"status":{"message":"weekly limit","value":20}}`, CreditLimit, true},
		{"other service error", `{"status":{"message":"no result found","value":15}}`, Service, false},
		{"missing dates", `{"lat":1,"lng":2,"timezoneId":"UTC"}`, InvalidDate, false},
		{"missing coordinates", `{"timezoneId":"UTC","dates":[{"date":"2019-07-03"},{"offsetToGmt":0}]}`, Malformed, false},
		{"not json", `<html>oops</html>`, Malformed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			})
			_, err := c.FindTimezone(context.Background(), 1, 2, "2019-07-03", 0, 0)
			require.Error(t, err)

			var gerr *Error
			require.True(t, errors.As(err, &gerr), "want *Error, got %T", err)
			assert.Equal(t, tt.kind, gerr.Kind)
			assert.Equal(t, tt.fatal, gerr.IsFatal())
			assert.Equal(t, tt.fatal, IsFatal(fmt.Errorf("wrapped: %w", err)))
			assert.EqualValues(t, 1, atomic.LoadInt32(calls), "envelope errors are not retried")
		})
	}
}

func TestFindTimezoneRetriesThenGivesUp(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.FindTimezone(context.Background(), 1, 2, "2019-07-03", time.Second, 3)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, RetryExhausted, kind)
	assert.False(t, IsFatal(err))
	assert.EqualValues(t, 4, atomic.LoadInt32(calls), "one attempt plus three retries")
}

func TestFindTimezoneRecoversAfterThrottle(t *testing.T) {
	var n int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, okBody)
	})

	res, err := c.FindTimezone(context.Background(), 50.03, 8.57, "2019-07-03", time.Second, 5)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", res.TZID)
}

func TestFindTimezoneDoesNotRetryClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"html not found", http.StatusNotFound, "<html>not here</html>"},
		{"unauthorized page", http.StatusUnauthorized, "denied"},
		{"json without envelope", http.StatusBadRequest, `{"error":"bad request"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := c.FindTimezone(context.Background(), 1, 2, "2019-07-03", time.Second, 5)
			var gerr *Error
			require.ErrorAs(t, err, &gerr)
			assert.Equal(t, Service, gerr.Kind)
			assert.Equal(t, tt.status, gerr.Status)
			assert.Contains(t, err.Error(), fmt.Sprintf("HTTP %d", tt.status))
			assert.False(t, IsFatal(err))
			assert.EqualValues(t, 1, atomic.LoadInt32(calls))
		})
	}
}

func TestFindTimezoneEnvelopeOnFailedStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status":{"message":"invalid user","value":10}}`)
	})

	_, err := c.FindTimezone(context.Background(), 1, 2, "2019-07-03", time.Second, 5)
	kind, _ := KindOf(err)
	assert.Equal(t, Authentication, kind)
	assert.True(t, IsFatal(err))
}

func TestFindTimezoneConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewClient(Config{Username: "demo", BaseURL: url, RetryWaitMin: time.Millisecond})
	require.NoError(t, err)

	_, err = c.FindTimezone(context.Background(), 1, 2, "2019-07-03", time.Second, 5)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, Connection, kind)
	assert.False(t, IsFatal(err))
}

func TestFindTimezoneTimeout(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, okBody)
	})

	_, err := c.FindTimezone(context.Background(), 1, 2, "2019-07-03", 20*time.Millisecond, 1)
	kind, _ := KindOf(err)
	assert.Equal(t, Connection, kind)
}

func TestNewClientRequiresUsername(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestEmptyResultIsNotComplete(t *testing.T) {
	a := Empty(1, 2, "2019-07-03")
	b := Empty(3, 4, "2020-01-01")
	assert.False(t, a.Complete())
	assert.Equal(t, 1.0, a.Latitude, "results do not share state")
	assert.Equal(t, "2020-01-01", b.Date)
}
