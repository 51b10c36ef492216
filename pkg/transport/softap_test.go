package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoftAPPostsRawBody(t *testing.T) {
	var gotMethod, gotPath, gotType, gotAccept string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		gotType, gotAccept = r.Header.Get("Content-Type"), r.Header.Get("Accept")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte{0xde, 0xad})
	}))
	defer srv.Close()

	tr, err := NewSoftAP(SoftAPConfig{Address: srv.URL})
	require.NoError(t, err)

	resp, err := tr.SendReceive(context.Background(), PathSession, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad}, resp)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/prov-session", gotPath)
	assert.Equal(t, "application/x-www-form-urlencoded", gotType)
	assert.Equal(t, "text/plain", gotAccept)
	assert.Equal(t, []byte{1, 2, 3}, gotBody)
}

func TestSoftAPAcceptsHostPort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	tr, err := NewSoftAP(SoftAPConfig{Address: strings.TrimPrefix(srv.URL, "http://")})
	require.NoError(t, err)
	resp, err := tr.SendReceive(context.Background(), PathVersion, []byte("ESP"))
	require.NoError(t, err)
	assert.Equal(t, "/proto-ver", string(resp))
}

func TestSoftAPDefaults(t *testing.T) {
	tr, err := NewSoftAP(SoftAPConfig{})
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.4.1:80", tr.Address())
	assert.Equal(t, DefaultSoftAPTimeout, tr.client.Timeout)
	assert.NotNil(t, tr.client.Jar)

	_, err = NewSoftAP(SoftAPConfig{Address: "http://"})
	assert.Error(t, err)
}

func TestSoftAPNon200StillReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("partial"))
	}))
	defer srv.Close()

	tr, err := NewSoftAP(SoftAPConfig{Address: srv.URL})
	require.NoError(t, err)
	resp, err := tr.SendReceive(context.Background(), PathConfig, nil)
	require.NoError(t, err)
	assert.Equal(t, "partial", string(resp))
}

func TestSoftAPKeepsSessionCookie(t *testing.T) {
	var cookies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil {
			cookies = append(cookies, c.Value)
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "42", Path: "/"})
	}))
	defer srv.Close()

	tr, err := NewSoftAP(SoftAPConfig{Address: srv.URL})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := tr.SendReceive(context.Background(), PathSession, []byte{1})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"42"}, cookies)
}

func TestSoftAPConnectionRefusedIsUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	tr, err := NewSoftAP(SoftAPConfig{Address: addr, Timeout: time.Second})
	require.NoError(t, err)

	_, err = tr.SendReceive(context.Background(), PathConfig, []byte{1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, ErrNetworkUnreachable)

	var te *Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, PathConfig, te.Path)
}

func TestSoftAPTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	tr, err := NewSoftAP(SoftAPConfig{Address: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = tr.SendReceive(context.Background(), PathScan, []byte{1})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, ErrNetworkUnreachable)
}

func TestSoftAPEmptyPath(t *testing.T) {
	tr, err := NewSoftAP(SoftAPConfig{})
	require.NoError(t, err)
	_, err = tr.SendReceive(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrUnknownPath)
}
