package dlna

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientFetchDescription(t *testing.T) {
	data, err := BuildDescription(testDescriptor())
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/description.xml" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	c := NewClient(0, nil)
	got, err := c.FetchDescription(context.Background(), srv.URL+"/description.xml")
	require.NoError(t, err)
	assert.Equal(t, "Living Room & Kitchen", got.FriendlyName)

	_, err = c.FetchDescription(context.Background(), srv.URL+"/missing.xml")
	assert.Error(t, err)
}

func TestClientInvoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `"`+avTransport+`#Play"`, r.Header.Get("SOAPAction"))
		body, _ := io.ReadAll(r.Body)
		action, err := ParseEnvelope(body)
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if action.Args["Speed"] != "1" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write(EncodeFault(ErrPlaySpeedNotSupported))
			return
		}
		_, _ = w.Write(EncodeResponse(avTransport, "Play", nil))
	}))
	defer srv.Close()

	c := NewClient(0, nil)
	out, err := c.Invoke(context.Background(), srv.URL, avTransport, "Play", []Arg{{"InstanceID", "0"}, {"Speed", "1"}})
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = c.Invoke(context.Background(), srv.URL, avTransport, "Play", []Arg{{"InstanceID", "0"}, {"Speed", "2"}})
	var upnpErr *UPnPError
	require.ErrorAs(t, err, &upnpErr)
	assert.Equal(t, 717, upnpErr.Code)
}

func TestResolveURL(t *testing.T) {
	got, err := ResolveURL("http://192.168.1.10:8080/description.xml", "/AVTransport/control")
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.10:8080/AVTransport/control", got)

	got, err = ResolveURL("http://192.168.1.10:8080/dev/description.xml", "control")
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.10:8080/dev/control", got)
}
