package eastmoney

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lsjzFixture = `{
	"Data": {
		"LSJZList": [
			{"FSRQ": "2024-01-10", "DWJZ": "1.2345", "LJJZ": "2.1"},
			{"FSRQ": "2024-01-09", "DWJZ": "1.2299", "LJJZ": "2.09"},
			{"FSRQ": "2024-01-08", "DWJZ": "", "LJJZ": ""}
		]
	},
	"ErrCode": 0,
	"ErrMsg": null
}`

func TestFetchNavHistory(t *testing.T) {
	var gotPath, gotReferer, gotFund string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotReferer = r.Header.Get("Referer")
		gotFund = r.URL.Query().Get("fundCode")
		w.Write([]byte(lsjzFixture))
	}))
	defer server.Close()

	client := NewClient(server.URL, zerolog.Nop())
	points, err := client.FetchNavHistory("000001", 30)
	require.NoError(t, err)

	assert.Equal(t, "/f10/lsjz", gotPath)
	assert.Equal(t, refererURL, gotReferer)
	assert.Equal(t, "000001", gotFund)

	// The row without a published NAV is dropped
	require.Len(t, points, 2)
	assert.Equal(t, "2024-01-10", points[0].Day)
	assert.Equal(t, "1.2345", points[0].Nav.String())
	assert.Equal(t, "2024-01-09", points[1].Day)
}

func TestFetchNavHistoryRetriesThenSucceeds(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(lsjzFixture))
	}))
	defer server.Close()

	client := NewClient(server.URL, zerolog.Nop())
	points, err := client.FetchNavHistory("000001", 10)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Len(t, points, 2)
}

func TestFetchNavHistoryApiError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Data": {"LSJZList": []}, "ErrCode": 130, "ErrMsg": "system busy"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, zerolog.Nop())
	_, err := client.FetchNavHistory("000001", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "system busy")
}

func TestFetchNavHistoryRequiresFundCode(t *testing.T) {
	client := NewClient("http://localhost", zerolog.Nop())
	_, err := client.FetchNavHistory("", 10)
	assert.Error(t, err)
}
