package library

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgodwin/civtrace/internal/ratelimit"
)

const listingPage1 = `<!DOCTYPE html>
<html><body>
<table class="ordinance-list">
	<tr><th>Number</th><th>Title</th><th>Document</th></tr>
	<tr>
		<td class="ord-number">2024-15</td>
		<td class="ord-title">An Ordinance Amending Chapter 6 (Animals)</td>
		<td class="ord-doc"><a href="/view.php?node=4821">View</a></td>
	</tr>
	<tr>
		<td class="ord-number">2024-14</td>
		<td class="ord-title">Water and Sewer Rate Adjustment</td>
		<td class="ord-doc"><a href="/files/node/4790">View</a></td>
	</tr>
</table>
<a rel="next" href="/ordinances?page=2">Next</a>
</body></html>`

const listingPage2 = `<!DOCTYPE html>
<html><body>
<table class="ordinance-list">
	<tr>
		<td class="ord-number">2024-13</td>
		<td class="ord-title">Adopting the 2024 Budget</td>
		<td class="ord-doc"><a href="/view.php?node=4755">View</a></td>
	</tr>
</table>
</body></html>`

func TestParseListing(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listingPage1))
	require.NoError(t, err)

	entries := ParseListing(doc)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Number: "2024-15", Title: "An Ordinance Amending Chapter 6 (Animals)", NodeID: "4821"}, entries[0])
	assert.Equal(t, "4790", entries[1].NodeID)
}

func TestNodeIDFromHref(t *testing.T) {
	assert.Equal(t, "4821", nodeIDFromHref("/view.php?node=4821"))
	assert.Equal(t, "4790", nodeIDFromHref("/files/node/4790"))
	assert.Equal(t, "4790", nodeIDFromHref("/files/node/4790?dl=1"))
	assert.Equal(t, "", nodeIDFromHref("/about"))
	assert.Equal(t, "", nodeIDFromHref(""))
}

type fakeSaver struct {
	saved []string
	urls  map[string]string
}

func (f *fakeSaver) SaveAuthoritativeOrdinance(number, title, sourceURL string) error {
	f.saved = append(f.saved, number)
	if f.urls == nil {
		f.urls = make(map[string]string)
	}
	f.urls[number] = sourceURL
	return nil
}

func TestSyncWalksPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, listingPage1)
		case "2":
			fmt.Fprint(w, listingPage2)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "civtrace-test", ratelimit.New(6000, 100))
	saver := &fakeSaver{}

	saved, err := c.Sync(context.Background(), saver, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, saved)
	assert.Equal(t, []string{"2024-15", "2024-14", "2024-13"}, saver.saved)
	assert.Equal(t, srv.URL+"/files/4821.pdf", saver.urls["2024-15"])
}

func TestSyncHonorsMaxPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Every page claims a next page; only the bound stops the walk.
		fmt.Fprint(w, listingPage1)
	}))
	defer srv.Close()

	c := New(srv.URL, "civtrace-test", ratelimit.New(6000, 100))
	saver := &fakeSaver{}

	saved, err := c.Sync(context.Background(), saver, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, saved) // 2 entries x 2 pages
}
