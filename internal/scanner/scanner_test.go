package scanner

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/duewatch/internal/domain"
	"github.com/MrSnakeDoc/duewatch/internal/duedate"
	"github.com/MrSnakeDoc/duewatch/internal/extract"
	"github.com/MrSnakeDoc/duewatch/internal/index"
	"github.com/MrSnakeDoc/duewatch/internal/logger"
	"github.com/MrSnakeDoc/duewatch/internal/store"
)

const (
	pageURL = "https://webwork.example.edu/webwork2/math101/"
	rowPage = `<table><tr><td>Problem Set 1</td><td>due 12/15/2025 11:59pm</td></tr></table>`
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func newTestScanner(t *testing.T, st store.Store, opts ...Option) (*Scanner, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2025, time.October, 1, 9, 0, 0, 0, time.Local)}
	ex := extract.New(duedate.New(duedate.WithClock(c.Now)), c.Now)
	opts = append([]Option{WithClock(c.Now)}, opts...)
	return New(ex, domain.NewMerger(0), st, logger.Nop(), opts...), c
}

// seqSource serves pages[i] on the i-th load, repeating the last one.
type seqSource struct {
	url   string
	pages []string
	err   error
	calls int
}

func (s *seqSource) URL() string { return s.url }

func (s *seqSource) Load(context.Context) (*goquery.Document, error) {
	i := s.calls
	s.calls++
	if s.err != nil && i == 0 {
		return nil, s.err
	}
	if i >= len(s.pages) {
		i = len(s.pages) - 1
	}
	return goquery.NewDocumentFromReader(strings.NewReader(s.pages[i]))
}

func TestScanUnsupportedPage(t *testing.T) {
	s, _ := newTestScanner(t, index.NewMemoryIndex())
	src := &seqSource{url: "https://news.example.com/", pages: []string{rowPage}}

	res := s.Scan(context.Background(), src, Options{Attempts: 5, Persist: true})
	assert.False(t, res.Supported)
	assert.Empty(t, res.Assignments)
	assert.Equal(t, 0, res.Attempts)
	assert.Equal(t, 0, src.calls, "rejected pages are never loaded")
}

func TestScanPersistsAndRefreshesLastSeen(t *testing.T) {
	st := index.NewMemoryIndex()
	s, c := newTestScanner(t, st)
	src := HTMLSource{PageURL: pageURL, HTML: rowPage}
	ctx := context.Background()

	first := s.Scan(ctx, src, Options{Attempts: 1, Persist: true})
	require.True(t, first.Supported)
	require.True(t, first.Persisted)
	require.NoError(t, first.Err)
	require.Len(t, first.Assignments, 1)

	stored, _ := st.Assignments(ctx)
	require.Len(t, stored, 1)
	assert.Equal(t, "Problem Set 1", stored[0].Title)
	assert.Equal(t, domain.FormatInstant(time.Date(2025, time.December, 15, 23, 59, 0, 0, time.Local)), stored[0].DueDateISO)
	firstSeen := stored[0].FirstSeenAt

	later := c.Now().Add(time.Hour)
	c.Set(later)
	second := s.Scan(ctx, src, Options{Attempts: 1, Persist: true})
	require.True(t, second.Persisted)

	stored, _ = st.Assignments(ctx)
	require.Len(t, stored, 1, "a repeated scan must not duplicate the record")
	assert.Equal(t, firstSeen, stored[0].FirstSeenAt)
	assert.Equal(t, domain.FormatInstant(later), stored[0].LastSeenAt)
}

func TestScanRetriesUntilFound(t *testing.T) {
	s, _ := newTestScanner(t, nil)
	src := &seqSource{url: pageURL, pages: []string{"<p>loading</p>", "<p>loading</p>", rowPage}}

	res := s.Scan(context.Background(), src, Options{Attempts: 5, Wait: time.Millisecond})
	assert.Equal(t, 3, res.Attempts)
	assert.Len(t, res.Assignments, 1)
}

func TestScanGivesUpAfterAttempts(t *testing.T) {
	s, _ := newTestScanner(t, nil)
	src := &seqSource{url: pageURL, pages: []string{"<p>nothing</p>"}}

	res := s.Scan(context.Background(), src, Options{Attempts: 4, Wait: time.Millisecond})
	assert.True(t, res.Supported)
	assert.Equal(t, 4, res.Attempts)
	assert.Empty(t, res.Assignments)
	assert.NotNil(t, res.Assignments)
}

func TestScanLoadErrorCountsAsAttempt(t *testing.T) {
	s, _ := newTestScanner(t, nil)
	src := &seqSource{url: pageURL, pages: []string{rowPage}, err: errors.New("boom")}

	res := s.Scan(context.Background(), src, Options{Attempts: 3, Wait: time.Millisecond})
	assert.Equal(t, 2, res.Attempts)
	assert.Len(t, res.Assignments, 1)
}

func TestScanStopsOnCancel(t *testing.T) {
	s, _ := newTestScanner(t, nil)
	src := &seqSource{url: pageURL, pages: []string{"<p>nothing</p>"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := s.Scan(ctx, src, Options{Attempts: 50, Wait: time.Second})
	assert.Less(t, res.Attempts, 50)
}

func TestScanDropsOverdue(t *testing.T) {
	st := index.NewMemoryIndex()
	s, _ := newTestScanner(t, st)
	page := `<table>
		<tr><td>Old Set</td><td>due 1/2/2025</td></tr>
		<tr><td>New Set</td><td>due 12/2/2025</td></tr>
	</table>`

	res := s.Scan(context.Background(), HTMLSource{PageURL: pageURL, HTML: page}, Options{Attempts: 1, Persist: true})
	require.Len(t, res.Assignments, 1)
	assert.Equal(t, "New Set", res.Assignments[0].Title)

	stored, _ := st.Assignments(context.Background())
	require.Len(t, stored, 1)
	assert.Equal(t, "New Set", stored[0].Title)
}

func TestScanPreviewDoesNotPersist(t *testing.T) {
	st := index.NewMemoryIndex()
	s, _ := newTestScanner(t, st)

	res := s.Scan(context.Background(), HTMLSource{PageURL: pageURL, HTML: rowPage}, Options{Attempts: 1})
	assert.Len(t, res.Assignments, 1)
	assert.False(t, res.Persisted)
	assert.Equal(t, 0, st.Count())
}

func TestScanHonoursDisabledFlag(t *testing.T) {
	st := index.NewMemoryIndex()
	require.NoError(t, st.SetScanEnabled(context.Background(), false))
	s, _ := newTestScanner(t, st)

	res := s.Scan(context.Background(), HTMLSource{PageURL: pageURL, HTML: rowPage}, Options{Attempts: 1, Persist: true})
	assert.Len(t, res.Assignments, 1, "preview results survive a disabled flag")
	assert.False(t, res.Persisted)
	assert.NoError(t, res.Err)
	assert.Equal(t, 0, st.Count())
}

type failingStore struct {
	*index.MemoryIndex
}

func (failingStore) Update(context.Context, store.Mutation) error {
	return errors.New("store down")
}

func TestScanPersistenceFailureKeepsBatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s, _ := newTestScanner(t, failingStore{index.NewMemoryIndex()}, WithMetrics(m))

	res := s.Scan(context.Background(), HTMLSource{PageURL: pageURL, HTML: rowPage}, Options{Attempts: 1, Persist: true})
	assert.Error(t, res.Err)
	assert.False(t, res.Persisted)
	assert.Len(t, res.Assignments, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.persistErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scans.WithLabelValues(outcomeFound)))
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(rowPage), 0o600))
	s, _ := newTestScanner(t, nil)

	res := s.Scan(context.Background(), FileSource{PageURL: pageURL, Path: path}, Options{Attempts: 1})
	assert.Len(t, res.Assignments, 1)

	_, err := FileSource{PageURL: pageURL, Path: path + ".missing"}.Load(context.Background())
	assert.Error(t, err)
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/course/assignments" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(rowPage))
	}))
	defer srv.Close()

	f := NewFetcher(2*time.Second, "duewatch-test")
	s, _ := newTestScanner(t, nil)

	res := s.Scan(context.Background(), f.Source(srv.URL+"/course/assignments"), Options{Attempts: 1})
	assert.True(t, res.Supported)
	assert.Len(t, res.Assignments, 1)

	_, err := f.Source(srv.URL + "/assignments/missing").Load(context.Background())
	assert.Error(t, err)
}
