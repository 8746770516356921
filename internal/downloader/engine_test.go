package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/kenechiaugustine/Justdownloads4u-server/internal/tempstore"
)

type stubExtractor struct {
	mu         sync.Mutex
	probeCalls int
	fetches    []string
	fetchDirs  []string
	probe      *MediaProbe
	probeErr   error
	fetchErr   error
}

func (s *stubExtractor) Probe(_ context.Context, _ string) (*MediaProbe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probeCalls++
	if s.probeErr != nil {
		return nil, s.probeErr
	}
	return s.probe, nil
}

func (s *stubExtractor) Fetch(_ context.Context, _, format, outPath string) error {
	s.mu.Lock()
	s.fetches = append(s.fetches, format)
	s.fetchDirs = append(s.fetchDirs, filepath.Dir(outPath))
	s.mu.Unlock()

	if s.fetchErr != nil {
		return s.fetchErr
	}
	// Resolve the extension template the way yt-dlp would.
	path := strings.ReplaceAll(outPath, "%(ext)s", "m4a")
	return os.WriteFile(path, []byte("stub media bytes"), 0644)
}

type stubMuxer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *stubMuxer) Mux(_ context.Context, _, _, outPath string) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	return os.WriteFile(outPath, []byte("muxed media bytes"), 0644)
}

func testProbe() *MediaProbe {
	return &MediaProbe{
		Title:     "Test Video",
		Thumbnail: "https://example.com/thumb.jpg",
		Formats: []ProbeFormat{
			{FormatID: "137", Ext: "mp4", Resolution: "1920x1080", Width: 1920, Height: 1080, VCodec: "avc1", ACodec: "none", TBR: 4400},
			{FormatID: "22", Ext: "mp4", Resolution: "1280x720", Width: 1280, Height: 720, VCodec: "avc1", ACodec: "mp4a.40.2", TBR: 2100},
			{FormatID: "140", Ext: "m4a", Resolution: "audio only", FormatNote: "audio only", VCodec: "none", ACodec: "mp4a.40.2", ABR: 129},
		},
	}
}

func scratchCount(t *testing.T, root string) int {
	t.Helper()
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read temp root: %v", err)
	}
	return len(entries)
}

func TestEngineDownload(t *testing.T) {
	Convey("Engine.Download", t, func() {
		root := t.TempDir()
		store := tempstore.New(root)
		ex := &stubExtractor{probe: testProbe()}
		mux := &stubMuxer{}
		engine := NewEngine(ex, mux, store)
		ctx := context.Background()

		Convey("rejects malformed URLs before touching the extractor", func() {
			for _, raw := range []string{"", "   ", "notaurl", "ftp://example.com/v", "://bad"} {
				_, err := engine.Download(ctx, raw, "720p")
				So(err, ShouldNotBeNil)
				cat, ok := CategoryOf(err)
				So(ok, ShouldBeTrue)
				So(cat, ShouldEqual, CategoryInvalidInput)
			}
			So(ex.probeCalls, ShouldEqual, 0)
			So(scratchCount(t, root), ShouldEqual, 0)
		})

		Convey("streams a pre-muxed container directly", func() {
			res, err := engine.Download(ctx, "https://example.com/video123", "720p")
			So(err, ShouldBeNil)
			So(ex.fetches, ShouldResemble, []string{"22"})
			So(mux.calls, ShouldEqual, 0)
			So(res.ContentType, ShouldEqual, "video/mp4")
			So(res.Filename, ShouldEqual, "Test Video.mp4")
			So(scratchCount(t, root), ShouldEqual, 1)

			So(res.Close(), ShouldBeNil)
			So(scratchCount(t, root), ShouldEqual, 0)
		})

		Convey("muxes elementary streams for the highest quality", func() {
			res, err := engine.Download(ctx, "https://example.com/video123", "")
			So(err, ShouldBeNil)
			So(ex.fetches, ShouldContain, "137")
			So(ex.fetches, ShouldContain, "140")
			So(mux.calls, ShouldEqual, 1)
			So(res.ContentType, ShouldEqual, "video/mp4")

			So(res.Close(), ShouldBeNil)
			So(scratchCount(t, root), ShouldEqual, 0)
		})

		Convey("audio selector never invokes the muxer", func() {
			res, err := engine.Download(ctx, "https://example.com/video123", AudioQuality)
			So(err, ShouldBeNil)
			So(ex.fetches, ShouldResemble, []string{bestAudioSelector})
			So(mux.calls, ShouldEqual, 0)
			So(res.ContentType, ShouldEqual, "audio/mp4")
			So(res.Filename, ShouldEqual, "Test Video.m4a")

			So(res.Close(), ShouldBeNil)
			So(scratchCount(t, root), ShouldEqual, 0)
		})

		Convey("audio works even when the probe lists no audio format", func() {
			ex.probe = &MediaProbe{
				Title: "Test Video",
				Formats: []ProbeFormat{
					{FormatID: "137", Ext: "mp4", Resolution: "1920x1080", Height: 1080, VCodec: "avc1", ACodec: "none"},
				},
			}
			res, err := engine.Download(ctx, "https://example.com/video123", AudioQuality)
			So(err, ShouldBeNil)
			So(mux.calls, ShouldEqual, 0)
			So(strings.HasPrefix(res.ContentType, "audio/"), ShouldBeTrue)
			So(res.Close(), ShouldBeNil)
		})

		Convey("raw format_id from a prior probe is honored", func() {
			res, err := engine.Download(ctx, "https://example.com/video123", "140")
			So(err, ShouldBeNil)
			So(ex.fetches, ShouldResemble, []string{"140"})
			So(res.ContentType, ShouldEqual, "audio/mp4")
			So(res.Close(), ShouldBeNil)
		})

		Convey("unrecognized quality selector is invalid input", func() {
			_, err := engine.Download(ctx, "https://example.com/video123", "potato")
			cat, ok := CategoryOf(err)
			So(ok, ShouldBeTrue)
			So(cat, ShouldEqual, CategoryInvalidInput)
			So(ex.fetches, ShouldBeEmpty)
			So(scratchCount(t, root), ShouldEqual, 0)
		})

		Convey("scratch dir is removed when the fetch fails", func() {
			ex.fetchErr = wrapCategory(CategoryExtraction, errors.New("boom"))
			_, err := engine.Download(ctx, "https://example.com/video123", "720p")
			So(err, ShouldNotBeNil)
			So(scratchCount(t, root), ShouldEqual, 0)
		})

		Convey("scratch dir is removed when the mux fails", func() {
			mux.err = wrapCategory(CategoryMux, errors.New("no ffmpeg"))
			_, err := engine.Download(ctx, "https://example.com/video123", "")
			cat, ok := CategoryOf(err)
			So(ok, ShouldBeTrue)
			So(cat, ShouldEqual, CategoryMux)
			So(scratchCount(t, root), ShouldEqual, 0)
		})

		Convey("extraction failure propagates its category", func() {
			ex.probeErr = wrapCategory(CategoryExtraction, errors.New("video unavailable"))
			_, err := engine.Download(ctx, "https://example.com/video123", "720p")
			cat, ok := CategoryOf(err)
			So(ok, ShouldBeTrue)
			So(cat, ShouldEqual, CategoryExtraction)
		})
	})
}

func TestEngineDownloadConcurrent(t *testing.T) {
	Convey("Concurrent downloads never share scratch directories", t, func() {
		root := t.TempDir()
		store := tempstore.New(root)
		ex := &stubExtractor{probe: testProbe()}
		engine := NewEngine(ex, &stubMuxer{}, store)

		const n = 8
		results := make([]*Result, n)
		errs := make([]error, n)

		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func(i int) {
				defer wg.Done()
				url := fmt.Sprintf("https://example.com/video%d", i)
				results[i], errs[i] = engine.Download(context.Background(), url, "720p")
			}(i)
		}
		wg.Wait()

		dirs := map[string]struct{}{}
		for i := 0; i < n; i++ {
			So(errs[i], ShouldBeNil)
			So(results[i], ShouldNotBeNil)
		}
		for _, d := range ex.fetchDirs {
			dirs[d] = struct{}{}
		}
		So(len(dirs), ShouldEqual, n)

		for _, res := range results {
			So(res.Close(), ShouldBeNil)
		}
		So(scratchCount(t, root), ShouldEqual, 0)
	})
}

func TestEngineInfo(t *testing.T) {
	Convey("Engine.Info", t, func() {
		store := tempstore.New(t.TempDir())
		ex := &stubExtractor{probe: testProbe()}
		engine := NewEngine(ex, &stubMuxer{}, store)
		ctx := context.Background()

		Convey("rejects malformed URLs before touching the extractor", func() {
			_, err := engine.Info(ctx, "not a url")
			cat, ok := CategoryOf(err)
			So(ok, ShouldBeTrue)
			So(cat, ShouldEqual, CategoryInvalidInput)
			So(ex.probeCalls, ShouldEqual, 0)
		})

		Convey("maps and orders formats deterministically", func() {
			first, err := engine.Info(ctx, "https://example.com/video123")
			So(err, ShouldBeNil)
			second, err := engine.Info(ctx, "https://example.com/video123")
			So(err, ShouldBeNil)

			So(first.Title, ShouldEqual, "Test Video")
			So(len(first.Formats), ShouldEqual, 3)
			So(first.Formats[0].FormatID, ShouldEqual, "137")
			So(first.Formats[1].FormatID, ShouldEqual, "22")
			So(first.Formats[2].FormatID, ShouldEqual, "140")
			So(second, ShouldResemble, first)
		})
	})
}
