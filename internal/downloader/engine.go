package downloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/kenechiaugustine/Justdownloads4u-server/internal/models"
	"github.com/kenechiaugustine/Justdownloads4u-server/internal/tempstore"
)

// Engine is the request-to-subprocess-to-stream pipeline. It owns no
// state beyond its collaborators; every request is resolved from
// scratch and nothing is cached between calls.
type Engine struct {
	extractor Extractor
	muxer     Muxer
	store     *tempstore.Store
}

func NewEngine(extractor Extractor, muxer Muxer, store *tempstore.Store) *Engine {
	return &Engine{
		extractor: extractor,
		muxer:     muxer,
		store:     store,
	}
}

// Info validates the URL and maps the extractor's metadata into the
// stable /info response shape.
func (e *Engine) Info(ctx context.Context, rawURL string) (*models.VideoInfo, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}

	probe, err := e.extractor.Probe(ctx, rawURL)
	if err != nil {
		return nil, ensureCategory(err, CategoryExtraction)
	}

	return buildVideoInfo(probe), nil
}

// Result is a ready-to-stream download. Closing it releases the file
// handle and deletes the scratch directory, so a Result must be closed
// on every path once Download returns it.
type Result struct {
	Filename    string
	ContentType string
	Size        int64

	file    *os.File
	scratch *tempstore.Scratch
}

func (r *Result) Read(p []byte) (int, error) {
	return r.file.Read(p)
}

func (r *Result) Close() error {
	err := r.file.Close()
	r.scratch.Remove()
	return err
}

// Download resolves the quality selector against freshly probed formats
// (formats can expire, so a prior /info probe is never reused), fetches
// the stream into a request-scoped scratch directory, muxing audio and
// video when no single container satisfies the request, and returns the
// produced file. Exactly one attempt is made; nothing is retried.
func (e *Engine) Download(ctx context.Context, rawURL, quality string) (*Result, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}

	probe, err := e.extractor.Probe(ctx, rawURL)
	if err != nil {
		return nil, ensureCategory(err, CategoryExtraction)
	}

	plan, err := resolvePlan(probe, quality)
	if err != nil {
		return nil, err
	}

	scratch, err := e.store.NewScratch()
	if err != nil {
		return nil, fmt.Errorf("allocate scratch dir: %w", err)
	}

	res, err := e.execute(ctx, rawURL, probe, plan, scratch)
	if err != nil {
		scratch.Remove()
		return nil, err
	}
	return res, nil
}

func (e *Engine) execute(ctx context.Context, rawURL string, probe *MediaProbe, plan *fetchPlan, scratch *tempstore.Scratch) (*Result, error) {
	var (
		path string
		ext  string
		err  error
	)

	switch plan.kind {
	case planDirect:
		ext = plan.direct.Ext
		path = filepath.Join(scratch.Dir, "media."+ext)
		err = ensureCategory(e.extractor.Fetch(ctx, rawURL, plan.direct.FormatID, path), CategoryExtraction)
	case planSelector:
		path, ext, err = e.fetchBySelector(ctx, rawURL, plan.selector, scratch)
	case planMux:
		ext = "mp4"
		path = filepath.Join(scratch.Dir, "muxed.mp4")
		err = e.fetchAndMux(ctx, rawURL, plan, scratch, path)
	}
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return nil, wrapCategory(CategoryExtraction, fmt.Errorf("extractor produced no output"))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open downloaded file: %w", err)
	}

	return &Result{
		Filename:    fmt.Sprintf("%s.%s", sanitizeFilename(probe.Title), ext),
		ContentType: mimeFor(ext, plan.audioOnly),
		Size:        info.Size(),
		file:        f,
		scratch:     scratch,
	}, nil
}

// fetchBySelector hands a raw yt-dlp selector to the extractor. The
// container is not known in advance, so the output path carries the
// %(ext)s template and the produced file is located afterwards.
func (e *Engine) fetchBySelector(ctx context.Context, rawURL, selector string, scratch *tempstore.Scratch) (string, string, error) {
	tmpl := filepath.Join(scratch.Dir, "media.%(ext)s")
	if err := e.extractor.Fetch(ctx, rawURL, selector, tmpl); err != nil {
		return "", "", ensureCategory(err, CategoryExtraction)
	}

	entries, err := os.ReadDir(scratch.Dir)
	if err != nil {
		return "", "", fmt.Errorf("read scratch dir: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.Type().IsRegular() && strings.HasPrefix(name, "media.") {
			return filepath.Join(scratch.Dir, name), strings.TrimPrefix(name, "media."), nil
		}
	}
	return "", "", wrapCategory(CategoryExtraction, fmt.Errorf("extractor produced no output"))
}

// fetchAndMux downloads the video and audio elementary streams in
// parallel, then combines them into a single container.
func (e *Engine) fetchAndMux(ctx context.Context, rawURL string, plan *fetchPlan, scratch *tempstore.Scratch, outPath string) error {
	videoPath := filepath.Join(scratch.Dir, "v."+plan.video.Ext)
	audioPath := filepath.Join(scratch.Dir, "a."+plan.audio.Ext)

	var wg sync.WaitGroup
	wg.Add(2)
	var errV, errA error

	go func() {
		defer wg.Done()
		errV = e.extractor.Fetch(ctx, rawURL, plan.video.FormatID, videoPath)
	}()
	go func() {
		defer wg.Done()
		errA = e.extractor.Fetch(ctx, rawURL, plan.audio.FormatID, audioPath)
	}()
	wg.Wait()

	if errV != nil {
		return ensureCategory(errV, CategoryExtraction)
	}
	if errA != nil {
		return ensureCategory(errA, CategoryExtraction)
	}

	logrus.WithFields(logrus.Fields{
		"video": plan.video.FormatID,
		"audio": plan.audio.FormatID,
	}).Debug("muxing elementary streams")

	return ensureCategory(e.muxer.Mux(ctx, videoPath, audioPath, outPath), CategoryMux)
}
