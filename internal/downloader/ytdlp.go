package downloader

import (
	"context"
	"fmt"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"github.com/kenechiaugustine/Justdownloads4u-server/internal/config"
)

// Extractor resolves media metadata and fetches streams through an
// external tool. The subprocess-backed implementation lives below; the
// tests use a stub so the relay pipeline never shells out.
type Extractor interface {
	// Probe resolves the available formats for url without downloading.
	Probe(ctx context.Context, url string) (*MediaProbe, error)
	// Fetch downloads the stream selected by format into outPath.
	// outPath may contain the yt-dlp %(ext)s template when the caller
	// does not know the container in advance.
	Fetch(ctx context.Context, url, format, outPath string) error
}

// YtDlpExtractor delegates to the yt-dlp binary via go-ytdlp.
type YtDlpExtractor struct {
	cookiesPath   string
	cookieBrowser string
	userAgent     string
}

func NewYtDlpExtractor(cfg *config.Config) *YtDlpExtractor {
	x := &YtDlpExtractor{
		cookieBrowser: cfg.CookieBrowser,
		userAgent:     cfg.UserAgent,
	}
	if cfg.CookieFileFound {
		x.cookiesPath = cfg.CookiesPath
	}
	return x
}

// base builds the flag set shared by every invocation. Cookie file wins
// over browser cookies when both are configured.
func (x *YtDlpExtractor) base() *ytdlp.Command {
	dl := ytdlp.New().
		NoWarnings().
		NoPlaylist()

	if x.userAgent != "" {
		dl = dl.UserAgent(x.userAgent)
	}

	switch {
	case x.cookiesPath != "":
		dl = dl.Cookies(x.cookiesPath)
	case x.cookieBrowser != "":
		dl = dl.CookiesFromBrowser(x.cookieBrowser)
	}

	return dl
}

func (x *YtDlpExtractor) Probe(ctx context.Context, url string) (*MediaProbe, error) {
	res, err := x.base().
		SkipDownload().
		DumpSingleJSON().
		Run(ctx, url)
	if err != nil {
		return nil, wrapCategory(CategoryExtraction, describeExtractionError(err))
	}

	probe, err := parseProbe([]byte(res.Stdout))
	if err != nil {
		return nil, wrapCategory(CategoryExtraction, err)
	}
	return probe, nil
}

func (x *YtDlpExtractor) Fetch(ctx context.Context, url, format, outPath string) error {
	_, err := x.base().
		Format(format).
		Output(outPath).
		Run(ctx, url)
	if err != nil {
		return wrapCategory(CategoryExtraction, describeExtractionError(err))
	}
	return nil
}

// describeExtractionError forwards the underlying cause and appends a
// cookie-configuration hint when the platform demanded a sign-in.
func describeExtractionError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "Sign in to confirm") || strings.Contains(strings.ToLower(msg), "not a bot") {
		return fmt.Errorf("the platform requires authentication; configure YOUTUBE_COOKIES_PATH or COOKIE_BROWSER: %w", err)
	}
	return err
}
