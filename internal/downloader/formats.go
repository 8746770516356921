package downloader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/kenechiaugustine/Justdownloads4u-server/internal/models"
)

// AudioQuality is the quality selector for audio-only downloads.
const AudioQuality = "audio"

// bestAudioSelector is handed to the extractor verbatim for audio
// requests, so format choice stays delegated to yt-dlp.
const bestAudioSelector = "bestaudio/best"

var (
	qualityLabelRegex = regexp.MustCompile(`^(\d{3,4})p(\d{2})?$`)
	bareHeightRegex   = regexp.MustCompile(`^\d{3,4}$`)
)

type planKind int

const (
	planDirect planKind = iota
	planSelector
	planMux
)

// fetchPlan is the resolved shape of one download: either a single
// container fetch (direct or by raw selector) or a video+audio pair
// that needs the muxer.
type fetchPlan struct {
	kind      planKind
	direct    ProbeFormat
	selector  string
	audioOnly bool
	video     ProbeFormat
	audio     ProbeFormat
}

// resolvePlan maps a quality selector onto the freshly probed formats.
// Recognized selectors: a format_id from the probe, a resolution label
// ("1080p", "720p60", bare "480"), the audio marker, or empty for best.
func resolvePlan(probe *MediaProbe, quality string) (*fetchPlan, error) {
	if quality == AudioQuality {
		return &fetchPlan{kind: planSelector, selector: bestAudioSelector, audioOnly: true}, nil
	}

	if quality != "" {
		for _, f := range probe.Formats {
			if f.FormatID == quality {
				direct := f
				return &fetchPlan{kind: planDirect, direct: direct, audioOnly: f.AudioOnly()}, nil
			}
		}
	}

	if quality == "" {
		return resolveBest(probe)
	}

	if height, ok := parseHeightLabel(quality); ok {
		return resolveHeight(probe, height)
	}

	return nil, invalidInputf("unrecognized quality selector %q", quality)
}

func parseHeightLabel(q string) (int, bool) {
	if q == "4k" || q == "4K" {
		return 2160, true
	}
	if m := qualityLabelRegex.FindStringSubmatch(q); m != nil {
		h, _ := strconv.Atoi(m[1])
		return h, true
	}
	if bareHeightRegex.MatchString(q) {
		h, _ := strconv.Atoi(q)
		return h, true
	}
	return 0, false
}

// resolveBest picks the highest quality available. When the best
// video-only rendition beats every pre-muxed container it pairs it with
// the best audio stream, which is the common case for modern platforms.
func resolveBest(probe *MediaProbe) (*fetchPlan, error) {
	combined := bestCombined(probe.Formats, 0)
	videoOnly := bestVideoOnly(probe.Formats, 0)
	audio := bestAudio(probe.Formats)

	switch {
	case videoOnly != nil && audio != nil && (combined == nil || videoOnly.Height > combined.Height):
		return &fetchPlan{kind: planMux, video: *videoOnly, audio: *audio}, nil
	case combined != nil:
		return &fetchPlan{kind: planDirect, direct: *combined}, nil
	case videoOnly != nil:
		return &fetchPlan{kind: planDirect, direct: *videoOnly}, nil
	case audio != nil:
		return &fetchPlan{kind: planDirect, direct: *audio, audioOnly: true}, nil
	}
	return nil, wrapCategory(CategoryExtraction, errNoFormats)
}

// resolveHeight serves "<height>p" style selectors: a pre-muxed
// container at the best height within the cap wins, otherwise the
// video-only stream at that height is paired with the best audio.
func resolveHeight(probe *MediaProbe, height int) (*fetchPlan, error) {
	combined := bestCombined(probe.Formats, height)
	videoOnly := bestVideoOnly(probe.Formats, height)
	audio := bestAudio(probe.Formats)

	switch {
	case videoOnly != nil && (combined == nil || videoOnly.Height > combined.Height):
		if audio != nil {
			return &fetchPlan{kind: planMux, video: *videoOnly, audio: *audio}, nil
		}
		return &fetchPlan{kind: planDirect, direct: *videoOnly}, nil
	case combined != nil:
		return &fetchPlan{kind: planDirect, direct: *combined}, nil
	}
	// Nothing at or below the requested height: fall back to best.
	return resolveBest(probe)
}

func bestCombined(formats []ProbeFormat, maxHeight int) *ProbeFormat {
	return pickFormat(formats, func(f ProbeFormat) bool {
		return f.HasVideo() && f.HasAudio() && f.Height > 0 && (maxHeight == 0 || f.Height <= maxHeight)
	})
}

func bestVideoOnly(formats []ProbeFormat, maxHeight int) *ProbeFormat {
	return pickFormat(formats, func(f ProbeFormat) bool {
		return f.HasVideo() && !f.HasAudio() && f.Height > 0 && (maxHeight == 0 || f.Height <= maxHeight)
	})
}

func bestAudio(formats []ProbeFormat) *ProbeFormat {
	var best *ProbeFormat
	for i, f := range formats {
		if !f.AudioOnly() {
			continue
		}
		if best == nil || f.ABR > best.ABR || (f.ABR == best.ABR && f.FormatID < best.FormatID) {
			best = &formats[i]
		}
	}
	return best
}

// pickFormat returns the candidate with the greatest height, breaking
// ties by bitrate and then format_id so the choice is deterministic.
func pickFormat(formats []ProbeFormat, keep func(ProbeFormat) bool) *ProbeFormat {
	var best *ProbeFormat
	for i, f := range formats {
		if !keep(f) {
			continue
		}
		if best == nil {
			best = &formats[i]
			continue
		}
		switch {
		case f.Height > best.Height:
			best = &formats[i]
		case f.Height == best.Height && f.TBR > best.TBR:
			best = &formats[i]
		case f.Height == best.Height && f.TBR == best.TBR && f.FormatID < best.FormatID:
			best = &formats[i]
		}
	}
	return best
}

// buildVideoInfo maps a probe into the /info response shape. Formats
// are filtered the way the extractor presents them (a real resolution
// or an explicit audio-only note) and sorted deterministically:
// descending resolution, audio-only entries last.
func buildVideoInfo(probe *MediaProbe) *models.VideoInfo {
	sorted := make([]ProbeFormat, len(probe.Formats))
	copy(sorted, probe.Formats)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.AudioOnly() != b.AudioOnly() {
			return !a.AudioOnly()
		}
		if a.AudioOnly() {
			if a.ABR != b.ABR {
				return a.ABR > b.ABR
			}
			return a.FormatID < b.FormatID
		}
		if a.Height != b.Height {
			return a.Height > b.Height
		}
		if a.TBR != b.TBR {
			return a.TBR > b.TBR
		}
		return a.FormatID < b.FormatID
	})

	formats := lo.FilterMap(sorted, func(f ProbeFormat, _ int) (models.Format, bool) {
		if f.Resolution == "" && !strings.HasPrefix(f.FormatNote, "audio only") {
			return models.Format{}, false
		}
		return models.Format{
			FormatID:   f.FormatID,
			Ext:        f.Ext,
			Resolution: nullable(f.Resolution),
			Note:       nullable(f.FormatNote),
			Filesize:   nullableSize(f),
		}, true
	})

	return &models.VideoInfo{
		Title:     probe.Title,
		Thumbnail: nullable(probe.Thumbnail),
		Formats:   formats,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableSize(f ProbeFormat) *int64 {
	if f.Filesize > 0 {
		return &f.Filesize
	}
	if f.FilesizeApprox > 0 {
		return &f.FilesizeApprox
	}
	return nil
}

// sanitizeFilename strips path separators, shell-hostile punctuation
// and control characters from a title before it lands in a
// Content-Disposition header.
func sanitizeFilename(name string) string {
	safe := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		if strings.ContainsRune(`\/:*?"<>|`, r) {
			return -1
		}
		return r
	}, name)
	safe = strings.TrimSpace(safe)
	if safe == "" {
		return "media"
	}
	return safe
}

func mimeFor(ext string, audioOnly bool) string {
	switch strings.ToLower(ext) {
	case "mp4":
		if audioOnly {
			return "audio/mp4"
		}
		return "video/mp4"
	case "m4a":
		return "audio/mp4"
	case "mp3":
		return "audio/mpeg"
	case "webm":
		if audioOnly {
			return "audio/webm"
		}
		return "video/webm"
	case "mkv":
		return "video/x-matroska"
	case "opus", "ogg", "oga":
		return "audio/ogg"
	case "wav":
		return "audio/wav"
	case "flac":
		return "audio/flac"
	case "3gp":
		return "video/3gpp"
	case "mov":
		return "video/quicktime"
	default:
		return "application/octet-stream"
	}
}
