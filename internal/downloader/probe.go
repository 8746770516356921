package downloader

import (
	"encoding/json"
	"fmt"
)

// MediaProbe is the typed boundary for yt-dlp's --dump-single-json
// output. The raw document is large and loosely shaped; only the fields
// the relay consumes are mapped, everything else is dropped here rather
// than propagated into response construction.
type MediaProbe struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Thumbnail string        `json:"thumbnail"`
	Formats   []ProbeFormat `json:"formats"`
}

type ProbeFormat struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	Resolution     string  `json:"resolution"`
	FormatNote     string  `json:"format_note"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	ABR            float64 `json:"abr"`
	TBR            float64 `json:"tbr"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
}

func (f ProbeFormat) HasVideo() bool {
	return f.VCodec != "" && f.VCodec != "none"
}

func (f ProbeFormat) HasAudio() bool {
	return f.ACodec != "" && f.ACodec != "none"
}

func (f ProbeFormat) AudioOnly() bool {
	return f.HasAudio() && !f.HasVideo()
}

func parseProbe(data []byte) (*MediaProbe, error) {
	var probe MediaProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse extractor metadata: %w", err)
	}
	if probe.Title == "" && len(probe.Formats) == 0 {
		return nil, fmt.Errorf("extractor metadata is empty")
	}
	return &probe, nil
}
