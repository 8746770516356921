package models

// VideoInfo is the response body of POST /info.
type VideoInfo struct {
	Title     string   `json:"title"`
	Thumbnail *string  `json:"thumbnail"`
	Formats   []Format `json:"formats"`
}

// Format describes one downloadable rendition of a video.
// Fields the extractor did not report are null, not omitted.
type Format struct {
	FormatID   string  `json:"format_id"`
	Ext        string  `json:"ext"`
	Resolution *string `json:"resolution"`
	Note       *string `json:"note"`
	Filesize   *int64  `json:"filesize"`
}

type InfoRequest struct {
	URL string `json:"url"`
}
