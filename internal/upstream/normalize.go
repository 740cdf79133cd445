package upstream

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hszk-dev/videohub/internal/domain/model"
)

// DefaultAssetURL is used when a video record carries no assetUrl.
const DefaultAssetURL = "https://assets.upns.net"

// assetPathRE extracts the directory that holds a poster-like file. The
// upstream URL layout is undocumented, so this is a best-effort heuristic.
var assetPathRE = regexp.MustCompile(`(?i)^(https?://[^/]+)?(/.*)/(poster|preview|[^/]+\.(png|jpg|jpeg|webp))$`)

// Normalizer maps raw upstream records to domain models.
// It never fails: malformed fields fall back to zero values.
type Normalizer struct {
	DefaultAssetURL string
}

// NewNormalizer returns a Normalizer using assetURL for records without one.
func NewNormalizer(assetURL string) Normalizer {
	if assetURL == "" {
		assetURL = DefaultAssetURL
	}
	return Normalizer{DefaultAssetURL: assetURL}
}

// Video converts one raw video into a model.Video belonging to folderID.
func (n Normalizer) Video(raw RawRecord, folderID string) model.Video {
	id := stringField(raw, "id")

	title := stringField(raw, "title", "name")
	if title == "" {
		title = strings.TrimSpace("Video " + id)
	}

	assetURL := stringField(raw, "assetUrl")
	if assetURL == "" {
		assetURL = n.defaultAssetURL()
	}

	thumbnail := stringField(raw, "thumbnail")
	poster, assetPath := resolvePoster(stringField(raw, "poster"), assetURL)
	if poster == "" {
		poster = thumbnail
	}

	v := model.Video{
		ID:          id,
		Title:       title,
		Description: stringField(raw, "description"),
		Thumbnail:   thumbnail,
		Poster:      poster,
		AssetURL:    assetURL,
		AssetPath:   assetPath,
		CreatedAt:   stringField(raw, "created_at", "createdAt"),
		UpdatedAt:   stringField(raw, "updated_at", "updatedAt"),
		FolderID:    folderID,
	}

	if d, ok := numberField(raw, "duration"); ok {
		v.Duration = d
	}
	v.Views = intField(raw, "views", "play")
	if size := intField(raw, "size"); size > 0 {
		v.Size = &size
	}

	return v
}

// Folder converts one raw folder into a model.Folder.
func (n Normalizer) Folder(raw RawRecord) model.Folder {
	f := model.Folder{
		ID:          stringField(raw, "id"),
		Name:        stringField(raw, "name", "title"),
		Description: stringField(raw, "description"),
		CreatedAt:   stringField(raw, "created_at", "createdAt"),
		UpdatedAt:   stringField(raw, "updated_at", "updatedAt"),
	}
	if _, ok := numberField(raw, "video_count", "videoCount"); ok {
		count := intField(raw, "video_count", "videoCount")
		f.VideoCount = &count
	}
	return f
}

// Realtime converts one raw realtime record.
func (n Normalizer) Realtime(raw RawRecord) model.RealtimeItem {
	return model.RealtimeItem{
		VideoID: stringField(raw, "id", "videoId", "video_id"),
		Title:   stringField(raw, "title", "name"),
		Viewers: intField(raw, "realtime", "viewers"),
	}
}

func (n Normalizer) defaultAssetURL() string {
	if n.DefaultAssetURL == "" {
		return DefaultAssetURL
	}
	return n.DefaultAssetURL
}

// resolvePoster prefixes relative posters with assetURL and extracts the asset path.
func resolvePoster(poster, assetURL string) (string, string) {
	if poster == "" {
		return "", ""
	}
	if strings.HasPrefix(poster, "/") {
		poster = strings.TrimRight(assetURL, "/") + poster
	}
	return poster, ExtractAssetPath(poster)
}

// ExtractAssetPath returns the directory part of a poster/preview/image URL,
// or "" when the URL does not end in a recognised file name.
func ExtractAssetPath(u string) string {
	m := assetPathRE.FindStringSubmatch(u)
	if m == nil {
		return ""
	}
	return m[2]
}

// stringField returns the first key holding a non-blank string or a number.
func stringField(raw RawRecord, keys ...string) string {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		}
	}
	return ""
}

// numberField returns the first key holding a finite, non-zero number.
// Numeric strings are accepted. Negative values clamp to zero.
func numberField(raw RawRecord, keys ...string) (float64, bool) {
	for _, k := range keys {
		f, ok := toFloat(raw[k])
		if !ok || f == 0 {
			continue
		}
		if f < 0 {
			return 0, true
		}
		return f, true
	}
	return 0, false
}

// intField returns 0 for values an int64 cannot hold. float64(math.MaxInt64)
// rounds up to 2^63, so the bound is exclusive.
func intField(raw RawRecord, keys ...string) int64 {
	f, ok := numberField(raw, keys...)
	if !ok || f >= math.MaxInt64 {
		return 0
	}
	return int64(f)
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
