package upstream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T, s string) RawRecord {
	t.Helper()
	var r RawRecord
	require.NoError(t, unmarshalNumbers([]byte(s), &r))
	return r
}

func TestNormalizer_Video_PosterRoundTrip(t *testing.T) {
	n := NewNormalizer("")
	v := n.Video(record(t, `{"id":"v1","poster":"/a/b/poster.jpg","assetUrl":"https://cdn.x"}`), "f1")

	assert.Equal(t, "https://cdn.x/a/b/poster.jpg", v.Poster)
	assert.Equal(t, "/a/b", v.AssetPath)
	assert.Equal(t, "https://cdn.x", v.AssetURL)
	assert.Equal(t, "f1", v.FolderID)
}

func TestNormalizer_Video_Title(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"title preferred", `{"id":"v1","title":"  Hello ","name":"ignored"}`, "Hello"},
		{"name fallback", `{"id":"v1","name":"From name"}`, "From name"},
		{"blank title falls back to name", `{"id":"v1","title":"   ","name":"N"}`, "N"},
		{"synthesized", `{"id":"v9"}`, "Video v9"},
		{"numeric id synthesized", `{"id":42}`, "Video 42"},
	}

	n := NewNormalizer("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Video(record(t, tt.in), "f").Title)
		})
	}
}

func TestNormalizer_Video_Poster(t *testing.T) {
	tests := []struct {
		name          string
		in            string
		wantPoster    string
		wantAssetPath string
	}{
		{
			name:          "relative uses default asset url",
			in:            `{"id":"v1","poster":"/x/y/preview"}`,
			wantPoster:    DefaultAssetURL + "/x/y/preview",
			wantAssetPath: "/x/y",
		},
		{
			name:          "absolute kept as is",
			in:            `{"id":"v1","poster":"https://img.example/p/q/thumb.WEBP"}`,
			wantPoster:    "https://img.example/p/q/thumb.WEBP",
			wantAssetPath: "/p/q",
		},
		{
			name:          "unknown file name has no asset path",
			in:            `{"id":"v1","poster":"https://img.example/p/q/video.mp4"}`,
			wantPoster:    "https://img.example/p/q/video.mp4",
			wantAssetPath: "",
		},
		{
			name:          "missing poster falls back to thumbnail",
			in:            `{"id":"v1","thumbnail":"https://img.example/t.png"}`,
			wantPoster:    "https://img.example/t.png",
			wantAssetPath: "",
		},
		{
			name:          "trailing slash on asset url",
			in:            `{"id":"v1","poster":"/a/poster","assetUrl":"https://cdn.x/"}`,
			wantPoster:    "https://cdn.x/a/poster",
			wantAssetPath: "/a",
		},
	}

	n := NewNormalizer("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := n.Video(record(t, tt.in), "f")
			assert.Equal(t, tt.wantPoster, v.Poster)
			assert.Equal(t, tt.wantAssetPath, v.AssetPath)
		})
	}
}

func TestNormalizer_Video_Numbers(t *testing.T) {
	n := NewNormalizer("")

	v := n.Video(record(t, `{"id":"v1","title":"X","duration":120,"views":"15","size":2048}`), "f1")
	assert.Equal(t, 120.0, v.Duration)
	assert.Equal(t, int64(15), v.Views)
	require.NotNil(t, v.Size)
	assert.Equal(t, int64(2048), *v.Size)

	v = n.Video(record(t, `{"id":"v2","duration":"abc","play":7,"size":0}`), "f1")
	assert.Equal(t, 0.0, v.Duration)
	assert.Equal(t, int64(7), v.Views, "play is the fallback for views")
	assert.Nil(t, v.Size)

	v = n.Video(record(t, `{"id":"v3","duration":-5,"views":-1,"size":{"bytes":1}}`), "f1")
	assert.Equal(t, 0.0, v.Duration)
	assert.Equal(t, int64(0), v.Views)
	assert.Nil(t, v.Size)
}

func TestNormalizer_Video_OutOfRangeIntegers(t *testing.T) {
	n := NewNormalizer("")

	tests := []struct {
		name      string
		views     any
		wantViews int64
	}{
		{name: "max int64 as string", views: "9223372036854775807", wantViews: 0},
		{name: "two to the 63", views: json.Number("9223372036854775808"), wantViews: 0},
		{name: "far beyond range", views: json.Number("1e30"), wantViews: 0},
		{name: "largest exact float below range", views: json.Number("9223372036854774784"), wantViews: 9223372036854774784},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := n.Video(RawRecord{"id": "v1", "views": tt.views, "size": tt.views}, "f1")
			assert.Equal(t, tt.wantViews, v.Views)
			assert.GreaterOrEqual(t, v.Views, int64(0))
			if v.Size != nil {
				assert.GreaterOrEqual(t, *v.Size, int64(0))
			}
		})
	}
}

func TestNormalizer_Video_Dates(t *testing.T) {
	n := NewNormalizer("")

	v := n.Video(record(t, `{"id":"v1","createdAt":"2026-01-01T00:00:00Z","updated_at":"2026-01-02T00:00:00Z"}`), "f")
	assert.Equal(t, "2026-01-01T00:00:00Z", v.CreatedAt)
	assert.Equal(t, "2026-01-02T00:00:00Z", v.UpdatedAt)
}

func TestNormalizer_Video_NeverPanics(t *testing.T) {
	n := NewNormalizer("")
	inputs := []RawRecord{
		nil,
		{},
		{"id": nil, "title": 12, "poster": []any{"x"}, "duration": map[string]any{}},
		{"id": json.Number("1e400")},
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { n.Video(in, "f") })
	}
}

func TestNormalizer_Folder(t *testing.T) {
	n := NewNormalizer("")

	f := n.Folder(record(t, `{"id":7,"name":"Music","description":"d","video_count":"3","createdAt":"c"}`))
	assert.Equal(t, "7", f.ID)
	assert.Equal(t, "Music", f.Name)
	assert.Equal(t, "d", f.Description)
	assert.Equal(t, "c", f.CreatedAt)
	require.NotNil(t, f.VideoCount)
	assert.Equal(t, int64(3), *f.VideoCount)

	f = n.Folder(record(t, `{"id":"f2","title":"Alt"}`))
	assert.Equal(t, "Alt", f.Name)
	assert.Nil(t, f.VideoCount)
}

func TestNormalizer_Realtime(t *testing.T) {
	n := NewNormalizer("")

	it := n.Realtime(record(t, `{"videoId":"v1","name":"Live","realtime":"12"}`))
	assert.Equal(t, "v1", it.VideoID)
	assert.Equal(t, "Live", it.Title)
	assert.Equal(t, int64(12), it.Viewers)
}

func TestExtractAssetPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/a/b/poster.jpg", "/a/b"},
		{"https://cdn.x/a/b/poster", "/a/b"},
		{"https://cdn.x/a/b/PREVIEW", "/a/b"},
		{"https://cdn.x/deep/er/path/frame.jpeg", "/deep/er/path"},
		{"https://cdn.x/poster.jpg", ""},
		{"https://cdn.x/a/b/clip.mov", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractAssetPath(tt.in))
		})
	}
}
