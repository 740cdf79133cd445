package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/videohub/internal/domain/model"
	"github.com/hszk-dev/videohub/internal/usecase"
)

var testCachedAt = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func TestVideoHandler_List(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		setupMock      func(m *mockCatalogService)
		wantStatusCode int
		checkResponse  func(t *testing.T, body []byte)
	}{
		{
			name:  "passes filter and returns page",
			query: "?folder=f1&q=jazz&page=2&per_page=5",
			setupMock: func(m *mockCatalogService) {
				m.listVideosFn = func(filter usecase.VideoFilter) (*usecase.VideoPage, error) {
					want := usecase.VideoFilter{FolderID: "f1", Query: "jazz", Page: 2, PerPage: 5}
					if filter != want {
						t.Errorf("filter = %+v, want %+v", filter, want)
					}
					return &usecase.VideoPage{
						Videos:     []model.Video{{ID: "v6", Title: "Jazz", FolderID: "f1", AssetURL: "https://assets.upns.net"}},
						Total:      6,
						Page:       2,
						PerPage:    5,
						TotalPages: 2,
						CachedAt:   testCachedAt,
					}, nil
				}
			},
			wantStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var resp VideoListResponse
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if len(resp.Videos) != 1 || resp.Videos[0].ID != "v6" {
					t.Errorf("unexpected videos %+v", resp.Videos)
				}
				if resp.Total != 6 || resp.TotalPages != 2 {
					t.Errorf("unexpected paging %+v", resp)
				}
				if resp.CachedAt != "2026-05-01T12:00:00Z" {
					t.Errorf("expected cached_at 2026-05-01T12:00:00Z, got %s", resp.CachedAt)
				}
			},
		},
		{
			name:  "empty page encodes as empty list",
			query: "",
			setupMock: func(m *mockCatalogService) {
				m.listVideosFn = func(filter usecase.VideoFilter) (*usecase.VideoPage, error) {
					return &usecase.VideoPage{Page: 1, PerPage: 20}, nil
				}
			},
			wantStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var raw map[string]json.RawMessage
				if err := json.Unmarshal(body, &raw); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if string(raw["videos"]) != "[]" {
					t.Errorf("expected videos [], got %s", raw["videos"])
				}
			},
		},
		{
			name:           "warming up",
			query:          "",
			setupMock:      func(m *mockCatalogService) {},
			wantStatusCode: http.StatusServiceUnavailable,
		},
		{
			name:           "invalid page",
			query:          "?page=zero",
			setupMock:      func(m *mockCatalogService) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "negative per_page",
			query:          "?per_page=-1",
			setupMock:      func(m *mockCatalogService) {},
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockCatalogService{}
			tt.setupMock(mock)
			h := NewVideoHandler(mock)

			rec := httptest.NewRecorder()
			h.List(rec, httptest.NewRequest(http.MethodGet, "/v1/videos"+tt.query, nil))

			if rec.Code != tt.wantStatusCode {
				t.Errorf("expected status %d, got %d", tt.wantStatusCode, rec.Code)
			}

			if tt.checkResponse != nil {
				tt.checkResponse(t, rec.Body.Bytes())
			}
		})
	}
}

func TestVideoHandler_Get(t *testing.T) {
	size := int64(2048)

	tests := []struct {
		name           string
		videoID        string
		setupMock      func(m *mockCatalogService)
		wantStatusCode int
		checkResponse  func(t *testing.T, body []byte)
	}{
		{
			name:    "successful get",
			videoID: "v1",
			setupMock: func(m *mockCatalogService) {
				m.getVideoFn = func(id string) (*model.Video, error) {
					return &model.Video{
						ID:        id,
						Title:     "Morning Jazz",
						Poster:    "https://cdn.x/a/b/poster.jpg",
						AssetURL:  "https://cdn.x",
						AssetPath: "/a/b",
						Size:      &size,
						FolderID:  "f1",
					}, nil
				}
			},
			wantStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, body []byte) {
				var resp VideoResponse
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if resp.ID != "v1" || resp.AssetPath != "/a/b" {
					t.Errorf("unexpected video %+v", resp)
				}
				if resp.Size == nil || *resp.Size != 2048 {
					t.Errorf("expected size 2048, got %v", resp.Size)
				}
			},
		},
		{
			name:    "video not found",
			videoID: "missing",
			setupMock: func(m *mockCatalogService) {
				m.getVideoFn = func(id string) (*model.Video, error) {
					return nil, usecase.ErrVideoNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "warming up",
			videoID:        "v1",
			setupMock:      func(m *mockCatalogService) {},
			wantStatusCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockCatalogService{}
			tt.setupMock(mock)
			h := NewVideoHandler(mock)

			r := chi.NewRouter()
			r.Get("/v1/videos/{id}", h.Get)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/videos/"+tt.videoID, nil))

			if rec.Code != tt.wantStatusCode {
				t.Errorf("expected status %d, got %d", tt.wantStatusCode, rec.Code)
			}

			if tt.checkResponse != nil {
				tt.checkResponse(t, rec.Body.Bytes())
			}
		})
	}
}

func TestVideoHandler_Folders(t *testing.T) {
	count := int64(3)
	mock := &mockCatalogService{
		listFoldersFn: func() (*usecase.FolderList, error) {
			return &usecase.FolderList{
				Folders:  []model.Folder{{ID: "f1", Name: "Music", VideoCount: &count}, {ID: "f2", Name: "Talks"}},
				CachedAt: testCachedAt,
			}, nil
		},
	}
	h := NewVideoHandler(mock)

	rec := httptest.NewRecorder()
	h.Folders(rec, httptest.NewRequest(http.MethodGet, "/v1/folders", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp FolderListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(resp.Folders) != 2 {
		t.Fatalf("expected 2 folders, got %d", len(resp.Folders))
	}
	if resp.Folders[0].VideoCount == nil || *resp.Folders[0].VideoCount != 3 {
		t.Errorf("expected video_count 3, got %v", resp.Folders[0].VideoCount)
	}
	if resp.Folders[1].VideoCount != nil {
		t.Errorf("expected no video_count, got %v", *resp.Folders[1].VideoCount)
	}
}
