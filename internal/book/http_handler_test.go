package book

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*HTTPHandler, *MockRepository) {
	t.Helper()
	service, mockRepo := newMockService(t)
	return NewHTTPHandler(service, zerolog.Nop()), mockRepo
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, w)
	return body["error"].(map[string]any)["code"].(string)
}

func TestHTTPHandler_List(t *testing.T) {
	handler, mockRepo := newTestHandler(t)

	t.Run("success", func(t *testing.T) {
		mockRepo.EXPECT().FindAll(gomock.Any()).Return([]Book{{ID: 1, Title: "Test"}}, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/books", nil)

		handler.List(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, true, body["success"])
		assert.Len(t, body["data"], 1)
		assert.Equal(t, float64(1), body["meta"].(map[string]any)["total"])
	})

	t.Run("error", func(t *testing.T) {
		mockRepo.EXPECT().FindAll(gomock.Any()).Return(nil, context.DeadlineExceeded)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/books", nil)

		handler.List(w, r)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "INTERNAL_ERROR", errorCode(t, w))
	})
}

func TestHTTPHandler_Get(t *testing.T) {
	handler, mockRepo := newTestHandler(t)
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		mockRepo.EXPECT().FindByID(gomock.Any(), int64(1)).
			Return(Book{ID: 1, Title: "Test", Available: true, CreatedAt: created, UpdatedAt: created}, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/books/1", nil)
		r.SetPathValue("id", "1")

		handler.Get(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].(map[string]any)
		assert.Equal(t, "Test", data["title"])
		assert.Equal(t, "2024-03-01T09:30:00Z", data["created_at"])
		assert.Contains(t, data, "author")
		assert.Equal(t, "", data["author"])
		assert.Contains(t, data, "isbn")
		assert.Equal(t, "", data["isbn"])
	})

	t.Run("not found", func(t *testing.T) {
		mockRepo.EXPECT().FindByID(gomock.Any(), int64(1)).Return(Book{}, ErrNotFound)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/books/1", nil)
		r.SetPathValue("id", "1")

		handler.Get(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NOT_FOUND", errorCode(t, w))
	})

	t.Run("bad id", func(t *testing.T) {
		for _, id := range []string{"abc", "0", "-3", "99999999999999999999"} {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/books/"+id, nil)
			r.SetPathValue("id", id)

			handler.Get(w, r)

			assert.Equal(t, http.StatusBadRequest, w.Code, id)
		}
	})
}

func TestHTTPHandler_Create(t *testing.T) {
	handler, mockRepo := newTestHandler(t)

	t.Run("available defaults to true", func(t *testing.T) {
		mockRepo.EXPECT().ExistsByTitle(gomock.Any(), "Dune").Return(false, nil)
		mockRepo.EXPECT().Save(gomock.Any(), Book{Title: "Dune", Available: true}).
			Return(Book{ID: 1, Title: "Dune", Available: true}, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/books", strings.NewReader(`{"title":"Dune"}`))

		handler.Create(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("explicit unavailable", func(t *testing.T) {
		mockRepo.EXPECT().ExistsByTitle(gomock.Any(), "Emma").Return(false, nil)
		mockRepo.EXPECT().Save(gomock.Any(), Book{Title: "Emma", Available: false}).
			Return(Book{ID: 2, Title: "Emma"}, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/books", strings.NewReader(`{"title":"Emma","available":false}`))

		handler.Create(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("duplicate title", func(t *testing.T) {
		mockRepo.EXPECT().ExistsByTitle(gomock.Any(), "Dune").Return(true, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/books", strings.NewReader(`{"title":"Dune"}`))

		handler.Create(w, r)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "DUPLICATE_TITLE", errorCode(t, w))
	})

	t.Run("validation details", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/books",
			strings.NewReader(`{"title":"","isbn":"12345"}`))

		handler.Create(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		details := body["error"].(map[string]any)["details"].([]any)
		fields := []string{}
		for _, d := range details {
			fields = append(fields, d.(map[string]any)["field"].(string))
		}
		assert.ElementsMatch(t, []string{"title", "isbn"}, fields)
	})

	t.Run("whitespace isbn treated as absent", func(t *testing.T) {
		mockRepo.EXPECT().ExistsByTitle(gomock.Any(), "Sanditon").Return(false, nil)
		mockRepo.EXPECT().Save(gomock.Any(), Book{Title: "Sanditon", Available: true}).
			Return(Book{ID: 8, Title: "Sanditon", Available: true}, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/books", strings.NewReader(`{"title":"Sanditon","isbn":"   "}`))

		handler.Create(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "", decodeBody(t, w)["data"].(map[string]any)["isbn"])
	})

	t.Run("unknown field", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/books", strings.NewReader(`{"title":"Dune","pages":412}`))

		handler.Create(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "BAD_REQUEST", errorCode(t, w))
	})
}

func TestHTTPHandler_Update(t *testing.T) {
	handler, mockRepo := newTestHandler(t)

	mockRepo.EXPECT().FindByID(gomock.Any(), int64(3)).Return(Book{ID: 3, Title: "Dune"}, nil)
	mockRepo.EXPECT().ExistsByISBN(gomock.Any(), "9780441013593").Return(true, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPut, "/api/books/3",
		strings.NewReader(`{"title":"Dune","isbn":"9780441013593"}`))
	r.SetPathValue("id", "3")

	handler.Update(w, r)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_ISBN", errorCode(t, w))
}

func TestHTTPHandler_UpdateTitle(t *testing.T) {
	handler, mockRepo := newTestHandler(t)

	t.Run("missing new_title", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPatch, "/api/books/3/title", nil)
		r.SetPathValue("id", "3")

		handler.UpdateTitle(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_INPUT", errorCode(t, w))
	})

	t.Run("success", func(t *testing.T) {
		mockRepo.EXPECT().FindByID(gomock.Any(), int64(3)).Return(Book{ID: 3, Title: "Dune"}, nil)
		mockRepo.EXPECT().ExistsByTitle(gomock.Any(), "Dune Messiah").Return(false, nil)
		mockRepo.EXPECT().Save(gomock.Any(), Book{ID: 3, Title: "Dune Messiah"}).Return(Book{ID: 3, Title: "Dune Messiah"}, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPatch, "/api/books/3/title?new_title=Dune+Messiah", nil)
		r.SetPathValue("id", "3")

		handler.UpdateTitle(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHTTPHandler_UpdateTitleByOldTitle(t *testing.T) {
	handler, mockRepo := newTestHandler(t)

	mockRepo.EXPECT().FindByTitle(gomock.Any(), "Old").Return(Book{}, ErrNotFound)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPatch, "/api/books/title?old_title=Old&new_title=New", nil)

	handler.UpdateTitleByOldTitle(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTPHandler_Delete(t *testing.T) {
	handler, mockRepo := newTestHandler(t)

	mockRepo.EXPECT().ExistsByID(gomock.Any(), int64(8)).Return(true, nil)
	mockRepo.EXPECT().DeleteByID(gomock.Any(), int64(8)).Return(nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/api/books/8", nil)
	r.SetPathValue("id", "8")

	handler.Delete(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, w.Body.Len())
}

func TestHTTPHandler_ToggleAvailability(t *testing.T) {
	handler, mockRepo := newTestHandler(t)

	mockRepo.EXPECT().FindByID(gomock.Any(), int64(8)).Return(Book{ID: 8, Title: "Emma"}, nil)
	mockRepo.EXPECT().Save(gomock.Any(), Book{ID: 8, Title: "Emma", Available: true}).
		Return(Book{ID: 8, Title: "Emma", Available: true}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPatch, "/api/books/8/availability", nil)
	r.SetPathValue("id", "8")

	handler.ToggleAvailability(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["data"].(map[string]any)["available"])
}

func TestHTTPHandler_Availability(t *testing.T) {
	handler, mockRepo := newTestHandler(t)

	mockRepo.EXPECT().FindByTitle(gomock.Any(), "The Great Gatsby").
		Return(Book{Title: "The Great Gatsby", Available: true}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/books/The%20Great%20Gatsby/availability", nil)
	r.SetPathValue("title", "The Great Gatsby")

	handler.Availability(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "The book 'The Great Gatsby' is available.",
		decodeBody(t, w)["data"].(map[string]any)["status"])
}
