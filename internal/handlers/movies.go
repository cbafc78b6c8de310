package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"homeflix/internal/catalog"
	"homeflix/internal/logging"

	"github.com/gorilla/mux"
)

// movieID extracts and validates the {id} route variable.
func movieID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// ListMovies returns the full catalog, newest first.
func (h *Handlers) ListMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := h.store.List(r.Context())
	if err != nil {
		logging.Error("Failed to list movies: %v", err)
		writeJSONError(w, "failed to list movies", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"movies": movies,
		"count":  len(movies),
	})
}

// GetMovie returns one catalog entry.
func (h *Handlers) GetMovie(w http.ResponseWriter, r *http.Request) {
	id, err := movieID(r)
	if err != nil {
		writeJSONError(w, "invalid movie id", http.StatusBadRequest)
		return
	}

	movie, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeJSONError(w, "movie not found", http.StatusNotFound)
			return
		}
		logging.Error("Failed to get movie %d: %v", id, err)
		writeJSONError(w, "failed to get movie", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, movie)
}

// DeleteMovie removes a catalog entry and its generated thumbnail. The
// media file itself is never touched; un-cataloging is not deleting.
func (h *Handlers) DeleteMovie(w http.ResponseWriter, r *http.Request) {
	id, err := movieID(r)
	if err != nil {
		writeJSONError(w, "invalid movie id", http.StatusBadRequest)
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeJSONError(w, "movie not found", http.StatusNotFound)
			return
		}
		logging.Error("Failed to delete movie %d: %v", id, err)
		writeJSONError(w, "failed to delete movie", http.StatusInternalServerError)
		return
	}

	logging.Info("Deleted movie %d from catalog", id)
	writeJSONStatus(w, "deleted")
}
