package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/yok-tottii/ezdictate/internal/storage"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// handleHistory handles GET /api/history?limit=&offset= and DELETE /api/history
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if h.Library == nil {
		unavailable(w, "History")
		return
	}

	switch r.Method {
	case http.MethodGet:
		limit, err := queryInt(r, "limit", defaultHistoryLimit)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		offset, err := queryInt(r, "offset", 0)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		limit = min(max(limit, 1), maxHistoryLimit)
		offset = max(offset, 0)

		entries, err := h.Library.ListHistory(r.Context(), limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list history: %v", err))
			return
		}
		total, err := h.Library.CountHistory(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to count history: %v", err))
			return
		}
		if entries == nil {
			entries = []storage.HistoryEntry{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"entries": entries,
			"total":   total,
		})

	case http.MethodDelete:
		if err := h.Library.ClearHistory(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to clear history: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})

	default:
		methodNotAllowed(w)
	}
}

type wordRequest struct {
	Word          string  `json:"word"`
	Pronunciation *string `json:"pronunciation"`
}

// handleDictionary handles GET, POST and DELETE ?id= on /api/dictionary
func (h *Handler) handleDictionary(w http.ResponseWriter, r *http.Request) {
	if h.Library == nil {
		unavailable(w, "Dictionary")
		return
	}

	switch r.Method {
	case http.MethodGet:
		words, err := h.Library.ListWords(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list dictionary: %v", err))
			return
		}
		if words == nil {
			words = []storage.DictionaryEntry{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"words": words})

	case http.MethodPost:
		var req wordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		id, err := h.Library.AddWord(r.Context(), req.Word, req.Pronunciation)
		if err != nil {
			status := http.StatusInternalServerError
			if isValidationError(err) {
				status = http.StatusBadRequest
			}
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]int64{"id": id})

	case http.MethodDelete:
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "id must be an integer")
			return
		}
		if err := h.Library.RemoveWord(r.Context(), id); err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to remove word: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})

	default:
		methodNotAllowed(w)
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, storage.ErrEmptyWord) ||
		errors.Is(err, storage.ErrWordTooLong) ||
		errors.Is(err, storage.ErrPronunciationTooLong)
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}
