package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"quotefeed/internal/quote"
	"quotefeed/internal/resolver"
)

func handleQuote(rs *resolver.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
		if symbol == "" {
			http.Error(w, "missing symbol query param", http.StatusBadRequest)
			return
		}
		class := quote.ParseAssetClass(r.URL.Query().Get("class"))
		writeJSON(w, rs.Resolve(r.Context(), symbol, class))
	}
}

func handleHistory(rs *resolver.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
		if symbol == "" {
			http.Error(w, "missing symbol query param", http.StatusBadRequest)
			return
		}
		class := quote.ParseAssetClass(r.URL.Query().Get("class"))
		period := quote.ParsePeriod(r.URL.Query().Get("period"))
		writeJSON(w, rs.ResolveHistory(r.Context(), symbol, class, period))
	}
}

type searchResponse struct {
	Results []quote.SearchResult `json:"results"`
}

func handleSearch(rs *resolver.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			http.Error(w, "missing q query param", http.StatusBadRequest)
			return
		}
		writeJSON(w, searchResponse{Results: rs.Search(r.Context(), query)})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		// Basic CORS for browser usage; adjust as needed.
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const maxBodyBytes = 1 << 20

// limitBody caps request bodies. The API is read-only today, so this guards
// against abuse rather than any real payload.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
