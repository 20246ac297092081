package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

type fetchRequest struct {
	URL string `json:"url"`
}

type fetchResponse struct {
	OK    bool   `json:"ok"`
	Body  string `json:"body,omitempty"`
	Error string `json:"error,omitempty"`
}

// Sidecar that fetches a URL through headless Chrome and returns the
// page text. Chrome renders JSON responses inside a <pre> element, so
// innerText of the body is the raw payload.
func main() {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// Warm up the browser so the first request is not paying the
	// startup cost.
	if err := chromedp.Run(browserCtx); err != nil {
		log.Printf("warn: warmup chromedp failed: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/fetch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req fetchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, fetchResponse{OK: false, Error: "invalid json"})
			return
		}
		if req.URL == "" {
			writeJSON(w, http.StatusBadRequest, fetchResponse{OK: false, Error: "url is required"})
			return
		}

		// Independent timeout per request, same shared browser.
		ctx, cancel := context.WithTimeout(browserCtx, 20*time.Second)
		defer cancel()

		var text string
		err := chromedp.Run(ctx,
			chromedp.Navigate(req.URL),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Evaluate(`document.body.innerText`, &text),
		)
		if err != nil {
			log.Printf("fetch error: %v (url=%s)", err, req.URL)
			writeJSON(w, http.StatusOK, fetchResponse{OK: false, Error: err.Error()})
			return
		}

		text = strings.TrimSpace(text)
		if text == "" {
			writeJSON(w, http.StatusOK, fetchResponse{OK: false, Error: "empty body"})
			return
		}

		writeJSON(w, http.StatusOK, fetchResponse{OK: true, Body: text})
	})

	addr := ":" + getEnv("PORT", "4000")
	log.Printf("browser-proxy listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("http server error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
