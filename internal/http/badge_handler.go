package httpapi

import (
	"io"
	"log"
	"net/http"
)

// defaultBadgeURL is Stripe's hosted "Powered by Stripe" badge.
const defaultBadgeURL = "https://images.stripeassets.com/fzn2n1nzq965/4M6d6BSWzlgsrJx8rdZb0I/733f37ef69b5ca1d3d33e127184f4ce4/Powered_by_Stripe.svg?q=80&w=600"

// BadgeHandler proxies the badge so the shop's pages never load third-party
// assets directly (some blockers strip them).
type BadgeHandler struct {
	httpClient *http.Client
	badgeURL   string
	logger     *log.Logger
}

func NewBadgeHandler(httpClient *http.Client, logger *log.Logger) *BadgeHandler {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &BadgeHandler{httpClient: httpClient, badgeURL: defaultBadgeURL, logger: logger}
}

func (h *BadgeHandler) Serve(w http.ResponseWriter, r *http.Request) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, h.badgeURL, nil)
	if err != nil {
		http.Error(w, "badge unavailable", http.StatusBadGateway)
		return
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.logger.Printf("badge fetch: %v", err)
		http.Error(w, "badge unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		http.Error(w, "badge unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400, stale-while-revalidate=604800")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, resp.Body)
}
