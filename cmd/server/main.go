package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/maximotodev/bitcoin-chatbot/internal/chat"
	"github.com/maximotodev/bitcoin-chatbot/internal/config"
	"github.com/maximotodev/bitcoin-chatbot/internal/httpx"
	"github.com/maximotodev/bitcoin-chatbot/internal/llm"
	"github.com/maximotodev/bitcoin-chatbot/internal/logger"
	"github.com/maximotodev/bitcoin-chatbot/internal/quote"
	"github.com/maximotodev/bitcoin-chatbot/internal/ratelimit"
)

type askRequest struct {
	// Question is a pointer so a body without the key can be told apart from
	// an empty question; only the former is a client error.
	Question *string     `json:"question"`
	History  []chat.Turn `json:"history"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type tourResponse struct {
	Tour []string `json:"tour"`
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		zap.L().Fatal("config", zap.Error(err))
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		zap.L().Fatal("logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	// A missing API key is fatal before serving.
	if err := cfg.Validate(); err != nil {
		log.Fatal("config", zap.Error(err))
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	gecko := quote.NewCoinGeckoClient(cfg.Price.Currency,
		quote.WithBaseURL(cfg.Price.Endpoint),
		quote.WithHTTPClient(httpClient),
	)
	cache := quote.NewCache(gecko,
		time.Duration(cfg.Price.TTLSeconds)*time.Second,
		time.Duration(cfg.Price.TimeoutSec)*time.Second,
		log,
	)

	gemini, err := llm.NewGeminiClient(cfg.Gemini.APIKey, cfg.Gemini.Model,
		llm.WithBaseURL(cfg.Gemini.Endpoint),
		llm.WithHTTPClient(httpClient),
		llm.WithTimeout(time.Duration(cfg.Gemini.TimeoutSec)*time.Second),
	)
	if err != nil {
		log.Fatal("gemini client", zap.Error(err))
	}

	bot := chat.NewBot(gemini, cache, chat.DefaultLinkRules(), log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rpm := float64(cfg.RateLimit.MaxRequestsPerMinute) / 60.0
	limiter := ratelimit.NewTokenBucket(rpm, cfg.RateLimit.Burst)

	mux.Handle("/ask", ratelimit.Middleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
			return
		}
		handleAsk(w, r, bot, log)
	})))
	mux.HandleFunc("/tour", handleTour)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withJSONHeaders(withGzip(recoverPanic(log, limitBody(mux)))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("model", cfg.Gemini.Model))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server", zap.Error(err))
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// handleAsk answers one question. Collaborator failures surface as a 200 with
// a best-effort textual answer; HTTP error codes are reserved for malformed
// requests and an unconfigured bot.
func handleAsk(w http.ResponseWriter, r *http.Request, bot *chat.Bot, log *zap.Logger) {
	if bot == nil {
		writeJSON(w, http.StatusServiceUnavailable, askResponse{Answer: chat.UnconfiguredReply})
		return
	}

	var req askRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil || req.Question == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request. Please provide a 'question' in the JSON body."})
		return
	}

	answer := bot.Answer(r.Context(), *req.Question, req.History)
	log.Info("question answered",
		zap.Int("history_turns", len(req.History)),
		zap.Int("answer_len", len(answer)))
	writeJSON(w, http.StatusOK, askResponse{Answer: answer})
}

func handleTour(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, tourResponse{Tour: tourMessages})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		// Basic CORS for browser usage; adjust as needed.
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withGzip compresses response when client supports gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
		next.ServeHTTP(gw, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
	const maxBody = 1 << 20 // 1MB
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		next.ServeHTTP(w, r)
	})
}

// recoverPanic protects handlers from panics.
func recoverPanic(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic in handler", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal server error"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
