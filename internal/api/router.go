// Package api wires the tool surface to JSON-over-HTTP: one route per tool,
// trivial request framing, no business logic of its own.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/JoshuaWink/terminal-mcp-server/internal/term"
	"github.com/JoshuaWink/terminal-mcp-server/internal/tools"
)

type handler struct {
	dispatcher *tools.Dispatcher
}

func NewRouter(d *tools.Dispatcher) http.Handler {
	handler := &handler{dispatcher: d}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/terminals", handler.createTerminal)
	mux.HandleFunc("GET /api/terminals", handler.listTerminals)
	mux.HandleFunc("POST /api/send", handler.send)
	mux.HandleFunc("GET /api/terminals/{id}/output", handler.readOutput)
	mux.HandleFunc("POST /api/terminals/{id}/interrupt", handler.interrupt)
	mux.HandleFunc("POST /api/terminals/{id}/clear", handler.clear)
	mux.HandleFunc("DELETE /api/terminals/{id}", handler.disposeTerminal)
	mux.HandleFunc("GET /api/events", handler.listEvents)

	return jsonMiddleware(corsMiddleware(mux))
}

func (h *handler) createTerminal(w http.ResponseWriter, r *http.Request) {
	// An empty body is fine: both fields are optional.
	var req tools.CreateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.dispatcher.Create(req)
	if err != nil {
		writeToolError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, res)
}

func (h *handler) listTerminals(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.dispatcher.List())
}

func (h *handler) send(w http.ResponseWriter, r *http.Request) {
	var req tools.SendRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		jsonError(w, http.StatusBadRequest, "text is required")
		return
	}

	res, err := h.dispatcher.Send(req)
	if err != nil {
		writeToolError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

func (h *handler) readOutput(w http.ResponseWriter, r *http.Request) {
	req := tools.ReadRequest{TerminalID: r.PathValue("id")}

	if v := r.URL.Query().Get("stripAnsi"); v != "" {
		strip, err := strconv.ParseBool(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid stripAnsi value")
			return
		}
		req.StripAnsi = &strip
	}
	if v := r.URL.Query().Get("lines"); v != "" {
		lines, err := strconv.Atoi(v)
		if err != nil || lines < 0 {
			jsonError(w, http.StatusBadRequest, "invalid lines value")
			return
		}
		req.Lines = &lines
	}

	res, err := h.dispatcher.Read(req)
	if err != nil {
		writeToolError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

func (h *handler) interrupt(w http.ResponseWriter, r *http.Request) {
	res, err := h.dispatcher.Interrupt(r.PathValue("id"))
	if err != nil {
		writeToolError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

func (h *handler) clear(w http.ResponseWriter, r *http.Request) {
	res, err := h.dispatcher.Clear(r.PathValue("id"))
	if err != nil {
		writeToolError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

func (h *handler) disposeTerminal(w http.ResponseWriter, r *http.Request) {
	res, err := h.dispatcher.Dispose(r.PathValue("id"))
	if err != nil {
		writeToolError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

func (h *handler) listEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := tools.EventsRequest{
		TerminalID: q.Get("terminalId"),
		Since:      q.Get("since"),
		Contains:   q.Get("contains"),
		Regex:      q.Get("regex"),
	}
	if v := q.Get("types"); v != "" {
		req.Types = strings.Split(v, ",")
	}
	if v := q.Get("after"); v != "" {
		after, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid after cursor")
			return
		}
		req.After = after
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit value")
			return
		}
		req.Limit = limit
	}

	res, err := h.dispatcher.Events(req)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

func writeToolError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, term.ErrNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, term.ErrNotRunning):
		jsonError(w, http.StatusConflict, err.Error())
	default:
		jsonError(w, http.StatusInternalServerError, err.Error())
	}
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return io.ErrUnexpectedEOF
	}
	return nil
}
