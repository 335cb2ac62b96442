package collector

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/firstset/cosmon/internal/message"
	"github.com/firstset/cosmon/internal/network"
)

const maxEnvelopeBytes = 128 * 1024

// netStateResponse is GET /net/{id}'s body shape: exactly one of result/error is populated,
// the other is encoded as null (§4.9, §6).
type netStateResponse struct {
	Result *network.Snapshot `json:"result"`
	Error  *apiError         `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
}

// Router is the HTTPRouter: POST /collector and GET /net/{id} (§4.9).
type Router struct {
	svc *Service
	mux *http.ServeMux
}

// NewRouter builds the router's mux. A plain stdlib ServeMux is used — the teacher never pulls
// in a third-party router for serving HTTP, only as a client elsewhere.
func NewRouter(svc *Service) *Router {
	r := &Router{svc: svc, mux: http.NewServeMux()}
	r.mux.HandleFunc("/collector", r.handleCollector)
	r.mux.HandleFunc("/net/", r.handleNetState)
	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// handleCollector accepts POST /collector: envelope JSON, max 128 KiB.
func (r *Router) handleCollector(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, maxEnvelopeBytes+1))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if len(body) > maxEnvelopeBytes {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}

	var env message.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := r.svc.SubmitMessage(req.Context(), &env); err != nil {
		log.Printf("collector: submitting envelope: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleNetState serves GET /net/{id}. Unknown ids reply HTTP 200 with an error-in-body, per
// the spec's Open Question #2 resolution (the alternative, 404, was rejected for uniformity
// with the rest of the API always returning a {result,error} envelope).
func (r *Router) handleNetState(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := req.URL.Path[len("/net/"):]
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	snap, ok, err := r.svc.NetworkState(req.Context(), id)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if !ok {
		json.NewEncoder(w).Encode(netStateResponse{Error: &apiError{Message: "unknown network: " + id}})
		return
	}
	json.NewEncoder(w).Encode(netStateResponse{Result: &snap})
}
