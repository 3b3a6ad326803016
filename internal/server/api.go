package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Mohsinsiddi/w3studio/internal/chain"
	"github.com/Mohsinsiddi/w3studio/internal/contract"
	"github.com/Mohsinsiddi/w3studio/internal/source"
	"github.com/Mohsinsiddi/w3studio/internal/studio"
	"github.com/Mohsinsiddi/w3studio/internal/units"
	"github.com/Mohsinsiddi/w3studio/internal/validate"
)

// maxRequestBody caps JSON request bodies.
const maxRequestBody = 1 << 20

// APIResponse wraps every JSON reply.
type APIResponse struct {
	Status string      `json:"status"`
	Kind   string      `json:"kind,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

func sendOK(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&APIResponse{Status: "OK", Data: data}); err != nil {
		logrus.WithError(err).Error("error serializing json response")
	}
}

func sendError(w http.ResponseWriter, code int, message string) {
	sendErrorKind(w, code, "", message)
}

func sendErrorKind(w http.ResponseWriter, code int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(&APIResponse{Status: "ERROR: " + message, Kind: kind}); err != nil {
		logrus.WithError(err).Error("error serializing json error")
	}
}

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr),
		errors.Is(err, studio.ErrInvalidAddress),
		errors.Is(err, studio.ErrInvalidArgument),
		errors.Is(err, studio.ErrNotPayable),
		errors.Is(err, contract.ErrAmbiguous),
		errors.Is(err, chain.ErrChainNotFound):
		return http.StatusBadRequest
	case errors.Is(err, source.ErrNoContract),
		errors.Is(err, source.ErrNotVerified),
		errors.Is(err, contract.ErrFunctionNotFound):
		return http.StatusNotFound
	case errors.Is(err, source.ErrCredentialRequired):
		return http.StatusUnauthorized
	case errors.Is(err, source.ErrProviderUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) sendFailure(w http.ResponseWriter, route string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.log.WithError(err).WithField("route", route).Warn("request failed")
	}
	sendErrorKind(w, code, string(source.KindOf(err)), source.UserMessage(err))
}

func (s *Server) handleChains(w http.ResponseWriter, r *http.Request) {
	sendOK(w, s.studio.Chains().All())
}

// inspect loads the contract named by the route. The caller may pass their
// own explorer key in X-Explorer-Key.
func (s *Server) inspect(r *http.Request) (*studio.Session, error) {
	vars := mux.Vars(r)
	chainID, err := strconv.ParseInt(vars["chainId"], 10, 64)
	if err != nil {
		d, lerr := s.studio.Chains().GetBySlug(vars["chainId"])
		if lerr != nil {
			return nil, fmt.Errorf("%w: %s", chain.ErrChainNotFound, vars["chainId"])
		}
		chainID = d.ChainID
	}
	return s.studio.Inspect(r.Context(), studio.LoadRequest{
		ChainID: chainID,
		Target:  vars["address"],
		APIKey:  strings.TrimSpace(r.Header.Get("X-Explorer-Key")),
	})
}

func (s *Server) handleContract(w http.ResponseWriter, r *http.Request) {
	sess, err := s.inspect(r)
	if err != nil {
		s.sendFailure(w, "contract", err)
		return
	}
	sendOK(w, sess)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	sess, err := s.inspect(r)
	if err != nil {
		s.sendFailure(w, "audit", err)
		return
	}
	sendOK(w, sess.Audit)
}

// SimulateRequest is the body of POST .../simulate.
type SimulateRequest struct {
	Signature string   `json:"signature"`
	Args      []string `json:"args"`
	From      string   `json:"from"`
	Value     string   `json:"value"`
	Raw       bool     `json:"raw"`
	Unit      string   `json:"unit"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := decodeBody(w, r, &req); err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.From != "" {
		if err := validate.Value("address", req.From); err != nil {
			sendError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	sess, err := s.inspect(r)
	if err != nil {
		s.sendFailure(w, "simulate", err)
		return
	}
	res, err := s.studio.Simulate(r.Context(), sess, studio.Call{
		Signature: req.Signature,
		Args:      req.Args,
		Raw:       req.Raw,
		Unit:      units.Unit(req.Unit),
		From:      req.From,
		Value:     req.Value,
	})
	if err != nil {
		s.sendFailure(w, "simulate", err)
		return
	}
	sendOK(w, res)
}

// HintRequest is the body of POST /api/hint.
type HintRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Decimals *int   `json:"decimals,omitempty"`
}

// HintResponse is a hint plus the units offered for it.
type HintResponse struct {
	units.ParamHint
	Units []units.Unit `json:"units,omitempty"`
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	var req HintRequest
	if err := decodeBody(w, r, &req); err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Type == "" {
		sendError(w, http.StatusBadRequest, "type is required")
		return
	}
	h := units.Infer(req.Name, req.Type)
	if req.Decimals != nil {
		h = h.WithDecimals(*req.Decimals)
	}
	sendOK(w, HintResponse{ParamHint: h, Units: h.Units()})
}

// ValidateRequest is the body of POST /api/validate.
type ValidateRequest struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// ValidateResponse reports the outcome. Normalized is the JSON array form
// of comma-separated array input.
type ValidateResponse struct {
	Valid      bool   `json:"valid"`
	Error      string `json:"error,omitempty"`
	Normalized string `json:"normalized,omitempty"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := decodeBody(w, r, &req); err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Type == "" {
		sendError(w, http.StatusBadRequest, "type is required")
		return
	}
	value := req.Value
	var out ValidateResponse
	if strings.HasSuffix(strings.TrimSpace(req.Type), "]") {
		norm, err := validate.NormalizeArray(req.Type, value)
		if err != nil {
			sendOK(w, ValidateResponse{Error: err.Error()})
			return
		}
		value, out.Normalized = norm, norm
	}
	if err := validate.Value(req.Type, value); err != nil {
		out.Error = err.Error()
		sendOK(w, out)
		return
	}
	out.Valid = true
	sendOK(w, out)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
