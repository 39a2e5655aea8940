// Package handlers turns generated resource routes into net/http handlers.
//
// HANDLER PATTERN USED HERE: THE CLOSURE / FACTORY PATTERN
// ────────────────────────────────────────────────────────────
// The router expects handler functions with the signature:
//
//	func(http.ResponseWriter, *http.Request)
//
// A generated route carries its operation, its payload rules and a
// transport-free resource.Handler. New closes over all of it and returns a
// function with the exact signature the router needs:
//
//	r.Method(route.Method, route.Path, handlers.New(route, v, logger))
//	//                                 ^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^
//	//                     called ONCE per route at startup, the returned
//	//                     func runs on EVERY incoming request.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/crudgen/internal/resource"
	"github.com/aanand-mishra/crudgen/internal/utils/response"
	"github.com/aanand-mishra/crudgen/internal/validation"
	"github.com/go-chi/chi/v5"
)

// internalError is the body of any 500 that did not come from an operation.
var internalError = errors.New("An internal server error occurred")

// ─────────────────────────────────────────────────────────────────────────────
// New returns the handler of one route.
//
// Request flow:
//
//  1. routes with rules (POST, PUT) decode the JSON body into a payload;
//     an empty or malformed body answers 400
//  2. the payload is checked against the route's rules; failures answer
//     400 with every failed field listed
//  3. the operation runs with the {id} path segment and the payload
//  4. the reply (or the operation's error) is written as JSON
//
// ─────────────────────────────────────────────────────────────────────────────
func New(route resource.Route, v *validation.Validator, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(
		slog.String("resource", route.Resource),
		slog.String("op", route.Op.String()),
	)

	return func(w http.ResponseWriter, r *http.Request) {
		req := resource.Request{ID: chi.URLParam(r, "id")}

		// ── Step 1: Decode JSON body ──────────────────────────────────
		if route.Rules != nil {
			payload, err := decodePayload(r.Body)
			if err != nil {
				response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
				return
			}

			// ── Step 2: Validate the payload ──────────────────────────
			if err := v.Validate(route.Rules, payload); err != nil {
				var verrs validation.Errors
				if errors.As(err, &verrs) {
					response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(verrs))
					return
				}
				response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
				return
			}
			req.Payload = payload
		}

		// ── Step 3: Run the operation ─────────────────────────────────
		reply, err := route.Handler(r.Context(), req)
		if err != nil {
			writeError(w, log, err)
			return
		}

		// ── Step 4: Write the reply ───────────────────────────────────
		if reply.Location != "" {
			w.Header().Set("Location", route.Collection()+reply.Location)
		}
		status := reply.Status
		if status == 0 {
			status = http.StatusOK
		}
		response.WriteJSON(w, status, reply.Body)
	}
}

// decodePayload reads a JSON object from body. A missing body is
// response.ErrEmptyBody; a JSON null decodes to an empty payload.
func decodePayload(body io.Reader) (map[string]any, error) {
	var payload map[string]any

	err := json.NewDecoder(body).Decode(&payload)
	if errors.Is(err, io.EOF) {
		return nil, response.ErrEmptyBody
	}
	if err != nil {
		return nil, err
	}

	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

// writeError answers with the status of a *resource.Error, or 500 for
// anything else.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	var rerr *resource.Error
	if errors.As(err, &rerr) {
		response.WriteJSON(w, rerr.Status(), response.GeneralError(rerr))
		return
	}

	log.Error("unexpected handler error", slog.String("error", err.Error()))
	response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(internalError))
}
