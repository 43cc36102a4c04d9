package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/drakos74/fuzzy-group/internal/math"
	"github.com/drakos74/fuzzy-group/internal/math/ml"
	"github.com/drakos74/fuzzy-group/internal/metrics"
	"github.com/drakos74/fuzzy-group/internal/model"
)

// Request is the payload of a clustering request.
type Request struct {
	Config   ml.Config      `json:"config"`
	Entities []model.Entity `json:"entities"`
}

// MaxIteration bounds the iterations a single request may ask for.
const MaxIteration = 10000

// Cluster creates the route clustering the posted population.
// Every request builds its own model.
func Cluster(m *metrics.Metrics, debug bool) Route {
	return Route{
		Action: Api,
		Path:   "groups",
		Method: POST,
		Exec: func(r *http.Request) ([]byte, int, error) {
			request := Request{
				Config: ml.NewConfig(0),
			}
			if err := JsonRead(r, debug, &request); err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("request exceeds %d bytes: %w", tooLarge.Limit, err)
				}
				return nil, http.StatusBadRequest, fmt.Errorf("could not read request: %w", err)
			}
			if request.Config.MaxIteration > MaxIteration {
				return nil, http.StatusBadRequest, fmt.Errorf("max iteration must be at most %d but was %d: %w",
					MaxIteration, request.Config.MaxIteration, ml.InvalidParameterErr)
			}
			var observers []ml.Observer
			if m != nil {
				observers = append(observers, m.Observe)
			}
			result, err := ml.Cluster(request.Entities, request.Config, observers...)
			if err != nil {
				if m != nil {
					m.Failed()
				}
				if errors.Is(err, ml.InvalidParameterErr) || errors.Is(err, math.LengthMismatchErr) {
					return nil, http.StatusBadRequest, err
				}
				return nil, http.StatusInternalServerError, err
			}
			if m != nil {
				m.Done(result)
			}
			b, err := json.Marshal(result)
			if err != nil {
				return nil, http.StatusInternalServerError, fmt.Errorf("could not marshal result: %w", err)
			}
			return b, http.StatusOK, nil
		},
	}
}
