package controllers

import (
	"net/http"

	"github.com/angelmondragon/packfinderz-field/api/responses"
	"github.com/angelmondragon/packfinderz-field/api/validators"
	"github.com/angelmondragon/packfinderz-field/internal/connectivity"
	"github.com/angelmondragon/packfinderz-field/pkg/logger"
)

type connectivityReport struct {
	IsConnected         bool  `json:"isConnected"`
	IsInternetReachable *bool `json:"isInternetReachable"`
}

// ReportConnectivity receives platform reachability changes from the device
// shell. A missing reachability value maps to the unknown tri-state.
func ReportConnectivity(monitor *connectivity.Monitor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body connectivityReport
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state := connectivity.State{
			Connected:    body.IsConnected,
			Reachability: connectivity.ReachabilityUnknown,
		}
		if body.IsInternetReachable != nil {
			if *body.IsInternetReachable {
				state.Reachability = connectivity.ReachabilityReachable
			} else {
				state.Reachability = connectivity.ReachabilityUnreachable
			}
		}

		monitor.HandleStateChange(r.Context(), state)
		responses.WriteSuccess(w, monitor.Status())
	}
}
