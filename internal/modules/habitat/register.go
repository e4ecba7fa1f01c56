// Package habitat wires the habitat telemetry feature into the HTTP mux and
// the MQTT subscriber.
package habitat

import (
	"net/http"

	"habitat-monitor/internal/modules/habitat/controller"
	"habitat-monitor/internal/modules/habitat/service"
	"habitat-monitor/internal/mqtt"
)

// RegisterFeature mounts the habitat routes on mux. A nil subscriber leaves
// MQTT ingestion off.
func RegisterFeature(mux *http.ServeMux, svc *service.Service, subscriber mqtt.MQTTSubscriber) {
	habitatController := controller.NewHabitatController(svc)
	habitatController.RegisterRoutes(mux)
	if subscriber != nil {
		svc.RegisterMQTT(subscriber)
	}
}
