package docs

import (
	"strings"

	"github.com/goccy/go-json"
	"github.com/swaggo/swag"
)

type route struct {
	method, path, tag, summary string
	public                     bool
}

var rideRoutes = []route{
	{"post", "/rides", "Rides", "Request a ride", false},
	{"post", "/rides/quote", "Rides", "Estimate a fare", false},
	{"get", "/rides/{ride_id}", "Rides", "Get a ride", false},
	{"post", "/rides/{ride_id}/cancel", "Rides", "Cancel a ride", false},
	{"post", "/rides/{ride_id}/rate", "Rides", "Rate the driver of a completed ride", false},
	{"get", "/passengers/{id}/rides", "Rides", "Ride history of a passenger", false},
	{"get", "/drivers/available", "Drivers", "Available drivers in a city", false},
	{"get", "/ws/passengers/{passenger_id}", "Rides", "Live ride status or available drivers (WebSocket)", false},
}

var driverRoutes = []route{
	{"post", "/drivers", "Drivers", "Register vehicle and city", false},
	{"get", "/drivers/{driver_id}", "Drivers", "Driver profile and current trip", false},
	{"post", "/drivers/{driver_id}/online", "Drivers", "Start accepting rides", false},
	{"post", "/drivers/{driver_id}/offline", "Drivers", "Stop accepting rides", false},
	{"post", "/drivers/{driver_id}/location", "Drivers", "Report the current position", false},
	{"get", "/drivers/{driver_id}/rides/open", "Dispatch", "Rides the driver may accept now", false},
	{"get", "/drivers/{driver_id}/rides/active", "Dispatch", "The driver's current trip", false},
	{"get", "/rides/{ride_id}", "Rides", "Get a ride", false},
	{"post", "/rides/{ride_id}/accept", "Rides", "Accept an open ride", false},
	{"post", "/rides/{ride_id}/status", "Rides", "Mark arrival or trip start", false},
	{"post", "/rides/{ride_id}/complete", "Rides", "Complete a trip", false},
	{"post", "/rides/{ride_id}/cancel", "Rides", "Cancel an accepted ride", false},
	{"post", "/rides/{ride_id}/rate", "Rides", "Rate the passenger of a completed ride", false},
	{"get", "/ws/drivers/{driver_id}", "Dispatch", "Live dispatch view (WebSocket)", false},
}

var adminRoutes = []route{
	{"get", "/admin/overview", "Admin", "System overview", false},
	{"get", "/admin/rides/active", "Admin", "Rides currently in progress", false},
	{"get", "/admin/drivers", "Admin", "List drivers", false},
	{"get", "/admin/passengers", "Admin", "List passengers", false},
	{"get", "/admin/activity", "Admin", "Latest ride status changes", false},
	{"post", "/admin/users", "Admin", "Provision an account", false},
	{"post", "/admin/drivers/{driver_id}/verification", "Admin", "Set a driver's verification state", false},
	{"post", "/admin/tokens", "Admin", "Issue an access token", false},
}

var common = []route{
	{"get", "/health", "Health", "Health check", true},
	{"get", "/metrics", "Health", "Prometheus metrics", true},
}

func init() {
	register("ride", "Ride Service API", "localhost:3000", rideRoutes)
	register("driver", "Driver Service API", "localhost:3001", driverRoutes)
	register("admin", "Admin Service API", "localhost:3004", adminRoutes)
}

func register(instance, title, host string, routes []route) {
	spec := &swag.Spec{
		Version:          "1.0",
		Host:             host,
		BasePath:         "/",
		Schemes:          []string{"http"},
		Title:            title,
		InfoInstanceName: instance,
		SwaggerTemplate:  template(title, host, append(routes, common...)),
		LeftDelim:        "{{",
		RightDelim:       "}}",
	}
	swag.Register(spec.InstanceName(), spec)
}

// template renders a swagger 2.0 document listing every route.
func template(title, host string, routes []route) string {
	paths := map[string]map[string]any{}
	for _, r := range routes {
		op := map[string]any{
			"tags":      []string{r.tag},
			"summary":   r.summary,
			"produces":  []string{"application/json"},
			"responses": map[string]any{"200": map[string]string{"description": "OK"}},
		}
		if params := pathParams(r.path); len(params) > 0 {
			op["parameters"] = params
		}
		if !r.public {
			op["security"] = []map[string][]string{{"BearerAuth": {}}}
		}
		if paths[r.path] == nil {
			paths[r.path] = map[string]any{}
		}
		paths[r.path][r.method] = op
	}

	doc := map[string]any{
		"swagger":  "2.0",
		"info":     map[string]string{"title": title, "version": "1.0"},
		"host":     host,
		"basePath": "/",
		"paths":    paths,
		"securityDefinitions": map[string]any{
			"BearerAuth": map[string]string{"type": "apiKey", "in": "header", "name": "Authorization"},
		},
	}
	js, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return string(js)
}

func pathParams(path string) []map[string]any {
	var out []map[string]any
	for _, seg := range strings.Split(path, "/") {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			out = append(out, map[string]any{
				"name":     strings.Trim(seg, "{}"),
				"in":       "path",
				"required": true,
				"type":     "string",
			})
		}
	}
	return out
}
