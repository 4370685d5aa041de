package gateway

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Season window reported on the timeline. The client schedules its
// lobby presentation and event flags from these.
const (
	seasonNumber = 7
	seasonBegin  = "2018-12-06T00:00:00.000Z"
	seasonEnd    = "2019-02-28T00:00:00.000Z"
)

// handleTimeline publishes the calendar the client polls for season
// state and event activation.
func (g *Gateway) handleTimeline(w http.ResponseWriter, _ *http.Request) {
	now := g.store.Now()
	state := map[string]any{
		"validFrom": seasonBegin,
		"activeEvents": []map[string]any{
			{
				"eventType":   "EventFlag.Season7",
				"activeUntil": seasonEnd,
				"activeSince": seasonBegin,
			},
			{
				"eventType":   "EventFlag.LobbySeason7",
				"activeUntil": seasonEnd,
				"activeSince": seasonBegin,
			},
		},
		"state": map[string]any{
			"seasonNumber":        seasonNumber,
			"seasonTemplateId":    "AthenaSeason:athenaseason7",
			"seasonBegin":         seasonBegin,
			"seasonEnd":           seasonEnd,
			"seasonDisplayedEnd":  seasonEnd,
			"dailyStoreEnd":       formatVendorTime(now.Add(24 * time.Hour)),
			"weeklyStoreEnd":      formatVendorTime(now.Add(7 * 24 * time.Hour)),
			"sectionStoreEnds":    map[string]any{},
			"activeStorefronts":   []any{},
			"eventNamedWeights":   map[string]any{},
		},
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"channels": map[string]any{
			"client-events": map[string]any{
				"states":      []any{state},
				"cacheExpire": formatVendorTime(now.Add(10 * time.Minute)),
			},
			"client-matchmaking": map[string]any{
				"states":      []any{},
				"cacheExpire": formatVendorTime(now.Add(10 * time.Minute)),
			},
		},
		"cacheIntervalMins": 10,
		"currentTime":       formatVendorTime(now),
	})
}

// handleContentPages serves the lobby news and background content the
// client renders on the front end.
func (g *Gateway) handleContentPages(w http.ResponseWriter, _ *http.Request) {
	now := formatVendorTime(g.store.Now())
	news := map[string]any{
		"news": map[string]any{
			"messages": []map[string]any{{
				"title":     "LAN Lobby",
				"body":      "Welcome to your local lobby. Queue up to start a match.",
				"image":     "",
				"adspace":   "",
				"spotlight": false,
				"hidden":    false,
			}},
		},
		"_title":       "battleroyalenews",
		"_activeDate":  seasonBegin,
		"lastModified": now,
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"_title":            "Fortnite Game",
		"_activeDate":       seasonBegin,
		"lastModified":      now,
		"battleroyalenews":  news,
		"subgameselectdata": map[string]any{
			"saveTheWorldUnowned": map[string]any{
				"message": map[string]any{
					"title":  "Co-op PvE",
					"body":   "Cooperative PvE storm-fighting adventure!",
					"hidden": true,
				},
			},
			"battleRoyale": map[string]any{
				"message": map[string]any{
					"title":  "100 Player PvP",
					"body":   "100 Player PvP, last one standing wins.",
					"hidden": false,
				},
			},
			"_title":       "subgameselectdata",
			"_activeDate":  seasonBegin,
			"lastModified": now,
		},
		"emergencynotice": map[string]any{
			"news": map[string]any{
				"messages": []any{},
			},
			"_title":       "emergencynotice",
			"_activeDate":  seasonBegin,
			"lastModified": now,
		},
	})
}

// handleCatalog serves an empty storefront set. Purchases still work
// against it; there is simply nothing to buy.
func (g *Gateway) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"refreshIntervalHrs": 24,
		"dailyPurchaseHrs":   24,
		"expiration":         formatVendorTime(g.store.Now().Add(24 * time.Hour)),
		"storefronts": []map[string]any{
			{"name": "BRDailyStorefront", "catalogEntries": []any{}},
			{"name": "BRWeeklyStorefront", "catalogEntries": []any{}},
		},
	})
}

func (g *Gateway) handleKeychain(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []string{})
}

func serviceStatus(serviceID string) map[string]any {
	return map[string]any{
		"serviceInstanceId": serviceID,
		"status":            "UP",
		"message":           "Fortnite is online",
		"maintenanceUri":    nil,
		"allowedActions":    []string{"PLAY", "DOWNLOAD"},
		"banned":            false,
		"launcherInfoDTO": map[string]any{
			"appName":       "Fortnite",
			"catalogItemId": "4fe75bbc5a674f4f9b356b5c90567da5",
			"namespace":     "fn",
		},
	}
}

func (g *Gateway) handleLightswitchBulk(w http.ResponseWriter, r *http.Request) {
	serviceID := r.URL.Query().Get("serviceId")
	if serviceID == "" {
		serviceID = "fortnite"
	}
	writeJSON(w, http.StatusOK, []map[string]any{serviceStatus(serviceID)})
}

func (g *Gateway) handleLightswitch(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, serviceStatus("fortnite"))
}

func (g *Gateway) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app":            "fortnite",
		"serverDate":     formatVendorTime(g.store.Now()),
		"overridePropertiesVersion": "unknown",
		"cln":            "4834769",
		"build":          "444",
		"moduleName":     "Fortnite-Core",
		"buildDate":      "2019-02-14T00:00:00.000Z",
		"version":        g.build,
		"branch":         "Release-" + g.build,
		"modules":        map[string]any{},
	})
}

// handleVersionCheck always reports NO_UPDATE. A SOFT_UPDATE or
// HARD_UPDATE answer would push the client into the vendor patcher,
// which cannot work against an emulated backend.
func (g *Gateway) handleVersionCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"type": "NO_UPDATE"})
}

// Cloud storage is advertised empty: the client then runs on its local
// defaults instead of fetching hotfix ini files.
func (g *Gateway) handleCloudStorageSystem(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []any{})
}

func (g *Gateway) handleCloudStorageFile(w http.ResponseWriter, r *http.Request) {
	writeVendorError(w, http.StatusNotFound, codeCommonNotFound, numCommonNotFound,
		"fortnite", "Cloud storage file not found", mux.Vars(r)["file"])
}

func (g *Gateway) handleCloudStorageUser(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []any{})
}

// handleCloudStorageUserFile accepts client settings uploads without
// storing them and reports absence on reads.
func (g *Gateway) handleCloudStorageUserFile(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPut {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeVendorError(w, http.StatusNotFound, codeCommonNotFound, numCommonNotFound,
		"fortnite", "Cloud storage file not found", mux.Vars(r)["file"])
}

func (g *Gateway) handleWaitingRoom(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// handleDataRouter swallows client telemetry. Nothing is recorded.
func (g *Gateway) handleDataRouter(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// handleEULA reports no outstanding agreement so the client skips the
// acceptance screen.
func (g *Gateway) handleEULA(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleEnabledFeatures(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []any{})
}
