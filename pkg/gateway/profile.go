package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/lanlobby/lanlobby/pkg/session"
)

// commandFunc builds the mutation for one profile command from its
// decoded request body. Returning a nil MutateFunc marks the command
// read-only: it answers with the full profile and does not touch the
// revision.
type commandFunc func(body map[string]any) (session.MutateFunc, error)

// profileCommands is the operation dispatch table. Commands not listed
// here are rejected with operation_not_found, never silently accepted.
var profileCommands = map[string]commandFunc{
	"QueryProfile":                    func(map[string]any) (session.MutateFunc, error) { return nil, nil },
	"ClientQuestLogin":                commandClientQuestLogin,
	"MarkItemSeen":                    commandMarkItemSeen,
	"EquipBattleRoyaleCustomization":  commandEquipCustomization,
	"SetBattleRoyaleBanner":           commandSetBanner,
	"SetCosmeticLockerSlot":           commandSetLockerSlot,
	"SetMtxPlatform":                  commandSetMtxPlatform,
	"ClaimMfaEnabled":                 commandClaimMfaEnabled,
	"ClaimMfaRewards":                 commandClaimMfaEnabled,
	"PurchaseCatalogEntry":            commandPurchaseCatalogEntry,
	"IncrementNamedCounterStat":       commandIncrementCounter,
	"SetAffiliateName":                commandSetAffiliateName,
	"SetReceiveGiftsEnabled":          commandSetReceiveGifts,
	"BulkEquipBattleRoyaleCustomization": commandBulkEquipCustomization,
}

// handleProfileCommand is the single MCP entry point. The command name
// rides in the path, the profile type and expected revision in the
// query string, and command arguments in the JSON body.
func (g *Gateway) handleProfileCommand(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	accountID := vars["accountId"]
	command := vars["command"]

	ptype := r.URL.Query().Get("profileId")
	if ptype == "" {
		ptype = session.ProfileAthena
	}
	rvn := int64(-1)
	if raw := r.URL.Query().Get("rvn"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeVendorError(w, http.StatusBadRequest, codeInvalidOAuthReq, numInvalidOAuthReq,
				"fortnite", "rvn must be an integer", raw)
			return
		}
		rvn = parsed
	}

	if account := requestAccount(r); account != nil {
		g.log.Debug("profile command",
			"command", command,
			"profileId", ptype,
			"rvn", rvn,
			"account", account.DisplayName)
	}

	build, ok := profileCommands[command]
	if !ok {
		writeVendorError(w, http.StatusBadRequest, codeOperationNotFound, numOperationNotFound,
			"fortnite", fmt.Sprintf("Operation %s not valid", command), command)
		return
	}

	body := map[string]any{}
	if r.Body != nil {
		// An empty body is fine; several commands take no arguments.
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	fn, err := build(body)
	if err != nil {
		writeVendorError(w, http.StatusBadRequest, codeInvalidOAuthReq, numInvalidOAuthReq,
			"fortnite", err.Error())
		return
	}

	if fn == nil {
		g.writeQueryProfile(w, accountID, ptype, command)
		return
	}

	result, err := g.store.Mutate(accountID, ptype, rvn, fn)
	if err != nil {
		var notFound *session.NotFoundError
		if errors.As(err, &notFound) {
			writeVendorError(w, http.StatusNotFound, codeProfileNotFound, numProfileNotFound,
				"fortnite", fmt.Sprintf("Unable to find template configuration for profile %s", ptype), ptype)
			return
		}
		writeVendorError(w, http.StatusInternalServerError, codeServerError, numServerError,
			"fortnite", err.Error())
		return
	}

	resp := mcpResponse{
		ProfileRevision:         result.Revision,
		ProfileID:               ptype,
		ProfileChangesBase:      result.BaseRevision,
		ProfileCommandRevision:  result.Revision,
		ServerTime:              formatVendorTime(g.store.Now()),
		ResponseVersion:         1,
	}
	if result.Accepted {
		resp.ProfileChanges = changeMaps(result.Changes)
	} else {
		// Stale revision: answer 200 with a full resync so the client
		// replaces its local state instead of retrying the command.
		resp.ProfileChanges = []map[string]any{{
			"changeType": "fullProfileUpdate",
			"profile":    g.mcpProfile(result.Profile),
		}}
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeQueryProfile answers read-only commands with a full profile
// snapshot at the current revision.
func (g *Gateway) writeQueryProfile(w http.ResponseWriter, accountID, ptype, command string) {
	profile, err := g.store.Profile(accountID, ptype)
	if err != nil {
		writeVendorError(w, http.StatusNotFound, codeProfileNotFound, numProfileNotFound,
			"fortnite", fmt.Sprintf("Unable to find template configuration for profile %s", ptype), ptype)
		return
	}
	writeJSON(w, http.StatusOK, mcpResponse{
		ProfileRevision:        profile.Revision,
		ProfileID:              ptype,
		ProfileChangesBase:     profile.Revision,
		ProfileCommandRevision: profile.Revision,
		ServerTime:             formatVendorTime(g.store.Now()),
		ResponseVersion:        1,
		ProfileChanges: []map[string]any{{
			"changeType": "fullProfileUpdate",
			"profile":    g.mcpProfile(profile),
		}},
	})
}

// mcpResponse is the profile command response envelope.
type mcpResponse struct {
	ProfileRevision        int64            `json:"profileRevision"`
	ProfileID              string           `json:"profileId"`
	ProfileChangesBase     int64            `json:"profileChangesBaseRevision"`
	ProfileChanges         []map[string]any `json:"profileChanges"`
	ProfileCommandRevision int64            `json:"profileCommandRevision"`
	ServerTime             string           `json:"serverTime"`
	ResponseVersion        int              `json:"responseVersion"`
}

// mcpProfile serializes a profile in the client's wire shape.
func (g *Gateway) mcpProfile(p *session.Profile) map[string]any {
	items := make(map[string]any, len(p.Items))
	for id, item := range p.Items {
		items[id] = item
	}
	return map[string]any{
		"_id":             p.AccountID + ":" + p.Type,
		"accountId":       p.AccountID,
		"profileId":       p.Type,
		"created":         formatVendorTime(p.CreatedAt),
		"updated":         formatVendorTime(p.UpdatedAt),
		"rvn":             p.Revision,
		"commandRevision": p.Revision,
		"wipeNumber":      1,
		"version":         "lanlobby_" + g.build,
		"items":           items,
		"stats": map[string]any{
			"attributes": p.Stats,
		},
	}
}

func changeMaps(changes []session.Change) []map[string]any {
	out := make([]map[string]any, 0, len(changes))
	for _, c := range changes {
		m := map[string]any{"changeType": c.ChangeType}
		if c.ItemID != "" {
			m["itemId"] = c.ItemID
		}
		if c.Item != nil {
			m["item"] = c.Item
		}
		if c.Name != "" {
			m["name"] = c.Name
			m["value"] = c.Value
		}
		if c.AttributeName != "" {
			m["attributeName"] = c.AttributeName
			m["attributeValue"] = c.AttributeValue
		}
		out = append(out, m)
	}
	return out
}

func bodyString(body map[string]any, key string) string {
	s, _ := body[key].(string)
	return s
}

func bodyStrings(body map[string]any, key string) []string {
	raw, _ := body[key].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func bodyInt(body map[string]any, key string) int {
	f, _ := body[key].(float64)
	return int(f)
}

func statChange(name string, value any) session.Change {
	return session.Change{ChangeType: "statModified", Name: name, Value: value}
}

// commandClientQuestLogin records the daily login. The client issues
// it once per session start; each call is an accepted mutation.
func commandClientQuestLogin(map[string]any) (session.MutateFunc, error) {
	return func(p *session.Profile) ([]session.Change, error) {
		qm, _ := p.Stats["quest_manager"].(map[string]any)
		if qm == nil {
			qm = map[string]any{}
		}
		qm["dailyLoginInterval"] = formatVendorTime(p.UpdatedAt)
		p.Stats["quest_manager"] = qm
		return []session.Change{statChange("quest_manager", qm)}, nil
	}, nil
}

// commandMarkItemSeen clears the "new" badge on store or locker items.
// Unknown item ids are skipped; the vendor does not fail the command.
func commandMarkItemSeen(body map[string]any) (session.MutateFunc, error) {
	itemIDs := bodyStrings(body, "itemIds")
	return func(p *session.Profile) ([]session.Change, error) {
		var changes []session.Change
		for _, itemID := range itemIDs {
			item, ok := p.Items[itemID]
			if !ok {
				continue
			}
			if item.Attributes == nil {
				item.Attributes = map[string]any{}
			}
			item.Attributes["item_seen"] = true
			changes = append(changes, session.Change{
				ChangeType:     "itemAttrChanged",
				ItemID:         itemID,
				AttributeName:  "item_seen",
				AttributeValue: true,
			})
		}
		return changes, nil
	}, nil
}

// equipSlot applies one customization slot assignment to athena stats.
func equipSlot(p *session.Profile, slotName, itemToSlot string, index int) []session.Change {
	slot := strings.ToLower(slotName)
	switch slot {
	case "itemwrap":
		slot = "itemwraps"
	case "dance":
		key := "favorite_dance"
		raw, _ := p.Stats[key].([]any)
		for len(raw) <= index {
			raw = append(raw, "")
		}
		if index >= 0 {
			raw[index] = itemToSlot
		}
		p.Stats[key] = raw
		return []session.Change{statChange(key, raw)}
	}
	key := "favorite_" + slot
	p.Stats[key] = itemToSlot
	return []session.Change{statChange(key, itemToSlot)}
}

func commandEquipCustomization(body map[string]any) (session.MutateFunc, error) {
	slotName := bodyString(body, "slotName")
	if slotName == "" {
		return nil, errors.New("slotName is required")
	}
	itemToSlot := bodyString(body, "itemToSlot")
	index := bodyInt(body, "indexWithinSlot")
	return func(p *session.Profile) ([]session.Change, error) {
		return equipSlot(p, slotName, itemToSlot, index), nil
	}, nil
}

func commandBulkEquipCustomization(body map[string]any) (session.MutateFunc, error) {
	raw, _ := body["loadoutData"].([]any)
	return func(p *session.Profile) ([]session.Change, error) {
		var changes []session.Change
		for _, entry := range raw {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			slotName, _ := m["slotName"].(string)
			itemToSlot, _ := m["itemToSlot"].(string)
			index := bodyInt(m, "indexWithinSlot")
			if slotName == "" {
				continue
			}
			changes = append(changes, equipSlot(p, slotName, itemToSlot, index)...)
		}
		return changes, nil
	}, nil
}

func commandSetBanner(body map[string]any) (session.MutateFunc, error) {
	icon := bodyString(body, "homebaseBannerIconId")
	color := bodyString(body, "homebaseBannerColorId")
	return func(p *session.Profile) ([]session.Change, error) {
		p.Stats["banner_icon"] = icon
		p.Stats["banner_color"] = color
		return []session.Change{
			statChange("banner_icon", icon),
			statChange("banner_color", color),
		}, nil
	}, nil
}

func commandSetLockerSlot(body map[string]any) (session.MutateFunc, error) {
	category := bodyString(body, "category")
	if category == "" {
		return nil, errors.New("category is required")
	}
	itemToSlot := bodyString(body, "itemToSlot")
	index := bodyInt(body, "slotIndex")
	return func(p *session.Profile) ([]session.Change, error) {
		return equipSlot(p, category, itemToSlot, index), nil
	}, nil
}

func commandSetMtxPlatform(body map[string]any) (session.MutateFunc, error) {
	platform := bodyString(body, "newPlatform")
	if platform == "" {
		platform = "EpicPC"
	}
	return func(p *session.Profile) ([]session.Change, error) {
		p.Stats["current_mtx_platform"] = platform
		return []session.Change{statChange("current_mtx_platform", platform)}, nil
	}, nil
}

func commandClaimMfaEnabled(map[string]any) (session.MutateFunc, error) {
	return func(p *session.Profile) ([]session.Change, error) {
		p.Stats["mfa_reward_claimed"] = true
		return []session.Change{statChange("mfa_reward_claimed", true)}, nil
	}, nil
}

// commandPurchaseCatalogEntry acknowledges a store purchase. With an
// empty catalog there is nothing to grant, but the revision still
// advances so the client's purchase flow completes.
func commandPurchaseCatalogEntry(body map[string]any) (session.MutateFunc, error) {
	offerID := bodyString(body, "offerId")
	return func(p *session.Profile) ([]session.Change, error) {
		history, _ := p.Stats["mtx_purchase_history"].(map[string]any)
		if history == nil {
			history = map[string]any{"refundsUsed": 0, "refundCredits": 3, "purchases": []any{}}
		}
		purchases, _ := history["purchases"].([]any)
		history["purchases"] = append(purchases, map[string]any{
			"purchaseId":   offerID,
			"offerId":      offerID,
			"purchaseDate": formatVendorTime(p.UpdatedAt),
			"freeRefundEligible": false,
		})
		p.Stats["mtx_purchase_history"] = history
		return []session.Change{statChange("mtx_purchase_history", history)}, nil
	}, nil
}

func commandIncrementCounter(body map[string]any) (session.MutateFunc, error) {
	name := bodyString(body, "counterName")
	if name == "" {
		return nil, errors.New("counterName is required")
	}
	return func(p *session.Profile) ([]session.Change, error) {
		counters, _ := p.Stats["named_counters"].(map[string]any)
		if counters == nil {
			counters = map[string]any{}
		}
		entry, _ := counters[name].(map[string]any)
		if entry == nil {
			entry = map[string]any{"current_count": float64(0)}
		}
		count, _ := entry["current_count"].(float64)
		entry["current_count"] = count + 1
		entry["last_incremented_time"] = formatVendorTime(p.UpdatedAt)
		counters[name] = entry
		p.Stats["named_counters"] = counters
		return []session.Change{statChange("named_counters", counters)}, nil
	}, nil
}

func commandSetAffiliateName(body map[string]any) (session.MutateFunc, error) {
	name := bodyString(body, "affiliateName")
	return func(p *session.Profile) ([]session.Change, error) {
		p.Stats["mtx_affiliate"] = name
		p.Stats["mtx_affiliate_set_time"] = formatVendorTime(p.UpdatedAt)
		return []session.Change{
			statChange("mtx_affiliate", name),
			statChange("mtx_affiliate_set_time", p.Stats["mtx_affiliate_set_time"]),
		}, nil
	}, nil
}

func commandSetReceiveGifts(body map[string]any) (session.MutateFunc, error) {
	enabled, _ := body["bReceiveGifts"].(bool)
	return func(p *session.Profile) ([]session.Change, error) {
		p.Stats["allowed_to_receive_gifts"] = enabled
		return []session.Change{statChange("allowed_to_receive_gifts", enabled)}, nil
	}, nil
}
