package session

import "time"

// defaultProfile builds the initial state for a lazily created
// profile. The content sets are placeholders sufficient for the client
// to reach the lobby, not faithfully reverse-engineered values.
// Returns nil for unknown profile types.
func defaultProfile(accountID, ptype string, now time.Time) *Profile {
	p := &Profile{
		AccountID: accountID,
		Type:      ptype,
		Revision:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch ptype {
	case ProfileAthena:
		p.Items = map[string]*Item{
			"AthenaCharacter:CID_028_Athena_Commando_F": {
				TemplateID: "AthenaCharacter:CID_028_Athena_Commando_F",
				Attributes: map[string]any{
					"level":     1,
					"item_seen": true,
					"xp":        0,
					"variants":  []any{},
					"favorite":  false,
				},
				Quantity: 1,
			},
			"AthenaPickaxe:DefaultPickaxe": {
				TemplateID: "AthenaPickaxe:DefaultPickaxe",
				Attributes: map[string]any{"level": 1, "item_seen": true, "favorite": false},
				Quantity:   1,
			},
			"AthenaGlider:DefaultGlider": {
				TemplateID: "AthenaGlider:DefaultGlider",
				Attributes: map[string]any{"level": 1, "item_seen": true, "favorite": false},
				Quantity:   1,
			},
			"AthenaDance:EID_DanceMoves": {
				TemplateID: "AthenaDance:EID_DanceMoves",
				Attributes: map[string]any{"level": 1, "item_seen": true, "favorite": false},
				Quantity:   1,
			},
		}
		p.Stats = map[string]any{
			"season_num":           7,
			"season_update":        40,
			"level":                1,
			"accountLevel":         1,
			"xp":                   0,
			"book_level":           1,
			"book_xp":              0,
			"lifetime_wins":        0,
			"active_loadout_index": 0,
			"last_applied_loadout": "",
			"mfa_reward_claimed":   false,
			"quest_manager": map[string]any{
				"dailyLoginInterval": now.UTC().Format(time.RFC3339),
				"dailyQuestRerolls":  1,
			},
			"season": map[string]any{
				"numWins":        0,
				"numHighBracket": 0,
				"numLowBracket":  0,
			},
		}

	case ProfileCommonCore:
		p.Items = map[string]*Item{
			"Currency:MtxPurchased": {
				TemplateID: "Currency:MtxPurchased",
				Attributes: map[string]any{"platform": "Shared"},
				Quantity:   0,
			},
			"Currency:MtxComplimentary": {
				TemplateID: "Currency:MtxComplimentary",
				Attributes: map[string]any{"platform": "Shared"},
				Quantity:   0,
			},
		}
		p.Stats = map[string]any{
			"current_mtx_platform":      "EpicPC",
			"mtx_purchase_history":      map[string]any{"refundsUsed": 0, "refundCredits": 3},
			"mfa_enabled":               true,
			"allowed_to_send_gifts":     true,
			"allowed_to_receive_gifts":  true,
			"gift_history":              map[string]any{},
			"daily_purchases":           map[string]any{},
			"in_app_purchases":          map[string]any{},
			"undo_timeout":              "9999-12-31T23:59:59.999Z",
			"intro_game_played":         true,
			"mtx_affiliate":            "",
			"inventory_limit_bonus":    0,
		}

	case ProfileCommonPublic:
		p.Items = map[string]*Item{}
		p.Stats = map[string]any{
			"banner_icon":   "StandardBanner1",
			"banner_color":  "DefaultColor1",
			"homebase_name": "Homebase",
		}

	default:
		return nil
	}

	return p
}
