package knowledge

// DefaultStepCategories maps carrier-switch workflow steps to the knowledge categories
// that are relevant while the user is on that step.
var DefaultStepCategories = map[string][]string{
	"welcome":               {"mnp_overview", "general"},
	"check_contract":        {"contract", "fees"},
	"contract_penalty_info": {"fees", "contract"},
	"get_mnp_number":        {"mnp_reservation", "carrier_procedure"},
	"enter_mnp_number":      {"mnp_reservation"},
	"choose_plan":           {"plans", "pricing"},
	"device_check":          {"device", "sim_unlock"},
	"sim_unlock_info":       {"sim_unlock", "device"},
	"identity_docs":         {"documents"},
	"submit_application":    {"application", "mnp_reservation"},
	"activation_au":         {"activation", "sim"},
	"activation":            {"activation", "sim"},
	"complete":              {"general"},

	"esim_intro":       {"esim"},
	"esim_device":      {"esim", "device"},
	"esim_unsupported": {"esim", "device"},
	"esim_eid":         {"esim"},
	"esim_download":    {"esim", "activation"},
	"esim_done":        {"esim"},
}

func isStepRelevant(table map[string][]string, step, category string) bool {
	if step == "" || category == "" {
		return false
	}
	for _, c := range table[step] {
		if c == category {
			return true
		}
	}
	return false
}
